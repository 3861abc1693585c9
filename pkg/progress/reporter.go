package progress

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Reporter periodically logs a progress snapshot. Counter updates can
// arrive far faster than once per interval; the reporter only throttles
// how often a line is emitted, never the counters themselves.
type Reporter struct {
	tracker  *Tracker
	interval time.Duration
	logger   zerolog.Logger

	stopOnce sync.Once
	stop     chan struct{}
	done     chan struct{}
}

// NewReporter creates a reporter that logs one snapshot per interval.
// Intervals below one second are raised to one second.
func NewReporter(tracker *Tracker, interval time.Duration, logger zerolog.Logger) *Reporter {
	if interval < time.Second {
		interval = time.Second
	}

	return &Reporter{
		tracker:  tracker,
		interval: interval,
		logger:   logger,
		stop:     make(chan struct{}),
		done:     make(chan struct{}),
	}
}

// Start launches the reporting loop. It returns immediately; the loop
// runs until Stop is called or ctx is done.
func (r *Reporter) Start(ctx context.Context) {
	go func() {
		defer close(r.done)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ticker.C:
				r.emit()
			case <-ctx.Done():
				return
			case <-r.stop:
				return
			}
		}
	}()
}

// Stop terminates the reporting loop and waits for it to exit. Safe to
// call more than once.
func (r *Reporter) Stop() {
	r.stopOnce.Do(func() {
		close(r.stop)
	})
	<-r.done
}

// emit logs one snapshot line.
func (r *Reporter) emit() {
	s := r.tracker.Snapshot()

	event := r.logger.Info().
		Int("units_completed", s.CompletedUnits).
		Int("units_total", s.TotalUnits).
		Int("units_failed", s.FailedUnits).
		Int("groups_completed", s.CompletedGroups).
		Int("groups_total", s.TotalGroups).
		Int("collections_completed", s.CompletedCollections).
		Int("collections_total", s.TotalCollections).
		Dur("elapsed", s.Elapsed).
		Float64("units_per_second", s.UnitsPerSecond)

	if s.Remaining > 0 {
		event = event.Dur("eta", s.Remaining)
	}

	event.Msg("Import progress")
}
