package runner

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/rs/zerolog"

	"github.com/maligree/corpus-import/pkg/pacing"
	"github.com/maligree/corpus-import/pkg/progress"
)

// Prometheus metrics for unit execution.
var (
	unitAttemptsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_unit_attempts_total",
		Help: "Total fetch/parse/persist attempts across all units",
	})

	unitRetriesTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_unit_retries_total",
		Help: "Total attempts beyond the first per unit",
	})

	unitExhaustedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_unit_retry_exhausted_total",
		Help: "Units that failed permanently after exhausting their retry budget",
	})
)

// Runner drives one unit through its state machine: acquire a pacing
// slot, fetch, parse, persist; retry on any failure up to the attempt
// budget with a fixed delay between attempts.
type Runner struct {
	collab      Collaborators
	pacer       *pacing.Pacer
	tracker     *progress.Tracker
	maxAttempts int
	retryDelay  time.Duration
	logger      zerolog.Logger
}

// New creates a runner. maxAttempts is the total number of tries per
// unit, including the first.
func New(collab Collaborators, pacer *pacing.Pacer, tracker *progress.Tracker, maxAttempts int, retryDelay time.Duration, logger zerolog.Logger) (*Runner, error) {
	if collab.Fetcher == nil || collab.Parser == nil || collab.Persister == nil {
		return nil, fmt.Errorf("all three collaborators (fetcher, parser, persister) are required")
	}
	if pacer == nil {
		return nil, fmt.Errorf("pacer is required")
	}
	if tracker == nil {
		return nil, fmt.Errorf("progress tracker is required")
	}
	if maxAttempts <= 0 {
		return nil, fmt.Errorf("max attempts must be positive (got %d)", maxAttempts)
	}
	if retryDelay < 0 {
		return nil, fmt.Errorf("retry delay must not be negative (got %v)", retryDelay)
	}

	return &Runner{
		collab:      collab,
		pacer:       pacer,
		tracker:     tracker,
		maxAttempts: maxAttempts,
		retryDelay:  retryDelay,
		logger:      logger,
	}, nil
}

// Run executes one unit to its terminal state and reports it to the
// progress tracker exactly once. Failures are absorbed into the
// returned UnitResult; Run never returns an error to the scheduler.
//
// Retries are unconditional on error type: the runner cannot tell a
// network blip from a bad payload, so every failure consumes one
// attempt. The error from each failed attempt is logged with its
// attempt number; only the last one is retained in the result.
func (r *Runner) Run(ctx context.Context, ref UnitRef) UnitResult {
	var lastErr error

	for attempt := 1; attempt <= r.maxAttempts; attempt++ {
		unitAttemptsTotal.Inc()
		if attempt > 1 {
			unitRetriesTotal.Inc()
		}

		storageRef, err := r.attempt(ctx, ref)
		if err == nil {
			if attempt > 1 {
				r.logger.Info().
					Str("collection", ref.CollectionID).
					Str("group", ref.GroupID).
					Int("unit", ref.Index).
					Int("attempt", attempt).
					Msg("Unit succeeded after retry")
			}
			r.tracker.UnitSucceeded()
			return UnitResult{Index: ref.Index, Ref: storageRef, Attempts: attempt}
		}

		lastErr = err
		r.logger.Warn().
			Err(err).
			Str("collection", ref.CollectionID).
			Str("group", ref.GroupID).
			Int("unit", ref.Index).
			Int("attempt", attempt).
			Int("max_attempts", r.maxAttempts).
			Msg("Unit attempt failed")

		// An aborted run stops retrying immediately; the partial
		// attempt count is kept in the failure marker.
		if ctx.Err() != nil {
			r.tracker.UnitFailed()
			return UnitResult{Index: ref.Index, Attempts: attempt, Err: lastErr}
		}

		if attempt == r.maxAttempts {
			break
		}

		if err := r.backoff(ctx); err != nil {
			r.tracker.UnitFailed()
			return UnitResult{Index: ref.Index, Attempts: attempt, Err: lastErr}
		}
	}

	unitExhaustedTotal.Inc()
	r.logger.Error().
		Err(lastErr).
		Str("collection", ref.CollectionID).
		Str("group", ref.GroupID).
		Int("unit", ref.Index).
		Int("attempts", r.maxAttempts).
		Msg("Unit failed permanently")

	r.tracker.UnitFailed()
	return UnitResult{Index: ref.Index, Attempts: r.maxAttempts, Err: lastErr}
}

// attempt performs one fetch → parse → persist pass. A collaborator
// panic counts as a failed attempt for this unit only.
func (r *Runner) attempt(ctx context.Context, ref UnitRef) (storageRef string, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("collaborator panic: %v", p)
		}
	}()

	if err := r.pacer.Acquire(ctx); err != nil {
		return "", fmt.Errorf("pacing wait: %w", err)
	}

	raw, err := r.collab.Fetcher.FetchUnit(ctx, ref.CollectionPath, ref.GroupID, ref.Index)
	if err != nil {
		return "", fmt.Errorf("fetch unit: %w", err)
	}

	unit, err := r.collab.Parser.ParseUnit(raw, ref.GroupID, ref.Index, ref.CollectionID)
	if err != nil {
		return "", fmt.Errorf("parse unit: %w", err)
	}

	storageRef, err = r.collab.Persister.PersistUnit(ctx, unit)
	if err != nil {
		return "", fmt.Errorf("persist unit: %w", err)
	}

	return storageRef, nil
}

// backoff waits the fixed retry delay, honoring cancellation.
func (r *Runner) backoff(ctx context.Context) error {
	if r.retryDelay == 0 {
		return nil
	}

	timer := time.NewTimer(r.retryDelay)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
