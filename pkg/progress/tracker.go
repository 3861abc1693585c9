// Package progress maintains exact run counters and derives throughput
// and ETA figures from them. Counters are updated from many concurrent
// unit completions; reporting cadence is throttled separately by the
// Reporter so the counters themselves stay exact.
package progress

import (
	"sync/atomic"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for import progress.
var (
	unitsSucceededGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "import_units_succeeded",
		Help: "Units persisted successfully in the current run",
	})

	unitsFailedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "import_units_failed",
		Help: "Units that exhausted their retry budget in the current run",
	})

	groupsCompletedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "import_groups_completed",
		Help: "Groups whose unit tasks have all resolved in the current run",
	})

	collectionsCompletedGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "import_collections_completed",
		Help: "Collections whose group tasks have all resolved in the current run",
	})
)

// Totals holds the job-wide work counts known before any task runs.
type Totals struct {
	Units       int
	Groups      int
	Collections int
}

// Snapshot is a read-only point-in-time view of the run. Consumers must
// not mutate it; a new one is produced per call.
type Snapshot struct {
	TotalUnits     int
	SucceededUnits int
	FailedUnits    int
	CompletedUnits int

	TotalGroups     int
	CompletedGroups int

	TotalCollections     int
	CompletedCollections int

	Elapsed        time.Duration
	UnitsPerSecond float64

	// Remaining is the derived ETA. Zero when no unit has completed
	// yet, so an idle or empty run never divides by zero.
	Remaining time.Duration
}

// Tracker owns the monotonically increasing run counters. All
// increment methods are safe for concurrent use.
type Tracker struct {
	totals Totals
	start  time.Time

	succeeded   atomic.Int64
	failed      atomic.Int64
	groups      atomic.Int64
	collections atomic.Int64
}

// NewTracker seeds a tracker from the job totals and starts the clock.
func NewTracker(totals Totals) *Tracker {
	unitsSucceededGauge.Set(0)
	unitsFailedGauge.Set(0)
	groupsCompletedGauge.Set(0)
	collectionsCompletedGauge.Set(0)

	return &Tracker{
		totals: totals,
		start:  time.Now(),
	}
}

// UnitSucceeded records one unit persisted successfully.
func (t *Tracker) UnitSucceeded() {
	unitsSucceededGauge.Set(float64(t.succeeded.Add(1)))
}

// UnitFailed records one unit that failed permanently.
func (t *Tracker) UnitFailed() {
	unitsFailedGauge.Set(float64(t.failed.Add(1)))
}

// GroupCompleted records one group whose unit tasks have all resolved.
func (t *Tracker) GroupCompleted() {
	groupsCompletedGauge.Set(float64(t.groups.Add(1)))
}

// CollectionCompleted records one collection whose group tasks have all
// resolved.
func (t *Tracker) CollectionCompleted() {
	collectionsCompletedGauge.Set(float64(t.collections.Add(1)))
}

// Snapshot derives the current progress view. Rate and ETA are zero
// until at least one unit has completed.
func (t *Tracker) Snapshot() Snapshot {
	succeeded := int(t.succeeded.Load())
	failed := int(t.failed.Load())
	completed := succeeded + failed
	elapsed := time.Since(t.start)

	s := Snapshot{
		TotalUnits:           t.totals.Units,
		SucceededUnits:       succeeded,
		FailedUnits:          failed,
		CompletedUnits:       completed,
		TotalGroups:          t.totals.Groups,
		CompletedGroups:      int(t.groups.Load()),
		TotalCollections:     t.totals.Collections,
		CompletedCollections: int(t.collections.Load()),
		Elapsed:              elapsed,
	}

	if completed > 0 && elapsed > 0 {
		s.UnitsPerSecond = float64(completed) / elapsed.Seconds()
		estimatedTotal := time.Duration(float64(t.totals.Units) / s.UnitsPerSecond * float64(time.Second))
		if remaining := estimatedTotal - elapsed; remaining > 0 {
			s.Remaining = remaining
		}
	}

	return s
}
