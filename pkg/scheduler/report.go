package scheduler

import (
	"time"

	"github.com/maligree/corpus-import/pkg/progress"
	"github.com/maligree/corpus-import/pkg/runner"
)

// UnitFailure records one permanently failed unit for the final
// summary.
type UnitFailure struct {
	CollectionID string `json:"collection_id"`
	GroupID      string `json:"group_id"`
	Index        int    `json:"index"`
	Attempts     int    `json:"attempts"`
	LastError    string `json:"last_error"`
}

// GroupResult holds the successful unit results of one group in
// ascending index order. Failed units keep their index as a hole; they
// are counted and enumerated, never inserted as placeholders. It is
// built only after every unit task of the group has resolved.
type GroupResult struct {
	GroupID string
	Name    string

	// Units are the successful results, sorted by unit index.
	Units []runner.UnitResult

	// FailedUnits counts permanent failures in this group. A group
	// whose every unit failed still completed; callers inspect this
	// count, not an error, to judge it.
	FailedUnits int

	Failures []UnitFailure
}

// CollectionResult holds one collection's group results in the job
// description's group order, regardless of completion order.
type CollectionResult struct {
	CollectionID string
	Name         string
	Groups       []GroupResult
}

// Report is the outcome of one run: ordered results, the enumerated
// permanent failures, and the final counters.
type Report struct {
	// Collections are in the job description's order exactly.
	Collections []CollectionResult

	// Failures enumerates every permanently failed unit.
	Failures []UnitFailure

	// Final is the progress snapshot taken after the last task
	// resolved.
	Final progress.Snapshot

	Elapsed time.Duration
}

// Succeeded reports whether no unit failed permanently. Interpretation
// (exit codes and the like) is left to the caller.
func (r *Report) Succeeded() bool {
	return len(r.Failures) == 0
}

// UnitsPerSecond is the run's overall throughput.
func (r *Report) UnitsPerSecond() float64 {
	return r.Final.UnitsPerSecond
}
