package scheduler

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"github.com/maligree/corpus-import/pkg/pacing"
	"github.com/maligree/corpus-import/pkg/pool"
	"github.com/maligree/corpus-import/pkg/progress"
	"github.com/maligree/corpus-import/pkg/runner"
)

// Pool names used for metric labels.
const (
	poolCollections = "collections"
	poolGroups      = "groups"
	poolUnits       = "units"
)

// Scheduler orchestrates one bulk-import job. Create with New; one
// scheduler may run multiple jobs sequentially, each run with fresh
// pools, pacer, and tracker.
type Scheduler struct {
	cfg    Config
	collab runner.Collaborators
	logger zerolog.Logger
}

// New validates the config and collaborator bundle up front, so a
// misconfigured run fails before any task is scheduled.
func New(cfg Config, collab runner.Collaborators, logger zerolog.Logger) (*Scheduler, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	if collab.Fetcher == nil || collab.Parser == nil || collab.Persister == nil {
		return nil, fmt.Errorf("all three collaborators (fetcher, parser, persister) are required")
	}

	return &Scheduler{
		cfg:    cfg,
		collab: collab,
		logger: logger.With().Str("component", "scheduler").Logger(),
	}, nil
}

// Run imports the whole job and returns the ordered results. The
// returned report lists collections in job order exactly, independent
// of completion order. Unit failures are absorbed into the report; Run
// itself only errs on invalid input or a cancelled context.
func (s *Scheduler) Run(ctx context.Context, job JobDescription) (*Report, error) {
	if err := job.Validate(); err != nil {
		return nil, err
	}

	totals := job.Totals()
	start := time.Now()

	s.logger.Info().
		Int("collections", totals.Collections).
		Int("groups", totals.Groups).
		Int("units", totals.Units).
		Msg("Starting import run")

	tracker := progress.NewTracker(totals)

	pacer, err := pacing.New(s.cfg.InterRequestDelay)
	if err != nil {
		return nil, err
	}

	unitRunner, err := runner.New(s.collab, pacer, tracker, s.cfg.MaxRetries, s.cfg.RetryDelay, s.logger)
	if err != nil {
		return nil, err
	}

	reporter := progress.NewReporter(tracker, s.cfg.ProgressInterval, s.logger)
	reporter.Start(ctx)
	defer reporter.Stop()

	collectionPool, err := pool.New[CollectionResult](poolCollections, s.cfg.MaxCollectionConcurrency)
	if err != nil {
		return nil, err
	}

	tasks := make([]*pool.Task[CollectionResult], len(job.Collections))
	for i, col := range job.Collections {
		col := col
		tasks[i] = collectionPool.Submit(ctx, func(ctx context.Context) (CollectionResult, error) {
			return s.runCollection(ctx, unitRunner, tracker, col)
		})
	}

	// Waiting in submission order restores the job description's
	// collection order no matter how completions interleave.
	report := &Report{Collections: make([]CollectionResult, len(tasks))}
	for i, task := range tasks {
		result, err := task.Wait()
		if err != nil {
			// Only a cancelled context resolves a collection task with
			// an error; record the collection as untouched.
			result = CollectionResult{
				CollectionID: job.Collections[i].ID,
				Name:         job.Collections[i].Name,
			}
		}
		report.Collections[i] = result
		for _, g := range result.Groups {
			report.Failures = append(report.Failures, g.Failures...)
		}
	}

	collectionPool.Drain()

	report.Final = tracker.Snapshot()
	report.Elapsed = time.Since(start)

	event := s.logger.Info()
	if !report.Succeeded() {
		event = s.logger.Warn()
	}
	event.
		Int("units_succeeded", report.Final.SucceededUnits).
		Int("units_failed", report.Final.FailedUnits).
		Int("groups_completed", report.Final.CompletedGroups).
		Int("collections_completed", report.Final.CompletedCollections).
		Dur("elapsed", report.Elapsed).
		Float64("units_per_second", report.Final.UnitsPerSecond).
		Msg("Import run finished")

	if err := ctx.Err(); err != nil {
		return report, fmt.Errorf("run aborted: %w", err)
	}
	return report, nil
}

// runCollection imports one collection with fresh group and unit pools
// scoped to it, so sibling collections never share a level's bound.
func (s *Scheduler) runCollection(ctx context.Context, unitRunner *runner.Runner, tracker *progress.Tracker, col Collection) (CollectionResult, error) {
	groupPool, err := pool.New[GroupResult](poolGroups, s.cfg.MaxGroupConcurrency)
	if err != nil {
		return CollectionResult{}, err
	}
	unitPool, err := pool.New[runner.UnitResult](poolUnits, s.cfg.MaxUnitConcurrency)
	if err != nil {
		return CollectionResult{}, err
	}

	s.logger.Debug().
		Str("collection", col.ID).
		Int("groups", len(col.Groups)).
		Msg("Collection admitted")

	tasks := make([]*pool.Task[GroupResult], len(col.Groups))
	for i, g := range col.Groups {
		g := g
		tasks[i] = groupPool.Submit(ctx, func(ctx context.Context) (GroupResult, error) {
			return s.runGroup(ctx, unitRunner, tracker, unitPool, col, g)
		})
	}

	// Group tasks complete in any order under concurrency; indexing by
	// submission position restores the original group order.
	result := CollectionResult{
		CollectionID: col.ID,
		Name:         col.Name,
		Groups:       make([]GroupResult, len(col.Groups)),
	}
	for i, task := range tasks {
		gr, err := task.Wait()
		if err != nil {
			gr = GroupResult{GroupID: col.Groups[i].ID, Name: col.Groups[i].Name}
		}
		result.Groups[i] = gr
	}

	groupPool.Drain()
	unitPool.Drain()

	tracker.CollectionCompleted()
	s.logger.Debug().
		Str("collection", col.ID).
		Msg("Collection completed")

	return result, nil
}

// runGroup enqueues the group's unit tasks (indices 1..UnitCount) and
// aggregates them once all have resolved, never partially. A zero-unit
// group completes empty without submitting anything.
func (s *Scheduler) runGroup(ctx context.Context, unitRunner *runner.Runner, tracker *progress.Tracker, unitPool *pool.Pool[runner.UnitResult], col Collection, g Group) (GroupResult, error) {
	result := GroupResult{GroupID: g.ID, Name: g.Name}

	tasks := make([]*pool.Task[runner.UnitResult], 0, g.UnitCount)
	for idx := 1; idx <= g.UnitCount; idx++ {
		ref := runner.UnitRef{
			CollectionID:   col.ID,
			CollectionPath: col.RemotePath(),
			GroupID:        g.ID,
			Index:          idx,
		}
		tasks = append(tasks, unitPool.Submit(ctx, func(ctx context.Context) (runner.UnitResult, error) {
			return unitRunner.Run(ctx, ref), nil
		}))
	}

	for i, task := range tasks {
		ur, err := task.Wait()
		if err != nil {
			// Cancelled before admission; the runner never saw the
			// unit, so account for it here to keep the counts exact.
			tracker.UnitFailed()
			ur = runner.UnitResult{Index: i + 1, Err: err}
		}

		if ur.Failed() {
			result.FailedUnits++
			result.Failures = append(result.Failures, UnitFailure{
				CollectionID: col.ID,
				GroupID:      g.ID,
				Index:        ur.Index,
				Attempts:     ur.Attempts,
				LastError:    ur.Err.Error(),
			})
			continue
		}
		result.Units = append(result.Units, ur)
	}

	// Unit tasks resolve in arbitrary order; successes are re-sorted
	// by index so failures leave holes instead of shifting the order.
	sort.Slice(result.Units, func(i, j int) bool {
		return result.Units[i].Index < result.Units[j].Index
	})
	sort.Slice(result.Failures, func(i, j int) bool {
		return result.Failures[i].Index < result.Failures[j].Index
	})

	tracker.GroupCompleted()
	return result, nil
}
