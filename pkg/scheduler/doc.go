// Package scheduler fans a bulk-import job out across three nested
// levels (collections, groups, units) with an independent concurrency
// bound at each level.
//
// One collection-level pool spans the run. Each admitted collection
// builds a fresh group-level and unit-level pool scoped to itself, so
// concurrency at one level never blocks a sibling's level beyond the
// configured limits. Completion order across concurrent tasks is
// non-deterministic; aggregation restores the job description's order
// before any result is returned.
//
// Example usage:
//
//	cfg, err := scheduler.ProfileConfig(scheduler.ProfileDefault)
//	if err != nil {
//		return err
//	}
//	s, err := scheduler.New(cfg, collaborators, logger)
//	if err != nil {
//		return err
//	}
//	report, err := s.Run(ctx, job)
//
// Unit failures never escalate: they are retried, then recorded in the
// report's failure list and counts. A run "fails" only in the sense
// that report.Succeeded() is false.
package scheduler
