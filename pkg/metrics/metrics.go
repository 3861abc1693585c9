// Package metrics provides the centralized Prometheus metrics registry
// for the import orchestrator. All metrics are defined in their
// respective packages (pool, pacing, runner, progress) to maintain
// modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available
// metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the orchestrator.
// All metrics are automatically registered via promauto in their
// respective packages.
var Registry = prometheus.DefaultRegisterer

// Metrics Documentation
//
// Pool Metrics (pkg/pool):
//   - import_pool_tasks_running{pool} (Gauge): Task bodies currently running per pool
//   - import_pool_tasks_queued{pool} (Gauge): Tasks waiting for admission per pool
//   - import_pool_tasks_submitted_total{pool} (Counter): Tasks submitted per pool
//
// Pacing Metrics (pkg/pacing):
//   - import_pacing_waits_total (Counter): Acquisitions that waited for the interval
//   - import_pacing_wait_seconds (Histogram): Time spent waiting for the interval
//
// Unit Metrics (pkg/runner):
//   - import_unit_attempts_total (Counter): Fetch/parse/persist attempts across all units
//   - import_unit_retries_total (Counter): Attempts beyond the first per unit
//   - import_unit_retry_exhausted_total (Counter): Units that failed permanently
//
// Content Cache Metrics (internal/fetch):
//   - import_content_cache_hits_total (Counter): Unit fetches served from cache
//   - import_content_cache_misses_total (Counter): Unit fetches that went remote
//   - import_content_cache_errors_total{operation} (Counter): Cache get/set errors
//
// Progress Metrics (pkg/progress):
//   - import_units_succeeded (Gauge): Units persisted in the current run
//   - import_units_failed (Gauge): Units failed permanently in the current run
//   - import_groups_completed (Gauge): Groups completed in the current run
//   - import_collections_completed (Gauge): Collections completed in the current run
//
// Example Prometheus Queries:
//
//   # Unit failure rate
//   import_units_failed / (import_units_succeeded + import_units_failed)
//
//   # Pool saturation
//   import_pool_tasks_queued{pool="units"} > 0
//
//   # Retry pressure
//   rate(import_unit_retries_total[5m])
//
//   # P95 pacing wait
//   histogram_quantile(0.95, rate(import_pacing_wait_seconds_bucket[5m]))
