// Package pacing enforces a minimum spacing between successive outbound
// calls to the remote content service. One Pacer instance is shared by
// every running unit task, so under load callers serialize on the
// shared delay in acquisition order.
package pacing

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for request pacing.
var (
	pacingWaitsTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "import_pacing_waits_total",
		Help: "Total number of acquisitions that had to wait for the pacing interval",
	})

	pacingWaitSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Name:    "import_pacing_wait_seconds",
		Help:    "Time spent waiting for the pacing interval",
		Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2, 5},
	})
)

// Pacer hands out request slots spaced at least one interval apart.
// The next-slot timestamp is the only state shared across concurrent
// unit tasks; it is reserved under the mutex in a single
// read-modify-write so true parallel callers stay correctly spaced.
type Pacer struct {
	mu       sync.Mutex
	interval time.Duration
	next     time.Time
}

// New creates a pacer with the given minimum interval between
// acquisitions. A zero interval disables pacing.
func New(interval time.Duration) (*Pacer, error) {
	if interval < 0 {
		return nil, fmt.Errorf("pacing interval must not be negative (got %v)", interval)
	}

	return &Pacer{interval: interval}, nil
}

// Acquire blocks until at least the configured interval has elapsed
// since the previous acquisition's slot, then returns. It returns early
// with the context's error if ctx is done before the slot opens; in
// that case the reserved slot is forfeited, not released back.
func (p *Pacer) Acquire(ctx context.Context) error {
	if p.interval == 0 {
		return ctx.Err()
	}

	p.mu.Lock()
	now := time.Now()
	var wait time.Duration
	if p.next.After(now) {
		wait = p.next.Sub(now)
		p.next = p.next.Add(p.interval)
	} else {
		p.next = now.Add(p.interval)
	}
	p.mu.Unlock()

	if wait <= 0 {
		return ctx.Err()
	}

	pacingWaitsTotal.Inc()
	pacingWaitSeconds.Observe(wait.Seconds())

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-timer.C:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Interval returns the configured minimum spacing.
func (p *Pacer) Interval() time.Duration {
	return p.interval
}
