package pool

import (
	"context"
	"fmt"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Prometheus metrics for pool scheduling.
var (
	poolTasksRunning = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "import_pool_tasks_running",
		Help: "Number of task bodies currently running per pool",
	}, []string{"pool"})

	poolTasksQueued = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "import_pool_tasks_queued",
		Help: "Number of tasks waiting for admission per pool",
	}, []string{"pool"})

	poolTasksSubmittedTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "import_pool_tasks_submitted_total",
		Help: "Total tasks submitted per pool",
	}, []string{"pool"})
)

// Task is the handle returned by Submit. It resolves exactly once, to
// either the task's value or its error.
type Task[T any] struct {
	ctx   context.Context
	fn    func(context.Context) (T, error)
	done  chan struct{}
	value T
	err   error
}

// Wait blocks until the task has resolved and returns its outcome.
// It is safe to call Wait from multiple goroutines.
func (t *Task[T]) Wait() (T, error) {
	<-t.done
	return t.value, t.err
}

// Done returns a channel that is closed when the task has resolved.
func (t *Task[T]) Done() <-chan struct{} {
	return t.done
}

// Pool is a bounded-concurrency executor for tasks producing values of
// type T. The zero value is not usable; create pools with New.
type Pool[T any] struct {
	name string
	max  int

	mu      sync.Mutex
	queue   []*Task[T]
	running int

	wg sync.WaitGroup
}

// New creates a pool admitting at most maxConcurrency tasks at a time.
func New[T any](name string, maxConcurrency int) (*Pool[T], error) {
	if name == "" {
		return nil, fmt.Errorf("pool name is required")
	}
	if maxConcurrency <= 0 {
		return nil, fmt.Errorf("max concurrency must be positive (got %d)", maxConcurrency)
	}

	return &Pool[T]{
		name: name,
		max:  maxConcurrency,
	}, nil
}

// Submit enqueues fn and returns its handle immediately. The body does
// not start until a concurrency slot is free; among queued tasks,
// admission follows submission order. If ctx is already done when the
// task reaches the front of the queue, the handle resolves with the
// context's error and the body never runs.
func (p *Pool[T]) Submit(ctx context.Context, fn func(context.Context) (T, error)) *Task[T] {
	t := &Task[T]{
		ctx:  ctx,
		fn:   fn,
		done: make(chan struct{}),
	}

	poolTasksSubmittedTotal.WithLabelValues(p.name).Inc()

	p.wg.Add(1)
	p.mu.Lock()
	p.queue = append(p.queue, t)
	poolTasksQueued.WithLabelValues(p.name).Set(float64(len(p.queue)))
	p.admitLocked()
	p.mu.Unlock()

	return t
}

// Drain blocks until the queue is empty and no task is running. Tasks
// submitted while Drain is waiting are included in the wait.
func (p *Pool[T]) Drain() {
	p.wg.Wait()
}

// admitLocked starts queued tasks while slots are free. Callers must
// hold p.mu.
func (p *Pool[T]) admitLocked() {
	for p.running < p.max && len(p.queue) > 0 {
		t := p.queue[0]
		p.queue = p.queue[1:]
		p.running++

		poolTasksQueued.WithLabelValues(p.name).Set(float64(len(p.queue)))
		poolTasksRunning.WithLabelValues(p.name).Set(float64(p.running))

		go p.run(t)
	}
}

// run executes a single admitted task and releases its slot afterwards.
func (p *Pool[T]) run(t *Task[T]) {
	defer func() {
		p.mu.Lock()
		p.running--
		poolTasksRunning.WithLabelValues(p.name).Set(float64(p.running))
		p.admitLocked()
		p.mu.Unlock()
		p.wg.Done()
	}()

	// A task cancelled while queued resolves without running its body.
	if err := t.ctx.Err(); err != nil {
		t.err = err
		close(t.done)
		return
	}

	t.value, t.err = p.invoke(t)
	close(t.done)
}

// invoke calls the task body, converting a panic into the task's error
// so the pool itself never propagates one.
func (p *Pool[T]) invoke(t *Task[T]) (value T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panic in pool %q: %v", p.name, r)
		}
	}()

	return t.fn(t.ctx)
}
