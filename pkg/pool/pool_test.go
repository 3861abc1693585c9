package pool

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name           string
		poolName       string
		maxConcurrency int
		wantErr        bool
	}{
		{
			name:           "valid pool",
			poolName:       "units",
			maxConcurrency: 4,
			wantErr:        false,
		},
		{
			name:           "zero concurrency",
			poolName:       "units",
			maxConcurrency: 0,
			wantErr:        true,
		},
		{
			name:           "negative concurrency",
			poolName:       "units",
			maxConcurrency: -1,
			wantErr:        true,
		},
		{
			name:           "missing name",
			poolName:       "",
			maxConcurrency: 4,
			wantErr:        true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New[int](tt.poolName, tt.maxConcurrency)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPool_ConcurrencyBound(t *testing.T) {
	const maxConcurrency = 3
	const taskCount = 20

	p, err := New[int]("bound-test", maxConcurrency)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	var running, peak int64
	ctx := context.Background()

	for i := 0; i < taskCount; i++ {
		p.Submit(ctx, func(ctx context.Context) (int, error) {
			n := atomic.AddInt64(&running, 1)
			for {
				old := atomic.LoadInt64(&peak)
				if n <= old || atomic.CompareAndSwapInt64(&peak, old, n) {
					break
				}
			}
			time.Sleep(5 * time.Millisecond)
			atomic.AddInt64(&running, -1)
			return 0, nil
		})
	}

	p.Drain()

	if got := atomic.LoadInt64(&peak); got > maxConcurrency {
		t.Errorf("peak concurrency = %d, want <= %d", got, maxConcurrency)
	}
	if got := atomic.LoadInt64(&running); got != 0 {
		t.Errorf("running after drain = %d, want 0", got)
	}
}

func TestPool_FIFOAdmission(t *testing.T) {
	// A single-slot pool admits tasks strictly in submission order.
	p, err := New[int]("fifo-test", 1)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	var mu sync.Mutex
	var order []int
	ctx := context.Background()

	for i := 0; i < 10; i++ {
		i := i
		p.Submit(ctx, func(ctx context.Context) (int, error) {
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			return i, nil
		})
	}

	p.Drain()

	if len(order) != 10 {
		t.Fatalf("executed %d tasks, want 10", len(order))
	}
	for i, got := range order {
		if got != i {
			t.Errorf("admission order[%d] = %d, want %d", i, got, i)
		}
	}
}

func TestPool_TaskFailureIsolation(t *testing.T) {
	p, err := New[string]("failure-test", 2)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	wantErr := errors.New("unit exploded")

	failing := p.Submit(ctx, func(ctx context.Context) (string, error) {
		return "", wantErr
	})
	succeeding := p.Submit(ctx, func(ctx context.Context) (string, error) {
		return "ok", nil
	})

	if _, err := failing.Wait(); !errors.Is(err, wantErr) {
		t.Errorf("failing task error = %v, want %v", err, wantErr)
	}

	got, err := succeeding.Wait()
	if err != nil {
		t.Errorf("sibling task failed: %v", err)
	}
	if got != "ok" {
		t.Errorf("sibling task value = %q, want %q", got, "ok")
	}
}

func TestPool_PanicRecovery(t *testing.T) {
	p, err := New[int]("panic-test", 1)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	task := p.Submit(context.Background(), func(ctx context.Context) (int, error) {
		panic("malformed collaborator result")
	})

	if _, err := task.Wait(); err == nil {
		t.Error("expected panic to resolve as task error, got nil")
	}

	p.Drain()
}

func TestPool_CancelledBeforeAdmission(t *testing.T) {
	p, err := New[int]("cancel-test", 1)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	blocker := make(chan struct{})
	first := p.Submit(context.Background(), func(ctx context.Context) (int, error) {
		<-blocker
		return 1, nil
	})

	queued := p.Submit(ctx, func(ctx context.Context) (int, error) {
		t.Error("cancelled task body should not run")
		return 2, nil
	})

	cancel()
	close(blocker)

	if _, err := first.Wait(); err != nil {
		t.Errorf("first task failed: %v", err)
	}
	if _, err := queued.Wait(); !errors.Is(err, context.Canceled) {
		t.Errorf("queued task error = %v, want context.Canceled", err)
	}

	p.Drain()
}

func TestPool_DrainEmpty(t *testing.T) {
	p, err := New[int]("empty-test", 2)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	done := make(chan struct{})
	go func() {
		p.Drain()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Error("Drain() on an empty pool did not return")
	}
}
