package pacing

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"
)

func TestNew_Validation(t *testing.T) {
	tests := []struct {
		name     string
		interval time.Duration
		wantErr  bool
	}{
		{
			name:     "positive interval",
			interval: 100 * time.Millisecond,
			wantErr:  false,
		},
		{
			name:     "zero interval disables pacing",
			interval: 0,
			wantErr:  false,
		},
		{
			name:     "negative interval",
			interval: -time.Second,
			wantErr:  true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := New(tt.interval)
			if (err != nil) != tt.wantErr {
				t.Errorf("New() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestPacer_SpacesAcquisitions(t *testing.T) {
	const interval = 20 * time.Millisecond
	const calls = 5

	p, err := New(interval)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < calls; i++ {
		if err := p.Acquire(ctx); err != nil {
			t.Fatalf("Acquire() failed: %v", err)
		}
	}

	// The first call is immediate; the remaining four are each spaced
	// one interval apart.
	elapsed := time.Since(start)
	if want := time.Duration(calls-1) * interval; elapsed < want {
		t.Errorf("elapsed = %v, want >= %v", elapsed, want)
	}
}

func TestPacer_SharedAcrossGoroutines(t *testing.T) {
	const interval = 10 * time.Millisecond
	const callers = 6

	p, err := New(interval)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	var wg sync.WaitGroup
	start := time.Now()
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := p.Acquire(context.Background()); err != nil {
				t.Errorf("Acquire() failed: %v", err)
			}
		}()
	}
	wg.Wait()

	elapsed := time.Since(start)
	if want := time.Duration(callers-1) * interval; elapsed < want {
		t.Errorf("elapsed = %v, want >= %v (callers must serialize on the shared delay)", elapsed, want)
	}
}

func TestPacer_ZeroIntervalDoesNotWait(t *testing.T) {
	p, err := New(0)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	start := time.Now()
	for i := 0; i < 100; i++ {
		if err := p.Acquire(context.Background()); err != nil {
			t.Fatalf("Acquire() failed: %v", err)
		}
	}

	if elapsed := time.Since(start); elapsed > 100*time.Millisecond {
		t.Errorf("elapsed = %v, want near-zero with pacing disabled", elapsed)
	}
}

func TestPacer_ContextCancelledDuringWait(t *testing.T) {
	p, err := New(time.Second)
	if err != nil {
		t.Fatalf("New() failed: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())

	// First acquisition is immediate and reserves the next slot.
	if err := p.Acquire(ctx); err != nil {
		t.Fatalf("first Acquire() failed: %v", err)
	}

	cancel()

	if err := p.Acquire(ctx); !errors.Is(err, context.Canceled) {
		t.Errorf("Acquire() error = %v, want context.Canceled", err)
	}
}
