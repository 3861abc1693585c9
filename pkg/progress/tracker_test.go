package progress

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/rs/zerolog"
)

func TestTracker_Counters(t *testing.T) {
	tracker := NewTracker(Totals{Units: 10, Groups: 4, Collections: 2})

	for i := 0; i < 7; i++ {
		tracker.UnitSucceeded()
	}
	for i := 0; i < 3; i++ {
		tracker.UnitFailed()
	}
	tracker.GroupCompleted()
	tracker.GroupCompleted()
	tracker.CollectionCompleted()

	s := tracker.Snapshot()

	if s.SucceededUnits != 7 {
		t.Errorf("SucceededUnits = %d, want 7", s.SucceededUnits)
	}
	if s.FailedUnits != 3 {
		t.Errorf("FailedUnits = %d, want 3", s.FailedUnits)
	}
	if s.CompletedUnits != 10 {
		t.Errorf("CompletedUnits = %d, want 10", s.CompletedUnits)
	}
	if s.CompletedGroups != 2 {
		t.Errorf("CompletedGroups = %d, want 2", s.CompletedGroups)
	}
	if s.CompletedCollections != 1 {
		t.Errorf("CompletedCollections = %d, want 1", s.CompletedCollections)
	}
	if s.TotalUnits != 10 || s.TotalGroups != 4 || s.TotalCollections != 2 {
		t.Errorf("totals = %d/%d/%d, want 10/4/2", s.TotalUnits, s.TotalGroups, s.TotalCollections)
	}
}

func TestTracker_ConcurrentIncrements(t *testing.T) {
	const workers = 8
	const perWorker = 50

	tracker := NewTracker(Totals{Units: workers * perWorker})

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if j%5 == 0 {
					tracker.UnitFailed()
				} else {
					tracker.UnitSucceeded()
				}
			}
		}()
	}
	wg.Wait()

	s := tracker.Snapshot()
	if s.CompletedUnits != workers*perWorker {
		t.Errorf("CompletedUnits = %d, want %d", s.CompletedUnits, workers*perWorker)
	}
	if s.SucceededUnits+s.FailedUnits != s.CompletedUnits {
		t.Errorf("succeeded(%d) + failed(%d) != completed(%d)",
			s.SucceededUnits, s.FailedUnits, s.CompletedUnits)
	}
}

func TestSnapshot_EmptyRunNoDivisionByZero(t *testing.T) {
	tracker := NewTracker(Totals{})

	s := tracker.Snapshot()

	if s.CompletedUnits != 0 || s.TotalUnits != 0 {
		t.Errorf("units = %d/%d, want 0/0", s.CompletedUnits, s.TotalUnits)
	}
	if s.UnitsPerSecond != 0 {
		t.Errorf("UnitsPerSecond = %v, want 0", s.UnitsPerSecond)
	}
	if s.Remaining != 0 {
		t.Errorf("Remaining = %v, want 0", s.Remaining)
	}
}

func TestSnapshot_RateAndETA(t *testing.T) {
	tracker := NewTracker(Totals{Units: 100})
	tracker.start = time.Now().Add(-10 * time.Second)

	for i := 0; i < 20; i++ {
		tracker.UnitSucceeded()
	}

	s := tracker.Snapshot()

	// 20 units in ~10s is ~2 units/s; 80 units remain, ETA ~40s.
	if s.UnitsPerSecond < 1.5 || s.UnitsPerSecond > 2.5 {
		t.Errorf("UnitsPerSecond = %v, want ~2", s.UnitsPerSecond)
	}
	if s.Remaining < 30*time.Second || s.Remaining > 50*time.Second {
		t.Errorf("Remaining = %v, want ~40s", s.Remaining)
	}
}

func TestReporter_StartStop(t *testing.T) {
	tracker := NewTracker(Totals{Units: 1})
	reporter := NewReporter(tracker, time.Second, zerolog.Nop())

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	reporter.Start(ctx)
	tracker.UnitSucceeded()

	done := make(chan struct{})
	go func() {
		reporter.Stop()
		reporter.Stop() // second Stop must not panic or block
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Error("Stop() did not return")
	}
}

func TestNewReporter_MinimumInterval(t *testing.T) {
	reporter := NewReporter(NewTracker(Totals{}), 50*time.Millisecond, zerolog.Nop())

	if reporter.interval != time.Second {
		t.Errorf("interval = %v, want raised to 1s", reporter.interval)
	}
}
