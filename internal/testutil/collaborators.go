// Package testutil provides fake import collaborators for testing the
// orchestrator without a remote service or a real store.
package testutil

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/maligree/corpus-import/pkg/runner"
)

// UnitKey identifies one unit across the fake service's script tables.
type UnitKey struct {
	CollectionID string
	GroupID      string
	Index        int
}

// AlwaysFail scripts a unit to fail on every attempt.
const AlwaysFail = -1

// FakeService implements all three collaborators in memory with
// scriptable faults and delays.
type FakeService struct {
	mu sync.Mutex

	// FailAttempts maps a unit to the number of attempts that should
	// fail before it succeeds; AlwaysFail never succeeds.
	FailAttempts map[UnitKey]int

	// Delay is applied to every fetch when non-zero.
	Delay time.Duration

	// RandomDelayMax adds a random fetch delay in [0, RandomDelayMax)
	// to exercise non-deterministic completion order.
	RandomDelayMax time.Duration

	// FailParse marks units whose payload parses into garbage.
	FailParse map[UnitKey]bool

	// PanicPersist marks units whose persist call panics, simulating a
	// contract violation in the collaborator.
	PanicPersist map[UnitKey]bool

	attempts  map[UnitKey]int
	persisted []UnitKey
}

// NewFakeService creates an empty fake with no scripted faults.
func NewFakeService() *FakeService {
	return &FakeService{
		FailAttempts: make(map[UnitKey]int),
		FailParse:    make(map[UnitKey]bool),
		PanicPersist: make(map[UnitKey]bool),
		attempts:     make(map[UnitKey]int),
	}
}

// Collaborators returns the fake wired as a collaborator bundle.
func (s *FakeService) Collaborators() runner.Collaborators {
	return runner.Collaborators{
		Fetcher:   s,
		Parser:    s,
		Persister: s,
	}
}

// FetchUnit implements runner.Fetcher. Scripted failures surface here
// since the runner does not distinguish the failing stage.
func (s *FakeService) FetchUnit(ctx context.Context, collectionPath, groupID string, unitIndex int) (runner.RawContent, error) {
	key := UnitKey{CollectionID: collectionPath, GroupID: groupID, Index: unitIndex}

	s.mu.Lock()
	s.attempts[key]++
	attempt := s.attempts[key]
	failUntil, scripted := s.FailAttempts[key]
	delay := s.Delay
	if s.RandomDelayMax > 0 {
		delay += time.Duration(rand.Int63n(int64(s.RandomDelayMax)))
	}
	s.mu.Unlock()

	if delay > 0 {
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	if scripted && (failUntil == AlwaysFail || attempt <= failUntil) {
		return nil, fmt.Errorf("scripted fetch failure for %s/%s/%d (attempt %d)", collectionPath, groupID, unitIndex, attempt)
	}

	return runner.RawContent(fmt.Sprintf("content %s/%s/%d", collectionPath, groupID, unitIndex)), nil
}

// ParseUnit implements runner.Parser.
func (s *FakeService) ParseUnit(raw runner.RawContent, groupID string, unitIndex int, collectionID string) (*runner.StructuredUnit, error) {
	key := UnitKey{CollectionID: collectionID, GroupID: groupID, Index: unitIndex}

	s.mu.Lock()
	failParse := s.FailParse[key]
	s.mu.Unlock()

	if failParse {
		return nil, fmt.Errorf("scripted parse failure for %s/%s/%d", collectionID, groupID, unitIndex)
	}

	return &runner.StructuredUnit{
		CollectionID: collectionID,
		GroupID:      groupID,
		Index:        unitIndex,
		Title:        fmt.Sprintf("%s %d", groupID, unitIndex),
		Segments:     []string{string(raw)},
	}, nil
}

// PersistUnit implements runner.Persister.
func (s *FakeService) PersistUnit(ctx context.Context, unit *runner.StructuredUnit) (string, error) {
	key := UnitKey{CollectionID: unit.CollectionID, GroupID: unit.GroupID, Index: unit.Index}

	s.mu.Lock()
	panicPersist := s.PanicPersist[key]
	if !panicPersist {
		s.persisted = append(s.persisted, key)
	}
	s.mu.Unlock()

	if panicPersist {
		panic(fmt.Sprintf("scripted persist panic for %s/%s/%d", unit.CollectionID, unit.GroupID, unit.Index))
	}

	return fmt.Sprintf("fake://%s/%s/%d", unit.CollectionID, unit.GroupID, unit.Index), nil
}

// Attempts returns how many attempts the given unit has seen.
func (s *FakeService) Attempts(key UnitKey) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.attempts[key]
}

// Persisted returns a copy of the persisted unit keys in persist order.
func (s *FakeService) Persisted() []UnitKey {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]UnitKey, len(s.persisted))
	copy(out, s.persisted)
	return out
}
