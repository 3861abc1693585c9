// Package runner executes one unit's fetch, parse, and persist steps
// with pacing and bounded retry. The three collaborators are external
// to the orchestrator; the runner only invokes them in fixed order and
// interprets success or failure, never their internals.
package runner

import "context"

// RawContent is the unparsed payload returned by the remote service
// for one unit.
type RawContent []byte

// StructuredUnit is the parsed form of one unit, ready to persist.
type StructuredUnit struct {
	CollectionID string   `json:"collection_id"`
	GroupID      string   `json:"group_id"`
	Index        int      `json:"index"`
	Title        string   `json:"title"`
	Segments     []string `json:"segments"`
}

// Fetcher retrieves the raw content of one unit from the remote
// service. Implementations own the wire protocol.
type Fetcher interface {
	FetchUnit(ctx context.Context, collectionPath, groupID string, unitIndex int) (RawContent, error)
}

// Parser turns raw content into a structured unit. Pure transformation,
// no I/O.
type Parser interface {
	ParseUnit(raw RawContent, groupID string, unitIndex int, collectionID string) (*StructuredUnit, error)
}

// Persister durably writes one structured unit and returns a storage
// reference for it.
type Persister interface {
	PersistUnit(ctx context.Context, unit *StructuredUnit) (string, error)
}

// Collaborators bundles the three external operations invoked per unit.
type Collaborators struct {
	Fetcher   Fetcher
	Parser    Parser
	Persister Persister
}

// UnitRef identifies one unit of work within the job description.
type UnitRef struct {
	CollectionID   string
	CollectionPath string
	GroupID        string
	Index          int
}

// UnitResult is the terminal outcome of one unit: a storage reference
// on success, or a failure marker carrying the last error and the
// number of attempts made. It never escalates as an error to callers.
type UnitResult struct {
	Index    int
	Ref      string
	Attempts int
	Err      error
}

// Failed reports whether the unit ended in permanent failure.
func (r UnitResult) Failed() bool {
	return r.Err != nil
}
