package scheduler

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/maligree/corpus-import/pkg/progress"
)

// Group is a mid-level subdivision of a collection holding a known
// count of units. Unit indices within a group are the contiguous range
// [1, UnitCount].
type Group struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	UnitCount int    `json:"unit_count"`
}

// Collection is the top-level unit of work.
type Collection struct {
	ID   string `json:"id"`
	Name string `json:"name"`

	// Path is the remote path segment used when fetching this
	// collection's units. Defaults to ID when empty.
	Path string `json:"path,omitempty"`

	Groups []Group `json:"groups"`
}

// RemotePath returns the path segment used for fetching.
func (c Collection) RemotePath() string {
	if c.Path != "" {
		return c.Path
	}
	return c.ID
}

// JobDescription is the ordered set of collections to import. It is
// immutable once scheduling begins.
type JobDescription struct {
	Collections []Collection `json:"collections"`
}

// LoadJobFile reads a job description from a JSON file.
func LoadJobFile(path string) (JobDescription, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return JobDescription{}, fmt.Errorf("read job file: %w", err)
	}

	var job JobDescription
	if err := json.Unmarshal(data, &job); err != nil {
		return JobDescription{}, fmt.Errorf("parse job file %s: %w", path, err)
	}

	if err := job.Validate(); err != nil {
		return JobDescription{}, err
	}

	return job, nil
}

// Validate checks identifiers and unit counts. A zero unit count is
// legal (the group completes empty); a negative one is not.
func (j JobDescription) Validate() error {
	for ci, col := range j.Collections {
		if col.ID == "" {
			return fmt.Errorf("%w: collection %d has no id", ErrInvalidJob, ci)
		}
		for gi, g := range col.Groups {
			if g.ID == "" {
				return fmt.Errorf("%w: collection %s group %d has no id", ErrInvalidJob, col.ID, gi)
			}
			if g.UnitCount < 0 {
				return fmt.Errorf("%w: collection %s group %s has negative unit count %d",
					ErrInvalidJob, col.ID, g.ID, g.UnitCount)
			}
		}
	}
	return nil
}

// Totals counts the job's work for progress tracking.
func (j JobDescription) Totals() progress.Totals {
	t := progress.Totals{Collections: len(j.Collections)}
	for _, col := range j.Collections {
		t.Groups += len(col.Groups)
		for _, g := range col.Groups {
			t.Units += g.UnitCount
		}
	}
	return t
}
