// Package manifest renders a run's report into a JSON file the reading
// app and operators consume after an import.
package manifest

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/maligree/corpus-import/pkg/scheduler"
)

// Manifest is the on-disk summary of one import run.
type Manifest struct {
	RunID       string       `json:"run_id"`
	GeneratedAt time.Time    `json:"generated_at"`
	Elapsed     string       `json:"elapsed"`
	Totals      Totals       `json:"totals"`
	Collections []Collection `json:"collections"`

	// Failures enumerates every permanently failed unit so a follow-up
	// run can target them.
	Failures []scheduler.UnitFailure `json:"failures,omitempty"`
}

// Totals summarizes the final counters.
type Totals struct {
	Units          int     `json:"units"`
	Succeeded      int     `json:"succeeded"`
	Failed         int     `json:"failed"`
	Groups         int     `json:"groups"`
	Collections    int     `json:"collections"`
	UnitsPerSecond float64 `json:"units_per_second"`
}

// Collection lists one collection's groups in job order.
type Collection struct {
	ID     string  `json:"id"`
	Name   string  `json:"name,omitempty"`
	Groups []Group `json:"groups"`
}

// Group lists one group's persisted units in ascending index order.
type Group struct {
	ID     string `json:"id"`
	Name   string `json:"name,omitempty"`
	Failed int    `json:"failed,omitempty"`
	Units  []Unit `json:"units"`
}

// Unit points at one persisted unit by its storage reference.
type Unit struct {
	Index    int    `json:"index"`
	Ref      string `json:"ref"`
	Attempts int    `json:"attempts"`
}

// Build converts a run report into a manifest.
func Build(runID string, report *scheduler.Report) *Manifest {
	m := &Manifest{
		RunID:       runID,
		GeneratedAt: time.Now().UTC(),
		Elapsed:     report.Elapsed.Round(time.Millisecond).String(),
		Totals: Totals{
			Units:          report.Final.TotalUnits,
			Succeeded:      report.Final.SucceededUnits,
			Failed:         report.Final.FailedUnits,
			Groups:         report.Final.CompletedGroups,
			Collections:    report.Final.CompletedCollections,
			UnitsPerSecond: report.Final.UnitsPerSecond,
		},
		Collections: make([]Collection, 0, len(report.Collections)),
		Failures:    report.Failures,
	}

	for _, cr := range report.Collections {
		collection := Collection{
			ID:     cr.CollectionID,
			Name:   cr.Name,
			Groups: make([]Group, 0, len(cr.Groups)),
		}
		for _, gr := range cr.Groups {
			group := Group{
				ID:     gr.GroupID,
				Name:   gr.Name,
				Failed: gr.FailedUnits,
				Units:  make([]Unit, 0, len(gr.Units)),
			}
			for _, ur := range gr.Units {
				group.Units = append(group.Units, Unit{
					Index:    ur.Index,
					Ref:      ur.Ref,
					Attempts: ur.Attempts,
				})
			}
			collection.Groups = append(collection.Groups, group)
		}
		m.Collections = append(m.Collections, collection)
	}

	return m
}

// Write builds the manifest and writes it as indented JSON.
func Write(path, runID string, report *scheduler.Report) error {
	m := Build(runID, report)

	payload, err := json.MarshalIndent(m, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal manifest: %w", err)
	}
	payload = append(payload, '\n')

	if err := os.WriteFile(path, payload, 0o644); err != nil {
		return fmt.Errorf("write manifest %s: %w", path, err)
	}

	return nil
}
