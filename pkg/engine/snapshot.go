package engine

import (
	"encoding/json"
	"fmt"
	"os"
	"time"
)

// Snapshot is a verdict persisted for later comparison.
type Snapshot struct {
	URL     string    `json:"url"`
	TakenAt time.Time `json:"taken_at"`
	Verdict *Verdict  `json:"verdict"`
}

// RequirementChange records how one requirement moved between two runs.
type RequirementChange struct {
	Title    string   `json:"title"`
	Severity Severity `json:"severity"`
	Before   Status   `json:"before"`
	After    Status   `json:"after"`
}

// SnapshotDiff groups requirement changes between a baseline and a new run.
type SnapshotDiff struct {
	Improved   []RequirementChange `json:"improved"`
	Regressed  []RequirementChange `json:"regressed"`
	Unchanged  []RequirementChange `json:"unchanged"`
	ScoreDelta float64             `json:"score_delta"`
}

// SaveSnapshot writes a verdict to path as JSON.
func SaveSnapshot(path, url string, v *Verdict) error {
	data, err := json.MarshalIndent(Snapshot{URL: url, TakenAt: time.Now().UTC(), Verdict: v}, "", "  ")
	if err != nil {
		return err
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write snapshot %s: %w", path, err)
	}
	return nil
}

// LoadSnapshot reads a snapshot written by SaveSnapshot.
func LoadSnapshot(path string) (*Snapshot, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var s Snapshot
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("parse snapshot %s: %w", path, err)
	}
	if s.Verdict == nil {
		return nil, fmt.Errorf("snapshot %s has no verdict", path)
	}
	return &s, nil
}

// Compare diffs current against baseline over every registry requirement.
func (e *Engine) Compare(baseline, current *Verdict) SnapshotDiff {
	diff := SnapshotDiff{ScoreDelta: current.ComplianceScore - baseline.ComplianceScore}
	for _, req := range e.registry.Requirements() {
		ch := RequirementChange{
			Title:    req.Title,
			Severity: req.Severity,
			Before:   statusIn(baseline, req.Title),
			After:    statusIn(current, req.Title),
		}
		switch {
		case ch.After.Rank() > ch.Before.Rank():
			diff.Improved = append(diff.Improved, ch)
		case ch.After.Rank() < ch.Before.Rank():
			diff.Regressed = append(diff.Regressed, ch)
		default:
			diff.Unchanged = append(diff.Unchanged, ch)
		}
	}
	return diff
}

func statusIn(v *Verdict, title string) Status {
	if f, ok := v.Findings[title]; ok {
		return f.Status
	}
	return StatusMissing
}
