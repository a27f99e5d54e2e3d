package engine

import "strings"

// Status is the oracle's classification of a requirement within one chunk.
type Status string

const (
	StatusCompliant    Status = "compliant"
	StatusPartial      Status = "partial"
	StatusNonCompliant Status = "non_compliant"
	StatusMissing      Status = "missing"
)

// Rank orders statuses for tie-breaking and snapshot comparison.
func (s Status) Rank() int {
	switch s {
	case StatusCompliant:
		return 3
	case StatusPartial:
		return 2
	case StatusNonCompliant:
		return 1
	}
	return 0
}

// ParseStatus accepts the statuses an oracle may report. "missing" is never
// reported; absence is derived by the score engine.
func ParseStatus(s string) (Status, bool) {
	st := Status(strings.ToLower(strings.TrimSpace(s)))
	switch st {
	case StatusCompliant, StatusPartial, StatusNonCompliant:
		return st, true
	}
	return "", false
}

// RawFinding is one oracle judgement for one requirement in one batch.
type RawFinding struct {
	Section        string  `json:"ndpa_section"`
	Title          string  `json:"requirement_title"`
	Status         Status  `json:"status"`
	Evidence       string  `json:"evidence"`
	Gap            string  `json:"gap"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
}

// ReducedFinding is the winning RawFinding for a title plus its registry severity.
type ReducedFinding struct {
	RawFinding
	Severity Severity `json:"severity"`
}

// MissingRequirement is a registry requirement no batch produced a finding for.
type MissingRequirement struct {
	Title          string   `json:"title"`
	Section        string   `json:"section"`
	Severity       Severity `json:"severity"`
	Description    string   `json:"description"`
	Recommendation string   `json:"recommendation"`
}
