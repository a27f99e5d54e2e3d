package engine

import (
	"math"
	"sort"

	"go.uber.org/zap"
)

// Level is the coarse compliance bucket derived from the score.
type Level string

const (
	LevelFullyCompliant     Level = "fully_compliant"
	LevelCompliant          Level = "compliant"
	LevelPartiallyCompliant Level = "partially_compliant"
	LevelNonCompliant       Level = "non_compliant"
)

// RiskBreakdown counts outcomes by status and severity.
type RiskBreakdown struct {
	Missing        int `json:"missing"`
	Compliant      int `json:"compliant"`
	HighFailures   int `json:"high_failures"`
	MediumFailures int `json:"medium_failures"`
	LowFailures    int `json:"low_failures"`
	HighPartials   int `json:"high_partials"`
	MediumPartials int `json:"medium_partials"`
	LowPartials    int `json:"low_partials"`
}

// Verdict is the scored result of analysing one policy.
type Verdict struct {
	ComplianceScore  float64                   `json:"compliance_score"`
	ComplianceLevel  Level                     `json:"compliance_level"`
	RiskBreakdown    RiskBreakdown             `json:"risk_breakdown"`
	OverallCompliant bool                      `json:"overall_compliant"`
	Findings         map[string]ReducedFinding `json:"findings"`
	Missing          []MissingRequirement      `json:"missing"`
}

// Clone returns a deep copy of v.
func (v *Verdict) Clone() *Verdict {
	if v == nil {
		return nil
	}
	out := *v
	if v.Findings != nil {
		out.Findings = make(map[string]ReducedFinding, len(v.Findings))
		for k, f := range v.Findings {
			out.Findings[k] = f
		}
	}
	if v.Missing != nil {
		out.Missing = append([]MissingRequirement(nil), v.Missing...)
	}
	return &out
}

var deductions = map[Status]map[Severity]float64{
	StatusNonCompliant: {SeverityHigh: 10, SeverityMedium: 5, SeverityLow: 3},
	StatusPartial:      {SeverityHigh: 8, SeverityMedium: 4, SeverityLow: 1.5},
	StatusMissing:      {SeverityHigh: 10, SeverityMedium: 5, SeverityLow: 3},
}

// Deduction is the number of points a status at a severity removes from 100.
func Deduction(status Status, severity Severity) float64 {
	return deductions[status][severity]
}

// ClassifyLevel maps a score to its compliance level.
func ClassifyLevel(score float64) Level {
	switch {
	case score >= 95:
		return LevelFullyCompliant
	case score >= 80:
		return LevelCompliant
	case score >= 60:
		return LevelPartiallyCompliant
	default:
		return LevelNonCompliant
	}
}

// Score computes the verdict for a reduced finding set.
func (e *Engine) Score(reduced map[string]ReducedFinding) *Verdict {
	v := &Verdict{
		Findings: make(map[string]ReducedFinding, len(reduced)),
		Missing:  make([]MissingRequirement, 0),
	}

	for _, title := range e.registry.Titles() {
		if _, ok := reduced[title]; !ok {
			v.Missing = append(v.Missing, e.registry.Describe(title))
		}
	}

	var total float64
	for _, m := range v.Missing {
		total += Deduction(StatusMissing, m.Severity)
	}
	v.RiskBreakdown.Missing = len(v.Missing)

	titles := make([]string, 0, len(reduced))
	for title := range reduced {
		titles = append(titles, title)
	}
	sort.Strings(titles)

	for _, title := range titles {
		f := reduced[title]
		if !f.Severity.Valid() {
			f.Severity = e.registry.SeverityOf(title)
		}
		v.Findings[title] = f

		switch f.Status {
		case StatusCompliant:
			v.RiskBreakdown.Compliant++
		case StatusPartial:
			total += Deduction(StatusPartial, f.Severity)
			v.RiskBreakdown.countPartial(f.Severity)
		case StatusNonCompliant:
			total += Deduction(StatusNonCompliant, f.Severity)
			v.RiskBreakdown.countFailure(f.Severity)
		default:
			e.logger.Warn("ignoring finding with unknown status",
				zap.String("title", title),
				zap.String("status", string(f.Status)))
		}
	}

	v.ComplianceScore = math.Max(0, 100-total)
	v.ComplianceLevel = ClassifyLevel(v.ComplianceScore)
	v.OverallCompliant = v.ComplianceLevel == LevelCompliant || v.ComplianceLevel == LevelFullyCompliant
	return v
}

func (b *RiskBreakdown) countFailure(s Severity) {
	switch s {
	case SeverityHigh:
		b.HighFailures++
	case SeverityLow:
		b.LowFailures++
	default:
		b.MediumFailures++
	}
}

func (b *RiskBreakdown) countPartial(s Severity) {
	switch s {
	case SeverityHigh:
		b.HighPartials++
	case SeverityLow:
		b.LowPartials++
	default:
		b.MediumPartials++
	}
}
