package engine

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func allCompliant(r *Registry) map[string]ReducedFinding {
	out := make(map[string]ReducedFinding)
	for _, req := range r.Requirements() {
		out[req.Title] = ReducedFinding{
			RawFinding: RawFinding{Title: req.Title, Section: req.Section, Status: StatusCompliant, Confidence: 1},
			Severity:   req.Severity,
		}
	}
	return out
}

func TestScoreAllCompliant(t *testing.T) {
	e := NewEngine(nil, nil)

	v := e.Score(allCompliant(e.Registry()))
	assert.Equal(t, 100.0, v.ComplianceScore)
	assert.Equal(t, LevelFullyCompliant, v.ComplianceLevel)
	assert.True(t, v.OverallCompliant)
	assert.Empty(t, v.Missing)
	assert.Equal(t, 19, v.RiskBreakdown.Compliant)
}

func TestScoreNothingFoundClampsAtZero(t *testing.T) {
	e := NewEngine(nil, nil)

	v := e.Score(map[string]ReducedFinding{})
	assert.Equal(t, 0.0, v.ComplianceScore)
	assert.Equal(t, LevelNonCompliant, v.ComplianceLevel)
	assert.False(t, v.OverallCompliant)
	assert.Len(t, v.Missing, 19)
	assert.Equal(t, 19, v.RiskBreakdown.Missing)
	assert.Equal(t, e.Registry().Titles()[0], v.Missing[0].Title)
}

func TestScoreDeductions(t *testing.T) {
	e := NewEngine(nil, nil)
	reduced := allCompliant(e.Registry())

	f := reduced[titleConsent]
	f.Status = StatusPartial
	reduced[titleConsent] = f

	f = reduced[titleRetention]
	f.Status = StatusNonCompliant
	reduced[titleRetention] = f

	delete(reduced, "Provide DPO as Contact Point for the Commission")

	v := e.Score(reduced)
	assert.Equal(t, 100.0-8-5-5, v.ComplianceScore)
	assert.Equal(t, LevelCompliant, v.ComplianceLevel)
	assert.True(t, v.OverallCompliant)
	assert.Equal(t, RiskBreakdown{
		Missing:        1,
		Compliant:      16,
		HighPartials:   1,
		MediumFailures: 1,
	}, v.RiskBreakdown)
}

func TestScoreMonotonicInHighSeverityGaps(t *testing.T) {
	e := NewEngine(nil, nil)
	reduced := allCompliant(e.Registry())

	prev := e.Score(reduced).ComplianceScore
	for _, req := range e.Registry().Requirements() {
		if req.Severity != SeverityHigh {
			continue
		}
		delete(reduced, req.Title)
		score := e.Score(reduced).ComplianceScore
		assert.Equal(t, math.Max(0, prev-10), score, req.Title)
		assert.GreaterOrEqual(t, score, 0.0, req.Title)
		prev = score
	}
}

func TestMissingCompletesRegistry(t *testing.T) {
	e := NewEngine(nil, nil)
	reduced := allCompliant(e.Registry())
	for i, title := range e.Registry().Titles() {
		if i%3 == 0 {
			delete(reduced, title)
		}
	}

	v := e.Score(reduced)
	seen := make(map[string]bool)
	for title := range v.Findings {
		seen[title] = true
	}
	for _, m := range v.Missing {
		require.False(t, seen[m.Title], "%s is both reduced and missing", m.Title)
		seen[m.Title] = true
	}
	assert.Len(t, seen, e.Registry().Len())
}

func TestClassifyLevelBoundaries(t *testing.T) {
	tests := []struct {
		score float64
		want  Level
	}{
		{100, LevelFullyCompliant},
		{95.0, LevelFullyCompliant},
		{94.9, LevelCompliant},
		{80.0, LevelCompliant},
		{79.9, LevelPartiallyCompliant},
		{60.0, LevelPartiallyCompliant},
		{59.9, LevelNonCompliant},
		{0, LevelNonCompliant},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ClassifyLevel(tt.score), "score %.1f", tt.score)
	}
}

func TestDeductionTable(t *testing.T) {
	assert.Equal(t, 10.0, Deduction(StatusNonCompliant, SeverityHigh))
	assert.Equal(t, 1.5, Deduction(StatusPartial, SeverityLow))
	assert.Equal(t, 5.0, Deduction(StatusMissing, SeverityMedium))
	assert.Equal(t, 0.0, Deduction(StatusCompliant, SeverityHigh))
}

func TestVerdictClone(t *testing.T) {
	e := NewEngine(nil, nil)
	reduced := allCompliant(e.Registry())
	delete(reduced, titleConsent)
	v := e.Score(reduced)

	c := v.Clone()
	require.Equal(t, v, c)
	delete(c.Findings, titleRetention)
	c.Missing[0].Title = "changed"

	assert.Contains(t, v.Findings, titleRetention)
	assert.Equal(t, titleConsent, v.Missing[0].Title)
	assert.Nil(t, (*Verdict)(nil).Clone())
}
