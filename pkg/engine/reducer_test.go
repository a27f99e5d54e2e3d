package engine

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	titleConsent   = "Allow Data Subjects to Withdraw Consent Easily"
	titleRetention = "Provide Data Retention Period or Criteria"
)

func TestReduceStatusTieBreak(t *testing.T) {
	e := NewEngine(nil, nil)

	reduced, err := e.Reduce([][]RawFinding{
		{{Title: titleConsent, Status: StatusPartial, Confidence: 0.9, Evidence: "first"}},
		{{Title: titleConsent, Status: StatusCompliant, Confidence: 0.9, Evidence: "second"}},
	})
	require.NoError(t, err)
	require.Len(t, reduced, 1)
	assert.Equal(t, StatusCompliant, reduced[titleConsent].Status)
	assert.Equal(t, "second", reduced[titleConsent].Evidence)
	assert.Equal(t, SeverityHigh, reduced[titleConsent].Severity)
}

func TestReduceConfidenceWins(t *testing.T) {
	e := NewEngine(nil, nil)

	reduced, err := e.Reduce([][]RawFinding{
		{{Title: titleRetention, Status: StatusCompliant, Confidence: 0.5}},
		{{Title: titleRetention, Status: StatusPartial, Confidence: 0.8}},
	})
	require.NoError(t, err)
	assert.Equal(t, StatusPartial, reduced[titleRetention].Status)
	assert.Equal(t, SeverityMedium, reduced[titleRetention].Severity)
}

func TestReduceFullTieKeepsFirst(t *testing.T) {
	e := NewEngine(nil, nil)

	reduced, err := e.Reduce([][]RawFinding{
		{{Title: titleConsent, Status: StatusPartial, Confidence: 0.7, Evidence: "first"}},
		{{Title: titleConsent, Status: StatusPartial, Confidence: 0.7, Evidence: "second"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "first", reduced[titleConsent].Evidence)
}

func TestReduceCanonicalizesAndDropsUnknownTitles(t *testing.T) {
	e := NewEngine(nil, nil)

	reduced, err := e.Reduce([][]RawFinding{{
		{Title: "allow data subjects to withdraw  consent easily", Status: StatusCompliant, Confidence: 1},
		{Title: "Maintain a Cookie Banner", Status: StatusCompliant, Confidence: 1},
	}})
	require.NoError(t, err)
	require.Len(t, reduced, 1)
	assert.Equal(t, titleConsent, reduced[titleConsent].Title)
	assert.Equal(t, e.Registry().SeverityOf(titleConsent), reduced[titleConsent].Severity)
}

func TestReduceNoFindings(t *testing.T) {
	e := NewEngine(nil, nil)

	_, err := e.Reduce(nil)
	assert.ErrorIs(t, err, ErrNoFindings)

	_, err = e.Reduce([][]RawFinding{{}, {}})
	assert.ErrorIs(t, err, ErrNoFindings)
}

func TestSupersedes(t *testing.T) {
	low := RawFinding{Status: StatusCompliant, Confidence: 0.5}
	high := RawFinding{Status: StatusNonCompliant, Confidence: 0.8}
	assert.True(t, Supersedes(high, low))
	assert.False(t, Supersedes(low, high))

	partial := RawFinding{Status: StatusPartial, Confidence: 0.6}
	failing := RawFinding{Status: StatusNonCompliant, Confidence: 0.6}
	assert.True(t, Supersedes(partial, failing))
	assert.False(t, Supersedes(failing, partial))
	assert.False(t, Supersedes(partial, partial))
}
