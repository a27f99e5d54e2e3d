package oracle

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

func TestParseFindings(t *testing.T) {
	tests := []struct {
		name      string
		input     string
		wantLen   int
		wantTitle string
		wantErr   bool
	}{
		{
			name:      "envelope",
			input:     `{"findings": [{"ndpa_section": "36(2)", "requirement_title": "Cease Direct Marketing Upon Objection", "status": "compliant", "confidence": 0.9}]}`,
			wantLen:   1,
			wantTitle: "Cease Direct Marketing Upon Objection",
		},
		{
			name:      "bare array in code fence with trailing comma",
			input:     "```json\n[{\"requirement_title\": \"A\", \"status\": \"partial\", \"confidence\": 0.4},]\n```",
			wantLen:   1,
			wantTitle: "A",
		},
		{
			name:    "empty envelope",
			input:   `{"findings": []}`,
			wantLen: 0,
		},
		{
			name:      "prose around object",
			input:     "Here you go:\n{\"findings\": [{\"requirement_title\": \"B\", \"status\": \"COMPLIANT\", \"confidence\": 1}]}\nThanks",
			wantLen:   1,
			wantTitle: "B",
		},
		{
			name:    "no json",
			input:   "I cannot help with that.",
			wantErr: true,
		},
		{
			name:    "broken array",
			input:   `[{"requirement_title": "A", "status": }]`,
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseFindings(tt.input)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			require.Len(t, got, tt.wantLen)
			if tt.wantTitle != "" {
				assert.Equal(t, tt.wantTitle, got[0].Title)
			}
		})
	}
}

func TestParseFindingsSkipsInvalidEntriesAndClampsConfidence(t *testing.T) {
	got, err := ParseFindings(`{"findings": [
		{"requirement_title": "A", "status": "missing", "confidence": 0.5},
		{"requirement_title": "", "status": "compliant", "confidence": 0.5},
		{"requirement_title": "B", "status": "non_compliant", "confidence": 1.7},
		{"requirement_title": "C", "status": "partial", "confidence": -2}
	]}`)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, engine.StatusNonCompliant, got[0].Status)
	assert.Equal(t, 1.0, got[0].Confidence)
	assert.Equal(t, 0.0, got[1].Confidence)
}

func TestExtractJSON(t *testing.T) {
	assert.Equal(t, `{"a": 1}`, ExtractJSON("```json\n{\"a\": 1,}\n```"))
	assert.Equal(t, "", ExtractJSON("nothing here"))
	assert.Equal(t, `[1, 2]`, ExtractJSONArray("values: [1, 2,]"))
}
