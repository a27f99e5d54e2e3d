package engine

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultRegistry(t *testing.T) {
	r := DefaultRegistry()

	assert.Equal(t, "NDPA", r.Standard())
	require.Equal(t, 19, r.Len())

	high := 0
	for _, req := range r.Requirements() {
		if req.Severity == SeverityHigh {
			high++
		}
		assert.NotEmpty(t, req.Description, req.Title)
		assert.NotEmpty(t, req.Recommendation, req.Title)
	}
	assert.Equal(t, 11, high)
	assert.Equal(t, "Provide Confirmation of Data Processing and Purposes", r.Titles()[0])
}

func TestRegistryLookupIgnoresCaseAndSpacing(t *testing.T) {
	r := DefaultRegistry()

	title, ok := r.Canonical("  cease direct   MARKETING upon objection ")
	require.True(t, ok)
	assert.Equal(t, "Cease Direct Marketing Upon Objection", title)

	_, ok = r.Lookup("Publish a cookie banner")
	assert.False(t, ok)
	assert.Equal(t, SeverityMedium, r.SeverityOf("Publish a cookie banner"))
}

func TestRegistryDescribeUnknownTitle(t *testing.T) {
	m := DefaultRegistry().Describe("Something Else")
	assert.Equal(t, MissingRequirement{Title: "Something Else", Severity: SeverityMedium}, m)
}

func TestParseRegistryValidation(t *testing.T) {
	tests := []struct {
		name string
		yaml string
		want string
	}{
		{
			name: "empty",
			yaml: "standard: X\nrequirements: []\n",
			want: "no requirements",
		},
		{
			name: "duplicate title",
			yaml: "requirements:\n  - {title: A, section: '1', severity: high}\n  - {title: ' a ', section: '2', severity: low}\n",
			want: "duplicate requirement title",
		},
		{
			name: "unknown severity",
			yaml: "requirements:\n  - {title: A, section: '1', severity: critical}\n",
			want: "unknown severity",
		},
		{
			name: "empty section",
			yaml: "requirements:\n  - {title: A, severity: high}\n",
			want: "empty section",
		},
		{
			name: "empty title",
			yaml: "requirements:\n  - {section: '1', severity: high}\n",
			want: "empty title",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseRegistry([]byte(tt.yaml))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadRegistryFromFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "custom.yaml")
	data := "standard: CUSTOM\nrequirements:\n  - title: Publish Contact Details\n    section: '1'\n    severity: LOW\n"
	require.NoError(t, os.WriteFile(path, []byte(data), 0600))

	r, err := LoadRegistry(path)
	require.NoError(t, err)
	assert.Equal(t, "CUSTOM", r.Standard())
	assert.Equal(t, SeverityLow, r.SeverityOf("publish contact details"))

	_, err = LoadRegistry(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
