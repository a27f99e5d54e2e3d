package engine

import (
	_ "embed"
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Severity weights a requirement in the score.
type Severity string

const (
	SeverityHigh   Severity = "high"
	SeverityMedium Severity = "medium"
	SeverityLow    Severity = "low"
)

// Valid reports whether s is one of the known severities.
func (s Severity) Valid() bool {
	switch s {
	case SeverityHigh, SeverityMedium, SeverityLow:
		return true
	}
	return false
}

// Requirement is a single NDPA obligation a privacy policy is checked against.
type Requirement struct {
	Title          string   `yaml:"title" json:"title"`
	Section        string   `yaml:"section" json:"section"`
	Severity       Severity `yaml:"severity" json:"severity"`
	Description    string   `yaml:"description" json:"description"`
	Recommendation string   `yaml:"recommendation" json:"recommendation"`
	Rationale      string   `yaml:"rationale,omitempty" json:"-"`
}

// Profile is the on-disk shape of a requirement table.
type Profile struct {
	Standard     string        `yaml:"standard"`
	Description  string        `yaml:"description"`
	Requirements []Requirement `yaml:"requirements"`
}

//go:embed registry/ndpa.yaml
var ndpaProfile []byte

// Registry is the immutable, title-keyed set of requirements.
type Registry struct {
	standard    string
	description string
	order       []Requirement
	byKey       map[string]int
}

// DefaultRegistry returns the registry compiled into the binary.
func DefaultRegistry() *Registry {
	r, err := ParseRegistry(ndpaProfile)
	if err != nil {
		panic(fmt.Sprintf("engine: embedded registry is invalid: %v", err))
	}
	return r
}

// LoadRegistry reads a requirement table from a YAML file.
func LoadRegistry(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read registry %s: %w", path, err)
	}
	r, err := ParseRegistry(data)
	if err != nil {
		return nil, fmt.Errorf("registry %s: %w", path, err)
	}
	return r, nil
}

// ParseRegistry decodes and validates a YAML requirement table.
func ParseRegistry(data []byte) (*Registry, error) {
	var p Profile
	if err := yaml.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("failed to parse registry: %w", err)
	}
	if len(p.Requirements) == 0 {
		return nil, fmt.Errorf("registry %q has no requirements", p.Standard)
	}

	r := &Registry{
		standard:    p.Standard,
		description: p.Description,
		order:       make([]Requirement, 0, len(p.Requirements)),
		byKey:       make(map[string]int, len(p.Requirements)),
	}
	for i, req := range p.Requirements {
		req.Title = strings.TrimSpace(req.Title)
		req.Section = strings.TrimSpace(req.Section)
		if req.Title == "" {
			return nil, fmt.Errorf("requirement %d: empty title", i)
		}
		if req.Section == "" {
			return nil, fmt.Errorf("requirement %q: empty section", req.Title)
		}
		req.Severity = Severity(strings.ToLower(string(req.Severity)))
		if !req.Severity.Valid() {
			return nil, fmt.Errorf("requirement %q: unknown severity %q", req.Title, req.Severity)
		}
		key := titleKey(req.Title)
		if _, dup := r.byKey[key]; dup {
			return nil, fmt.Errorf("duplicate requirement title %q", req.Title)
		}
		r.byKey[key] = len(r.order)
		r.order = append(r.order, req)
	}
	return r, nil
}

// titleKey folds case and whitespace so oracle titles match registry titles.
func titleKey(title string) string {
	return strings.ToLower(strings.Join(strings.Fields(title), " "))
}

// Standard is the name of the regulation the registry encodes.
func (r *Registry) Standard() string { return r.standard }

// Len returns the number of requirements.
func (r *Registry) Len() int { return len(r.order) }

// Requirements returns a copy of the requirements in registry order.
func (r *Registry) Requirements() []Requirement {
	out := make([]Requirement, len(r.order))
	copy(out, r.order)
	return out
}

// Titles returns the canonical titles in registry order.
func (r *Registry) Titles() []string {
	out := make([]string, len(r.order))
	for i, req := range r.order {
		out[i] = req.Title
	}
	return out
}

// Lookup finds a requirement by title, ignoring case and spacing differences.
func (r *Registry) Lookup(title string) (Requirement, bool) {
	i, ok := r.byKey[titleKey(title)]
	if !ok {
		return Requirement{}, false
	}
	return r.order[i], true
}

// Canonical maps a title to its registry spelling.
func (r *Registry) Canonical(title string) (string, bool) {
	req, ok := r.Lookup(title)
	return req.Title, ok
}

// SeverityOf returns the severity of title, medium when it is unknown.
func (r *Registry) SeverityOf(title string) Severity {
	if req, ok := r.Lookup(title); ok {
		return req.Severity
	}
	return SeverityMedium
}

// Describe returns the missing-requirement record for title. Titles the
// registry does not know get medium severity and empty text.
func (r *Registry) Describe(title string) MissingRequirement {
	req, ok := r.Lookup(title)
	if !ok {
		return MissingRequirement{Title: title, Severity: SeverityMedium}
	}
	return MissingRequirement{
		Title:          req.Title,
		Section:        req.Section,
		Severity:       req.Severity,
		Description:    req.Description,
		Recommendation: req.Recommendation,
	}
}
