package engine

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"text/template"
)

const defaultReportTemplate = `[{{ .Standard }} COMPLIANCE REPORT]
Source: {{ .URL }}
Score: {{ printf "%.1f" .Verdict.ComplianceScore }}/100 ({{ level .Verdict.ComplianceLevel }})
Overall compliant: {{ if .Verdict.OverallCompliant }}yes{{ else }}no{{ end }}

Breakdown: {{ .Verdict.RiskBreakdown.Compliant }} compliant, {{ .Verdict.RiskBreakdown.Missing }} missing, {{ .Verdict.RiskBreakdown.HighPartials }}/{{ .Verdict.RiskBreakdown.MediumPartials }}/{{ .Verdict.RiskBreakdown.LowPartials }} partial (high/medium/low), {{ .Verdict.RiskBreakdown.HighFailures }}/{{ .Verdict.RiskBreakdown.MediumFailures }}/{{ .Verdict.RiskBreakdown.LowFailures }} failed (high/medium/low)
{{ with .Gaps }}
Gaps:
{{- range . }}
  [{{ upper (print .Severity) }}] {{ .Title }} (s.{{ .Section }}) - {{ .Status }}
    Gap: {{ or .Gap "-" }}
    Fix: {{ or .Recommendation "-" }}
{{- end }}
{{ end }}
{{- with .Verdict.Missing }}
Missing:
{{- range . }}
  [{{ upper (print .Severity) }}] {{ .Title }} (s.{{ .Section }})
    Fix: {{ or .Recommendation "-" }}
{{- end }}
{{ end }}
{{- with .Satisfied }}
Satisfied:
{{- range . }}
  [OK] {{ .Title }} (s.{{ .Section }})
{{- end }}
{{ end -}}
`

// ReportData is the value a report template is executed against.
type ReportData struct {
	Standard  string
	URL       string
	Verdict   *Verdict
	Gaps      []ReducedFinding
	Satisfied []ReducedFinding
}

// ReportRenderer renders verdicts as human-readable text.
type ReportRenderer struct {
	tmpl *template.Template
}

var reportFuncs = template.FuncMap{
	"upper": strings.ToUpper,
	"level": func(l Level) string { return strings.ReplaceAll(string(l), "_", " ") },
}

// NewReportRenderer returns a renderer using the built-in template.
func NewReportRenderer() *ReportRenderer {
	return &ReportRenderer{
		tmpl: template.Must(template.New("report").Funcs(reportFuncs).Parse(defaultReportTemplate)),
	}
}

// LoadReportTemplate returns a renderer using the template at path.
func LoadReportTemplate(path string) (*ReportRenderer, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	t, err := template.New("report").Funcs(reportFuncs).Parse(string(data))
	if err != nil {
		return nil, fmt.Errorf("failed to parse report template %s: %w", path, err)
	}
	return &ReportRenderer{tmpl: t}, nil
}

// Render writes the report for verdict v of the policy at url.
func (r *ReportRenderer) Render(w io.Writer, standard, url string, v *Verdict) error {
	data := ReportData{Standard: standard, URL: url, Verdict: v}
	for _, f := range sortedFindings(v.Findings) {
		if f.Status == StatusCompliant {
			data.Satisfied = append(data.Satisfied, f)
		} else {
			data.Gaps = append(data.Gaps, f)
		}
	}
	if err := r.tmpl.Execute(w, data); err != nil {
		return fmt.Errorf("failed to execute report template: %w", err)
	}
	return nil
}

// sortedFindings orders findings by severity, then title.
func sortedFindings(m map[string]ReducedFinding) []ReducedFinding {
	out := make([]ReducedFinding, 0, len(m))
	for _, f := range m {
		out = append(out, f)
	}
	weight := map[Severity]int{SeverityHigh: 0, SeverityMedium: 1, SeverityLow: 2}
	sort.Slice(out, func(i, j int) bool {
		if weight[out[i].Severity] != weight[out[j].Severity] {
			return weight[out[i].Severity] < weight[out[j].Severity]
		}
		return out[i].Title < out[j].Title
	})
	return out
}
