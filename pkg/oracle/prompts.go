package oracle

import (
	"bytes"
	"embed"
	"fmt"
	"text/template"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

//go:embed prompts/*.md
var promptFS embed.FS

var promptFuncs = template.FuncMap{
	"inc": func(i int) int { return i + 1 },
}

var (
	evaluationTemplate = template.Must(template.New("evaluation.md").Funcs(promptFuncs).ParseFS(promptFS, "prompts/evaluation.md"))
	answerTemplate     = template.Must(template.New("answer.md").ParseFS(promptFS, "prompts/answer.md"))
)

// EvaluationPrompt renders the system prompt listing every requirement in
// registry, so the checklist the model sees always matches the scored one.
func EvaluationPrompt(registry *engine.Registry) (string, error) {
	if registry == nil {
		registry = engine.DefaultRegistry()
	}
	var buf bytes.Buffer
	err := evaluationTemplate.Execute(&buf, struct {
		Standard     string
		Requirements []engine.Requirement
	}{registry.Standard(), registry.Requirements()})
	if err != nil {
		return "", fmt.Errorf("render evaluation prompt: %w", err)
	}
	return buf.String(), nil
}

// RewritePrompt returns the system prompt for query rewriting.
func RewritePrompt() string {
	data, _ := promptFS.ReadFile("prompts/rewrite.md")
	return string(data)
}

// AnswerPrompt returns the system prompt for grounded answering. fallback is
// the reply the model must give when the context is insufficient.
func AnswerPrompt(fallback string) string {
	var buf bytes.Buffer
	if err := answerTemplate.Execute(&buf, struct{ Fallback string }{fallback}); err != nil {
		return fallback
	}
	return buf.String()
}
