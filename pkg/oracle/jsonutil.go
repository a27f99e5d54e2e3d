package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"

	"github.com/0x-stone/clauseguard/pkg/engine"
)

var (
	// jsonBlockPattern matches a JSON object inside a markdown code fence.
	jsonBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\{.*\\})\\s*```")
	// jsonObjectPattern matches any JSON object (greedy fallback).
	jsonObjectPattern = regexp.MustCompile(`(?s)\{[\s\S]*\}`)
	// jsonArrayBlockPattern matches a JSON array inside a markdown code fence.
	jsonArrayBlockPattern = regexp.MustCompile("(?s)```(?:json)?\\s*\\n?(\\[.*\\])\\s*```")
	// jsonArrayPattern matches any JSON array (greedy fallback).
	jsonArrayPattern = regexp.MustCompile(`(?s)\[[\s\S]*\]`)
	// trailingCommaPattern matches trailing commas before ] or }.
	trailingCommaPattern = regexp.MustCompile(`,\s*([}\]])`)
)

// ErrNoJSON is returned when a model reply contains no JSON document.
var ErrNoJSON = errors.New("no JSON found in model output")

// ExtractJSON pulls a JSON object out of a model reply.
func ExtractJSON(content string) string {
	if m := jsonBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := jsonObjectPattern.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

// ExtractJSONArray pulls a JSON array out of a model reply.
func ExtractJSONArray(content string) string {
	if m := jsonArrayBlockPattern.FindStringSubmatch(content); len(m) > 1 {
		return cleanJSON(m[1])
	}
	if m := jsonArrayPattern.FindString(content); m != "" {
		return cleanJSON(m)
	}
	return ""
}

func cleanJSON(raw string) string {
	return trailingCommaPattern.ReplaceAllString(raw, "$1")
}

type findingsEnvelope struct {
	Findings []wireFinding `json:"findings"`
}

type wireFinding struct {
	Section        string  `json:"ndpa_section"`
	Title          string  `json:"requirement_title"`
	Status         string  `json:"status"`
	Evidence       string  `json:"evidence"`
	Gap            string  `json:"gap"`
	Recommendation string  `json:"recommendation"`
	Confidence     float64 `json:"confidence"`
}

// ParseFindings decodes an evaluation reply. Both {"findings": [...]} and a
// bare array are accepted. Entries without a title or with an unknown status
// are skipped and confidence is clamped to [0,1].
func ParseFindings(content string) ([]engine.RawFinding, error) {
	wire, err := decodeFindings(content)
	if err != nil {
		return nil, err
	}

	out := make([]engine.RawFinding, 0, len(wire))
	for _, w := range wire {
		status, ok := engine.ParseStatus(w.Status)
		title := strings.TrimSpace(w.Title)
		if !ok || title == "" {
			continue
		}
		conf := w.Confidence
		if conf < 0 {
			conf = 0
		} else if conf > 1 {
			conf = 1
		}
		out = append(out, engine.RawFinding{
			Section:        strings.TrimSpace(w.Section),
			Title:          title,
			Status:         status,
			Evidence:       w.Evidence,
			Gap:            w.Gap,
			Recommendation: w.Recommendation,
			Confidence:     conf,
		})
	}
	return out, nil
}

func decodeFindings(content string) ([]wireFinding, error) {
	trimmed := strings.TrimSpace(content)

	var env findingsEnvelope
	if obj := ExtractJSON(trimmed); obj != "" && !strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal([]byte(obj), &env); err == nil && env.Findings != nil {
			return env.Findings, nil
		}
	}

	if arr := ExtractJSONArray(trimmed); arr != "" {
		var list []wireFinding
		if err := json.Unmarshal([]byte(arr), &list); err != nil {
			return nil, fmt.Errorf("decode findings: %w", err)
		}
		return list, nil
	}
	return nil, ErrNoJSON
}
