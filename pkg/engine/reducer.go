package engine

import (
	"errors"

	"go.uber.org/zap"
)

// ErrNoFindings is returned when no batch produced a usable finding.
var ErrNoFindings = errors.New("no findings produced")

// Reduce merges per-batch findings into one finding per registry title.
//
// A candidate replaces the held finding when its confidence is higher, or when
// confidences tie and its status ranks higher. Full ties keep the first seen.
func (e *Engine) Reduce(batches [][]RawFinding) (map[string]ReducedFinding, error) {
	total := 0
	for _, b := range batches {
		total += len(b)
	}
	if total == 0 {
		return nil, ErrNoFindings
	}

	reduced := make(map[string]ReducedFinding)
	for _, batch := range batches {
		for _, f := range batch {
			title, ok := e.registry.Canonical(f.Title)
			if !ok {
				e.logger.Warn("dropping finding for unknown requirement",
					zap.String("title", f.Title),
					zap.String("section", f.Section))
				continue
			}
			f.Title = title

			current, seen := reduced[title]
			if seen && !Supersedes(f, current.RawFinding) {
				continue
			}
			reduced[title] = ReducedFinding{RawFinding: f, Severity: e.registry.SeverityOf(title)}
		}
	}

	e.logger.Debug("reduced findings",
		zap.Int("raw", total),
		zap.Int("reduced", len(reduced)))
	return reduced, nil
}

// Supersedes reports whether candidate should replace current.
func Supersedes(candidate, current RawFinding) bool {
	if candidate.Confidence != current.Confidence {
		return candidate.Confidence > current.Confidence
	}
	return candidate.Status.Rank() > current.Status.Rank()
}
