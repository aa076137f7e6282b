// Package confidence assigns heuristic quality labels to stage payloads.
package confidence

import (
	"strings"

	"github.com/spherical-ai/drawing-engine/internal/domain"
)

const (
	baseScore = 0.70

	// descriptiveFloor is the character length a finding's descriptive
	// text must exceed to count as detailed.
	descriptiveFloor = 50

	// detailFraction is the share of detailed findings that earns the
	// detail increment.
	detailFraction = 0.7
)

// Score labels a stage payload. It is a pure function of the payload
// and never fails: missing or unreadable findings yield the lowest
// label.
func Score(payload map[string]any, stage domain.StageSpec) domain.Confidence {
	if payload == nil || stage.FindingsPath == "" {
		return domain.ConfidenceLow
	}

	findings, ok := findingsList(payload, stage.FindingsPath)
	if !ok {
		return domain.ConfidenceLow
	}

	score := baseScore

	if len(findings) >= 5 {
		score += 0.10
	}
	if len(findings) >= 10 {
		score += 0.10
	}

	if len(findings) > 0 {
		detailed := 0
		for _, f := range findings {
			entry, ok := f.(map[string]any)
			if !ok {
				continue
			}
			if len(descriptiveText(entry, stage.DescriptionKey)) > descriptiveFloor {
				detailed++
			}
		}
		if float64(detailed)/float64(len(findings)) > detailFraction {
			score += 0.10
		}
	}

	switch {
	case score >= 0.90:
		return domain.ConfidenceVeryHigh
	case score >= 0.80:
		return domain.ConfidenceHigh
	case score >= 0.70:
		return domain.ConfidenceGood
	default:
		return domain.ConfidenceModerate
	}
}

// findingsList resolves the dotted findings path to a list.
func findingsList(payload map[string]any, path string) ([]any, bool) {
	var current any = payload
	for _, seg := range strings.Split(path, ".") {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	list, ok := current.([]any)
	return list, ok
}

// descriptiveText pulls the finding's descriptive field, falling back
// to common field names when the stage does not name one.
func descriptiveText(entry map[string]any, key string) string {
	candidates := []string{key, "issue_observed", "description"}
	for _, k := range candidates {
		if k == "" {
			continue
		}
		if text, ok := entry[k].(string); ok && text != "" {
			return text
		}
	}
	return ""
}
