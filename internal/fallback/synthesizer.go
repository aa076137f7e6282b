// Package fallback synthesizes schema-shaped placeholder payloads for
// stages whose every attempt failed to produce structured output.
package fallback

import (
	"strings"

	"github.com/spherical-ai/drawing-engine/internal/domain"
)

// Synthesize builds a placeholder payload whose top-level key set
// matches what a successful payload for the same stage carries after
// validation. The findings list holds a single synthetic entry that
// preserves the verbatim oracle text for manual review.
func Synthesize(stage domain.StageSpec, rawText string) map[string]any {
	payload := make(map[string]any, len(stage.RequiredFields))

	for _, field := range stage.RequiredFields {
		ensurePath(payload, field)
	}

	if stage.FindingsPath != "" {
		setPath(payload, stage.FindingsPath, []any{syntheticFinding(stage, rawText)})
	}

	return payload
}

// syntheticFinding is the single placeholder entry. Severity stays at
// the lowest rung so downstream consumers never mistake it for a real
// defect.
func syntheticFinding(stage domain.StageSpec, rawText string) map[string]any {
	descKey := stage.DescriptionKey
	if descKey == "" {
		descKey = "description"
	}

	return map[string]any{
		"serial_number": 1,
		"reference":     "SYSTEM-001",
		descKey:         "Automated structuring of the model response failed after all attempts.",
		"recommendation": "Review the raw response manually and re-run the stage.",
		"severity":      "observation",
		"status":        "pending",
		"raw_response":  rawText,
	}
}

// ensurePath makes sure the dotted path exists, filling the leaf with
// the field's empty default.
func ensurePath(payload map[string]any, field domain.FieldSpec) {
	segments := strings.Split(field.Path, ".")
	node := payload

	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}

	leaf := segments[len(segments)-1]
	if _, ok := node[leaf]; !ok {
		node[leaf] = field.Kind.Default()
	}
}

// setPath overwrites the value at the dotted path.
func setPath(payload map[string]any, path string, value any) {
	segments := strings.Split(path, ".")
	node := payload

	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg].(map[string]any)
		if !ok {
			child = make(map[string]any)
			node[seg] = child
		}
		node = child
	}

	node[segments[len(segments)-1]] = value
}
