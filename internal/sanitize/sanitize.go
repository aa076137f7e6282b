// Package sanitize turns raw oracle text into clean structured payloads.
package sanitize

import (
	"encoding/json"
	"strings"

	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/observability"
)

// keyCutset holds the characters stripped from mapping keys. Keys are
// re-stripped until they stop changing, so nested contamination like
// `"\n key \n"` still cleans to `key`.
const keyCutset = "\n\r\t\"' "

// Sanitizer normalizes raw oracle output. Sanitizing the output of a
// previous sanitization is always a no-op.
type Sanitizer struct {
	logger *observability.Logger
}

// New creates a sanitizer.
func New(logger *observability.Logger) *Sanitizer {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Sanitizer{logger: logger.WithOperation("sanitize")}
}

// Object sanitizes raw text that must carry a JSON object. Anything
// that parses to a non-object, or does not parse at all, is a
// malformed-output error.
func (s *Sanitizer) Object(raw string) (map[string]any, error) {
	tree, err := s.Tree(raw)
	if err != nil {
		return nil, err
	}

	obj, ok := tree.(map[string]any)
	if !ok {
		return nil, domain.MalformedOutputError("expected a JSON object at top level", nil)
	}
	return obj, nil
}

// Tree sanitizes raw text into a generic JSON value tree. It is total
// on any JSON-parseable input after fence stripping.
func (s *Sanitizer) Tree(raw string) (any, error) {
	stripped := StripFences(raw)

	var tree any
	if err := json.Unmarshal([]byte(stripped), &tree); err != nil {
		return nil, domain.MalformedOutputError("response is not valid JSON", err)
	}

	return s.cleanValue(tree), nil
}

// StripFences removes a surrounding markdown code fence, with or
// without a language tag, and trims whitespace.
func StripFences(raw string) string {
	text := strings.TrimSpace(raw)

	if !strings.HasPrefix(text, "```") {
		return text
	}

	text = strings.TrimPrefix(text, "```")

	// Drop the language tag on the opening fence line, if any.
	if idx := strings.IndexByte(text, '\n'); idx >= 0 {
		firstLine := strings.TrimSpace(text[:idx])
		if firstLine == "" || isFenceTag(firstLine) {
			text = text[idx+1:]
		}
	} else {
		text = strings.TrimSpace(text)
	}

	text = strings.TrimSpace(text)
	text = strings.TrimSuffix(text, "```")

	return strings.TrimSpace(text)
}

func isFenceTag(s string) bool {
	for _, r := range s {
		if (r < 'a' || r > 'z') && (r < '0' || r > '9') {
			return false
		}
	}
	return len(s) > 0
}

// cleanValue normalizes mapping keys recursively. List elements are
// cleaned in place; scalar values pass through untouched.
func (s *Sanitizer) cleanValue(v any) any {
	switch val := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(val))
		for key, inner := range val {
			cleaned := cleanKey(key)
			if cleaned == "" {
				s.logger.Warn().Str("key", key).Msg("dropping key that cleaned to empty")
				continue
			}
			out[cleaned] = s.cleanValue(inner)
		}
		return out
	case []any:
		for i := range val {
			val[i] = s.cleanValue(val[i])
		}
		return val
	default:
		return v
	}
}

// cleanKey strips contaminating characters from both ends of a key.
func cleanKey(key string) string {
	return strings.Trim(key, keyCutset)
}
