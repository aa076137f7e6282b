// Package validate enforces payload shape and result quality.
package validate

import (
	"fmt"
	"strings"
	"sync"

	"github.com/santhosh-tekuri/jsonschema/v5"

	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/observability"
)

// Report summarizes one validation pass over a stage payload.
type Report struct {
	FindingsCount    int
	MeetsMinimum     bool
	InjectedPaths    []string
	SchemaViolations []string
	Warnings         []string
}

// Validator normalizes stage payloads: it injects defaults for absent
// required fields, counts findings against the stage minimum, and runs
// the advisory schema check. It never rejects a payload.
type Validator struct {
	logger *observability.Logger

	mu       sync.Mutex
	compiled map[string]*jsonschema.Schema
}

// New creates a validator.
func New(logger *observability.Logger) *Validator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Validator{
		logger:   logger.WithOperation("validate"),
		compiled: make(map[string]*jsonschema.Schema),
	}
}

// Validate normalizes the payload in place for the given stage and
// returns it with a report. Re-validating a validated payload yields
// the same payload and the same findings count.
func (v *Validator) Validate(payload map[string]any, stage domain.StageSpec) (map[string]any, Report) {
	var report Report

	if payload == nil {
		payload = make(map[string]any)
	}

	for _, field := range stage.RequiredFields {
		if injectDefault(payload, field) {
			report.InjectedPaths = append(report.InjectedPaths, field.Path)
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("required field %q was absent, default injected", field.Path))
		}
	}

	if stage.FindingsPath != "" {
		report.FindingsCount = countFindings(payload, stage.FindingsPath)
		report.MeetsMinimum = report.FindingsCount >= stage.MinResultCount
		if !report.MeetsMinimum {
			report.Warnings = append(report.Warnings,
				fmt.Sprintf("stage %q yielded %d findings, minimum is %d",
					stage.Name, report.FindingsCount, stage.MinResultCount))
		}
	} else {
		report.MeetsMinimum = true
	}

	v.synthesizeSummary(payload, stage)

	if stage.Schema != "" {
		report.SchemaViolations = v.checkSchema(payload, stage)
		report.Warnings = append(report.Warnings, report.SchemaViolations...)
	}

	for _, w := range report.Warnings {
		v.logger.Warn().Str("stage", stage.Name).Msg(w)
	}

	return payload, report
}

// injectDefault walks the dotted path and fills in the field's empty
// default when the leaf is absent. Intermediate mappings are created
// as needed. Returns true when a default was injected.
func injectDefault(payload map[string]any, field domain.FieldSpec) bool {
	segments := strings.Split(field.Path, ".")
	node := payload

	for _, seg := range segments[:len(segments)-1] {
		child, ok := node[seg]
		if !ok {
			next := make(map[string]any)
			node[seg] = next
			node = next
			continue
		}
		childMap, ok := child.(map[string]any)
		if !ok {
			// A non-mapping blocks the path; replace it so the
			// required leaf can exist.
			childMap = make(map[string]any)
			node[seg] = childMap
		}
		node = childMap
	}

	leaf := segments[len(segments)-1]
	if _, ok := node[leaf]; ok {
		return false
	}

	node[leaf] = field.Kind.Default()
	return true
}

// countFindings resolves the findings path and counts list entries.
// Injected defaults are empty lists, so they never count.
func countFindings(payload map[string]any, path string) int {
	value, ok := lookup(payload, path)
	if !ok {
		return 0
	}
	list, ok := value.([]any)
	if !ok {
		return 0
	}
	return len(list)
}

// lookup resolves a dotted path against nested mappings.
func lookup(payload map[string]any, path string) (any, bool) {
	segments := strings.Split(path, ".")
	var current any = payload

	for _, seg := range segments {
		node, ok := current.(map[string]any)
		if !ok {
			return nil, false
		}
		current, ok = node[seg]
		if !ok {
			return nil, false
		}
	}
	return current, true
}

// synthesizeSummary fills an empty summary mapping with severity
// counts computed from the findings list, so downstream consumers see
// consistent totals even when the oracle omitted them.
func (v *Validator) synthesizeSummary(payload map[string]any, stage domain.StageSpec) {
	if stage.FindingsPath == "" {
		return
	}

	summaryVal, ok := payload["summary"]
	if !ok {
		return
	}
	summary, ok := summaryVal.(map[string]any)
	if !ok || len(summary) > 0 {
		return
	}

	findingsVal, ok := lookup(payload, stage.FindingsPath)
	if !ok {
		return
	}
	findings, ok := findingsVal.([]any)
	if !ok {
		return
	}

	counts := map[string]int{}
	for _, f := range findings {
		entry, ok := f.(map[string]any)
		if !ok {
			continue
		}
		sev, _ := entry["severity"].(string)
		counts[strings.ToLower(strings.TrimSpace(sev))]++
	}

	summary["total_issues"] = len(findings)
	summary["critical_count"] = counts["critical"]
	summary["major_count"] = counts["major"]
	summary["minor_count"] = counts["minor"]
	summary["observation_count"] = counts["observation"]
}

// checkSchema runs the stage's advisory JSON schema against the
// payload. Violations become warnings, never failures.
func (v *Validator) checkSchema(payload map[string]any, stage domain.StageSpec) []string {
	schema, err := v.schemaFor(stage)
	if err != nil {
		return []string{fmt.Sprintf("stage %q schema did not compile: %v", stage.Name, err)}
	}

	if err := schema.Validate(map[string]any(payload)); err != nil {
		return []string{fmt.Sprintf("stage %q payload violates schema: %v", stage.Name, err)}
	}
	return nil
}

func (v *Validator) schemaFor(stage domain.StageSpec) (*jsonschema.Schema, error) {
	v.mu.Lock()
	defer v.mu.Unlock()

	if schema, ok := v.compiled[stage.Name]; ok {
		return schema, nil
	}

	schema, err := jsonschema.CompileString(stage.Name+".json", stage.Schema)
	if err != nil {
		return nil, err
	}
	v.compiled[stage.Name] = schema
	return schema, nil
}
