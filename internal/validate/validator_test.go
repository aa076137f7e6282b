package validate

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/drawing-engine/internal/domain"
)

func reviewStage(minCount int) domain.StageSpec {
	return domain.StageSpec{
		Name: "review",
		RequiredFields: []domain.FieldSpec{
			{Path: "drawing_info", Kind: domain.FieldMapping},
			{Path: "issues", Kind: domain.FieldList},
			{Path: "summary", Kind: domain.FieldMapping},
		},
		FindingsPath:   "issues",
		MinResultCount: minCount,
	}
}

func TestValidator_Validate_InjectsMissingDefaults(t *testing.T) {
	v := New(nil)

	payload, report := v.Validate(map[string]any{"issues": []any{}}, reviewStage(0))

	assert.ElementsMatch(t, []string{"drawing_info", "summary"}, report.InjectedPaths)
	assert.Equal(t, map[string]any{}, payload["drawing_info"])
	assert.Contains(t, payload, "summary")
}

func TestValidator_Validate_InjectsNestedPath(t *testing.T) {
	v := New(nil)

	stage := domain.StageSpec{
		Name: "nested",
		RequiredFields: []domain.FieldSpec{
			{Path: "report.sections.findings", Kind: domain.FieldList},
		},
		FindingsPath: "report.sections.findings",
	}

	payload, report := v.Validate(map[string]any{}, stage)

	require.Contains(t, report.InjectedPaths, "report.sections.findings")
	report2 := payload["report"].(map[string]any)
	sections := report2["sections"].(map[string]any)
	assert.Equal(t, []any{}, sections["findings"])
}

func TestValidator_Validate_MinimumGate(t *testing.T) {
	v := New(nil)

	payload := map[string]any{
		"drawing_info": map[string]any{},
		"issues":       []any{map[string]any{"severity": "major"}},
		"summary":      map[string]any{"total_issues": float64(1)},
	}

	_, report := v.Validate(payload, reviewStage(3))

	assert.Equal(t, 1, report.FindingsCount)
	assert.False(t, report.MeetsMinimum)
	assert.NotEmpty(t, report.Warnings)
}

func TestValidator_Validate_InjectedDefaultsNeverCount(t *testing.T) {
	v := New(nil)

	payload, report := v.Validate(map[string]any{}, reviewStage(1))

	assert.Contains(t, report.InjectedPaths, "issues")
	assert.Equal(t, 0, report.FindingsCount)
	assert.False(t, report.MeetsMinimum)

	// Re-validating the normalized payload must be stable.
	_, again := v.Validate(payload, reviewStage(1))
	assert.Equal(t, 0, again.FindingsCount)
	assert.Empty(t, again.InjectedPaths)
}

func TestValidator_Validate_SynthesizesSummaryCounts(t *testing.T) {
	v := New(nil)

	payload := map[string]any{
		"issues": []any{
			map[string]any{"severity": "critical"},
			map[string]any{"severity": "Major"},
			map[string]any{"severity": "major"},
			map[string]any{"severity": "observation"},
		},
	}

	payload, _ = v.Validate(payload, reviewStage(0))

	summary := payload["summary"].(map[string]any)
	assert.Equal(t, 4, summary["total_issues"])
	assert.Equal(t, 1, summary["critical_count"])
	assert.Equal(t, 2, summary["major_count"])
	assert.Equal(t, 0, summary["minor_count"])
	assert.Equal(t, 1, summary["observation_count"])
}

func TestValidator_Validate_KeepsExistingSummary(t *testing.T) {
	v := New(nil)

	payload := map[string]any{
		"issues":  []any{},
		"summary": map[string]any{"total_issues": float64(7)},
	}

	payload, _ = v.Validate(payload, reviewStage(0))

	summary := payload["summary"].(map[string]any)
	assert.Equal(t, float64(7), summary["total_issues"])
}

func TestValidator_Validate_SchemaViolationsAreWarnings(t *testing.T) {
	v := New(nil)

	stage := reviewStage(0)
	stage.Schema = `{
		"type": "object",
		"properties": {
			"issues": {"type": "array", "items": {"type": "object"}}
		}
	}`

	payload := map[string]any{
		"issues": []any{"not an object"},
	}

	normalized, report := v.Validate(payload, stage)

	assert.NotEmpty(t, report.SchemaViolations)
	// Advisory only: the payload survives untouched.
	assert.Equal(t, []any{"not an object"}, normalized["issues"])
}

func TestValidator_Validate_NilPayload(t *testing.T) {
	v := New(nil)

	payload, report := v.Validate(nil, reviewStage(0))

	require.NotNil(t, payload)
	assert.Contains(t, payload, "issues")
	assert.True(t, report.MeetsMinimum)
}
