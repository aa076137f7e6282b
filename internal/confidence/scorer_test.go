package confidence

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/spherical-ai/drawing-engine/internal/domain"
)

func stage() domain.StageSpec {
	return domain.StageSpec{
		Name:           "review",
		FindingsPath:   "issues",
		DescriptionKey: "issue_observed",
	}
}

func finding(detail string) map[string]any {
	return map[string]any{"issue_observed": detail}
}

func terse() any { return finding("short") }

func verbose() any {
	return finding(strings.Repeat("relief valve PSV-101 is missing upstream isolation ", 3))
}

func payloadWith(findings ...any) map[string]any {
	return map[string]any{"issues": findings}
}

func TestScore_MissingPayload(t *testing.T) {
	assert.Equal(t, domain.ConfidenceLow, Score(nil, stage()))
}

func TestScore_MissingFindingsPath(t *testing.T) {
	assert.Equal(t, domain.ConfidenceLow, Score(map[string]any{"other": []any{}}, stage()))
}

func TestScore_FindingsNotAList(t *testing.T) {
	assert.Equal(t, domain.ConfidenceLow, Score(map[string]any{"issues": "three"}, stage()))
}

func TestScore_EmptyFindings(t *testing.T) {
	// Base score only: good.
	assert.Equal(t, domain.ConfidenceGood, Score(payloadWith(), stage()))
}

func TestScore_FewTerseFindings(t *testing.T) {
	assert.Equal(t, domain.ConfidenceGood, Score(payloadWith(terse(), terse()), stage()))
}

func TestScore_FiveFindingsEarnsHigh(t *testing.T) {
	p := payloadWith(terse(), terse(), terse(), terse(), terse())
	assert.Equal(t, domain.ConfidenceHigh, Score(p, stage()))
}

func TestScore_TenDetailedFindingsEarnsVeryHigh(t *testing.T) {
	findings := make([]any, 10)
	for i := range findings {
		findings[i] = verbose()
	}
	assert.Equal(t, domain.ConfidenceVeryHigh, Score(payloadWith(findings...), stage()))
}

func TestScore_DetailFractionBelowThreshold(t *testing.T) {
	// 3 of 5 detailed = 60%, below the 70% bar: count increment only.
	p := payloadWith(verbose(), verbose(), verbose(), terse(), terse())
	assert.Equal(t, domain.ConfidenceHigh, Score(p, stage()))
}

func TestScore_FallsBackToCommonDescriptionKeys(t *testing.T) {
	s := stage()
	s.DescriptionKey = ""

	findings := make([]any, 5)
	for i := range findings {
		findings[i] = map[string]any{
			"description": strings.Repeat("thermal relief required on blocked-in exchanger ", 3),
		}
	}
	assert.Equal(t, domain.ConfidenceVeryHigh, Score(payloadWith(findings...), s))
}

func TestScore_NestedFindingsPath(t *testing.T) {
	s := domain.StageSpec{FindingsPath: "report.items"}
	p := map[string]any{
		"report": map[string]any{"items": []any{map[string]any{}}},
	}
	assert.Equal(t, domain.ConfidenceGood, Score(p, s))
}
