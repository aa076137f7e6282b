package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spherical-ai/drawing-engine/internal/domain"
)

func TestPIDAnalysis_Shape(t *testing.T) {
	stage := PIDAnalysis(5, 8192)

	assert.Equal(t, StagePIDAnalysis, stage.Name)
	assert.Equal(t, "issues", stage.FindingsPath)
	assert.Equal(t, 5, stage.MinResultCount)
	assert.True(t, stage.IncludePages)
	assert.NotEmpty(t, stage.SystemPrompt)
	assert.NotEmpty(t, stage.Schema)

	paths := make([]string, len(stage.RequiredFields))
	for i, f := range stage.RequiredFields {
		paths[i] = f.Path
	}
	assert.ElementsMatch(t, []string{"drawing_info", "issues", "summary"}, paths)
}

func TestPIDAnalysis_PromptEmbedsMinimum(t *testing.T) {
	stage := PIDAnalysis(7, 0)

	prompt := stage.Prompt(domain.PromptInput{MinFindings: 7})
	assert.Contains(t, prompt, "at least 7 distinct findings")
}

func TestPIDAnalysis_PromptWrapsContext(t *testing.T) {
	stage := PIDAnalysis(5, 0)

	with := stage.Prompt(domain.PromptInput{Context: "[PIPING: Relief]\nAPI 520"})
	assert.True(t, strings.HasPrefix(with, "**REFERENCE CONTEXT FROM ENGINEERING STANDARDS:**"))
	assert.Contains(t, with, "[PIPING: Relief]")

	without := stage.Prompt(domain.PromptInput{})
	assert.NotContains(t, without, "REFERENCE CONTEXT")
}

func TestConversionStages_OrderAndDependencies(t *testing.T) {
	stages := ConversionStages(5, 8192)
	require.Len(t, stages, 3)

	assert.Equal(t, StagePFDExtraction, stages[0].Name)
	assert.Equal(t, StagePIDGeneration, stages[1].Name)
	assert.Equal(t, StageConversionValidation, stages[2].Name)

	// Only the dependent stages embed prior outputs.
	in := domain.PromptInput{PriorOutputs: "### Output of stage pfd_extraction"}
	assert.NotContains(t, stages[0].Prompt(in), "OUTPUTS OF PRECEDING STAGES")
	assert.Contains(t, stages[1].Prompt(in), "### Output of stage pfd_extraction")
	assert.Contains(t, stages[2].Prompt(in), "### Output of stage pfd_extraction")
}

func TestConversionStages_GenerationStageSkipsPages(t *testing.T) {
	stages := ConversionStages(5, 0)

	assert.True(t, stages[0].IncludePages)
	assert.False(t, stages[1].IncludePages)
	assert.True(t, stages[2].IncludePages)
}

func TestStageNames_Unique(t *testing.T) {
	stages := ConversionStages(5, 0)
	seen := map[string]bool{PIDAnalysis(5, 0).Name: true}
	for _, s := range stages {
		assert.False(t, seen[s.Name], s.Name)
		seen[s.Name] = true
	}
}
