package prompts

import (
	"github.com/spherical-ai/drawing-engine/internal/domain"
)

// Stage names of the built-in library.
const (
	StagePIDAnalysis          = "pid_analysis"
	StagePFDExtraction        = "pfd_extraction"
	StagePIDGeneration        = "pid_generation"
	StageConversionValidation = "conversion_validation"
)

const analysisSchema = `{
  "type": "object",
  "properties": {
    "drawing_info": {"type": "object"},
    "issues": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "issue_observed": {"type": "string"},
          "severity": {"enum": ["critical", "major", "minor", "observation"]}
        }
      }
    },
    "summary": {"type": "object"}
  },
  "required": ["issues"]
}`

const validationSchema = `{
  "type": "object",
  "properties": {
    "validation_findings": {
      "type": "array",
      "items": {
        "type": "object",
        "properties": {
          "finding": {"type": "string"},
          "disposition": {"enum": ["pass", "gap", "conflict"]}
        }
      }
    }
  },
  "required": ["validation_findings"]
}`

// PIDAnalysis returns the single-stage drawing review spec.
func PIDAnalysis(minResultCount, maxTokens int) domain.StageSpec {
	return domain.StageSpec{
		Name:         StagePIDAnalysis,
		SystemPrompt: systemPrompt,
		Prompt:       analysisPrompt,
		RequiredFields: []domain.FieldSpec{
			{Path: "drawing_info", Kind: domain.FieldMapping},
			{Path: "issues", Kind: domain.FieldList},
			{Path: "summary", Kind: domain.FieldMapping},
		},
		FindingsPath:   "issues",
		DescriptionKey: "issue_observed",
		MinResultCount: minResultCount,
		MaxTokens:      maxTokens,
		Schema:         analysisSchema,
		IncludePages:   true,
	}
}

// ConversionStages returns the three-stage PFD-to-P&ID pipeline in
// execution order. Later stages see the full accumulated output of the
// stages before them.
func ConversionStages(minResultCount, maxTokens int) []domain.StageSpec {
	return []domain.StageSpec{
		{
			Name:         StagePFDExtraction,
			SystemPrompt: systemPrompt,
			Prompt:       pfdExtractionPrompt,
			RequiredFields: []domain.FieldSpec{
				{Path: "equipment", Kind: domain.FieldList},
				{Path: "streams", Kind: domain.FieldList},
				{Path: "control_intent", Kind: domain.FieldList},
				{Path: "notes", Kind: domain.FieldList},
			},
			FindingsPath:   "equipment",
			DescriptionKey: "service",
			MinResultCount: 1,
			MaxTokens:      maxTokens,
			IncludePages:   true,
		},
		{
			Name:         StagePIDGeneration,
			SystemPrompt: systemPrompt,
			Prompt:       pidGenerationPrompt,
			RequiredFields: []domain.FieldSpec{
				{Path: "pid_elements", Kind: domain.FieldList},
				{Path: "loops", Kind: domain.FieldList},
				{Path: "summary", Kind: domain.FieldMapping},
			},
			FindingsPath:   "pid_elements",
			DescriptionKey: "description",
			MinResultCount: 1,
			MaxTokens:      maxTokens,
			IncludePages:   false,
		},
		{
			Name:         StageConversionValidation,
			SystemPrompt: systemPrompt,
			Prompt:       conversionValidationPrompt,
			RequiredFields: []domain.FieldSpec{
				{Path: "validation_findings", Kind: domain.FieldList},
				{Path: "coverage", Kind: domain.FieldMapping},
				{Path: "summary", Kind: domain.FieldMapping},
			},
			FindingsPath:   "validation_findings",
			DescriptionKey: "finding",
			MinResultCount: minResultCount,
			MaxTokens:      maxTokens,
			Schema:         validationSchema,
			IncludePages:   true,
		},
	}
}
