// Package workflow runs ordered extraction stages over one document.
package workflow

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spherical-ai/drawing-engine/internal/analysis"
	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/observability"
)

// Coordinator executes stages sequentially. Each stage's prompt sees
// the reference context for the document plus the accumulated outputs
// of every completed stage before it. Only transport-level pipeline
// errors halt the run; fallback results flow through as completed
// stages.
type Coordinator struct {
	controller *analysis.Controller
	augmenter  domain.Augmenter // optional
	logger     *observability.Logger
}

// NewCoordinator creates a coordinator. The augmenter may be nil.
func NewCoordinator(controller *analysis.Controller, augmenter domain.Augmenter, logger *observability.Logger) *Coordinator {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Coordinator{
		controller: controller,
		augmenter:  augmenter,
		logger:     logger.WithOperation("workflow"),
	}
}

// Run executes the stages in order and returns the workflow state.
// On a fatal stage error the state is returned alongside the error,
// with every earlier result preserved.
func (c *Coordinator) Run(ctx context.Context, doc *domain.Document, stages []domain.StageSpec) (*domain.WorkflowState, error) {
	if len(stages) == 0 {
		return nil, domain.ValidationError("no stages to run", nil)
	}

	names := make([]string, len(stages))
	seen := make(map[string]bool, len(stages))
	for i, stage := range stages {
		if stage.Name == "" {
			return nil, domain.ValidationError("stage name must not be empty", nil)
		}
		if seen[stage.Name] {
			return nil, domain.ValidationError(fmt.Sprintf("duplicate stage name %q", stage.Name), nil)
		}
		seen[stage.Name] = true
		names[i] = stage.Name
	}

	state := domain.NewWorkflowState(doc.ID, names)
	ctx = observability.ContextWithRunID(ctx, state.RunID.String())
	logger := c.logger.WithContext(ctx)

	logger.Info().
		Str("document", doc.ID).
		Int("stages", len(stages)).
		Int("pages", doc.PageCount()).
		Msg("workflow started")

	var prior []*domain.ExtractionResult

	for _, stage := range stages {
		// Cancellation is honored at stage boundaries.
		if err := ctx.Err(); err != nil {
			state.MarkFailed(stage.Name, err)
			return state, err
		}

		promptCtx := ""
		if c.augmenter != nil {
			promptCtx = c.augmenter.Retrieve(ctx, retrievalQuery(doc, stage))
		}

		state.MarkRunning(stage.Name)

		result, err := c.controller.Run(ctx, stage, doc, promptCtx, accumulate(prior))
		if err != nil {
			logger.Error().Str("stage", stage.Name).Err(err).Msg("workflow halted on fatal stage error")
			state.MarkFailed(stage.Name, err)
			return state, err
		}

		state.MarkDone(stage.Name, result)
		prior = append(prior, result)

		if !result.Success {
			logger.Warn().Str("stage", stage.Name).Msg("stage completed with fallback result")
		}
	}

	logger.Info().
		Str("document", doc.ID).
		Int("completed", len(prior)).
		Msg("workflow completed")

	return state, nil
}

// retrievalQuery builds the similarity query for a stage run.
func retrievalQuery(doc *domain.Document, stage domain.StageSpec) string {
	return strings.TrimSpace(doc.ID + " " + stage.Name)
}

// accumulate renders completed stage outputs as labeled JSON blocks.
// Fallback payloads are included; downstream stages see the degraded
// data rather than a silent gap.
func accumulate(results []*domain.ExtractionResult) string {
	if len(results) == 0 {
		return ""
	}

	var b strings.Builder
	for i, result := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		fmt.Fprintf(&b, "### Output of stage %s\n", result.Stage)

		encoded, err := json.MarshalIndent(result.Payload, "", "  ")
		if err != nil {
			fmt.Fprintf(&b, "(output could not be rendered: %v)", err)
			continue
		}
		b.Write(encoded)
	}
	return b.String()
}
