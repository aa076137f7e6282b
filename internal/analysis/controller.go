// Package analysis runs single extraction stages with bounded retries.
package analysis

import (
	"context"
	"fmt"
	"time"

	"github.com/spherical-ai/drawing-engine/internal/confidence"
	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/fallback"
	"github.com/spherical-ai/drawing-engine/internal/observability"
	"github.com/spherical-ai/drawing-engine/internal/sanitize"
	"github.com/spherical-ai/drawing-engine/internal/validate"
)

// Config holds the retry budget and oracle tuning shared by every
// stage the controller runs.
type Config struct {
	MaxAttempts        int
	BaseBackoff        time.Duration
	MaxBackoff         time.Duration
	TemperatureBase    float64
	TemperatureStep    float64
	TemperatureCeiling float64
	StrictQualityGate  bool
}

// DefaultConfig returns the default controller configuration.
func DefaultConfig() Config {
	return Config{
		MaxAttempts:        3,
		BaseBackoff:        2 * time.Second,
		MaxBackoff:         30 * time.Second,
		TemperatureBase:    0.1,
		TemperatureStep:    0.05,
		TemperatureCeiling: 0.3,
	}
}

// Controller owns the entire retry budget for a stage run. The oracle
// underneath performs exactly one attempt per call; transport failures
// back off linearly, malformed output retries immediately with a
// perturbed temperature.
type Controller struct {
	oracle    domain.Oracle
	sanitizer *sanitize.Sanitizer
	validator *validate.Validator
	cfg       Config
	logger    *observability.Logger

	// sleep is swapped out in tests.
	sleep func(ctx context.Context, d time.Duration) error
}

// NewController creates a stage controller.
func NewController(oracle domain.Oracle, cfg Config, logger *observability.Logger) *Controller {
	if cfg.MaxAttempts < 1 {
		cfg.MaxAttempts = 1
	}
	if logger == nil {
		logger = observability.Nop()
	}

	return &Controller{
		oracle:    oracle,
		sanitizer: sanitize.New(logger),
		validator: validate.New(logger),
		cfg:       cfg,
		logger:    logger.WithOperation("analysis"),
		sleep:     sleepCtx,
	}
}

// Run executes one stage over the document. It returns a fallback
// result rather than an error when the oracle responded but its output
// never survived structuring; it returns a pipeline error only when
// the transport itself failed on the final attempt.
func (c *Controller) Run(ctx context.Context, stage domain.StageSpec, doc *domain.Document, promptCtx, priorOutputs string) (*domain.ExtractionResult, error) {
	start := time.Now()
	logger := c.logger.WithStage(stage.Name)

	prompt := stage.Prompt(domain.PromptInput{
		Context:      promptCtx,
		PriorOutputs: priorOutputs,
		MinFindings:  stage.MinResultCount,
	})

	var (
		lastRaw   string
		lastUsage domain.Usage
		lastModel string
	)

	for attempt := 1; attempt <= c.cfg.MaxAttempts; attempt++ {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		temp := c.temperature(attempt)

		req := domain.OracleRequest{
			Stage:       stage.Name,
			System:      stage.SystemPrompt,
			Prompt:      prompt,
			Temperature: temp,
			MaxTokens:   stage.MaxTokens,
		}
		if stage.IncludePages && doc != nil {
			req.Pages = doc.Pages
		}

		resp, err := c.oracle.Invoke(ctx, req)

		// An in-flight call may finish after cancellation was
		// requested; the result is discarded either way.
		if cerr := ctx.Err(); cerr != nil {
			return nil, cerr
		}

		if err != nil {
			if !domain.IsTransport(err) {
				return nil, err
			}

			if attempt == c.cfg.MaxAttempts {
				return nil, domain.PipelineError(
					fmt.Sprintf("stage %s failed after %d attempts", stage.Name, attempt), err)
			}

			backoff := c.backoff(attempt)
			logger.Warn().
				Int("attempt", attempt).
				Int("max_attempts", c.cfg.MaxAttempts).
				Dur("backoff", backoff).
				Err(err).
				Msg("transport failure, backing off")

			if serr := c.sleep(ctx, backoff); serr != nil {
				return nil, serr
			}
			continue
		}

		lastRaw = resp.RawText
		lastUsage = resp.Usage
		lastModel = resp.Model

		payload, perr := c.sanitizer.Object(resp.RawText)
		if perr != nil {
			logger.Warn().
				Int("attempt", attempt).
				Float64("temperature", temp).
				Err(perr).
				Msg("malformed oracle output")

			if attempt == c.cfg.MaxAttempts {
				return c.fallbackResult(stage, lastRaw, lastUsage, lastModel, attempt, temp, promptCtx, start, perr), nil
			}
			continue
		}

		payload, report := c.validator.Validate(payload, stage)

		if !report.MeetsMinimum && c.cfg.StrictQualityGate {
			qerr := domain.QualityError(
				fmt.Sprintf("stage %s yielded %d findings, strict minimum is %d",
					stage.Name, report.FindingsCount, stage.MinResultCount), nil)

			logger.Warn().Int("attempt", attempt).Err(qerr).Msg("strict quality gate rejected payload")

			if attempt == c.cfg.MaxAttempts {
				return c.fallbackResult(stage, lastRaw, lastUsage, lastModel, attempt, temp, promptCtx, start, qerr), nil
			}
			continue
		}

		result := &domain.ExtractionResult{
			Stage:        stage.Name,
			Payload:      payload,
			Success:      true,
			Confidence:   confidence.Score(payload, stage),
			Attempts:     attempt,
			Temperature:  temp,
			Model:        lastModel,
			Usage:        lastUsage,
			Elapsed:      time.Since(start),
			ContextChars: len(promptCtx),
			Warnings:     report.Warnings,
		}

		logger.Info().
			Int("attempt", attempt).
			Int("findings", report.FindingsCount).
			Str("confidence", string(result.Confidence)).
			Dur("elapsed", result.Elapsed).
			Msg("stage completed")

		return result, nil
	}

	// Unreachable: every loop exit returns.
	return nil, domain.PipelineError(fmt.Sprintf("stage %s exhausted retry budget", stage.Name), nil)
}

// fallbackResult wraps a synthesized placeholder payload in a
// non-fatal failed result so the workflow can proceed.
func (c *Controller) fallbackResult(stage domain.StageSpec, raw string, usage domain.Usage, model string, attempts int, temp float64, promptCtx string, start time.Time, cause error) *domain.ExtractionResult {
	c.logger.WithStage(stage.Name).Error().
		Int("attempts", attempts).
		Err(cause).
		Msg("all attempts exhausted, synthesizing fallback result")

	return &domain.ExtractionResult{
		Stage:        stage.Name,
		Payload:      fallback.Synthesize(stage, raw),
		Success:      false,
		Confidence:   domain.ConfidenceLow,
		Attempts:     attempts,
		Temperature:  temp,
		Model:        model,
		Usage:        usage,
		Elapsed:      time.Since(start),
		ContextChars: len(promptCtx),
		ErrorDetail:  cause.Error(),
	}
}

// temperature returns the sampling temperature for the given 1-based
// attempt: base on the first try, then one step warmer per retry up to
// the ceiling.
func (c *Controller) temperature(attempt int) float64 {
	temp := c.cfg.TemperatureBase + float64(attempt-1)*c.cfg.TemperatureStep
	if temp > c.cfg.TemperatureCeiling {
		temp = c.cfg.TemperatureCeiling
	}
	return temp
}

// backoff returns the linear backoff before the next attempt, capped
// at the configured maximum.
func (c *Controller) backoff(attempt int) time.Duration {
	d := time.Duration(attempt) * c.cfg.BaseBackoff
	if d > c.cfg.MaxBackoff {
		d = c.cfg.MaxBackoff
	}
	return d
}

// sleepCtx waits for the duration or until the context ends.
func sleepCtx(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
