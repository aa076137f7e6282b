// Package analyzer is the public entry point for the drawing engine:
// resilient structured extraction from engineering drawing PDFs.
package analyzer

import (
	"context"
	"os"

	"github.com/joho/godotenv"

	"github.com/spherical-ai/drawing-engine/internal/analysis"
	"github.com/spherical-ai/drawing-engine/internal/cache"
	"github.com/spherical-ai/drawing-engine/internal/config"
	"github.com/spherical-ai/drawing-engine/internal/corpus"
	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/embedding"
	"github.com/spherical-ai/drawing-engine/internal/llm"
	"github.com/spherical-ai/drawing-engine/internal/observability"
	"github.com/spherical-ai/drawing-engine/internal/pdf"
	"github.com/spherical-ai/drawing-engine/internal/prompts"
	"github.com/spherical-ai/drawing-engine/internal/retrieval"
	"github.com/spherical-ai/drawing-engine/internal/workflow"
)

// Re-export core result types for public API consumers.
type (
	Document         = domain.Document
	ExtractionResult = domain.ExtractionResult
	StageSpec        = domain.StageSpec
	WorkflowState    = domain.WorkflowState
	Confidence       = domain.Confidence
)

// Persister stores completed workflow state. Persistence is the
// caller's concern; the engine only invokes it after a run finishes.
type Persister interface {
	SaveWorkflow(ctx context.Context, state *domain.WorkflowState) error
}

// Client is the main entry point for the drawing engine library.
type Client struct {
	cfg        *config.Config
	logger     *observability.Logger
	rasterizer domain.Rasterizer
	controller *analysis.Controller
	workflow   *workflow.Coordinator
	persister  Persister

	cacheClient cache.Client
	store       corpus.Store
}

// Components allows callers and tests to inject collaborators. Any
// nil field is built from configuration.
type Components struct {
	Oracle     domain.Oracle
	Rasterizer domain.Rasterizer
	Embedder   embedding.Embedder
	Corpus     corpus.Store
	Cache      cache.Client
	Persister  Persister
}

// New creates a client from configuration and environment. The oracle
// API key comes from OPENROUTER_API_KEY.
func New(cfg *config.Config) (*Client, error) {
	return NewWithComponents(cfg, Components{})
}

// NewWithComponents creates a client with injected collaborators.
func NewWithComponents(cfg *config.Config, deps Components) (*Client, error) {
	_ = godotenv.Load() // Ignore error if .env doesn't exist

	if cfg == nil {
		cfg = config.DefaultConfig()
	}

	logger := observability.NewLogger(observability.LogConfig{
		Level:       cfg.Observability.LogLevel,
		Format:      cfg.Observability.LogFormat,
		ServiceName: "drawing-engine",
	})

	oracle := deps.Oracle
	if oracle == nil {
		apiKey := os.Getenv("OPENROUTER_API_KEY")
		if apiKey == "" {
			return nil, domain.ConfigError("OPENROUTER_API_KEY not set", nil)
		}

		var err error
		oracle, err = llm.NewClient(llm.Config{
			APIKey:  apiKey,
			Model:   cfg.Oracle.Model,
			BaseURL: cfg.Oracle.BaseURL,
			Timeout: cfg.Oracle.Timeout,
		}, logger)
		if err != nil {
			return nil, err
		}
	}

	rasterizer := deps.Rasterizer
	if rasterizer == nil {
		rasterizer = pdf.NewRasterizer(logger)
	}

	controller := analysis.NewController(oracle, analysis.Config{
		MaxAttempts:        cfg.Retry.MaxAttempts,
		BaseBackoff:        cfg.Retry.BaseBackoff,
		MaxBackoff:         cfg.Retry.MaxBackoff,
		TemperatureBase:    cfg.Oracle.TemperatureBase,
		TemperatureStep:    cfg.Oracle.TemperatureStep,
		TemperatureCeiling: cfg.Oracle.TemperatureCeiling,
		StrictQualityGate:  cfg.Quality.StrictQualityGate,
	}, logger)

	client := &Client{
		cfg:        cfg,
		logger:     logger,
		rasterizer: rasterizer,
		controller: controller,
		persister:  deps.Persister,
	}

	var augmenter domain.Augmenter
	if cfg.Retrieval.Enabled {
		aug, err := client.buildAugmenter(deps)
		if err != nil {
			return nil, err
		}
		augmenter = aug
	}

	client.workflow = workflow.NewCoordinator(controller, augmenter, logger)

	return client, nil
}

// buildAugmenter wires the retrieval stack from configuration,
// honoring injected components.
func (c *Client) buildAugmenter(deps Components) (domain.Augmenter, error) {
	embedder := deps.Embedder
	if embedder == nil {
		apiKey := os.Getenv("OPENROUTER_API_KEY")
		if apiKey == "" {
			// Retrieval is best-effort; without credentials the
			// augmenter simply yields empty context.
			c.logger.Warn().Msg("retrieval enabled but no API key, context disabled")
		} else {
			var err error
			embedder, err = embedding.NewClient(embedding.Config{
				APIKey:    apiKey,
				Model:     c.cfg.Embedding.Model,
				BaseURL:   c.cfg.Embedding.BaseURL,
				Dimension: c.cfg.Embedding.Dimension,
				Timeout:   c.cfg.Embedding.Timeout,
			})
			if err != nil {
				return nil, err
			}
		}
	}

	store := deps.Corpus
	if store == nil {
		var err error
		store, err = c.buildCorpus()
		if err != nil {
			return nil, err
		}
	}
	c.store = store

	cacheClient := deps.Cache
	if cacheClient == nil {
		var err error
		cacheClient, err = c.buildCache()
		if err != nil {
			return nil, err
		}
	}
	c.cacheClient = cacheClient

	return retrieval.NewAugmenter(embedder, store, cacheClient, retrieval.Config{
		TopK:                c.cfg.Retrieval.TopK,
		SimilarityThreshold: c.cfg.Retrieval.SimilarityThreshold,
		CacheTTL:            c.cfg.Retrieval.CacheTTL,
	}, c.logger), nil
}

func (c *Client) buildCorpus() (corpus.Store, error) {
	sqlCfg := corpus.SQLConfig{
		Table:        c.cfg.Corpus.Table,
		MaxOpenConns: c.cfg.Corpus.Postgres.MaxOpenConns,
		MaxIdleConns: c.cfg.Corpus.Postgres.MaxIdleConns,
	}

	switch c.cfg.Corpus.Driver {
	case "sqlite":
		return corpus.NewSQLiteStore(c.cfg.Corpus.SQLite.Path, sqlCfg)
	case "postgres":
		return corpus.NewPostgresStore(c.cfg.Corpus.Postgres.DSN, sqlCfg)
	default:
		return corpus.NewMemoryStore(nil), nil
	}
}

func (c *Client) buildCache() (cache.Client, error) {
	if c.cfg.Cache.Driver == "redis" {
		return cache.NewRedisClient(cache.RedisConfig{
			Addr:     c.cfg.Cache.Redis.Addr,
			Password: c.cfg.Cache.Redis.Password,
			DB:       c.cfg.Cache.Redis.DB,
			PoolSize: c.cfg.Cache.Redis.PoolSize,
			Prefix:   c.cfg.Cache.Redis.Prefix,
		})
	}
	return cache.NewMemoryClient(c.cfg.Cache.MaxEntries), nil
}

// Analyze runs the single-stage drawing review over a PDF.
func (c *Client) Analyze(ctx context.Context, pdfData []byte, documentID string) (*domain.ExtractionResult, error) {
	stage := prompts.PIDAnalysis(c.cfg.Quality.MinResultCount, c.cfg.Oracle.MaxTokens)

	state, err := c.Run(ctx, pdfData, documentID, []domain.StageSpec{stage})
	if err != nil {
		return nil, err
	}
	return state.Record(stage.Name).Result, nil
}

// Convert runs the three-stage PFD-to-P&ID conversion pipeline.
func (c *Client) Convert(ctx context.Context, pdfData []byte, documentID string) (*domain.WorkflowState, error) {
	stages := prompts.ConversionStages(c.cfg.Quality.MinResultCount, c.cfg.Oracle.MaxTokens)
	return c.Run(ctx, pdfData, documentID, stages)
}

// Run rasterizes the PDF and executes the given stages in order.
func (c *Client) Run(ctx context.Context, pdfData []byte, documentID string, stages []domain.StageSpec) (*domain.WorkflowState, error) {
	doc, err := c.rasterizer.Rasterize(ctx, pdfData, c.cfg.Raster.DPI)
	if err != nil {
		return nil, err
	}
	doc.ID = documentID

	state, runErr := c.workflow.Run(ctx, doc, stages)

	if state != nil && c.persister != nil {
		if perr := c.persister.SaveWorkflow(ctx, state); perr != nil {
			c.logger.Error().Err(perr).Msg("failed to persist workflow state")
		}
	}

	return state, runErr
}

// Close releases corpus and cache resources.
func (c *Client) Close() error {
	var firstErr error
	if c.store != nil {
		if err := c.store.Close(); err != nil {
			firstErr = err
		}
	}
	if c.cacheClient != nil {
		if err := c.cacheClient.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
