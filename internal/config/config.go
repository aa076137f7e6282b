// Package config provides unified configuration loading for the drawing engine.
// Supports YAML files, environment variables, and programmatic overrides.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the drawing engine.
type Config struct {
	Raster        RasterConfig        `yaml:"raster"`
	Oracle        OracleConfig        `yaml:"oracle"`
	Retry         RetryConfig         `yaml:"retry"`
	Quality       QualityConfig       `yaml:"quality"`
	Retrieval     RetrievalConfig     `yaml:"retrieval"`
	Embedding     EmbeddingConfig     `yaml:"embedding"`
	Corpus        CorpusConfig        `yaml:"corpus"`
	Cache         CacheConfig         `yaml:"cache"`
	Observability ObservabilityConfig `yaml:"observability"`
}

// RasterConfig holds PDF rasterization settings.
type RasterConfig struct {
	DPI          int   `yaml:"dpi"`
	MaxFileBytes int64 `yaml:"max_file_bytes"`
}

// OracleConfig holds vision model settings.
type OracleConfig struct {
	BaseURL            string        `yaml:"base_url"`
	Model              string        `yaml:"model"`
	MaxTokens          int           `yaml:"max_tokens"`
	Timeout            time.Duration `yaml:"timeout"`
	TemperatureBase    float64       `yaml:"temperature_base"`
	TemperatureStep    float64       `yaml:"temperature_step"`
	TemperatureCeiling float64       `yaml:"temperature_ceiling"`
}

// RetryConfig holds the per-stage retry budget.
type RetryConfig struct {
	MaxAttempts int           `yaml:"max_attempts"`
	BaseBackoff time.Duration `yaml:"base_backoff"`
	MaxBackoff  time.Duration `yaml:"max_backoff"`
}

// QualityConfig holds result quality gate settings.
type QualityConfig struct {
	MinResultCount    int  `yaml:"min_result_count"`
	StrictQualityGate bool `yaml:"strict_quality_gate"`
}

// RetrievalConfig holds reference context retrieval settings.
type RetrievalConfig struct {
	Enabled             bool          `yaml:"enabled"`
	TopK                int           `yaml:"top_k"`
	SimilarityThreshold float64       `yaml:"similarity_threshold"`
	CacheTTL            time.Duration `yaml:"cache_ttl"`
}

// EmbeddingConfig holds embedding model settings.
type EmbeddingConfig struct {
	BaseURL   string        `yaml:"base_url"`
	Model     string        `yaml:"model"`
	Dimension int           `yaml:"dimension"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CorpusConfig holds reference corpus store settings.
type CorpusConfig struct {
	Driver   string         `yaml:"driver"` // memory, sqlite or postgres
	Table    string         `yaml:"table"`
	SQLite   SQLiteConfig   `yaml:"sqlite"`
	Postgres PostgresConfig `yaml:"postgres"`
}

// SQLiteConfig holds SQLite-specific settings.
type SQLiteConfig struct {
	Path string `yaml:"path"`
}

// PostgresConfig holds Postgres-specific settings.
type PostgresConfig struct {
	DSN          string `yaml:"dsn"`
	MaxOpenConns int    `yaml:"max_open_conns"`
	MaxIdleConns int    `yaml:"max_idle_conns"`
}

// CacheConfig holds cache settings.
type CacheConfig struct {
	Driver     string      `yaml:"driver"` // memory or redis
	MaxEntries int         `yaml:"max_entries"`
	Redis      RedisConfig `yaml:"redis"`
}

// RedisConfig holds Redis-specific settings.
type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
	PoolSize int    `yaml:"pool_size"`
	Prefix   string `yaml:"prefix"`
}

// ObservabilityConfig holds logging settings.
type ObservabilityConfig struct {
	LogLevel  string `yaml:"log_level"`
	LogFormat string `yaml:"log_format"`
}

// Load reads configuration from a YAML file and applies environment overrides.
func Load(path string) (*Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("read config file: %w", err)
		}

		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parse config file: %w", err)
		}
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults.
func DefaultConfig() *Config {
	return &Config{
		Raster: RasterConfig{
			DPI:          150,
			MaxFileBytes: 100 << 20,
		},
		Oracle: OracleConfig{
			BaseURL:            "https://openrouter.ai/api/v1",
			Model:              "google/gemini-2.5-flash-preview-09-2025",
			MaxTokens:          8192,
			Timeout:            120 * time.Second,
			TemperatureBase:    0.1,
			TemperatureStep:    0.05,
			TemperatureCeiling: 0.3,
		},
		Retry: RetryConfig{
			MaxAttempts: 3,
			BaseBackoff: 2 * time.Second,
			MaxBackoff:  30 * time.Second,
		},
		Quality: QualityConfig{
			MinResultCount:    5,
			StrictQualityGate: false,
		},
		Retrieval: RetrievalConfig{
			Enabled:             true,
			TopK:                5,
			SimilarityThreshold: 0.5,
			CacheTTL:            15 * time.Minute,
		},
		Embedding: EmbeddingConfig{
			BaseURL:   "https://openrouter.ai/api/v1",
			Model:     "qwen/qwen3-embedding-8b",
			Dimension: 768,
			Timeout:   30 * time.Second,
		},
		Corpus: CorpusConfig{
			Driver: "memory",
			Table:  "reference_chunks",
			SQLite: SQLiteConfig{
				Path: "/tmp/drawing-engine.db",
			},
			Postgres: PostgresConfig{
				MaxOpenConns: 10,
				MaxIdleConns: 2,
			},
		},
		Cache: CacheConfig{
			Driver:     "memory",
			MaxEntries: 10000,
			Redis: RedisConfig{
				Addr:     "localhost:6379",
				DB:       0,
				PoolSize: 10,
				Prefix:   "de:",
			},
		},
		Observability: ObservabilityConfig{
			LogLevel:  "info",
			LogFormat: "json",
		},
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	if c.Raster.DPI < 72 || c.Raster.DPI > 600 {
		return fmt.Errorf("raster dpi must be between 72 and 600, got %d", c.Raster.DPI)
	}

	if c.Retry.MaxAttempts < 1 {
		return fmt.Errorf("retry max_attempts must be at least 1, got %d", c.Retry.MaxAttempts)
	}

	if c.Oracle.TemperatureStep < 0 || c.Oracle.TemperatureStep > 0.05 {
		return fmt.Errorf("temperature_step must be between 0 and 0.05, got %g", c.Oracle.TemperatureStep)
	}

	if c.Oracle.TemperatureCeiling < c.Oracle.TemperatureBase {
		return fmt.Errorf("temperature_ceiling %g is below temperature_base %g",
			c.Oracle.TemperatureCeiling, c.Oracle.TemperatureBase)
	}

	if c.Quality.MinResultCount < 0 {
		return fmt.Errorf("min_result_count must not be negative, got %d", c.Quality.MinResultCount)
	}

	switch c.Corpus.Driver {
	case "memory", "sqlite", "postgres":
	default:
		return fmt.Errorf("invalid corpus driver: %s", c.Corpus.Driver)
	}

	if c.Cache.Driver != "memory" && c.Cache.Driver != "redis" {
		return fmt.Errorf("invalid cache driver: %s", c.Cache.Driver)
	}

	if c.Retrieval.TopK < 1 || c.Retrieval.TopK > 20 {
		return fmt.Errorf("retrieval top_k must be between 1 and 20, got %d", c.Retrieval.TopK)
	}

	return nil
}

// applyEnvOverrides applies environment variable overrides to config.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("DRAWING_ENGINE_MODEL"); v != "" {
		cfg.Oracle.Model = v
	}

	if v := os.Getenv("DRAWING_ENGINE_BASE_URL"); v != "" {
		cfg.Oracle.BaseURL = v
	}

	if v := os.Getenv("DRAWING_ENGINE_DPI"); v != "" {
		if dpi, err := strconv.Atoi(v); err == nil {
			cfg.Raster.DPI = dpi
		}
	}

	if v := os.Getenv("DRAWING_ENGINE_MAX_ATTEMPTS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Retry.MaxAttempts = n
		}
	}

	if v := os.Getenv("DRAWING_ENGINE_STRICT_QUALITY"); v != "" {
		cfg.Quality.StrictQualityGate = v == "1" || strings.EqualFold(v, "true")
	}

	if v := os.Getenv("DATABASE_URL"); v != "" {
		if strings.HasPrefix(v, "sqlite:") {
			cfg.Corpus.Driver = "sqlite"
			cfg.Corpus.SQLite.Path = strings.TrimPrefix(v, "sqlite:")
		} else if strings.HasPrefix(v, "postgres") {
			cfg.Corpus.Driver = "postgres"
			cfg.Corpus.Postgres.DSN = v
		}
	}

	if v := os.Getenv("REDIS_URL"); v != "" {
		cfg.Cache.Driver = "redis"
		cfg.Cache.Redis.Addr = strings.TrimPrefix(v, "redis://")
	}

	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Observability.LogLevel = v
	}

	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Observability.LogFormat = v
	}
}
