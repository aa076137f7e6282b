package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultConfig_IsValid(t *testing.T) {
	cfg := DefaultConfig()
	assert.NoError(t, cfg.Validate())
}

func TestLoad_YAMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	content := `
raster:
  dpi: 200
retry:
  max_attempts: 5
  base_backoff: 1s
quality:
  min_result_count: 8
  strict_quality_gate: true
corpus:
  driver: sqlite
  sqlite:
    path: /data/corpus.db
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, 200, cfg.Raster.DPI)
	assert.Equal(t, 5, cfg.Retry.MaxAttempts)
	assert.Equal(t, time.Second, cfg.Retry.BaseBackoff)
	assert.Equal(t, 8, cfg.Quality.MinResultCount)
	assert.True(t, cfg.Quality.StrictQualityGate)
	assert.Equal(t, "sqlite", cfg.Corpus.Driver)
	assert.Equal(t, "/data/corpus.db", cfg.Corpus.SQLite.Path)

	// Untouched sections keep defaults.
	assert.Equal(t, "memory", cfg.Cache.Driver)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load("/nonexistent/config.yaml")
	assert.Error(t, err)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("DRAWING_ENGINE_MODEL", "anthropic/claude-sonnet-4")
	t.Setenv("DRAWING_ENGINE_MAX_ATTEMPTS", "4")
	t.Setenv("DRAWING_ENGINE_STRICT_QUALITY", "true")
	t.Setenv("DATABASE_URL", "postgres://corpus:secret@db/corpus")
	t.Setenv("REDIS_URL", "redis://cache:6379")

	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, "anthropic/claude-sonnet-4", cfg.Oracle.Model)
	assert.Equal(t, 4, cfg.Retry.MaxAttempts)
	assert.True(t, cfg.Quality.StrictQualityGate)
	assert.Equal(t, "postgres", cfg.Corpus.Driver)
	assert.Equal(t, "redis", cfg.Cache.Driver)
	assert.Equal(t, "cache:6379", cfg.Cache.Redis.Addr)
}

func TestValidate_RejectsBadValues(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(*Config)
	}{
		{"dpi too low", func(c *Config) { c.Raster.DPI = 30 }},
		{"dpi too high", func(c *Config) { c.Raster.DPI = 1200 }},
		{"zero attempts", func(c *Config) { c.Retry.MaxAttempts = 0 }},
		{"step too large", func(c *Config) { c.Oracle.TemperatureStep = 0.2 }},
		{"ceiling below base", func(c *Config) {
			c.Oracle.TemperatureBase = 0.5
			c.Oracle.TemperatureCeiling = 0.2
		}},
		{"negative minimum", func(c *Config) { c.Quality.MinResultCount = -1 }},
		{"unknown corpus driver", func(c *Config) { c.Corpus.Driver = "dynamo" }},
		{"unknown cache driver", func(c *Config) { c.Cache.Driver = "varnish" }},
		{"top_k out of range", func(c *Config) { c.Retrieval.TopK = 50 }},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tc.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}
