// Package retrieval resolves best-effort reference context for
// extraction prompts.
package retrieval

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/spherical-ai/drawing-engine/internal/cache"
	"github.com/spherical-ai/drawing-engine/internal/corpus"
	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/embedding"
	"github.com/spherical-ai/drawing-engine/internal/observability"
)

// contextSeparator joins formatted chunks in the assembled block.
const contextSeparator = "\n---\n"

// Config holds retrieval tuning.
type Config struct {
	TopK                int
	SimilarityThreshold float64
	CacheTTL            time.Duration
}

// DefaultConfig returns the default retrieval configuration.
func DefaultConfig() Config {
	return Config{
		TopK:                5,
		SimilarityThreshold: 0.5,
		CacheTTL:            15 * time.Minute,
	}
}

// Augmenter ranks reference chunks against a query embedding and
// assembles the winners into a context block. Every failure degrades
// to an empty block; retrieval never stops an extraction.
type Augmenter struct {
	embedder embedding.Embedder
	store    corpus.Store
	cache    cache.Client
	cfg      Config
	logger   *observability.Logger
}

// NewAugmenter creates an augmenter. The cache is optional; embedder
// and store may be nil, in which case every lookup yields an empty
// context.
func NewAugmenter(embedder embedding.Embedder, store corpus.Store, cacheClient cache.Client, cfg Config, logger *observability.Logger) *Augmenter {
	if cfg.TopK <= 0 {
		cfg.TopK = DefaultConfig().TopK
	}
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = DefaultConfig().CacheTTL
	}
	if logger == nil {
		logger = observability.Nop()
	}

	return &Augmenter{
		embedder: embedder,
		store:    store,
		cache:    cacheClient,
		cfg:      cfg,
		logger:   logger.WithOperation("retrieval"),
	}
}

// Retrieve returns the assembled context block for the query, or an
// empty string when anything along the way fails.
func (a *Augmenter) Retrieve(ctx context.Context, query string) string {
	if a.embedder == nil || a.store == nil || strings.TrimSpace(query) == "" {
		return ""
	}

	queryVec, err := a.queryEmbedding(ctx, query)
	if err != nil {
		a.logger.Warn().Err(err).Msg("query embedding failed, proceeding without context")
		return ""
	}

	chunks, err := a.store.Chunks(ctx)
	if err != nil {
		a.logger.Warn().Err(err).Msg("corpus load failed, proceeding without context")
		return ""
	}
	if len(chunks) == 0 {
		return ""
	}

	type scored struct {
		chunk corpus.Chunk
		score float64
	}

	ranked := make([]scored, 0, len(chunks))
	for _, chunk := range chunks {
		score := cosineSimilarity(queryVec, chunk.Embedding)
		if score >= a.cfg.SimilarityThreshold {
			ranked = append(ranked, scored{chunk: chunk, score: score})
		}
	}

	if len(ranked) == 0 {
		return ""
	}

	sort.SliceStable(ranked, func(i, j int) bool {
		return ranked[i].score > ranked[j].score
	})

	if len(ranked) > a.cfg.TopK {
		ranked = ranked[:a.cfg.TopK]
	}

	parts := make([]string, len(ranked))
	for i, r := range ranked {
		parts[i] = formatChunk(r.chunk)
	}

	a.logger.Debug().
		Int("candidates", len(chunks)).
		Int("selected", len(parts)).
		Msg("assembled reference context")

	return strings.Join(parts, contextSeparator)
}

// queryEmbedding embeds the query, serving and filling the cache when
// one is configured.
func (a *Augmenter) queryEmbedding(ctx context.Context, query string) ([]float32, error) {
	key := a.cacheKey(query)

	if a.cache != nil {
		if raw, err := a.cache.Get(ctx, key); err == nil {
			var vec []float32
			if err := json.Unmarshal(raw, &vec); err == nil {
				return vec, nil
			}
		} else if !errors.Is(err, cache.ErrCacheMiss) {
			a.logger.Warn().Err(err).Msg("embedding cache read failed")
		}
	}

	vec, err := a.embedder.EmbedSingle(ctx, query)
	if err != nil {
		return nil, err
	}

	if a.cache != nil {
		if raw, err := json.Marshal(vec); err == nil {
			if err := a.cache.Set(ctx, key, raw, a.cfg.CacheTTL); err != nil {
				a.logger.Warn().Err(err).Msg("embedding cache write failed")
			}
		}
	}

	return vec, nil
}

func (a *Augmenter) cacheKey(query string) string {
	sum := sha256.Sum256([]byte(a.embedder.Model() + "\x00" + query))
	return cache.Key("emb", hex.EncodeToString(sum[:]))
}

// formatChunk renders one chunk as a titled context entry.
func formatChunk(chunk corpus.Chunk) string {
	category := chunk.Category
	if category == "" {
		category = "GENERAL"
	}
	return fmt.Sprintf("[%s: %s]\n%s", strings.ToUpper(category), chunk.Title, chunk.Text)
}

// cosineSimilarity computes the cosine of the angle between vectors.
// Mismatched or zero-length vectors score zero.
func cosineSimilarity(a, b []float32) float64 {
	if len(a) == 0 || len(a) != len(b) {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}

var _ domain.Augmenter = (*Augmenter)(nil)
