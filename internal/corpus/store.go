// Package corpus provides read-only access to the pre-embedded
// reference corpus used for context retrieval.
package corpus

import (
	"context"
)

// Chunk is one pre-embedded reference passage.
type Chunk struct {
	ID        string
	Title     string
	Category  string
	Text      string
	Embedding []float32
}

// Store yields the active reference chunks. Implementations are
// read-only; corpus authoring happens out of band.
type Store interface {
	Chunks(ctx context.Context) ([]Chunk, error)
	Close() error
}

// MemoryStore serves chunks from memory. Used for tests and for
// callers that load their corpus through other means.
type MemoryStore struct {
	chunks []Chunk
}

// NewMemoryStore creates a store over the given chunks.
func NewMemoryStore(chunks []Chunk) *MemoryStore {
	return &MemoryStore{chunks: append([]Chunk(nil), chunks...)}
}

// Chunks returns the stored chunks.
func (s *MemoryStore) Chunks(ctx context.Context) ([]Chunk, error) {
	return append([]Chunk(nil), s.chunks...), nil
}

// Close is a no-op for the memory store.
func (s *MemoryStore) Close() error {
	return nil
}

// Chain tries stores in order and serves the first non-empty result.
// Failing or empty stores are skipped, so a broken primary never takes
// retrieval down with it.
type Chain struct {
	stores []Store
}

// NewChain creates an ordered store chain.
func NewChain(stores ...Store) *Chain {
	return &Chain{stores: stores}
}

// Chunks returns the first non-empty chunk set in chain order. When
// every store fails or is empty it returns no chunks and no error;
// retrieval downstream degrades to an empty context.
func (c *Chain) Chunks(ctx context.Context) ([]Chunk, error) {
	for _, store := range c.stores {
		chunks, err := store.Chunks(ctx)
		if err != nil || len(chunks) == 0 {
			continue
		}
		return chunks, nil
	}
	return nil, nil
}

// Close closes every store in the chain.
func (c *Chain) Close() error {
	var firstErr error
	for _, store := range c.stores {
		if err := store.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

var (
	_ Store = (*MemoryStore)(nil)
	_ Store = (*Chain)(nil)
)
