package domain

import "context"

// Rasterizer turns raw PDF bytes into an ordered set of page rasters.
type Rasterizer interface {
	Rasterize(ctx context.Context, data []byte, dpi int) (*Document, error)
}

// Oracle performs exactly one model invocation per call. Retry policy
// lives with the caller, never here.
type Oracle interface {
	Invoke(ctx context.Context, req OracleRequest) (*OracleResponse, error)
}

// Augmenter resolves best-effort reference context for a query. It
// returns an empty string on any failure and never returns an error.
type Augmenter interface {
	Retrieve(ctx context.Context, query string) string
}
