// Package pdf rasterizes PDF drawings into ordered page images.
package pdf

import (
	"bytes"
	"context"
	"fmt"
	"image/png"

	"github.com/gen2brain/go-fitz"

	"github.com/spherical-ai/drawing-engine/internal/domain"
	"github.com/spherical-ai/drawing-engine/internal/observability"
)

// Rasterizer converts raw PDF bytes into in-memory PNG page rasters
// using go-fitz. Identical input bytes at the same DPI always produce
// identical page bytes, so downstream results stay reproducible.
type Rasterizer struct {
	logger *observability.Logger
}

// NewRasterizer creates a new PDF rasterizer.
func NewRasterizer(logger *observability.Logger) *Rasterizer {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Rasterizer{logger: logger.WithOperation("rasterize")}
}

// Rasterize renders every page of the document at the given DPI.
// It returns either all pages in file order or an error, never a
// partial document.
func (r *Rasterizer) Rasterize(ctx context.Context, data []byte, dpi int) (*domain.Document, error) {
	if err := validateInput(data, dpi); err != nil {
		return nil, err
	}

	doc, err := fitz.NewFromMemory(data)
	if err != nil {
		return nil, domain.DecodeError("failed to open PDF", err)
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		return nil, domain.DecodeError("PDF has no pages", nil)
	}

	pages := make([]domain.Page, 0, pageCount)

	for pageNum := 0; pageNum < pageCount; pageNum++ {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		img, err := doc.ImageDPI(pageNum, float64(dpi))
		if err != nil {
			return nil, domain.DecodeError(fmt.Sprintf("failed to render page %d", pageNum+1), err)
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, img); err != nil {
			return nil, domain.DecodeError(fmt.Sprintf("failed to encode page %d", pageNum+1), err)
		}

		bounds := img.Bounds()
		pages = append(pages, domain.Page{
			Number: pageNum + 1,
			PNG:    buf.Bytes(),
			Width:  bounds.Dx(),
			Height: bounds.Dy(),
		})
	}

	r.logger.Debug().
		Int("pages", len(pages)).
		Int("dpi", dpi).
		Msg("rasterized document")

	return &domain.Document{Pages: pages, DPI: dpi}, nil
}

var _ domain.Rasterizer = (*Rasterizer)(nil)
