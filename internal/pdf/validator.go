package pdf

import (
	"bytes"
	"fmt"

	"github.com/spherical-ai/drawing-engine/internal/domain"
)

const (
	minDPI = 72
	maxDPI = 600

	// maxInputBytes bounds the accepted source size.
	maxInputBytes = 100 << 20
)

var pdfMagic = []byte("%PDF-")

// validateInput checks the raw document bytes and DPI before any
// rendering work starts.
func validateInput(data []byte, dpi int) error {
	if len(data) == 0 {
		return domain.ValidationError("document is empty", nil)
	}

	if len(data) > maxInputBytes {
		return domain.ValidationError(
			fmt.Sprintf("document exceeds %d bytes", maxInputBytes), nil)
	}

	if !bytes.HasPrefix(data, pdfMagic) {
		return domain.DecodeError("document is not a PDF", nil)
	}

	if dpi < minDPI || dpi > maxDPI {
		return domain.ValidationError(
			fmt.Sprintf("dpi must be between %d and %d, got %d", minDPI, maxDPI, dpi), nil)
	}

	return nil
}
