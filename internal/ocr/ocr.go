// Package ocr recognizes text in rendered PDF pages. The Tesseract engine is
// compiled in with the "ocr" build tag; without it New returns an engine that
// reports ErrOCRNotEnabled.
package ocr

import (
	"errors"

	"github.com/neuroserve/neuroserve/internal/domain"
)

// ErrOCRNotEnabled is returned when the binary was built without OCR support.
var ErrOCRNotEnabled = errors.New("ocr support not compiled in (build with -tags ocr)")

// DefaultLanguages are the Tesseract languages used when none are configured.
var DefaultLanguages = []string{"ara", "eng"}

var _ domain.OCREngine = (*Engine)(nil)

func languagesOrDefault(langs []string) []string {
	if len(langs) == 0 {
		return DefaultLanguages
	}
	return langs
}
