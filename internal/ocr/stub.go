//go:build !ocr

package ocr

import (
	"context"
	"image"
)

// Engine is the placeholder used when OCR support is not compiled in.
type Engine struct{}

// New returns an engine whose Recognize always fails with ErrOCRNotEnabled.
func New() *Engine {
	return &Engine{}
}

// Available reports whether OCR support is compiled in.
func Available() bool { return false }

func (e *Engine) Name() string { return "none" }

// Recognize always returns ErrOCRNotEnabled.
func (e *Engine) Recognize(ctx context.Context, img image.Image, languages []string) (string, error) {
	return "", ErrOCRNotEnabled
}
