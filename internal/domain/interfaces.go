package domain

import (
	"context"
	"image"
)

// Document is an opened PDF that can be read page by page
type Document interface {
	// NumPage returns the number of pages in the document
	NumPage() int

	// Text returns the embedded text of the zero-based page
	Text(page int) (string, error)

	// Image renders the zero-based page
	Image(page int) (image.Image, error)

	// Metadata returns document info entries (title, author, ...)
	Metadata() map[string]string

	Close() error
}

// Opener opens PDF documents from disk
type Opener interface {
	Open(path string) (Document, error)
}

// OCREngine recognizes text in rendered page images
type OCREngine interface {
	Name() string
	Recognize(ctx context.Context, img image.Image, languages []string) (string, error)
}
