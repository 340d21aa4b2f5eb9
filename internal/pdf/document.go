package pdf

import (
	"fmt"
	"image"
	"strings"
	"sync"

	"github.com/gen2brain/go-fitz"

	"github.com/neuroserve/neuroserve/internal/domain"
)

// Opener opens PDF documents with MuPDF through go-fitz.
type Opener struct{}

// NewOpener creates a new go-fitz backed opener.
func NewOpener() *Opener {
	return &Opener{}
}

// Open opens the PDF at path.
func (o *Opener) Open(path string) (domain.Document, error) {
	doc, err := fitz.New(path)
	if err != nil {
		return nil, domain.ConversionError("Failed to open PDF", err)
	}
	return &Document{doc: doc}, nil
}

// Document is an open go-fitz document. MuPDF contexts are not safe for
// concurrent use, so every call is serialized.
type Document struct {
	mu  sync.Mutex
	doc *fitz.Document
}

// NumPage returns the number of pages.
func (d *Document) NumPage() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return 0
	}
	return d.doc.NumPage()
}

// Text returns the embedded text of the zero-based page.
func (d *Document) Text(page int) (string, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return "", domain.ConversionError("document is closed", nil)
	}
	text, err := d.doc.Text(page)
	if err != nil {
		return "", domain.ConversionError(fmt.Sprintf("Failed to read text of page %d", page+1), err)
	}
	return text, nil
}

// Image renders the zero-based page.
func (d *Document) Image(page int) (image.Image, error) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil, domain.ConversionError("document is closed", nil)
	}
	img, err := d.doc.Image(page)
	if err != nil {
		return nil, domain.ConversionError(fmt.Sprintf("Failed to convert page %d", page+1), err)
	}
	return img, nil
}

// Metadata returns the document info dictionary with empty values removed.
// MuPDF fills fixed-size buffers, so values are cut at the first NUL.
func (d *Document) Metadata() map[string]string {
	d.mu.Lock()
	defer d.mu.Unlock()
	out := map[string]string{}
	if d.doc == nil {
		return out
	}
	for k, v := range d.doc.Metadata() {
		if v = cleanMetadataValue(v); v != "" {
			out[k] = v
		}
	}
	return out
}

func cleanMetadataValue(v string) string {
	if i := strings.IndexByte(v, 0); i >= 0 {
		v = v[:i]
	}
	return strings.TrimSpace(v)
}

// Close releases the document. It is safe to call more than once.
func (d *Document) Close() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.doc == nil {
		return nil
	}
	err := d.doc.Close()
	d.doc = nil
	return err
}
