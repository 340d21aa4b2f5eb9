// Package pdfreader exposes text extraction from uploaded PDFs as the
// pdf_reader service.
package pdfreader

import (
	"context"
	"fmt"
	"os"

	"github.com/neuroserve/neuroserve/internal/config"
	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/extract"
	"github.com/neuroserve/neuroserve/internal/registry"
)

const (
	Name            = "pdf_reader"
	Folder          = "pdfreader"
	TaskExtractText = "extract_text"
)

const examplePayload = `{"rel_path": "pdf/<stored_as>", "return_text": true, "per_page": false}`

// Storage resolves upload-relative paths.
type Storage interface {
	BaseDir() string
	Resolve(relPath string) (string, error)
}

// Service extracts text from PDFs previously stored through /uploads/pdf.
type Service struct {
	*registry.Base
	cfg       config.PDFReaderConfig
	storage   Storage
	extractor *extract.Service
}

// New creates the pdf_reader service.
func New(cfg config.PDFReaderConfig, storage Storage, extractor *extract.Service) *Service {
	s := &Service{
		Base: registry.NewBase(domain.ServiceMeta{
			Name:           Name,
			Folder:         Folder,
			Kind:           domain.KindService,
			Description:    "Extracts the text of an uploaded PDF, page by page, with optional OCR for scanned pages.",
			ExamplePayload: examplePayload,
		}),
		cfg:       cfg,
		storage:   storage,
		extractor: extractor,
	}
	s.Handle(TaskExtractText, s.extractText)
	return s
}

// Load makes sure the upload directory exists.
func (s *Service) Load(ctx context.Context) error {
	if s.storage == nil || s.extractor == nil {
		return domain.ConfigError("pdf_reader requires storage and an extractor", nil)
	}
	if err := os.MkdirAll(s.storage.BaseDir(), 0o755); err != nil {
		return domain.StorageError(fmt.Sprintf("failed to create upload directory %s", s.storage.BaseDir()), err)
	}
	return nil
}

func (s *Service) extractText(ctx context.Context, payload domain.Payload) (any, error) {
	relPath, ok := payload["rel_path"].(string)
	if !ok || relPath == "" {
		return nil, domain.ValidationError("rel_path is required", nil)
	}

	path, err := s.storage.Resolve(relPath)
	if err != nil {
		return nil, err
	}

	pages, err := pageList(payload["pages"])
	if err != nil {
		return nil, err
	}

	maxPages := payload.Int("max_pages", 0)
	if maxPages < 0 {
		return nil, domain.ValidationError("max_pages must not be negative", nil)
	}
	if s.cfg.MaxPages > 0 && (maxPages == 0 || maxPages > s.cfg.MaxPages) {
		maxPages = s.cfg.MaxPages
	}

	res, err := s.extractor.Process(ctx, path, extract.Options{
		Pages:        pages,
		MaxPages:     maxPages,
		OCR:          payload.Bool("ocr", s.cfg.OCR),
		OCRLanguages: s.cfg.OCRLanguages,
	}, nil)
	if err != nil {
		return nil, err
	}

	out := map[string]any{
		"rel_path":   relPath,
		"pages":      len(res.Pages),
		"page_count": res.PageCount,
		"ocr_pages":  res.OCRPages,
		"chars":      res.Chars(),
		"metadata":   res.Metadata,
	}
	if payload.Bool("return_text", true) {
		out["text"] = res.Text
	}
	if payload.Bool("per_page", false) {
		out["page_texts"] = res.Pages
	}
	return out, nil
}

// pageList reads an optional JSON array of 1-based page numbers.
func pageList(v any) ([]int, error) {
	if v == nil {
		return nil, nil
	}
	raw, ok := v.([]any)
	if !ok {
		return nil, domain.ValidationError("pages must be a list of page numbers", nil)
	}
	pages := make([]int, 0, len(raw))
	for _, item := range raw {
		f, ok := item.(float64)
		if !ok || f != float64(int(f)) {
			return nil, domain.ValidationError(fmt.Sprintf("invalid page number: %v", item), nil)
		}
		pages = append(pages, int(f))
	}
	return pages, nil
}
