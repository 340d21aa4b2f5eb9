// Package extract pulls the text out of a PDF page by page, falling back to
// OCR for pages without embedded text.
package extract

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/observability"
	"github.com/neuroserve/neuroserve/internal/ocr"
	"github.com/neuroserve/neuroserve/internal/pdf"
)

// PageSeparator joins the text of consecutive pages.
const PageSeparator = "\n\n"

// Options controls a single extraction run.
type Options struct {
	// Pages selects 1-based page numbers. Empty means every page.
	Pages []int
	// MaxPages caps the number of pages processed. Zero means no cap.
	MaxPages int
	// OCR enables recognition of pages that have no embedded text.
	OCR          bool
	OCRLanguages []string
	// WaitForEvents makes event sends block until the consumer receives them
	// or ctx is done, instead of dropping events when the channel is full.
	WaitForEvents bool
}

// Result is the outcome of an extraction.
type Result struct {
	Pages     []domain.PageText
	Text      string
	PageCount int
	OCRPages  int
	Metadata  map[string]string
}

// Chars returns the number of characters in the joined text.
func (r *Result) Chars() int {
	return len([]rune(r.Text))
}

// Service orchestrates the PDF extraction process
type Service struct {
	opener    domain.Opener
	validator *pdf.Validator
	ocr       domain.OCREngine
	logger    *observability.Logger
}

// NewService creates a new extraction service. engine may be nil, in which
// case OCR requests are ignored.
func NewService(opener domain.Opener, engine domain.OCREngine, logger *observability.Logger) *Service {
	if logger == nil {
		logger = observability.Nop()
	}
	return &Service{
		opener:    opener,
		validator: pdf.NewValidator(logger),
		ocr:       engine,
		logger:    logger.WithOperation("extract"),
	}
}

// Process extracts the text of the PDF at pdfPath. Progress is reported on
// eventCh, which may be nil; events are dropped when the channel is full
// unless opts.WaitForEvents is set.
func (s *Service) Process(ctx context.Context, pdfPath string, opts Options, eventCh chan<- domain.StreamEvent) (*Result, error) {
	startTime := time.Now()
	logger := s.logger.WithContext(ctx)
	em := &emitter{ctx: ctx, ch: eventCh, wait: opts.WaitForEvents, logger: logger}

	em.emit(domain.StreamEvent{
		Type:      domain.EventStart,
		Payload:   fmt.Sprintf("Starting extraction of %s", pdfPath),
		Timestamp: time.Now(),
	})

	if err := s.validator.ValidatePDFPath(pdfPath); err != nil {
		em.emitError(err)
		return nil, err
	}

	doc, err := s.opener.Open(pdfPath)
	if err != nil {
		em.emitError(err)
		return nil, err
	}
	defer doc.Close()

	pageCount := doc.NumPage()
	if pageCount == 0 {
		err := domain.ValidationError("PDF has no pages", nil)
		em.emitError(err)
		return nil, err
	}

	pages, err := selectPages(pageCount, opts)
	if err != nil {
		em.emitError(err)
		return nil, err
	}

	logger.Info().Str("path", pdfPath).Int("pages", pageCount).Int("selected", len(pages)).Msg("extracting text")

	result := &Result{
		PageCount: pageCount,
		Metadata:  doc.Metadata(),
		Pages:     make([]domain.PageText, 0, len(pages)),
	}
	useOCR := opts.OCR && s.ocr != nil
	failCount := 0

	for _, pageNum := range pages {
		select {
		case <-ctx.Done():
			em.emitError(ctx.Err())
			return nil, ctx.Err()
		default:
		}

		em.emit(domain.StreamEvent{
			Type:       domain.EventPageProcessing,
			PageNumber: pageNum,
			TotalPages: len(pages),
			Payload:    fmt.Sprintf("Processing page %d", pageNum),
			Timestamp:  time.Now(),
		})

		text, err := doc.Text(pageNum - 1)
		if err != nil {
			logger.Error().Err(err).Int("page", pageNum).Msg("failed to extract page")
			failCount++
			em.emitError(fmt.Errorf("page %d: %w", pageNum, err))
			continue
		}

		page := domain.PageText{PageNumber: pageNum, Text: strings.TrimSpace(text)}

		if page.Text == "" && useOCR {
			recognized, err := s.recognize(ctx, doc, pageNum, opts.OCRLanguages)
			switch {
			case errors.Is(err, ocr.ErrOCRNotEnabled):
				logger.Warn().Msg("OCR requested but not available, continuing without it")
				useOCR = false
			case err != nil:
				if ctx.Err() != nil {
					em.emitError(ctx.Err())
					return nil, ctx.Err()
				}
				logger.Warn().Err(err).Int("page", pageNum).Msg("OCR failed")
				em.emitError(fmt.Errorf("page %d ocr: %w", pageNum, err))
			case recognized != "":
				page.Text = recognized
				page.OCR = true
				result.OCRPages++
			}
		}

		result.Pages = append(result.Pages, page)

		em.emit(domain.StreamEvent{
			Type:       domain.EventPageText,
			PageNumber: pageNum,
			TotalPages: len(pages),
			Payload:    page,
			Timestamp:  time.Now(),
		})
		em.emit(domain.StreamEvent{
			Type:       domain.EventPageComplete,
			PageNumber: pageNum,
			TotalPages: len(pages),
			Payload:    fmt.Sprintf("Completed page %d", pageNum),
			Timestamp:  time.Now(),
		})
	}

	if failCount == len(pages) {
		err := domain.ExtractionError("All pages failed to extract", nil)
		em.emitError(err)
		return nil, err
	}

	result.Text = joinPages(result.Pages)

	duration := time.Since(startTime)
	em.emit(domain.StreamEvent{
		Type: domain.EventComplete,
		Payload: fmt.Sprintf("Extraction complete: %d/%d pages successful in %v",
			len(result.Pages), len(pages), duration.Round(time.Millisecond)),
		Timestamp: time.Now(),
	})

	logger.Info().
		Int("pages", len(result.Pages)).
		Int("failed", failCount).
		Int("ocr_pages", result.OCRPages).
		Dur("took", duration).
		Msg("extraction complete")

	return result, nil
}

func (s *Service) recognize(ctx context.Context, doc domain.Document, pageNum int, langs []string) (string, error) {
	img, err := doc.Image(pageNum - 1)
	if err != nil {
		return "", err
	}
	text, err := s.ocr.Recognize(ctx, img, langs)
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(text), nil
}

// selectPages returns the sorted, de-duplicated 1-based pages to process.
func selectPages(pageCount int, opts Options) ([]int, error) {
	var pages []int
	if len(opts.Pages) == 0 {
		pages = make([]int, pageCount)
		for i := range pages {
			pages[i] = i + 1
		}
	} else {
		seen := make(map[int]bool, len(opts.Pages))
		for _, p := range opts.Pages {
			if p < 1 || p > pageCount {
				return nil, domain.ValidationError(
					fmt.Sprintf("page %d out of range (document has %d pages)", p, pageCount), nil)
			}
			if !seen[p] {
				seen[p] = true
				pages = append(pages, p)
			}
		}
		sort.Ints(pages)
	}

	if opts.MaxPages > 0 && len(pages) > opts.MaxPages {
		pages = pages[:opts.MaxPages]
	}
	return pages, nil
}

func joinPages(pages []domain.PageText) string {
	parts := make([]string, 0, len(pages))
	for _, p := range pages {
		if p.Text != "" {
			parts = append(parts, p.Text)
		}
	}
	return strings.Join(parts, PageSeparator)
}

// emitter delivers the events of one Process call.
type emitter struct {
	ctx    context.Context
	ch     chan<- domain.StreamEvent
	wait   bool
	logger *observability.Logger
}

func (e *emitter) emit(event domain.StreamEvent) {
	if e.ch == nil {
		return
	}
	if e.wait {
		select {
		case e.ch <- event:
		case <-e.ctx.Done():
		}
		return
	}
	select {
	case e.ch <- event:
	default:
		e.logger.Warn().Str("event", string(event.Type)).Msg("event channel full, dropping event")
	}
}

func (e *emitter) emitError(err error) {
	e.emit(domain.StreamEvent{
		Type:      domain.EventError,
		Payload:   err.Error(),
		Timestamp: time.Now(),
	})
}
