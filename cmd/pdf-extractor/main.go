package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/schollz/progressbar/v3"

	"github.com/neuroserve/neuroserve/internal/domain"
	"github.com/neuroserve/neuroserve/internal/extract"
	"github.com/neuroserve/neuroserve/internal/observability"
	"github.com/neuroserve/neuroserve/internal/ocr"
	"github.com/neuroserve/neuroserve/internal/pdf"
)

const (
	version = "1.0.0"
)

var (
	outputPath  string
	useOCR      bool
	ocrLangs    string
	maxPages    int
	perPage     bool
	showVersion bool
	verbose     bool
)

func init() {
	flag.StringVar(&outputPath, "output", "", "Output file path (default: <input-name>.txt)")
	flag.StringVar(&outputPath, "o", "", "Output file path (shorthand)")
	flag.BoolVar(&useOCR, "ocr", false, "Run OCR on pages without embedded text")
	flag.StringVar(&ocrLangs, "lang", strings.Join(ocr.DefaultLanguages, "+"), "OCR languages, '+' separated")
	flag.IntVar(&maxPages, "max-pages", 0, "Process at most N pages (0 = all)")
	flag.BoolVar(&perPage, "per-page", false, "Prefix each page with a page marker")
	flag.BoolVar(&showVersion, "version", false, "Show version information")
	flag.BoolVar(&showVersion, "v", false, "Show version information (shorthand)")
	flag.BoolVar(&verbose, "verbose", false, "Enable verbose logging")
	flag.Usage = usage
}

func main() {
	flag.Parse()

	if showVersion {
		fmt.Printf("pdf-extractor version %s (ocr: %s)\n", version, ocr.New().Name())
		os.Exit(0)
	}

	if flag.NArg() < 1 {
		fmt.Fprintf(os.Stderr, "Error: PDF file path required\n\n")
		usage()
		os.Exit(1)
	}
	if maxPages < 0 {
		fmt.Fprintf(os.Stderr, "Error: --max-pages must not be negative\n")
		os.Exit(1)
	}

	pdfPath := flag.Arg(0)

	_ = godotenv.Load() // .env is optional

	logLevel := "warn"
	if verbose {
		logLevel = "debug"
	}
	logger := observability.NewLogger(observability.LogConfig{
		Level:       logLevel,
		Format:      "console",
		Output:      os.Stderr,
		ServiceName: "pdf-extractor",
	})

	if outputPath == "" {
		baseName := strings.TrimSuffix(filepath.Base(pdfPath), filepath.Ext(pdfPath))
		outputPath = baseName + ".txt"
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)

	go func() {
		<-sigCh
		fmt.Fprintln(os.Stderr, "\n\nReceived interrupt signal, shutting down...")
		cancel()
	}()

	if useOCR && !ocr.Available() {
		fmt.Fprintln(os.Stderr, "⚠ OCR requested but this binary was built without the ocr tag; continuing without it")
	}

	extractor := extract.NewService(pdf.NewOpener(), ocr.New(), logger)
	opts := extract.Options{
		MaxPages:      maxPages,
		OCR:           useOCR,
		OCRLanguages:  splitLangs(ocrLangs),
		WaitForEvents: true,
	}

	eventCh := make(chan domain.StreamEvent, 100)

	type outcome struct {
		res *extract.Result
		err error
	}
	done := make(chan outcome, 1)
	go func() {
		res, err := extractor.Process(ctx, pdfPath, opts, eventCh)
		close(eventCh)
		done <- outcome{res: res, err: err}
	}()

	startTime := time.Now()
	fmt.Printf("Processing PDF: %s\n", pdfPath)
	fmt.Println(strings.Repeat("=", 60))

	var bar *progressbar.ProgressBar
	for event := range eventCh {
		switch event.Type {
		case domain.EventStart:
			fmt.Printf("✓ %s\n", event.Payload)

		case domain.EventPageProcessing:
			if bar == nil {
				bar = newProgressBar(event.TotalPages)
			}
			bar.Describe(fmt.Sprintf("page %d", event.PageNumber))

		case domain.EventPageComplete:
			if bar != nil {
				_ = bar.Add(1)
			}

		case domain.EventError:
			fmt.Fprintf(os.Stderr, "\n❌ Error: %v\n", event.Payload)

		case domain.EventComplete:
			if bar != nil {
				_ = bar.Finish()
			}
			fmt.Println(strings.Repeat("=", 60))
			fmt.Printf("✓ %s\n", event.Payload)
			fmt.Printf("Total time: %v\n", time.Since(startTime).Round(time.Millisecond))
		}
	}

	out := <-done
	if out.err != nil {
		fmt.Fprintf(os.Stderr, "\n❌ Extraction failed: %s\n", domain.MessageOf(out.err))
		os.Exit(1)
	}

	fmt.Printf("\nWriting output to: %s\n", outputPath)
	if err := os.WriteFile(outputPath, []byte(render(out.res)), 0o644); err != nil {
		fmt.Fprintf(os.Stderr, "❌ Failed to write output file: %v\n", err)
		os.Exit(1)
	}

	fmt.Printf("✓ Extracted %d characters from %d/%d pages (%d via OCR) to %s\n",
		out.res.Chars(), len(out.res.Pages), out.res.PageCount, out.res.OCRPages, outputPath)
}

func newProgressBar(total int) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetWidth(40),
		progressbar.OptionSetWriter(os.Stderr),
		progressbar.OptionShowCount(),
		progressbar.OptionSetItsString("pages"),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "│",
			BarEnd:        "│",
		}),
		progressbar.OptionOnCompletion(func() {
			fmt.Fprint(os.Stderr, "\n")
		}),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func render(res *extract.Result) string {
	if !perPage {
		return res.Text + "\n"
	}
	var sb strings.Builder
	for _, p := range res.Pages {
		fmt.Fprintf(&sb, "--- page %d ---\n%s\n\n", p.PageNumber, p.Text)
	}
	return sb.String()
}

func splitLangs(s string) []string {
	var out []string
	for _, l := range strings.FieldsFunc(s, func(r rune) bool { return r == '+' || r == ',' }) {
		if l = strings.TrimSpace(l); l != "" {
			out = append(out, l)
		}
	}
	return out
}

func usage() {
	fmt.Fprintf(os.Stderr, `pdf-extractor - Extract the text of a PDF document

Usage:
  pdf-extractor [options] <pdf-file>

Options:
  -o, --output <file>   Output file path (default: <input-name>.txt)
  --ocr                 Run OCR on pages without embedded text (needs the ocr build tag)
  --lang <langs>        OCR languages, '+' separated (default: ara+eng)
  --max-pages <n>       Process at most n pages
  --per-page            Prefix each page with a page marker
  -v, --version         Show version information
  --verbose             Enable verbose logging

Examples:
  pdf-extractor report.pdf
  pdf-extractor -o report.txt --max-pages 10 report.pdf
  pdf-extractor --ocr --lang ara scanned.pdf

`)
}
