// Package extractor turns raw file bytes into plain text plus format metadata.
//
// Page counts for formats without native pages are estimates: DOCX uses one
// page per ten paragraphs and plain text one page per thirty lines.
package extractor

import (
	"context"
	"fmt"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/yungbote/draftbridge-backend/internal/domain/materials"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

const (
	MetaExtractionError  = "extraction_error"
	MetaExtractionMethod = "extraction_method"
)

type Result struct {
	Text      string
	Metadata  map[string]string
	PageCount int
}

// Failed reports whether the handler recorded an extraction error.
func (r Result) Failed() bool {
	_, ok := r.Metadata[MetaExtractionError]
	return ok
}

func (r Result) Error() string { return r.Metadata[MetaExtractionError] }

// OCR is the last-resort reader for PDFs without a text layer.
type OCR interface {
	ExtractPDFText(ctx context.Context, data []byte) (text string, pages int, err error)
}

type Config struct {
	PDFToTextPath string
	Runner        CommandRunner
	OCR           OCR
}

type Extractor struct {
	log          *logger.Logger
	runner       CommandRunner
	pdftotext    string
	pdftotextErr error
	ocr          OCR
}

func New(log *logger.Logger, cfg Config) *Extractor {
	path := cfg.PDFToTextPath
	if path == "" {
		path = "pdftotext"
	}
	e := &Extractor{
		log:       log.With("component", "Extractor"),
		runner:    cfg.Runner,
		pdftotext: path,
		ocr:       cfg.OCR,
	}
	if e.runner == nil {
		e.runner = execRunner{}
		e.pdftotextErr = CheckAvailable(path)
		if e.pdftotextErr != nil {
			e.log.Warn("pdftotext unavailable, PDFs use the embedded reader", "hint", InstallInstructions())
		}
	}
	return e
}

// Extract dispatches on the declared name's extension, falling back to
// plain text. It never returns an error: failures are reported through
// Metadata[MetaExtractionError] with empty text and zero pages.
func (e *Extractor) Extract(ctx context.Context, data []byte, declaredName string) (res Result) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("extractor panic", "name", declaredName, "panic", r)
			res = failed(fmt.Errorf("panic: %v", r))
		}
	}()

	ext := strings.ToLower(filepath.Ext(declaredName))
	switch ext {
	case ".pdf":
		res = e.extractPDF(ctx, data)
	case ".docx", ".doc":
		res = extractDOCX(data)
	case ".pptx", ".ppt":
		res = extractPPTX(data)
	case ".txt", ".md", ".markdown", ".rtf", ".csv":
		res = extractText(data)
	default:
		e.log.Warn("unsupported extension, reading as plain text", "name", declaredName, "ext", ext)
		res = extractText(data)
	}
	if res.Metadata == nil {
		res.Metadata = map[string]string{}
	}
	if res.Failed() {
		e.log.Warn("extraction failed", "name", declaredName, "error", res.Error())
	}
	return res
}

// FormatFor maps a file name to the material format tag.
func FormatFor(name string) materials.Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".pdf":
		return materials.FormatPDF
	case ".docx", ".doc":
		return materials.FormatDoc
	case ".pptx", ".ppt":
		return materials.FormatSlide
	case ".txt", ".md", ".markdown", ".rtf", ".csv":
		return materials.FormatText
	default:
		return materials.FormatUnknown
	}
}

func failed(err error) Result {
	return Result{Metadata: map[string]string{MetaExtractionError: err.Error()}}
}

func atLeastOne(n int) int {
	if n < 1 {
		return 1
	}
	return n
}

func itoa(n int) string { return strconv.Itoa(n) }
