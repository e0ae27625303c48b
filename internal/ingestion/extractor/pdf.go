package extractor

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	pdf "github.com/ledongthuc/pdf"
)

const (
	methodPDFToText = "pdftotext"
	methodPDFReader = "pdf_reader"
	methodOCR       = "documentai"
)

// extractPDF tries pdftotext -layout, then the embedded reader, then OCR.
// Layout extraction returns nothing for some producers, so an empty
// primary result always falls through.
func (e *Extractor) extractPDF(ctx context.Context, data []byte) Result {
	meta := map[string]string{}
	var errs []string

	text, pages, err := e.runPDFToText(ctx, data)
	if err != nil {
		errs = append(errs, err.Error())
		e.log.Debug("pdftotext failed", "error", err)
	}
	if strings.TrimSpace(text) != "" {
		meta[MetaExtractionMethod] = methodPDFToText
		return Result{Text: text, Metadata: meta, PageCount: pages}
	}

	text, readerPages, err := readPDF(data)
	if err != nil {
		errs = append(errs, err.Error())
	}
	if readerPages > 0 {
		pages = readerPages
	}
	if strings.TrimSpace(text) != "" {
		meta[MetaExtractionMethod] = methodPDFReader
		return Result{Text: text, Metadata: meta, PageCount: pages}
	}

	if e.ocr != nil {
		ocrText, ocrPages, err := e.ocr.ExtractPDFText(ctx, data)
		if err != nil {
			errs = append(errs, "ocr: "+err.Error())
		} else if strings.TrimSpace(ocrText) != "" {
			meta[MetaExtractionMethod] = methodOCR
			if ocrPages > 0 {
				pages = ocrPages
			}
			return Result{Text: ocrText, Metadata: meta, PageCount: pages}
		}
	}

	if len(errs) > 0 && pages == 0 {
		return failed(errors.New(strings.Join(errs, "; ")))
	}
	// A readable PDF with no text layer is a clean empty document.
	return Result{Metadata: meta, PageCount: pages}
}

func (e *Extractor) runPDFToText(ctx context.Context, data []byte) (string, int, error) {
	if e.pdftotextErr != nil {
		return "", 0, e.pdftotextErr
	}
	f, err := os.CreateTemp("", "draftbridge-*.pdf")
	if err != nil {
		return "", 0, fmt.Errorf("temp file: %w", err)
	}
	defer os.Remove(f.Name())
	if _, err := f.Write(data); err != nil {
		_ = f.Close()
		return "", 0, fmt.Errorf("temp file: %w", err)
	}
	if err := f.Close(); err != nil {
		return "", 0, fmt.Errorf("temp file: %w", err)
	}

	out, err := e.runner.Run(ctx, e.pdftotext, "-layout", "-enc", "UTF-8", f.Name(), "-")
	if err != nil {
		return "", 0, err
	}
	return splitPages(string(out))
}

// splitPages turns form-feed page breaks into blank lines so the chunker
// sees page boundaries as paragraph boundaries.
func splitPages(out string) (string, int, error) {
	pages := strings.Split(out, "\f")
	kept := make([]string, 0, len(pages))
	for _, p := range pages {
		if strings.TrimSpace(p) == "" {
			continue
		}
		kept = append(kept, strings.TrimRight(p, " \n"))
	}
	count := strings.Count(out, "\f")
	if count == 0 && len(kept) > 0 {
		count = 1
	}
	return strings.Join(kept, "\n\n"), count, nil
}

func readPDF(data []byte) (text string, pages int, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("pdf reader panic: %v", r)
		}
	}()
	r, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", 0, fmt.Errorf("pdf reader: %w", err)
	}
	pages = r.NumPage()
	plain, err := r.GetPlainText()
	if err != nil {
		return "", pages, fmt.Errorf("pdf plaintext: %w", err)
	}
	b, err := io.ReadAll(plain)
	if err != nil {
		return "", pages, fmt.Errorf("pdf read: %w", err)
	}
	return string(b), pages, nil
}
