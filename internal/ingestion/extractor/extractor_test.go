package extractor

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/yungbote/draftbridge-backend/internal/domain/materials"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type mockRunner struct {
	output []byte
	err    error
	calls  int
}

func (m *mockRunner) Run(_ context.Context, _ string, _ ...string) ([]byte, error) {
	m.calls++
	return m.output, m.err
}

type stubOCR struct {
	text string
}

func (s stubOCR) ExtractPDFText(context.Context, []byte) (string, int, error) {
	return s.text, 3, nil
}

func newTestExtractor(t *testing.T, cfg Config) *Extractor {
	t.Helper()
	log, err := logger.New("test")
	require.NoError(t, err)
	return New(log, cfg)
}

func buildZip(t *testing.T, files map[string]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for name, body := range files {
		w, err := zw.Create(name)
		require.NoError(t, err)
		_, err = w.Write([]byte(body))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtract_PDFWithRunner(t *testing.T) {
	runner := &mockRunner{output: []byte("First page text\n\fSecond page text\n\f")}
	e := newTestExtractor(t, Config{Runner: runner})

	res := e.Extract(context.Background(), []byte("%PDF-1.4 fake"), "Lecture.PDF")

	assert.False(t, res.Failed())
	assert.Equal(t, 1, runner.calls)
	assert.Equal(t, 2, res.PageCount)
	assert.Equal(t, "First page text\n\nSecond page text", res.Text)
	assert.Equal(t, methodPDFToText, res.Metadata[MetaExtractionMethod])
}

func TestExtract_PDFFallsThroughWhenEverythingFails(t *testing.T) {
	runner := &mockRunner{err: errors.New("exit status 1")}
	e := newTestExtractor(t, Config{Runner: runner})

	res := e.Extract(context.Background(), []byte("not really a pdf"), "broken.pdf")

	assert.True(t, res.Failed())
	assert.Empty(t, res.Text)
	assert.Equal(t, 0, res.PageCount)
	assert.Contains(t, res.Error(), "exit status 1")
}

func TestExtract_PDFUsesOCRAsLastResort(t *testing.T) {
	runner := &mockRunner{output: []byte("\f")}
	e := newTestExtractor(t, Config{Runner: runner, OCR: stubOCR{text: "scanned words"}})

	res := e.Extract(context.Background(), []byte("not really a pdf"), "scan.pdf")

	assert.False(t, res.Failed())
	assert.Equal(t, "scanned words", res.Text)
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, methodOCR, res.Metadata[MetaExtractionMethod])
}

func TestExtract_DOCX(t *testing.T) {
	doc := `<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main">
  <w:body>
    <w:p><w:r><w:t>Cell biology</w:t></w:r></w:p>
    <w:p><w:r><w:t xml:space="preserve">Mitochondria </w:t></w:r><w:r><w:t>produce ATP.</w:t></w:r></w:p>
  </w:body>
</w:document>`
	core := `<?xml version="1.0" encoding="UTF-8"?>
<cp:coreProperties xmlns:cp="http://schemas.openxmlformats.org/package/2006/metadata/core-properties"
  xmlns:dc="http://purl.org/dc/elements/1.1/" xmlns:dcterms="http://purl.org/dc/terms/">
  <dc:title>Week 3</dc:title>
  <dc:creator>Prof. Ada</dc:creator>
  <dcterms:created>2024-01-02T03:04:05Z</dcterms:created>
  <dcterms:modified>2024-02-02T03:04:05Z</dcterms:modified>
</cp:coreProperties>`
	data := buildZip(t, map[string]string{"word/document.xml": doc, "docProps/core.xml": core})
	e := newTestExtractor(t, Config{Runner: &mockRunner{}})

	res := e.Extract(context.Background(), data, "notes.docx")

	require.False(t, res.Failed(), res.Error())
	assert.Equal(t, "Cell biology\n\nMitochondria produce ATP.", res.Text)
	assert.Equal(t, 1, res.PageCount)
	assert.Equal(t, "Week 3", res.Metadata["title"])
	assert.Equal(t, "Prof. Ada", res.Metadata["author"])
	assert.Equal(t, "2024-01-02T03:04:05Z", res.Metadata["created"])
	assert.Equal(t, "2024-02-02T03:04:05Z", res.Metadata["modified"])
}

func TestExtract_DOCXCorrupt(t *testing.T) {
	e := newTestExtractor(t, Config{Runner: &mockRunner{}})
	res := e.Extract(context.Background(), []byte("garbage"), "essay.docx")
	assert.True(t, res.Failed())
	assert.Empty(t, res.Text)
	assert.Equal(t, 0, res.PageCount)
}

func TestExtract_PPTXSlideOrder(t *testing.T) {
	slide := func(lines ...string) string {
		var b strings.Builder
		b.WriteString(`<p:sld xmlns:p="p" xmlns:a="a"><p:cSld><p:spTree><p:sp><p:txBody>`)
		for _, l := range lines {
			b.WriteString(`<a:p><a:r><a:t>` + l + `</a:t></a:r></a:p>`)
		}
		b.WriteString(`</p:txBody></p:sp></p:spTree></p:cSld></p:sld>`)
		return b.String()
	}
	data := buildZip(t, map[string]string{
		"ppt/slides/slide10.xml": slide("Ten"),
		"ppt/slides/slide2.xml":  slide("Two"),
		"ppt/slides/slide1.xml":  slide("One", "Intro"),
	})
	e := newTestExtractor(t, Config{Runner: &mockRunner{}})

	res := e.Extract(context.Background(), data, "deck.pptx")

	require.False(t, res.Failed(), res.Error())
	assert.Equal(t, "One\nIntro"+slideSeparator+"Two"+slideSeparator+"Ten", res.Text)
	assert.Equal(t, 3, res.PageCount)
	assert.Equal(t, "3", res.Metadata["slide_count"])
}

func TestExtract_TextEncodings(t *testing.T) {
	e := newTestExtractor(t, Config{Runner: &mockRunner{}})

	utf := e.Extract(context.Background(), []byte("naïve café"), "a.txt")
	assert.Equal(t, "naïve café", utf.Text)
	assert.Equal(t, "utf-8", utf.Metadata["encoding"])

	latin := e.Extract(context.Background(), []byte{'c', 'a', 'f', 0xe9}, "b.md")
	assert.Equal(t, "café", latin.Text)
	assert.Equal(t, "latin-1", latin.Metadata["encoding"])

	bom := e.Extract(context.Background(), append([]byte{0xEF, 0xBB, 0xBF}, "plain"...), "d.txt")
	assert.Equal(t, "plain", bom.Text)
	assert.Equal(t, "utf-8", bom.Metadata["encoding"])

	long := strings.Repeat("line\n", 95)
	res := e.Extract(context.Background(), []byte(long), "c.txt")
	assert.Equal(t, 3, res.PageCount)
}

func TestExtract_UTF16WithBOM(t *testing.T) {
	e := newTestExtractor(t, Config{Runner: &mockRunner{}})

	// "Hé\n\nOK" in both byte orders.
	le := []byte{0xFF, 0xFE, 'H', 0, 0xE9, 0, '\n', 0, '\n', 0, 'O', 0, 'K', 0}
	be := []byte{0xFE, 0xFF, 0, 'H', 0, 0xE9, 0, '\n', 0, '\n', 0, 'O', 0, 'K'}

	res := e.Extract(context.Background(), le, "notes.txt")
	require.False(t, res.Failed(), res.Error())
	assert.Equal(t, "Hé\n\nOK", res.Text)
	assert.Equal(t, "utf-16le", res.Metadata["encoding"])

	res = e.Extract(context.Background(), be, "notes.txt")
	require.False(t, res.Failed(), res.Error())
	assert.Equal(t, "Hé\n\nOK", res.Text)
	assert.Equal(t, "utf-16be", res.Metadata["encoding"])
}

func TestExtract_UnknownExtensionFallsBackToText(t *testing.T) {
	e := newTestExtractor(t, Config{Runner: &mockRunner{}})
	res := e.Extract(context.Background(), []byte("plain words"), "readme")
	assert.False(t, res.Failed())
	assert.Equal(t, "plain words", res.Text)
	assert.Equal(t, 1, res.PageCount)
}

func TestFormatFor(t *testing.T) {
	tests := []struct {
		name string
		want materials.Format
	}{
		{"a.pdf", materials.FormatPDF},
		{"a.DOCX", materials.FormatDoc},
		{"a.doc", materials.FormatDoc},
		{"a.pptx", materials.FormatSlide},
		{"a.md", materials.FormatText},
		{"a.png", materials.FormatUnknown},
		{"noext", materials.FormatUnknown},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, FormatFor(tc.name))
		})
	}
}

func TestErrPDFToolNotFound(t *testing.T) {
	assert.Contains(t, ErrPDFToolNotFound.Error(), "pdftotext")
	assert.Contains(t, InstallInstructions(), "poppler")
}
