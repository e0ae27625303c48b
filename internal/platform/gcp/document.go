package gcp

import (
	"context"
	"fmt"
	"strings"
	"time"

	documentai "cloud.google.com/go/documentai/apiv1"
	"cloud.google.com/go/documentai/apiv1/documentaipb"
	"google.golang.org/api/option"

	"github.com/yungbote/draftbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type DocumentAIConfig struct {
	ProjectID        string
	Location         string
	ProcessorID      string
	ProcessorVersion string
	Timeout          time.Duration
}

func DocumentAIConfigFromEnv(log *logger.Logger) DocumentAIConfig {
	return DocumentAIConfig{
		ProjectID:        envutil.String("DOCUMENTAI_PROJECT_ID", "", log),
		Location:         envutil.String("DOCUMENTAI_LOCATION", "us", log),
		ProcessorID:      envutil.String("DOCUMENTAI_PROCESSOR_ID", "", log),
		ProcessorVersion: envutil.String("DOCUMENTAI_PROCESSOR_VERSION", "", log),
		Timeout:          envutil.Seconds("DOCUMENTAI_TIMEOUT_SECONDS", 3*time.Minute),
	}
}

func (c DocumentAIConfig) Enabled() bool {
	return processorName(c.ProjectID, c.Location, c.ProcessorID, "") != ""
}

// DocumentOCR reads scanned PDFs through a Document AI OCR processor.
type DocumentOCR struct {
	log       *logger.Logger
	client    *documentai.DocumentProcessorClient
	processor string
	timeout   time.Duration
}

func NewDocumentOCR(ctx context.Context, log *logger.Logger, cfg DocumentAIConfig) (*DocumentOCR, error) {
	name := processorName(cfg.ProjectID, cfg.Location, cfg.ProcessorID, cfg.ProcessorVersion)
	if name == "" {
		return nil, fmt.Errorf("document ai processor is not configured")
	}
	endpoint := fmt.Sprintf("%s-documentai.googleapis.com:443", cfg.Location)
	opts := append([]option.ClientOption{option.WithEndpoint(endpoint)}, ClientOptionsFromEnv()...)
	c, err := documentai.NewDocumentProcessorClient(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("documentai client: %w", err)
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 3 * time.Minute
	}
	slog := log.With("service", "DocumentOCR")
	slog.Info("Document AI initialized", "endpoint", endpoint)
	return &DocumentOCR{log: slog, client: c, processor: name, timeout: cfg.Timeout}, nil
}

func (s *DocumentOCR) Close() error {
	if s == nil || s.client == nil {
		return nil
	}
	return s.client.Close()
}

func (s *DocumentOCR) ExtractPDFText(ctx context.Context, data []byte) (string, int, error) {
	if len(data) == 0 {
		return "", 0, nil
	}
	ctx, cancel := context.WithTimeout(ctxutil.Default(ctx), s.timeout)
	defer cancel()

	resp, err := s.client.ProcessDocument(ctx, &documentaipb.ProcessRequest{
		Name: s.processor,
		Source: &documentaipb.ProcessRequest_RawDocument{
			RawDocument: &documentaipb.RawDocument{
				Content:  data,
				MimeType: "application/pdf",
			},
		},
	})
	if err != nil {
		return "", 0, fmt.Errorf("documentai ProcessDocument: %w", err)
	}
	text, pages := documentText(resp.GetDocument())
	s.log.Debug("document ai ocr finished", "pages", pages, "chars", len(text))
	return text, pages, nil
}

// documentText joins per-page paragraph text with form feeds, falling back
// to the flat document text when no layout is present.
func documentText(doc *documentaipb.Document) (string, int) {
	if doc == nil {
		return "", 0
	}
	pages := make([]string, 0, len(doc.GetPages()))
	for _, p := range doc.GetPages() {
		var b strings.Builder
		for _, para := range p.GetParagraphs() {
			t := strings.TrimSpace(textFromAnchor(doc.GetText(), para.GetLayout().GetTextAnchor()))
			if t == "" {
				continue
			}
			if b.Len() > 0 {
				b.WriteString("\n\n")
			}
			b.WriteString(t)
		}
		pages = append(pages, b.String())
	}
	joined := strings.TrimSpace(strings.Join(pages, "\n\n"))
	if joined == "" {
		joined = strings.TrimSpace(doc.GetText())
	}
	return joined, len(doc.GetPages())
}

func textFromAnchor(full string, anchor *documentaipb.Document_TextAnchor) string {
	if anchor == nil || full == "" {
		return ""
	}
	var b strings.Builder
	for _, seg := range anchor.GetTextSegments() {
		start := int(seg.GetStartIndex())
		end := int(seg.GetEndIndex())
		if start < 0 {
			start = 0
		}
		if end > len(full) {
			end = len(full)
		}
		if start >= end {
			continue
		}
		b.WriteString(full[start:end])
	}
	return b.String()
}

func processorName(project, location, processorID, version string) string {
	project = strings.TrimSpace(project)
	location = strings.TrimSpace(location)
	processorID = strings.TrimSpace(processorID)
	version = strings.TrimSpace(version)

	if project == "" || location == "" || processorID == "" {
		return ""
	}
	base := fmt.Sprintf("projects/%s/locations/%s/processors/%s", project, location, processorID)
	if version != "" {
		return base + "/processorVersions/" + version
	}
	return base
}
