// Package drafting builds grounded prompts and calls the generation model.
package drafting

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

// GenerationParams leans deterministic by default; Temperature is the
// determinism knob.
type GenerationParams struct {
	Temperature     float64
	TopP            float64
	TopK            int
	MaxOutputTokens int
}

func DefaultParams() GenerationParams {
	return GenerationParams{
		Temperature:     0.2,
		TopP:            0.8,
		TopK:            40,
		MaxOutputTokens: 8192,
	}
}

// GenerationModel is the external text generation collaborator.
type GenerationModel interface {
	Generate(ctx context.Context, prompt string, params GenerationParams) (string, error)
}

var ErrEmptyOutput = errors.New("generation returned no text")

// GenerationError covers collaborator failures, timeouts and unusable output.
type GenerationError struct {
	Model string
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("draft generation with %q failed: %v", e.Model, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }

type Config struct {
	Model   string
	Timeout time.Duration
	Params  GenerationParams
}

type Generator struct {
	log   *logger.Logger
	model GenerationModel
	cfg   Config
}

func New(log *logger.Logger, model GenerationModel, cfg Config) *Generator {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 180 * time.Second
	}
	if cfg.Params == (GenerationParams{}) {
		cfg.Params = DefaultParams()
	}
	return &Generator{
		log:   log.With("component", "DraftGenerator", "model", cfg.Model),
		model: model,
		cfg:   cfg,
	}
}

func (g *Generator) ModelName() string { return g.cfg.Model }

type Output struct {
	Content string
	Prompt  string
}

// Generate renders the prompt and calls the model under the configured
// timeout. The timeout is the only way to bound a generation call.
func (g *Generator) Generate(ctx context.Context, in PromptInput) (Output, error) {
	ctx, span := otel.Tracer("draftbridge/rag").Start(ctx, "drafting.Generate")
	defer span.End()
	span.SetAttributes(attribute.Int("sections", len(in.Sections)))

	prompt := BuildPrompt(in)
	callCtx, cancel := context.WithTimeout(ctx, g.cfg.Timeout)
	defer cancel()

	start := time.Now()
	text, err := g.model.Generate(callCtx, prompt, g.cfg.Params)
	if err != nil {
		if errors.Is(callCtx.Err(), context.DeadlineExceeded) && !errors.Is(err, context.DeadlineExceeded) {
			err = fmt.Errorf("%w: %v", context.DeadlineExceeded, err)
		}
		return Output{Prompt: prompt}, &GenerationError{Model: g.cfg.Model, Err: err}
	}
	content := cleanOutput(text)
	if content == "" {
		return Output{Prompt: prompt}, &GenerationError{Model: g.cfg.Model, Err: ErrEmptyOutput}
	}
	g.log.Info("draft generated", "chars", len(content), "took_ms", time.Since(start).Milliseconds())
	return Output{Content: content, Prompt: prompt}, nil
}

// cleanOutput trims whitespace and a wrapping code fence some models add.
func cleanOutput(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") && strings.HasSuffix(s, "```") && len(s) >= 6 {
		inner := strings.TrimSuffix(strings.TrimPrefix(s, "```"), "```")
		if nl := strings.Index(inner, "\n"); nl >= 0 && !strings.Contains(inner[:nl], " ") {
			inner = inner[nl+1:]
		}
		s = strings.TrimSpace(inner)
	}
	s = strings.TrimSpace(strings.TrimPrefix(s, "ANSWER:"))
	return s
}
