// Package providers builds the embedding and generation models for the
// configured AI provider.
package providers

import (
	"context"
	"fmt"
	"strings"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/platform/ollama"
	"github.com/yungbote/draftbridge-backend/internal/platform/openai"
	"github.com/yungbote/draftbridge-backend/internal/rag/drafting"
	"github.com/yungbote/draftbridge-backend/internal/rag/embedder"
)

const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)

type Config struct {
	Provider string
	OpenAI   openai.Config
	Ollama   ollama.Config
}

type Models struct {
	Embedding      embedder.EmbeddingModel
	Generation     drafting.GenerationModel
	EmbeddingModel string
	GenerationName string
}

func New(log *logger.Logger, cfg Config) (*Models, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", ProviderOpenAI:
		c, err := openai.NewClient(log, cfg.OpenAI)
		if err != nil {
			return nil, err
		}
		return &Models{
			Embedding:      c,
			Generation:     OpenAIGeneration{Client: c},
			EmbeddingModel: c.EmbedModel(),
			GenerationName: c.Model(),
		}, nil
	case ProviderOllama:
		c := ollama.NewClient(log, cfg.Ollama)
		return &Models{
			Embedding:      c,
			Generation:     OllamaGeneration{Client: c},
			EmbeddingModel: c.EmbedModel(),
			GenerationName: c.Model(),
		}, nil
	default:
		return nil, fmt.Errorf("unknown AI_PROVIDER %q", cfg.Provider)
	}
}

// OpenAIGeneration maps generation params onto the Responses API. top_k has
// no OpenAI equivalent and is dropped.
type OpenAIGeneration struct {
	Client openai.Client
}

func (g OpenAIGeneration) Generate(ctx context.Context, prompt string, p drafting.GenerationParams) (string, error) {
	temp, topP := p.Temperature, p.TopP
	opts := openai.TextOptions{Temperature: &temp, MaxOutputTokens: p.MaxOutputTokens}
	if topP > 0 {
		opts.TopP = &topP
	}
	return g.Client.GenerateText(ctx, "", prompt, opts)
}

type OllamaGeneration struct {
	Client *ollama.Client
}

func (g OllamaGeneration) Generate(ctx context.Context, prompt string, p drafting.GenerationParams) (string, error) {
	temp, topP := p.Temperature, p.TopP
	opts := ollama.Options{Temperature: &temp, TopK: p.TopK, NumPredict: p.MaxOutputTokens}
	if topP > 0 {
		opts.TopP = &topP
	}
	return g.Client.Generate(ctx, prompt, opts)
}
