// Package ollama talks to a local Ollama server for embeddings and generation.
package ollama

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/httpx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

const (
	DefaultBaseURL    = "http://localhost:11434"
	DefaultModel      = "llama3.1"
	DefaultEmbedModel = "nomic-embed-text"
	DefaultTimeout    = 5 * time.Minute
)

type Config struct {
	BaseURL    string
	Model      string
	EmbedModel string
	Timeout    time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		BaseURL:    envutil.String("OLLAMA_BASE_URL", DefaultBaseURL, log),
		Model:      envutil.String("OLLAMA_MODEL", DefaultModel, log),
		EmbedModel: envutil.String("OLLAMA_EMBED_MODEL", DefaultEmbedModel, log),
		Timeout:    envutil.Seconds("OLLAMA_TIMEOUT_SECONDS", DefaultTimeout),
	}
}

// Options maps onto the Ollama "options" object.
type Options struct {
	Temperature *float64 `json:"temperature,omitempty"`
	TopP        *float64 `json:"top_p,omitempty"`
	TopK        int      `json:"top_k,omitempty"`
	NumPredict  int      `json:"num_predict,omitempty"`
}

type Client struct {
	log        *logger.Logger
	httpClient *http.Client
	baseURL    string
	model      string
	embedModel string
}

func NewClient(log *logger.Logger, cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.EmbedModel == "" {
		cfg.EmbedModel = DefaultEmbedModel
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	return &Client{
		log:        log.With("client", "OllamaClient"),
		httpClient: &http.Client{Timeout: cfg.Timeout},
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		model:      cfg.Model,
		embedModel: cfg.EmbedModel,
	}
}

func (c *Client) Model() string      { return c.model }
func (c *Client) EmbedModel() string { return c.embedModel }

func (c *Client) post(ctx context.Context, path string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("marshal request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return &httpx.StatusError{Service: "ollama", StatusCode: resp.StatusCode, Body: string(raw)}
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

type embedRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embedResponse struct {
	Embeddings [][]float64 `json:"embeddings"`
}

// Embed uses the batch /api/embed endpoint.
func (c *Client) Embed(ctx context.Context, inputs []string) ([][]float32, error) {
	if len(inputs) == 0 {
		return [][]float32{}, nil
	}
	var resp embedResponse
	if err := c.post(ctx, "/api/embed", embedRequest{Model: c.embedModel, Input: inputs}, &resp); err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != len(inputs) {
		return nil, fmt.Errorf("ollama returned %d embeddings for %d inputs", len(resp.Embeddings), len(inputs))
	}
	out := make([][]float32, len(resp.Embeddings))
	for i, e := range resp.Embeddings {
		vec := make([]float32, len(e))
		for j, f := range e {
			vec[j] = float32(f)
		}
		out[i] = vec
	}
	return out, nil
}

type generateRequest struct {
	Model   string  `json:"model"`
	Prompt  string  `json:"prompt"`
	Stream  bool    `json:"stream"`
	Options Options `json:"options"`
}

type generateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

func (c *Client) Generate(ctx context.Context, prompt string, opts Options) (string, error) {
	start := time.Now()
	var resp generateResponse
	if err := c.post(ctx, "/api/generate", generateRequest{Model: c.model, Prompt: prompt, Options: opts}, &resp); err != nil {
		return "", err
	}
	c.log.Debug("ollama generate finished", "model", c.model, "took_ms", time.Since(start).Milliseconds(), "done", resp.Done)
	return resp.Response, nil
}

// Ping checks connectivity without running inference.
func (c *Client) Ping(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/api/tags", http.NoBody)
	if err != nil {
		return err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("ollama: ping failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return &httpx.StatusError{Service: "ollama", StatusCode: resp.StatusCode}
	}
	return nil
}
