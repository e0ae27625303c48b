package providers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/platform/ollama"
	"github.com/yungbote/draftbridge-backend/internal/rag/drafting"
)

func TestNewRejectsUnknownProvider(t *testing.T) {
	log, _ := logger.New("test")
	if _, err := New(log, Config{Provider: "bard"}); err == nil {
		t.Fatalf("expected error")
	}
}

func TestOllamaGenerationPassesParams(t *testing.T) {
	var opts map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Options map[string]any `json:"options"`
		}
		_ = json.NewDecoder(r.Body).Decode(&body)
		opts = body.Options
		_, _ = w.Write([]byte(`{"response":"ok","done":true}`))
	}))
	defer srv.Close()

	log, _ := logger.New("test")
	m, err := New(log, Config{Provider: "ollama", Ollama: ollama.Config{BaseURL: srv.URL, Model: "g", EmbedModel: "e"}})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	if m.GenerationName != "g" || m.EmbeddingModel != "e" {
		t.Fatalf("models = %+v", m)
	}
	out, err := m.Generation.Generate(context.Background(), "p", drafting.DefaultParams())
	if err != nil || out != "ok" {
		t.Fatalf("Generate = %q, %v", out, err)
	}
	if opts["temperature"] != 0.2 || opts["top_k"] != float64(40) || opts["num_predict"] != float64(8192) || opts["top_p"] != 0.8 {
		t.Fatalf("options = %v", opts)
	}
}
