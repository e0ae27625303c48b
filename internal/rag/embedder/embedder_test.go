package embedder

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync"
	"testing"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type fakeModel struct {
	mu      sync.Mutex
	calls   int
	failOn  string
	dimFor  func(string) int
	batches [][]string
}

func (m *fakeModel) Embed(_ context.Context, inputs []string) ([][]float32, error) {
	m.mu.Lock()
	m.calls++
	m.batches = append(m.batches, append([]string(nil), inputs...))
	m.mu.Unlock()
	out := make([][]float32, len(inputs))
	for i, in := range inputs {
		if m.failOn != "" && strings.Contains(in, m.failOn) {
			return nil, errors.New("503 upstream")
		}
		dim := 3
		if m.dimFor != nil {
			dim = m.dimFor(in)
		}
		v := make([]float32, dim)
		v[0] = float32(len(in))
		v[dim-1] = 1
		out[i] = v
	}
	return out, nil
}

func testLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New("test")
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func TestEmbedNormalizes(t *testing.T) {
	e := New(testLogger(t), &fakeModel{}, Config{Model: "fake"})
	v, err := e.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatalf("Embed: %v", err)
	}
	if math.Abs(norm(v)-1) > 1e-6 {
		t.Fatalf("vector not unit length: %f", norm(v))
	}
	if e.Dim() != 3 {
		t.Fatalf("first vector should fix dim, got %d", e.Dim())
	}
}

func TestEmbedBatchesInOrder(t *testing.T) {
	model := &fakeModel{}
	e := New(testLogger(t), model, Config{Model: "fake", BatchSize: 2, Concurrency: 3})
	texts := []string{"a", "bb", "ccc", "dddd", "eeeee"}

	vecs, err := e.EmbedBatch(context.Background(), texts)
	if err != nil {
		t.Fatalf("EmbedBatch: %v", err)
	}
	if model.calls != 3 {
		t.Fatalf("want 3 batches, got %d", model.calls)
	}
	for i, v := range vecs {
		want, _ := Normalize([]float32{float32(len(texts[i])), 0, 1})
		for j := range want {
			if math.Abs(float64(v[j]-want[j])) > 1e-6 {
				t.Fatalf("vector %d out of order", i)
			}
		}
	}
}

func TestEmbedEachIsolatesFailingBatch(t *testing.T) {
	model := &fakeModel{failOn: "bad"}
	e := New(testLogger(t), model, Config{Model: "fake", BatchSize: 1})

	res := e.EmbedEach(context.Background(), []string{"good", "bad", "fine"})
	if res.Failed() != 1 {
		t.Fatalf("want 1 failure, got %d", res.Failed())
	}
	if res.Vectors[0] == nil || res.Vectors[2] == nil || res.Vectors[1] != nil {
		t.Fatalf("unexpected vectors: %v", res.Vectors)
	}
	var unavailable *EmbeddingUnavailableError
	if !errors.As(res.Errs[1], &unavailable) || unavailable.Model != "fake" {
		t.Fatalf("expected EmbeddingUnavailableError, got %v", res.Errs[1])
	}

	if _, err := e.EmbedBatch(context.Background(), []string{"bad"}); !errors.As(err, &unavailable) {
		t.Fatalf("EmbedBatch should surface the typed error, got %v", err)
	}
}

func TestEmbedRejectsDimensionMismatch(t *testing.T) {
	model := &fakeModel{dimFor: func(s string) int {
		if s == "wide" {
			return 5
		}
		return 3
	}}
	e := New(testLogger(t), model, Config{Model: "fake", Dim: 3})
	if _, err := e.Embed(context.Background(), "wide"); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
	if _, err := e.Embed(context.Background(), "ok"); err != nil {
		t.Fatalf("Embed: %v", err)
	}
}

func TestNormalizeZeroVector(t *testing.T) {
	if _, err := Normalize([]float32{0, 0, 0}); !errors.Is(err, ErrZeroVector) {
		t.Fatalf("want ErrZeroVector, got %v", err)
	}
	if _, err := Normalize(nil); !errors.Is(err, ErrZeroVector) {
		t.Fatalf("want ErrZeroVector for empty, got %v", err)
	}
	v, err := Normalize([]float32{3, 4})
	if err != nil || math.Abs(float64(v[0])-0.6) > 1e-6 || math.Abs(float64(v[1])-0.8) > 1e-6 {
		t.Fatalf("Normalize(3,4) = %v, %v", v, err)
	}
}
