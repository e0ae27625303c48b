// Package embedder maps text to unit-length vectors of a fixed dimension.
package embedder

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sync"

	"golang.org/x/sync/errgroup"
	"golang.org/x/time/rate"

	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

var (
	ErrZeroVector        = errors.New("embedder: zero-length vector")
	ErrDimensionMismatch = errors.New("embedder: dimension mismatch")
)

// EmbeddingModel is the external embedding collaborator. It returns one
// vector per input, in input order.
type EmbeddingModel interface {
	Embed(ctx context.Context, inputs []string) ([][]float32, error)
}

// EmbeddingUnavailableError wraps a failure of the embedding collaborator.
type EmbeddingUnavailableError struct {
	Model string
	Err   error
}

func (e *EmbeddingUnavailableError) Error() string {
	return fmt.Sprintf("embedding model %q unavailable: %v", e.Model, e.Err)
}

func (e *EmbeddingUnavailableError) Unwrap() error { return e.Err }

type Config struct {
	Model         string
	Dim           int
	BatchSize     int
	Concurrency   int
	RatePerSecond float64
}

func (c Config) withDefaults() Config {
	if c.BatchSize <= 0 {
		c.BatchSize = 64
	}
	if c.Concurrency <= 0 {
		c.Concurrency = 4
	}
	return c
}

type Embedder struct {
	log     *logger.Logger
	model   EmbeddingModel
	cfg     Config
	limiter *rate.Limiter

	mu  sync.Mutex
	dim int
}

func New(log *logger.Logger, model EmbeddingModel, cfg Config) *Embedder {
	cfg = cfg.withDefaults()
	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	return &Embedder{
		log:     log.With("component", "Embedder", "model", cfg.Model),
		model:   model,
		cfg:     cfg,
		limiter: rate.NewLimiter(limit, cfg.Concurrency),
		dim:     cfg.Dim,
	}
}

func (e *Embedder) ModelName() string { return e.cfg.Model }

// Dim is the fixed dimension, or 0 until the first vector is seen.
func (e *Embedder) Dim() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.dim
}

func (e *Embedder) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch fails if any input fails.
func (e *Embedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	res := e.EmbedEach(ctx, texts)
	for _, err := range res.Errs {
		if err != nil {
			return nil, err
		}
	}
	return res.Vectors, nil
}

// BatchResult holds per-input outcomes; exactly one of Vectors[i] and
// Errs[i] is set.
type BatchResult struct {
	Vectors [][]float32
	Errs    []error
}

func (r BatchResult) Failed() int {
	n := 0
	for _, err := range r.Errs {
		if err != nil {
			n++
		}
	}
	return n
}

// FirstError returns the first per-input failure, if any.
func (r BatchResult) FirstError() error {
	for _, err := range r.Errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// EmbedEach embeds texts in batches, up to Concurrency at a time under the
// rate limit. A failing batch only fails its own inputs.
func (e *Embedder) EmbedEach(ctx context.Context, texts []string) BatchResult {
	res := BatchResult{
		Vectors: make([][]float32, len(texts)),
		Errs:    make([]error, len(texts)),
	}
	if len(texts) == 0 {
		return res
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(e.cfg.Concurrency)
	for start := 0; start < len(texts); start += e.cfg.BatchSize {
		end := start + e.cfg.BatchSize
		if end > len(texts) {
			end = len(texts)
		}
		start, end := start, end
		g.Go(func() error {
			if err := e.limiter.Wait(gctx); err != nil {
				setErr(res.Errs[start:end], err)
				return nil
			}
			vecs, err := e.model.Embed(gctx, texts[start:end])
			if err != nil {
				e.log.Warn("embedding batch failed", "from", start, "to", end, "error", err)
				setErr(res.Errs[start:end], &EmbeddingUnavailableError{Model: e.cfg.Model, Err: err})
				return nil
			}
			if len(vecs) != end-start {
				setErr(res.Errs[start:end], &EmbeddingUnavailableError{
					Model: e.cfg.Model,
					Err:   fmt.Errorf("got %d vectors for %d inputs", len(vecs), end-start),
				})
				return nil
			}
			for i, v := range vecs {
				unit, err := e.accept(v)
				if err != nil {
					res.Errs[start+i] = err
					continue
				}
				res.Vectors[start+i] = unit
			}
			return nil
		})
	}
	_ = g.Wait()
	return res
}

func setErr(dst []error, err error) {
	for i := range dst {
		dst[i] = err
	}
}

// accept normalizes v and checks it against the fixed dimension, fixing it
// on first use when unconfigured.
func (e *Embedder) accept(v []float32) ([]float32, error) {
	unit, err := Normalize(v)
	if err != nil {
		return nil, err
	}
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.dim == 0 {
		e.dim = len(unit)
	}
	if len(unit) != e.dim {
		return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(unit), e.dim)
	}
	return unit, nil
}

// Normalize returns v scaled to unit L2 norm.
func Normalize(v []float32) ([]float32, error) {
	if len(v) == 0 {
		return nil, ErrZeroVector
	}
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 || math.IsNaN(sum) || math.IsInf(sum, 0) {
		return nil, ErrZeroVector
	}
	norm := math.Sqrt(sum)
	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out, nil
}
