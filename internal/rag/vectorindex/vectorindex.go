// Package vectorindex is an exact, in-memory top-k inner product index.
// Vectors are expected to be unit length so scores are cosine similarities.
package vectorindex

import (
	"errors"
	"fmt"
	"sort"

	"github.com/google/uuid"
)

var ErrDimensionMismatch = errors.New("vectorindex: dimension mismatch")

type Entry struct {
	ID     uuid.UUID
	Vector []float32
}

type Hit struct {
	ID    uuid.UUID
	Score float64
}

type Index struct {
	dim     int
	entries []Entry
}

// New returns an empty index; dim 0 lets the first Add fix it.
func New(dim int) *Index {
	return &Index{dim: dim}
}

// Build creates an index over entries, rejecting mixed dimensions.
func Build(entries []Entry) (*Index, error) {
	idx := New(0)
	for _, e := range entries {
		if err := idx.Add(e.ID, e.Vector); err != nil {
			return nil, err
		}
	}
	return idx, nil
}

func (x *Index) Dim() int { return x.dim }

func (x *Index) Len() int { return len(x.entries) }

func (x *Index) Add(id uuid.UUID, vec []float32) error {
	if len(vec) == 0 {
		return fmt.Errorf("vectorindex: empty vector for %s", id)
	}
	if x.dim == 0 {
		x.dim = len(vec)
	}
	if len(vec) != x.dim {
		return fmt.Errorf("%w: %s has %d, index has %d", ErrDimensionMismatch, id, len(vec), x.dim)
	}
	x.entries = append(x.entries, Entry{ID: id, Vector: vec})
	return nil
}

// Search returns at most k hits by descending score. Ties keep insertion
// order and non-positive scores are dropped.
func (x *Index) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(x.entries) == 0 {
		return []Hit{}, nil
	}
	if len(query) != x.dim {
		return nil, fmt.Errorf("%w: query has %d, index has %d", ErrDimensionMismatch, len(query), x.dim)
	}
	hits := make([]Hit, 0, len(x.entries))
	for _, e := range x.entries {
		s := dot(query, e.Vector)
		if s <= 0 {
			continue
		}
		hits = append(hits, Hit{ID: e.ID, Score: s})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func dot(a, b []float32) float64 {
	var s float64
	for i := range a {
		s += float64(a[i]) * float64(b[i])
	}
	return s
}
