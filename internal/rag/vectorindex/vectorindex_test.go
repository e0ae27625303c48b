package vectorindex

import (
	"errors"
	"math"
	"math/rand"
	"testing"

	"github.com/google/uuid"
)

func unit(v ...float32) []float32 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	n := float32(math.Sqrt(s))
	out := make([]float32, len(v))
	for i := range v {
		out[i] = v[i] / n
	}
	return out
}

func TestSearchOrderAndTruncation(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	idx := New(8)
	var stored [][]float32
	var ids []uuid.UUID
	for i := 0; i < 200; i++ {
		v := make([]float32, 8)
		for j := range v {
			v[j] = float32(rng.Float64()*2 - 1)
		}
		v = unit(v...)
		id := uuid.New()
		if err := idx.Add(id, v); err != nil {
			t.Fatalf("Add: %v", err)
		}
		stored = append(stored, v)
		ids = append(ids, id)
	}

	for _, k := range []int{1, 5, 50} {
		hits, err := idx.Search(stored[42], k)
		if err != nil {
			t.Fatalf("Search: %v", err)
		}
		if len(hits) > k {
			t.Fatalf("k=%d returned %d hits", k, len(hits))
		}
		if hits[0].ID != ids[42] || math.Abs(hits[0].Score-1) > 1e-5 {
			t.Fatalf("self match not first: %+v", hits[0])
		}
		for i := 1; i < len(hits); i++ {
			if hits[i].Score > hits[i-1].Score {
				t.Fatalf("scores increase at %d", i)
			}
			if hits[i].Score <= 0 {
				t.Fatalf("non-positive score returned")
			}
		}
	}
}

func TestSearchTiesKeepInsertionOrder(t *testing.T) {
	a, b := uuid.New(), uuid.New()
	idx, err := Build([]Entry{{ID: a, Vector: unit(1, 1)}, {ID: b, Vector: unit(1, 1)}})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	hits, err := idx.Search(unit(1, 0), 2)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 2 || hits[0].ID != a || hits[1].ID != b {
		t.Fatalf("tie order not stable: %+v", hits)
	}
}

func TestSearchExcludesNonPositive(t *testing.T) {
	pos, orth, neg := uuid.New(), uuid.New(), uuid.New()
	idx, _ := Build([]Entry{
		{ID: neg, Vector: unit(-1, 0)},
		{ID: orth, Vector: unit(0, 1)},
		{ID: pos, Vector: unit(1, 0.1)},
	})
	hits, err := idx.Search(unit(1, 0), 10)
	if err != nil {
		t.Fatalf("Search: %v", err)
	}
	if len(hits) != 1 || hits[0].ID != pos {
		t.Fatalf("want only the positive match, got %+v", hits)
	}
}

func TestDimensionMismatch(t *testing.T) {
	idx := New(0)
	if err := idx.Add(uuid.New(), unit(1, 0, 0)); err != nil {
		t.Fatalf("Add: %v", err)
	}
	if err := idx.Add(uuid.New(), unit(1, 0)); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch, got %v", err)
	}
	if _, err := idx.Search(unit(1, 0), 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("want ErrDimensionMismatch on query, got %v", err)
	}
	if _, err := Build([]Entry{{ID: uuid.New(), Vector: unit(1)}, {ID: uuid.New(), Vector: unit(1, 1)}}); !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("Build should reject mixed dims, got %v", err)
	}
}

func TestSearchEmpty(t *testing.T) {
	hits, err := New(3).Search(unit(1, 0, 0), 5)
	if err != nil || len(hits) != 0 {
		t.Fatalf("empty index: %v %v", hits, err)
	}
}
