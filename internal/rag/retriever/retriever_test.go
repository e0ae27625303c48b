package retriever

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	"github.com/yungbote/draftbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
)

type stubEmbedder struct {
	vec []float32
	err error
}

func (s stubEmbedder) Embed(context.Context, string) ([]float32, error) { return s.vec, s.err }

func TestRetrieveRanksAcrossCourse(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)

	courseID := uuid.New()
	a1 := testutil.SeedAssignment(t, ctx, db, courseID, types.AssignmentMaterialsReady)
	a2 := testutil.SeedAssignment(t, ctx, db, courseID, types.AssignmentMaterialsReady)
	m1 := testutil.SeedMaterial(t, ctx, db, a1.ID, types.MaterialProcessed)
	m2 := testutil.SeedMaterial(t, ctx, db, a2.ID, types.MaterialProcessed)
	d1 := testutil.SeedDocument(t, ctx, db, m1.ID, "doc one")
	d2 := testutil.SeedDocument(t, ctx, db, m2.ID, "doc two")

	c1 := testutil.SeedChunk(t, ctx, db, d1.ID, 0, "chunk one", []float32{1, 0, 0})
	c2 := testutil.SeedChunk(t, ctx, db, d1.ID, 1, "chunk two", []float32{0, 1, 0})
	c3 := testutil.SeedChunk(t, ctx, db, d2.ID, 0, "chunk three", []float32{0.6, 0, 0.8})
	_ = c3

	// Closest to chunk two, then chunk one.
	q := []float32{0.6, 0.8, 0}
	r := New(log, stubEmbedder{vec: q}, repos.NewChunkRepo(db, log))

	got := r.Retrieve(ctx, "photosynthesis", Scope{CourseID: courseID}, 2)
	if len(got) != 2 {
		t.Fatalf("want 2 results, got %d", len(got))
	}
	if got[0].Chunk.ID != c2.ID {
		t.Fatalf("rank 0 = %q, want chunk two", got[0].Chunk.Text)
	}
	if got[1].Chunk.ID != c1.ID {
		t.Fatalf("rank 1 = %q, want chunk one", got[1].Chunk.Text)
	}
	if got[0].Score < got[1].Score {
		t.Fatalf("scores out of order: %f < %f", got[0].Score, got[1].Score)
	}
}

func TestRetrieveDegradesToEmpty(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	chunks := repos.NewChunkRepo(db, log)

	courseID := uuid.New()
	a := testutil.SeedAssignment(t, ctx, db, courseID, types.AssignmentProcessing)
	m := testutil.SeedMaterial(t, ctx, db, a.ID, types.MaterialEmbedding)
	d := testutil.SeedDocument(t, ctx, db, m.ID, "pending")
	testutil.SeedChunk(t, ctx, db, d.ID, 0, "not yet processed", []float32{1, 0})

	ok := New(log, stubEmbedder{vec: []float32{1, 0}}, chunks)
	if got := ok.Retrieve(ctx, "q", Scope{CourseID: courseID}, 5); len(got) != 0 {
		t.Fatalf("non-processed materials must not be retrieved, got %d", len(got))
	}
	if got := ok.Retrieve(ctx, "q", Scope{}, 5); len(got) != 0 {
		t.Fatalf("empty scope must be empty, got %d", len(got))
	}

	done := testutil.SeedMaterial(t, ctx, db, a.ID, types.MaterialProcessed)
	dd := testutil.SeedDocument(t, ctx, db, done.ID, "done")
	testutil.SeedChunk(t, ctx, db, dd.ID, 0, "processed", []float32{1, 0})

	failing := New(log, stubEmbedder{err: errors.New("model down")}, chunks)
	if got := failing.Retrieve(ctx, "q", Scope{CourseID: courseID}, 5); len(got) != 0 {
		t.Fatalf("embedding failure must be empty, got %d", len(got))
	}

	wrongDim := New(log, stubEmbedder{vec: []float32{1, 0, 0}}, chunks)
	if got := wrongDim.Retrieve(ctx, "q", Scope{CourseID: courseID}, 5); len(got) != 0 {
		t.Fatalf("dimension mismatch chunks must be skipped, got %d", len(got))
	}
}
