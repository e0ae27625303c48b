package assignments

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/draftbridge-backend/internal/data/repos/materials"
	"github.com/yungbote/draftbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
)

func TestBarrierWaitsForEveryMaterial(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	log := testutil.Logger(t)
	assignmentRepo := NewAssignmentRepo(db, log)
	materialRepo := materials.NewMaterialRepo(db, log)

	a := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentProcessing)
	m1 := testutil.SeedMaterial(t, ctx, db, a.ID, types.MaterialEmbedding)
	m2 := testutil.SeedMaterial(t, ctx, db, a.ID, types.MaterialChunking)

	if ok, err := materialRepo.TransitionStatus(dbc, m1.ID, types.MaterialEmbedding, types.MaterialProcessed, nil); err != nil || !ok {
		t.Fatalf("m1 processed: ok=%v err=%v", ok, err)
	}
	fired, err := assignmentRepo.AdvanceWhenMaterialsTerminal(dbc, a.ID)
	if err != nil {
		t.Fatalf("barrier: %v", err)
	}
	if fired {
		t.Fatalf("barrier fired with a material still chunking")
	}

	if ok, err := materialRepo.MarkError(dbc, m2.ID, "extraction produced no text"); err != nil || !ok {
		t.Fatalf("m2 error: ok=%v err=%v", ok, err)
	}
	fired, err = assignmentRepo.AdvanceWhenMaterialsTerminal(dbc, a.ID)
	if err != nil || !fired {
		t.Fatalf("barrier should fire once both are terminal: fired=%v err=%v", fired, err)
	}
	fired, err = assignmentRepo.AdvanceWhenMaterialsTerminal(dbc, a.ID)
	if err != nil || fired {
		t.Fatalf("barrier fired twice: fired=%v err=%v", fired, err)
	}

	got, err := assignmentRepo.GetByID(dbc, a.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.AssignmentMaterialsReady {
		t.Fatalf("expected materials_ready, got %s", got.Status)
	}
}

func TestBarrierFiresExactlyOnceUnderConcurrency(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	log := testutil.Logger(t)
	assignmentRepo := NewAssignmentRepo(db, log)
	materialRepo := materials.NewMaterialRepo(db, log)

	a := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentProcessing)
	const n = 8
	ids := make([]uuid.UUID, 0, n)
	for i := 0; i < n; i++ {
		ids = append(ids, testutil.SeedMaterial(t, ctx, db, a.ID, types.MaterialEmbedding).ID)
	}

	var fired int32
	var wg sync.WaitGroup
	start := make(chan struct{})
	errs := make(chan error, n*2)
	for i, id := range ids {
		wg.Add(1)
		go func(i int, id uuid.UUID) {
			defer wg.Done()
			<-start
			dbc := dbctx.Context{Ctx: ctx}
			if i%3 == 0 {
				if _, err := materialRepo.MarkError(dbc, id, "boom"); err != nil {
					errs <- err
					return
				}
			} else if _, err := materialRepo.TransitionStatus(dbc, id, types.MaterialEmbedding, types.MaterialProcessed, nil); err != nil {
				errs <- err
				return
			}
			ok, err := assignmentRepo.AdvanceWhenMaterialsTerminal(dbc, a.ID)
			if err != nil {
				errs <- err
				return
			}
			if ok {
				atomic.AddInt32(&fired, 1)
			}
		}(i, id)
	}
	close(start)
	wg.Wait()
	close(errs)
	for err := range errs {
		t.Fatalf("concurrent completion: %v", err)
	}
	if fired != 1 {
		t.Fatalf("barrier fired %d times, want 1", fired)
	}
}

func TestBarrierWithNoMaterials(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewAssignmentRepo(db, testutil.Logger(t))

	a := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentSyncing)
	fired, err := repo.AdvanceWhenMaterialsTerminal(dbc, a.ID)
	if err != nil || !fired {
		t.Fatalf("empty assignment should become ready: fired=%v err=%v", fired, err)
	}

	fresh := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentNew)
	fired, err = repo.AdvanceWhenMaterialsTerminal(dbc, fresh.ID)
	if err != nil || fired {
		t.Fatalf("barrier must not fire from new: fired=%v err=%v", fired, err)
	}
}

func TestAssignmentMarkErrorOnlyFromNonTerminal(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewAssignmentRepo(db, testutil.Logger(t))

	submitted := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentSubmitted)
	if ok, err := repo.MarkError(dbc, submitted.ID, "late failure"); err != nil || ok {
		t.Fatalf("submitted assignment must not move to error: ok=%v err=%v", ok, err)
	}

	gen := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentGeneratingDraft)
	if ok, err := repo.MarkError(dbc, gen.ID, "timeout"); err != nil || !ok {
		t.Fatalf("MarkError: ok=%v err=%v", ok, err)
	}
	ok, err := repo.TransitionFromAny(dbc, gen.ID,
		[]types.AssignmentStatus{types.AssignmentMaterialsReady, types.AssignmentError},
		types.AssignmentGeneratingDraft, map[string]interface{}{"error": ""})
	if err != nil || !ok {
		t.Fatalf("retry from error: ok=%v err=%v", ok, err)
	}
}

func TestDraftFinalization(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewDraftRepo(db, testutil.Logger(t))

	a := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentDraftReady)
	c1, c2 := uuid.New(), uuid.New()
	d, err := repo.Create(dbc, &types.Draft{AssignmentID: a.ID, GeneratedContent: "generated"},
		[]*types.DraftChunk{{ChunkID: c2, Rank: 1, Score: 0.5}, {ChunkID: c1, Rank: 0, Score: 0.9}})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	refs, err := repo.ChunkRefs(dbc, d.ID)
	if err != nil {
		t.Fatalf("ChunkRefs: %v", err)
	}
	if len(refs) != 2 || refs[0].ChunkID != c1 || refs[1].ChunkID != c2 {
		t.Fatalf("refs not in rank order: %+v", refs)
	}

	ok, err := repo.MarkFinal(dbc, d.ID, nil, d.ResolveFinalContent(nil))
	if err != nil || !ok {
		t.Fatalf("MarkFinal: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkFinal(dbc, d.ID, nil, "again")
	if err != nil || ok {
		t.Fatalf("MarkFinal twice: ok=%v err=%v", ok, err)
	}
	final, err := repo.GetFinal(dbc, a.ID)
	if err != nil || final == nil {
		t.Fatalf("GetFinal: %v", err)
	}
	if final.FinalContent == nil || *final.FinalContent != "generated" {
		t.Fatalf("final content not taken from generated text: %+v", final.FinalContent)
	}

	ok, err = repo.MarkSubmitted(dbc, d.ID, "sub-1", time.Now())
	if err != nil || !ok {
		t.Fatalf("MarkSubmitted: ok=%v err=%v", ok, err)
	}
}
