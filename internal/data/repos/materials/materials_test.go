package materials

import (
	"context"
	"errors"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"

	"github.com/yungbote/draftbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
)

func TestMaterialRepoTransitions(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewMaterialRepo(db, testutil.Logger(t))

	a := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentProcessing)
	m := testutil.SeedMaterial(t, ctx, db, a.ID, types.MaterialPending)

	ok, err := repo.TransitionStatus(dbc, m.ID, types.MaterialPending, types.MaterialDownloading, nil)
	if err != nil || !ok {
		t.Fatalf("pending->downloading: ok=%v err=%v", ok, err)
	}
	// Stale read: the row no longer holds pending.
	ok, err = repo.TransitionStatus(dbc, m.ID, types.MaterialPending, types.MaterialDownloading, nil)
	if err != nil || ok {
		t.Fatalf("stale transition should not apply: ok=%v err=%v", ok, err)
	}
	if _, err := repo.TransitionStatus(dbc, m.ID, types.MaterialDownloading, types.MaterialProcessed, nil); !errors.Is(err, types.ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}

	n, err := repo.CountNonTerminal(dbc, a.ID)
	if err != nil || n != 1 {
		t.Fatalf("CountNonTerminal: n=%d err=%v", n, err)
	}

	ok, err = repo.MarkError(dbc, m.ID, "fetch failed")
	if err != nil || !ok {
		t.Fatalf("MarkError: ok=%v err=%v", ok, err)
	}
	ok, err = repo.MarkError(dbc, m.ID, "again")
	if err != nil || ok {
		t.Fatalf("MarkError on terminal should not apply: ok=%v err=%v", ok, err)
	}
	got, err := repo.GetByID(dbc, m.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByID: %v", err)
	}
	if got.Status != types.MaterialError || got.Error != "fetch failed" {
		t.Fatalf("unexpected row: status=%s error=%q", got.Status, got.Error)
	}

	if missing, err := repo.GetByID(dbc, uuid.New()); err != nil || missing != nil {
		t.Fatalf("GetByID(missing): row=%v err=%v", missing, err)
	}
}

func TestDocumentUpsertReportsTextChange(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewDocumentRepo(db, testutil.Logger(t))

	a := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentProcessing)
	m := testutil.SeedMaterial(t, ctx, db, a.ID, types.MaterialProcessing)

	doc := &types.Document{MaterialID: m.ID, Text: "hello", PageCount: 1, Metadata: datatypes.NewJSONType(map[string]string{"encoding": "utf-8"})}
	changed, err := repo.Upsert(dbc, doc)
	if err != nil || !changed {
		t.Fatalf("first Upsert: changed=%v err=%v", changed, err)
	}
	firstID := doc.ID

	same := &types.Document{MaterialID: m.ID, Text: "hello", PageCount: 1}
	changed, err = repo.Upsert(dbc, same)
	if err != nil || changed {
		t.Fatalf("same text Upsert: changed=%v err=%v", changed, err)
	}

	edited := &types.Document{MaterialID: m.ID, Text: "hello again", PageCount: 2}
	changed, err = repo.Upsert(dbc, edited)
	if err != nil || !changed {
		t.Fatalf("edited Upsert: changed=%v err=%v", changed, err)
	}

	got, err := repo.GetByMaterialID(dbc, m.ID)
	if err != nil || got == nil {
		t.Fatalf("GetByMaterialID: %v", err)
	}
	if got.ID != firstID {
		t.Fatalf("document id changed across upserts: %s != %s", got.ID, firstID)
	}
	if got.Text != "hello again" || got.PageCount != 2 {
		t.Fatalf("unexpected document: %+v", got)
	}
}

func TestChunkRepoReplaceAndCourseScope(t *testing.T) {
	db := testutil.DB(t)
	ctx := context.Background()
	dbc := dbctx.Context{Ctx: ctx}
	repo := NewChunkRepo(db, testutil.Logger(t))

	courseID := uuid.New()
	a1 := testutil.SeedAssignment(t, ctx, db, courseID, types.AssignmentMaterialsReady)
	a2 := testutil.SeedAssignment(t, ctx, db, courseID, types.AssignmentProcessing)
	other := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentMaterialsReady)

	done := testutil.SeedMaterial(t, ctx, db, a1.ID, types.MaterialProcessed)
	sibling := testutil.SeedMaterial(t, ctx, db, a2.ID, types.MaterialProcessed)
	inflight := testutil.SeedMaterial(t, ctx, db, a2.ID, types.MaterialEmbedding)
	foreign := testutil.SeedMaterial(t, ctx, db, other.ID, types.MaterialProcessed)

	d1 := testutil.SeedDocument(t, ctx, db, done.ID, "a")
	d2 := testutil.SeedDocument(t, ctx, db, sibling.ID, "b")
	d3 := testutil.SeedDocument(t, ctx, db, inflight.ID, "c")
	d4 := testutil.SeedDocument(t, ctx, db, foreign.ID, "d")

	rows, err := repo.ReplaceForDocument(dbc, d1.ID, []*types.Chunk{{Text: "one"}, {Text: "two"}, {Text: "three"}})
	if err != nil || len(rows) != 3 {
		t.Fatalf("ReplaceForDocument: len=%d err=%v", len(rows), err)
	}
	rows, err = repo.ReplaceForDocument(dbc, d1.ID, []*types.Chunk{{Text: "uno"}, {Text: "dos"}})
	if err != nil {
		t.Fatalf("ReplaceForDocument (second): %v", err)
	}
	listed, err := repo.ListByDocument(dbc, d1.ID)
	if err != nil {
		t.Fatalf("ListByDocument: %v", err)
	}
	if len(listed) != 2 || listed[0].Ordinal != 0 || listed[1].Ordinal != 1 || listed[0].Text != "uno" {
		t.Fatalf("chunks not replaced as a set: %+v", listed)
	}

	if err := repo.SetEmbedding(dbc, rows[0].ID, []float32{1, 0}, "m"); err != nil {
		t.Fatalf("SetEmbedding: %v", err)
	}
	testutil.SeedChunk(t, ctx, db, d2.ID, 0, "sibling", []float32{0, 1})
	testutil.SeedChunk(t, ctx, db, d3.ID, 0, "inflight", []float32{0, 1})
	testutil.SeedChunk(t, ctx, db, d4.ID, 0, "foreign", []float32{0, 1})

	scoped, err := repo.ListEmbeddedForCourse(dbc, courseID)
	if err != nil {
		t.Fatalf("ListEmbeddedForCourse: %v", err)
	}
	if len(scoped) != 2 {
		t.Fatalf("expected 2 scoped chunks, got %d", len(scoped))
	}
	texts := map[string]bool{}
	for _, c := range scoped {
		texts[c.Text] = true
	}
	if !texts["uno"] || !texts["sibling"] {
		t.Fatalf("unexpected scoped chunks: %v", texts)
	}
	vec, err := scoped[0].Vector()
	if err != nil || len(vec) != 2 {
		t.Fatalf("Vector: %v %v", vec, err)
	}

	if empty, err := repo.ListEmbeddedForCourse(dbc, uuid.New()); err != nil || len(empty) != 0 {
		t.Fatalf("empty course: len=%d err=%v", len(empty), err)
	}
}
