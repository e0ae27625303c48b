package services

import (
	"context"
	"errors"
	"net/http"
	"testing"

	"github.com/google/uuid"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	"github.com/yungbote/draftbridge-backend/internal/data/repos/testutil"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/apierr"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
)

type pipelineFixture struct {
	svc    PipelineService
	orch   *Orchestrator
	drafts repos.DraftRepo
}

func newPipelineFixture(t *testing.T) (*pipelineFixture, dbctx.Context) {
	t.Helper()
	db := testutil.DB(t)
	log := testutil.Logger(t)
	mats := repos.NewMaterialRepo(db, log)
	asg := repos.NewAssignmentRepo(db, log)
	drafts := repos.NewDraftRepo(db, log)
	chunks := repos.NewChunkRepo(db, log)
	jobRepo := repos.NewJobRunRepo(db, log)
	events := repos.NewJobRunEventRepo(db, log)

	jobs := NewJobService(db, log, jobRepo, events, nil, nil, "")
	orch := NewOrchestrator(db, log, mats, asg, jobs, nil, false)
	return &pipelineFixture{
		svc:    NewPipelineService(db, log, orch, drafts, chunks, jobs),
		orch:   orch,
		drafts: drafts,
	}, dbctx.Context{Ctx: context.Background()}
}

func wantStatus(t *testing.T, err error, status int) {
	t.Helper()
	if err == nil {
		t.Fatalf("expected error with status %d", status)
	}
	if got, _ := apierr.StatusOf(err); got != status {
		t.Fatalf("status = %d (%v), want %d", got, err, status)
	}
}

func TestCreateAssignmentQueuesSync(t *testing.T) {
	f, dbc := newPipelineFixture(t)

	a, mats, job, err := f.svc.CreateAssignment(dbc, CreateAssignmentInput{
		CourseID: uuid.New(),
		Title:    "  Essay  ",
		Materials: []MaterialInput{
			{SourceRef: "drive:abc", OriginalName: "week1.pdf"},
			{SourceRef: "gs://bucket/week2.docx", Title: "Week 2"},
		},
	})
	if err != nil {
		t.Fatalf("CreateAssignment: %v", err)
	}
	if a.Title != "Essay" || a.Status != types.AssignmentNew || len(mats) != 2 {
		t.Fatalf("unexpected assignment %+v materials=%d", a, len(mats))
	}
	if mats[0].Title != "week1.pdf" || mats[1].Title != "Week 2" {
		t.Fatalf("material titles = %q, %q", mats[0].Title, mats[1].Title)
	}
	if job == nil || job.JobType != types.JobTypeAssignmentSync || job.Status != types.JobStatusQueued {
		t.Fatalf("unexpected job %+v", job)
	}

	view, err := f.svc.StatusView(dbc, a.ID)
	if err != nil {
		t.Fatalf("StatusView: %v", err)
	}
	if view.Status != types.AssignmentNew || len(view.Materials) != 2 {
		t.Fatalf("unexpected view %+v", view)
	}
	for _, m := range view.Materials {
		if m.Status != types.MaterialPending {
			t.Fatalf("material %s = %s, want pending", m.ID, m.Status)
		}
	}

	_, _, _, err = f.svc.CreateAssignment(dbc, CreateAssignmentInput{CourseID: uuid.New(), Title: "x", Materials: []MaterialInput{{}}})
	wantStatus(t, err, http.StatusBadRequest)
}

func TestApproveDraftRules(t *testing.T) {
	f, dbc := newPipelineFixture(t)
	ctx := dbc.Ctx

	a := testutil.SeedAssignment(t, ctx, f.orch.db, uuid.New(), types.AssignmentDraftReady)
	d, err := f.drafts.Create(dbc, &types.Draft{AssignmentID: a.ID, GeneratedContent: "generated"}, nil)
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}

	edited := "edited by student"
	got, err := f.svc.ApproveDraft(dbc, d.ID, &edited)
	if err != nil {
		t.Fatalf("ApproveDraft: %v", err)
	}
	if !got.IsFinal || got.FinalContent == nil || *got.FinalContent != edited {
		t.Fatalf("final content = %v, want edited", got.FinalContent)
	}
	view, _ := f.svc.StatusView(dbc, a.ID)
	if view.Status != types.AssignmentUserReviewing {
		t.Fatalf("assignment = %s, want user_reviewing", view.Status)
	}

	_, err = f.svc.ApproveDraft(dbc, d.ID, nil)
	wantStatus(t, err, http.StatusConflict)
	if !errors.Is(err, ErrStateConflict) {
		t.Fatalf("err = %v, want ErrStateConflict", err)
	}

	// Without edits the generated text becomes final.
	b := testutil.SeedAssignment(t, ctx, f.orch.db, uuid.New(), types.AssignmentDraftReady)
	d2, _ := f.drafts.Create(dbc, &types.Draft{AssignmentID: b.ID, GeneratedContent: "generated two"}, nil)
	got, err = f.svc.ApproveDraft(dbc, d2.ID, nil)
	if err != nil || *got.FinalContent != "generated two" {
		t.Fatalf("ApproveDraft(nil) = %v, %v", got, err)
	}

	// Wrong assignment status.
	c := testutil.SeedAssignment(t, ctx, f.orch.db, uuid.New(), types.AssignmentGeneratingDraft)
	d3, _ := f.drafts.Create(dbc, &types.Draft{AssignmentID: c.ID, GeneratedContent: "x"}, nil)
	_, err = f.svc.ApproveDraft(dbc, d3.ID, nil)
	wantStatus(t, err, http.StatusConflict)

	_, err = f.svc.ApproveDraft(dbc, uuid.New(), nil)
	wantStatus(t, err, http.StatusNotFound)
}

func TestGetDraftOrdersGroundingChunks(t *testing.T) {
	f, dbc := newPipelineFixture(t)
	ctx := dbc.Ctx
	db := f.orch.db

	a := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentDraftReady)
	m := testutil.SeedMaterial(t, ctx, db, a.ID, types.MaterialProcessed)
	doc := testutil.SeedDocument(t, ctx, db, m.ID, "alpha beta")
	c0 := testutil.SeedChunk(t, ctx, db, doc.ID, 0, "alpha", []float32{1, 0})
	c1 := testutil.SeedChunk(t, ctx, db, doc.ID, 1, "beta", []float32{0, 1})

	d, err := f.drafts.Create(dbc, &types.Draft{AssignmentID: a.ID, GeneratedContent: "answer"}, []*types.DraftChunk{
		{ChunkID: c1.ID, Rank: 0, Score: 0.9},
		{ChunkID: c0.ID, Rank: 1, Score: 0.4},
	})
	if err != nil {
		t.Fatalf("create draft: %v", err)
	}
	view, err := f.svc.GetDraft(dbc, d.ID)
	if err != nil {
		t.Fatalf("GetDraft: %v", err)
	}
	if len(view.Chunks) != 2 || view.Chunks[0].Text != "beta" || view.Chunks[1].Text != "alpha" {
		t.Fatalf("unexpected chunks %+v", view.Chunks)
	}
}

func TestSyncAndResyncGuards(t *testing.T) {
	f, dbc := newPipelineFixture(t)
	ctx := dbc.Ctx
	db := f.orch.db

	a := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentGeneratingDraft)
	_, err := f.svc.Sync(dbc, a.ID)
	wantStatus(t, err, http.StatusConflict)

	b := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentMaterialsReady)
	m := testutil.SeedMaterial(t, ctx, db, b.ID, types.MaterialError)
	job, err := f.svc.ResyncMaterial(dbc, m.ID)
	if err != nil {
		t.Fatalf("ResyncMaterial: %v", err)
	}
	if job.JobType != types.JobTypeAssignmentSync {
		t.Fatalf("job type = %s", job.JobType)
	}
	view, _ := f.svc.StatusView(dbc, b.ID)
	if view.Status != types.AssignmentSyncing || view.Materials[0].Status != types.MaterialPending {
		t.Fatalf("after resync: assignment=%s material=%s", view.Status, view.Materials[0].Status)
	}

	// A second request is rejected while the assignment is syncing.
	_, err = f.svc.ResyncMaterial(dbc, m.ID)
	wantStatus(t, err, http.StatusConflict)

	c := testutil.SeedAssignment(t, ctx, db, uuid.New(), types.AssignmentError)
	if _, err := f.svc.Sync(dbc, c.ID); err != nil {
		t.Fatalf("Sync from error: %v", err)
	}
	view, _ = f.svc.StatusView(dbc, c.ID)
	if view.Status != types.AssignmentSyncing {
		t.Fatalf("assignment = %s, want syncing", view.Status)
	}
}

func TestSubmitRequiresFinalDraft(t *testing.T) {
	f, dbc := newPipelineFixture(t)
	ctx := dbc.Ctx

	a := testutil.SeedAssignment(t, ctx, f.orch.db, uuid.New(), types.AssignmentUserReviewing)
	_, err := f.svc.Submit(dbc, a.ID)
	wantStatus(t, err, http.StatusConflict)

	d, _ := f.drafts.Create(dbc, &types.Draft{AssignmentID: a.ID, GeneratedContent: "x"}, nil)
	if ok, err := f.drafts.MarkFinal(dbc, d.ID, nil, "x"); err != nil || !ok {
		t.Fatalf("MarkFinal: %v", err)
	}
	job, err := f.svc.Submit(dbc, a.ID)
	if err != nil {
		t.Fatalf("Submit: %v", err)
	}
	if job.JobType != types.JobTypeAssignmentFinalize {
		t.Fatalf("job type = %s", job.JobType)
	}

	jv, err := f.svc.GetJob(dbc, job.ID)
	if err != nil || jv.Job.ID != job.ID {
		t.Fatalf("GetJob: %v", err)
	}
	_, err = f.svc.GetJob(dbc, uuid.New())
	wantStatus(t, err, http.StatusNotFound)
}
