package services

import (
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/apierr"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type MaterialInput struct {
	Title        string `json:"title"`
	SourceRef    string `json:"source_ref"`
	OriginalName string `json:"original_name,omitempty"`
	MimeType     string `json:"mime_type,omitempty"`
}

type CreateAssignmentInput struct {
	CourseID    uuid.UUID       `json:"course_id"`
	OwnerUserID uuid.UUID       `json:"owner_user_id"`
	Title       string          `json:"title"`
	Description string          `json:"description"`
	DueAt       *time.Time      `json:"due_at,omitempty"`
	Materials   []MaterialInput `json:"materials"`
}

type MaterialStatusView struct {
	ID        uuid.UUID            `json:"id"`
	Title     string               `json:"title"`
	Status    types.MaterialStatus `json:"status"`
	Error     string               `json:"error,omitempty"`
	UpdatedAt time.Time            `json:"updated_at"`
}

type AssignmentStatusView struct {
	ID          uuid.UUID              `json:"id"`
	Title       string                 `json:"title"`
	Status      types.AssignmentStatus `json:"status"`
	Error       string                 `json:"error,omitempty"`
	SubmittedAt *time.Time             `json:"submitted_at,omitempty"`
	UpdatedAt   time.Time              `json:"updated_at"`
	Materials   []MaterialStatusView   `json:"materials"`
}

type GroundingChunk struct {
	ChunkID uuid.UUID `json:"chunk_id"`
	Rank    int       `json:"rank"`
	Score   float64   `json:"score"`
	Text    string    `json:"text"`
}

type DraftView struct {
	Draft  *types.Draft     `json:"draft"`
	Chunks []GroundingChunk `json:"chunks"`
}

type JobView struct {
	Job    *types.JobRun        `json:"job"`
	Events []*types.JobRunEvent `json:"events"`
}

// PipelineService is the outward surface of the pipeline: everything the
// HTTP handlers and the CLI may ask of it.
type PipelineService interface {
	CreateAssignment(dbc dbctx.Context, in CreateAssignmentInput) (*types.Assignment, []*types.Material, *types.JobRun, error)
	StatusView(dbc dbctx.Context, assignmentID uuid.UUID) (*AssignmentStatusView, error)
	Sync(dbc dbctx.Context, assignmentID uuid.UUID) (*types.JobRun, error)
	ResyncMaterial(dbc dbctx.Context, materialID uuid.UUID) (*types.JobRun, error)
	StartGeneration(dbc dbctx.Context, assignmentID uuid.UUID) (*types.JobRun, error)
	ApproveDraft(dbc dbctx.Context, draftID uuid.UUID, edited *string) (*types.Draft, error)
	GetDraft(dbc dbctx.Context, draftID uuid.UUID) (*DraftView, error)
	Submit(dbc dbctx.Context, assignmentID uuid.UUID) (*types.JobRun, error)
	GetJob(dbc dbctx.Context, jobID uuid.UUID) (*JobView, error)
}

type pipelineService struct {
	db     *gorm.DB
	log    *logger.Logger
	orch   *Orchestrator
	drafts repos.DraftRepo
	chunks repos.ChunkRepo
	jobs   JobService
}

func NewPipelineService(
	db *gorm.DB,
	baseLog *logger.Logger,
	orch *Orchestrator,
	drafts repos.DraftRepo,
	chunks repos.ChunkRepo,
	jobs JobService,
) PipelineService {
	return &pipelineService{
		db:     db,
		log:    baseLog.With("service", "PipelineService"),
		orch:   orch,
		drafts: drafts,
		chunks: chunks,
		jobs:   jobs,
	}
}

func (s *pipelineService) CreateAssignment(dbc dbctx.Context, in CreateAssignmentInput) (*types.Assignment, []*types.Material, *types.JobRun, error) {
	if in.CourseID == uuid.Nil {
		return nil, nil, nil, apierr.BadRequest("missing_course_id", fmt.Errorf("course_id is required"))
	}
	if strings.TrimSpace(in.Title) == "" {
		return nil, nil, nil, apierr.BadRequest("missing_title", fmt.Errorf("title is required"))
	}
	for i, m := range in.Materials {
		if strings.TrimSpace(m.SourceRef) == "" {
			return nil, nil, nil, apierr.BadRequest("missing_source_ref", fmt.Errorf("materials[%d].source_ref is required", i))
		}
	}

	a := &types.Assignment{
		ID:          uuid.New(),
		CourseID:    in.CourseID,
		OwnerUserID: in.OwnerUserID,
		Title:       strings.TrimSpace(in.Title),
		Description: strings.TrimSpace(in.Description),
		DueAt:       in.DueAt,
		Status:      types.AssignmentNew,
	}
	mats := make([]*types.Material, 0, len(in.Materials))
	for _, m := range in.Materials {
		mats = append(mats, &types.Material{
			ID:           uuid.New(),
			AssignmentID: a.ID,
			Title:        firstNonEmpty(strings.TrimSpace(m.Title), strings.TrimSpace(m.OriginalName), m.SourceRef),
			SourceRef:    strings.TrimSpace(m.SourceRef),
			OriginalName: strings.TrimSpace(m.OriginalName),
			MimeType:     strings.TrimSpace(m.MimeType),
			Status:       types.MaterialPending,
		})
	}

	err := s.db.WithContext(dbc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: dbc.Ctx, Tx: tx}
		if _, err := s.orch.Assignments().Create(txc, a); err != nil {
			return err
		}
		if len(mats) == 0 {
			return nil
		}
		_, err := s.orch.Materials().Create(txc, mats)
		return err
	})
	if err != nil {
		return nil, nil, nil, err
	}
	job, err := s.orch.EnqueueAssignmentStage(dbc, a.ID, types.JobTypeAssignmentSync, nil)
	if err != nil {
		return a, mats, nil, err
	}
	s.log.Info("assignment created", "assignment_id", a.ID, "course_id", a.CourseID, "materials", len(mats))
	return a, mats, job, nil
}

func (s *pipelineService) StatusView(dbc dbctx.Context, assignmentID uuid.UUID) (*AssignmentStatusView, error) {
	a, err := s.getAssignment(dbc, assignmentID)
	if err != nil {
		return nil, err
	}
	mats, err := s.orch.Materials().ListByAssignment(dbc, a.ID)
	if err != nil {
		return nil, err
	}
	view := &AssignmentStatusView{
		ID:          a.ID,
		Title:       a.Title,
		Status:      a.Status,
		Error:       a.Error,
		SubmittedAt: a.SubmittedAt,
		UpdatedAt:   a.UpdatedAt,
		Materials:   make([]MaterialStatusView, 0, len(mats)),
	}
	for _, m := range mats {
		view.Materials = append(view.Materials, MaterialStatusView{
			ID:        m.ID,
			Title:     m.Title,
			Status:    m.Status,
			Error:     m.Error,
			UpdatedAt: m.UpdatedAt,
		})
	}
	return view, nil
}

// Sync (re)starts material processing. A new assignment is moved by the
// sync job itself; a settled one is moved to syncing here.
func (s *pipelineService) Sync(dbc dbctx.Context, assignmentID uuid.UUID) (*types.JobRun, error) {
	a, err := s.getAssignment(dbc, assignmentID)
	if err != nil {
		return nil, err
	}
	switch a.Status {
	case types.AssignmentNew, types.AssignmentSyncing:
	case types.AssignmentMaterialsReady, types.AssignmentError:
		ok, err := s.orch.Assignments().TransitionFromAny(dbc, a.ID,
			[]types.AssignmentStatus{types.AssignmentMaterialsReady, types.AssignmentError},
			types.AssignmentSyncing,
			map[string]interface{}{"error": ""},
		)
		if err != nil {
			return nil, err
		}
		if !ok {
			return nil, conflict("assignment", string(a.Status), "sync")
		}
	default:
		return nil, conflict("assignment", string(a.Status), "sync")
	}
	return s.orch.EnqueueAssignmentStage(dbc, a.ID, types.JobTypeAssignmentSync, nil)
}

// ResyncMaterial reprocesses one material. The assignment must be settled:
// it returns to syncing and waits on the barrier again.
func (s *pipelineService) ResyncMaterial(dbc dbctx.Context, materialID uuid.UUID) (*types.JobRun, error) {
	m, err := s.orch.Materials().GetByID(dbc, materialID)
	if err != nil {
		return nil, err
	}
	if m == nil {
		return nil, apierr.NotFound("material_not_found", fmt.Errorf("material %s not found", materialID))
	}
	if !m.Status.Terminal() {
		return nil, conflict("material", string(m.Status), "re-sync")
	}
	a, err := s.getAssignment(dbc, m.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != types.AssignmentMaterialsReady && a.Status != types.AssignmentError {
		return nil, conflict("assignment", string(a.Status), "re-sync a material")
	}

	err = s.orch.InTx(dbc.Ctx, func(txc dbctx.Context) error {
		ok, err := s.orch.MoveMaterial(txc, m, types.MaterialPending, map[string]interface{}{"error": ""})
		if err != nil {
			return err
		}
		if !ok {
			return conflict("material", string(m.Status), "re-sync")
		}
		ok, err = s.orch.MoveAssignment(txc, a, types.AssignmentSyncing, map[string]interface{}{"error": ""})
		if err != nil {
			return err
		}
		if !ok {
			return conflict("assignment", string(a.Status), "re-sync a material")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	s.log.Info("material re-sync requested", "material_id", m.ID, "assignment_id", a.ID)
	return s.orch.EnqueueAssignmentStage(dbc, a.ID, types.JobTypeAssignmentSync, nil)
}

func (s *pipelineService) StartGeneration(dbc dbctx.Context, assignmentID uuid.UUID) (*types.JobRun, error) {
	return s.orch.StartGeneration(dbc, assignmentID)
}

// ApproveDraft finalizes a draft. Only a draft_ready assignment accepts it
// and a final draft is never finalized twice.
func (s *pipelineService) ApproveDraft(dbc dbctx.Context, draftID uuid.UUID, edited *string) (*types.Draft, error) {
	d, err := s.getDraft(dbc, draftID)
	if err != nil {
		return nil, err
	}
	if d.IsFinal {
		return nil, apierr.Conflict("draft_already_final", fmt.Errorf("draft %s is already final: %w", d.ID, ErrStateConflict))
	}
	a, err := s.getAssignment(dbc, d.AssignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != types.AssignmentDraftReady {
		return nil, conflict("assignment", string(a.Status), "approve a draft")
	}
	if edited != nil && strings.TrimSpace(*edited) == "" {
		edited = nil
	}
	final := d.ResolveFinalContent(edited)

	err = s.orch.InTx(dbc.Ctx, func(txc dbctx.Context) error {
		ok, err := s.drafts.MarkFinal(txc, d.ID, edited, final)
		if err != nil {
			return err
		}
		if !ok {
			return apierr.Conflict("draft_already_final", fmt.Errorf("draft %s is already final: %w", d.ID, ErrStateConflict))
		}
		ok, err = s.orch.MoveAssignment(txc, a, types.AssignmentUserReviewing, nil)
		if err != nil {
			return err
		}
		if !ok {
			return conflict("assignment", string(a.Status), "approve a draft")
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	d.IsFinal = true
	d.FinalContent = &final
	if edited != nil {
		d.UserEditedContent = edited
	}
	s.log.Info("draft approved", "draft_id", d.ID, "assignment_id", a.ID, "edited", edited != nil)
	return d, nil
}

func (s *pipelineService) GetDraft(dbc dbctx.Context, draftID uuid.UUID) (*DraftView, error) {
	d, err := s.getDraft(dbc, draftID)
	if err != nil {
		return nil, err
	}
	refs, err := s.drafts.ChunkRefs(dbc, d.ID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(refs))
	for _, r := range refs {
		ids = append(ids, r.ChunkID)
	}
	rows, err := s.chunks.GetByIDs(dbc, ids)
	if err != nil {
		return nil, err
	}
	byID := make(map[uuid.UUID]*types.Chunk, len(rows))
	for _, c := range rows {
		byID[c.ID] = c
	}
	view := &DraftView{Draft: d, Chunks: make([]GroundingChunk, 0, len(refs))}
	for _, r := range refs {
		c := byID[r.ChunkID]
		if c == nil {
			// re-sync replaced the chunk after generation
			continue
		}
		view.Chunks = append(view.Chunks, GroundingChunk{ChunkID: c.ID, Rank: r.Rank, Score: r.Score, Text: c.Text})
	}
	return view, nil
}

// Submit queues the finalization chain for the assignment's final draft.
func (s *pipelineService) Submit(dbc dbctx.Context, assignmentID uuid.UUID) (*types.JobRun, error) {
	a, err := s.getAssignment(dbc, assignmentID)
	if err != nil {
		return nil, err
	}
	if a.Status != types.AssignmentUserReviewing {
		return nil, conflict("assignment", string(a.Status), "submit")
	}
	d, err := s.drafts.GetFinal(dbc, a.ID)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apierr.Conflict("no_final_draft", fmt.Errorf("assignment %s has no final draft: %w", a.ID, ErrStateConflict))
	}
	return s.orch.EnqueueAssignmentStage(dbc, a.ID, types.JobTypeAssignmentFinalize, map[string]any{"draft_id": d.ID.String()})
}

func (s *pipelineService) GetJob(dbc dbctx.Context, jobID uuid.UUID) (*JobView, error) {
	job, err := s.jobs.GetByID(dbc, jobID)
	if err != nil {
		return nil, err
	}
	if job == nil {
		return nil, apierr.NotFound("job_not_found", fmt.Errorf("job %s not found", jobID))
	}
	events, err := s.jobs.ListEvents(dbc, job.ID)
	if err != nil {
		return nil, err
	}
	return &JobView{Job: job, Events: events}, nil
}

func (s *pipelineService) getAssignment(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error) {
	a, err := s.orch.Assignments().GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apierr.NotFound("assignment_not_found", fmt.Errorf("assignment %s not found", id))
	}
	return a, nil
}

func (s *pipelineService) getDraft(dbc dbctx.Context, id uuid.UUID) (*types.Draft, error) {
	d, err := s.drafts.GetByID(dbc, id)
	if err != nil {
		return nil, err
	}
	if d == nil {
		return nil, apierr.NotFound("draft_not_found", fmt.Errorf("draft %s not found", id))
	}
	return d, nil
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
