package services

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/api/enums/v1"
	"go.temporal.io/api/serviceerror"
	temporalsdkclient "go.temporal.io/sdk/client"
	"go.temporal.io/sdk/temporal"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

// Workflow type registered by the temporal runner. Kept as a literal to avoid
// an import cycle with the jobrun package.
const jobRunWorkflowName = "job_run"

// EnqueueRequest describes one job to queue. AssignmentID scopes the events
// the job emits; it may be nil for maintenance jobs.
type EnqueueRequest struct {
	AssignmentID uuid.UUID
	JobType      string
	EntityType   string
	EntityID     *uuid.UUID
	Payload      map[string]any
}

type JobService interface {
	Enqueue(dbc dbctx.Context, req EnqueueRequest) (*types.JobRun, error)
	// EnqueueIfIdle skips queueing when a queued or running job of the same
	// type already exists for the entity.
	EnqueueIfIdle(dbc dbctx.Context, req EnqueueRequest) (*types.JobRun, bool, error)
	Dispatch(dbc dbctx.Context, jobID uuid.UUID) error
	GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error)
	GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error)
	ListEvents(dbc dbctx.Context, jobID uuid.UUID) ([]*types.JobRunEvent, error)
}

type jobService struct {
	db     *gorm.DB
	log    *logger.Logger
	repo   repos.JobRunRepo
	events repos.JobRunEventRepo
	notify JobNotifier

	temporal          temporalsdkclient.Client
	temporalTaskQueue string
}

// NewJobService returns a service that starts a temporal workflow per job
// when tc is set. With tc nil, queued rows are left for the polling worker.
func NewJobService(
	db *gorm.DB,
	baseLog *logger.Logger,
	repo repos.JobRunRepo,
	events repos.JobRunEventRepo,
	notify JobNotifier,
	tc temporalsdkclient.Client,
	taskQueue string,
) JobService {
	return &jobService{
		db:                db,
		log:               baseLog.With("service", "JobService"),
		repo:              repo,
		events:            events,
		notify:            notify,
		temporal:          tc,
		temporalTaskQueue: strings.TrimSpace(taskQueue),
	}
}

func (s *jobService) Enqueue(dbc dbctx.Context, req EnqueueRequest) (*types.JobRun, error) {
	if strings.TrimSpace(req.JobType) == "" {
		return nil, fmt.Errorf("missing job_type")
	}
	payload := req.Payload
	if payload == nil {
		payload = map[string]any{}
	}
	ctxutil.GetTraceData(dbc.Ctx).Stamp(payload)
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	b, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("encode payload: %w", err)
	}
	now := time.Now()
	job := &types.JobRun{
		ID:           uuid.New(),
		AssignmentID: req.AssignmentID,
		JobType:      req.JobType,
		EntityType:   req.EntityType,
		EntityID:     req.EntityID,
		Status:       types.JobStatusQueued,
		Stage:        "queued",
		Message:      "Queued",
		Payload:      datatypes.JSON(b),
		Result:       datatypes.JSON([]byte(`{}`)),
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if _, err := s.repo.Create(dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}, []*types.JobRun{job}); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	if s.notify != nil {
		s.notify.JobCreated(job)
	}

	// Inside a real transaction the workflow must not start before commit;
	// callers invoke Dispatch afterwards. gorm clones its handles freely, so
	// pointer comparison cannot detect this.
	if isDBTransaction(dbc.Tx) {
		s.log.Debug("Job enqueued inside transaction; awaiting dispatch after commit", "job_id", job.ID, "job_type", job.JobType)
		return job, nil
	}
	if err := s.Dispatch(dbctx.Context{Ctx: dbc.Ctx}, job.ID); err != nil {
		return job, err
	}
	return job, nil
}

func (s *jobService) EnqueueIfIdle(dbc dbctx.Context, req EnqueueRequest) (*types.JobRun, bool, error) {
	if req.EntityID == nil || *req.EntityID == uuid.Nil {
		return nil, false, fmt.Errorf("missing entity_id")
	}
	transaction := dbc.Tx
	if transaction == nil {
		transaction = s.db
	}
	repoCtx := dbctx.Context{Ctx: dbc.Ctx, Tx: transaction}
	has, err := s.repo.HasRunnableForEntity(repoCtx, req.EntityType, *req.EntityID, req.JobType)
	if err != nil {
		return nil, false, err
	}
	if has {
		return nil, false, nil
	}
	job, err := s.Enqueue(dbctx.Context{Ctx: dbc.Ctx, Tx: dbc.Tx}, req)
	if err != nil {
		return job, false, err
	}
	return job, true, nil
}

type txCommitter interface {
	Commit() error
	Rollback() error
}

func isDBTransaction(db *gorm.DB) bool {
	if db == nil || db.Statement == nil || db.Statement.ConnPool == nil {
		return false
	}
	_, ok := db.Statement.ConnPool.(txCommitter)
	return ok
}

func (s *jobService) Dispatch(dbc dbctx.Context, jobID uuid.UUID) error {
	if jobID == uuid.Nil {
		return fmt.Errorf("missing job id")
	}
	if s.temporal == nil {
		// Polling worker claims queued rows on its own.
		return nil
	}
	ctx := dbc.Ctx
	if ctx == nil {
		ctx = context.Background()
	}

	err := s.startWorkflow(ctx, jobID)
	if err == nil {
		return nil
	}
	var started *serviceerror.WorkflowExecutionAlreadyStarted
	if errors.As(err, &started) {
		return nil
	}

	now := time.Now().UTC()
	_ = s.repo.UpdateFields(dbctx.Context{Ctx: ctx, Tx: s.db}, jobID, map[string]interface{}{
		"status":        types.JobStatusFailed,
		"stage":         "dispatch",
		"message":       "",
		"error":         err.Error(),
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	})
	if s.notify != nil {
		if j, rerr := s.repo.GetByID(dbctx.Context{Ctx: ctx, Tx: s.db}, jobID); rerr == nil && j != nil {
			s.notify.JobFailed(j, "dispatch", err.Error())
		}
	}
	return fmt.Errorf("start temporal workflow: %w", err)
}

func (s *jobService) startWorkflow(ctx context.Context, jobID uuid.UUID) error {
	_, err := s.temporal.ExecuteWorkflow(ctx, temporalsdkclient.StartWorkflowOptions{
		ID:                    jobID.String(),
		TaskQueue:             s.temporalTaskQueue,
		WorkflowIDReusePolicy: enums.WORKFLOW_ID_REUSE_POLICY_REJECT_DUPLICATE,
		RetryPolicy: &temporal.RetryPolicy{
			InitialInterval:    30 * time.Second,
			BackoffCoefficient: 1.0,
			MaximumInterval:    30 * time.Second,
			MaximumAttempts:    5,
		},
	}, jobRunWorkflowName)
	return err
}

func (s *jobService) GetByID(dbc dbctx.Context, jobID uuid.UUID) (*types.JobRun, error) {
	if jobID == uuid.Nil {
		return nil, fmt.Errorf("missing job id")
	}
	return s.repo.GetByID(dbc, jobID)
}

func (s *jobService) GetLatestForEntity(dbc dbctx.Context, entityType string, entityID uuid.UUID, jobType string) (*types.JobRun, error) {
	if entityID == uuid.Nil {
		return nil, fmt.Errorf("missing entity id")
	}
	return s.repo.GetLatestByEntity(dbc, entityType, entityID, jobType)
}

func (s *jobService) ListEvents(dbc dbctx.Context, jobID uuid.UUID) ([]*types.JobRunEvent, error) {
	if s.events == nil {
		return nil, nil
	}
	return s.events.ListByJob(dbc, jobID)
}
