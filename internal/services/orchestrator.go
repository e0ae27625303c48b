package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/apierr"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

var ErrStateConflict = errors.New("entity is not in a status that allows this operation")

// Orchestrator owns the material and assignment state machines. Stage
// handlers call it to move entities, chain the next stage and record
// failures; every status write is a compare-and-set.
type Orchestrator struct {
	db           *gorm.DB
	log          *logger.Logger
	materials    repos.MaterialRepo
	assignments  repos.AssignmentRepo
	jobs         JobService
	status       StatusNotifier
	autoGenerate bool
}

func NewOrchestrator(
	db *gorm.DB,
	baseLog *logger.Logger,
	materials repos.MaterialRepo,
	assignments repos.AssignmentRepo,
	jobs JobService,
	status StatusNotifier,
	autoGenerate bool,
) *Orchestrator {
	return &Orchestrator{
		db:           db,
		log:          baseLog.With("service", "Orchestrator"),
		materials:    materials,
		assignments:  assignments,
		jobs:         jobs,
		status:       status,
		autoGenerate: autoGenerate,
	}
}

func (o *Orchestrator) Materials() repos.MaterialRepo     { return o.materials }
func (o *Orchestrator) Assignments() repos.AssignmentRepo { return o.assignments }

// EnqueueMaterialStage queues jobType for m unless one is already pending.
func (o *Orchestrator) EnqueueMaterialStage(dbc dbctx.Context, m *types.Material, jobType string) (*types.JobRun, error) {
	id := m.ID
	job, _, err := o.jobs.EnqueueIfIdle(dbc, EnqueueRequest{
		AssignmentID: m.AssignmentID,
		JobType:      jobType,
		EntityType:   types.EntityMaterial,
		EntityID:     &id,
		Payload:      map[string]any{"material_id": m.ID.String(), "assignment_id": m.AssignmentID.String()},
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return job, nil
}

func (o *Orchestrator) EnqueueAssignmentStage(dbc dbctx.Context, assignmentID uuid.UUID, jobType string, payload map[string]any) (*types.JobRun, error) {
	if payload == nil {
		payload = map[string]any{}
	}
	payload["assignment_id"] = assignmentID.String()
	id := assignmentID
	job, _, err := o.jobs.EnqueueIfIdle(dbc, EnqueueRequest{
		AssignmentID: assignmentID,
		JobType:      jobType,
		EntityType:   types.EntityAssignment,
		EntityID:     &id,
		Payload:      payload,
	})
	if err != nil {
		return nil, fmt.Errorf("enqueue %s: %w", jobType, err)
	}
	return job, nil
}

// MoveMaterial performs m.Status -> to. ok is false when another writer got
// there first; m is updated only on success.
func (o *Orchestrator) MoveMaterial(dbc dbctx.Context, m *types.Material, to types.MaterialStatus, updates map[string]interface{}) (bool, error) {
	ok, err := o.materials.TransitionStatus(dbc, m.ID, m.Status, to, updates)
	if err != nil || !ok {
		return ok, err
	}
	o.log.Debug("material moved", "material_id", m.ID, "from", m.Status, "to", to)
	m.Status = to
	o.notify(dbc.Ctx, m.AssignmentID, types.EntityMaterial, m.ID, string(to), "")
	return true, nil
}

func (o *Orchestrator) MoveAssignment(dbc dbctx.Context, a *types.Assignment, to types.AssignmentStatus, updates map[string]interface{}) (bool, error) {
	ok, err := o.assignments.TransitionStatus(dbc, a.ID, a.Status, to, updates)
	if err != nil || !ok {
		return ok, err
	}
	o.log.Debug("assignment moved", "assignment_id", a.ID, "from", a.Status, "to", to)
	a.Status = to
	o.notify(dbc.Ctx, a.ID, types.EntityAssignment, a.ID, string(to), "")
	return true, nil
}

// FailMaterial records cause on the material, moves it to error from any
// non-terminal status and re-evaluates the barrier. The returned error
// wraps cause with the stage name.
func (o *Orchestrator) FailMaterial(ctx context.Context, m *types.Material, stage string, cause error) error {
	err := fmt.Errorf("%s: %w", stage, cause)
	dbc := dbctx.Context{Ctx: ctx}
	ok, merr := o.materials.MarkError(dbc, m.ID, err.Error())
	if merr != nil {
		o.log.Error("mark material error failed", "material_id", m.ID, "error", merr)
		return err
	}
	if ok {
		m.Status = types.MaterialError
		m.Error = err.Error()
		o.notify(ctx, m.AssignmentID, types.EntityMaterial, m.ID, string(types.MaterialError), err.Error())
	}
	if _, berr := o.MaterialsSettled(ctx, m.AssignmentID); berr != nil {
		o.log.Warn("barrier evaluation failed", "assignment_id", m.AssignmentID, "error", berr)
	}
	return err
}

func (o *Orchestrator) FailAssignment(ctx context.Context, a *types.Assignment, stage string, cause error) error {
	err := fmt.Errorf("%s: %w", stage, cause)
	ok, aerr := o.assignments.MarkError(dbctx.Context{Ctx: ctx}, a.ID, err.Error())
	if aerr != nil {
		o.log.Error("mark assignment error failed", "assignment_id", a.ID, "error", aerr)
		return err
	}
	if ok {
		a.Status = types.AssignmentError
		a.Error = err.Error()
		o.notify(ctx, a.ID, types.EntityAssignment, a.ID, string(types.AssignmentError), err.Error())
	}
	return err
}

// FailEntity moves the job entity to error once its job will not run again.
// Entities already terminal are left alone.
func (o *Orchestrator) FailEntity(ctx context.Context, entityType string, entityID uuid.UUID, stage string, cause error) error {
	dbc := dbctx.Context{Ctx: ctx}
	switch entityType {
	case types.EntityMaterial:
		m, err := o.materials.GetByID(dbc, entityID)
		if err != nil {
			o.log.Error("load material for failure failed", "material_id", entityID, "error", err)
			return err
		}
		if m == nil {
			return nil
		}
		o.FailMaterial(ctx, m, stage, cause)
	case types.EntityAssignment:
		a, err := o.assignments.GetByID(dbc, entityID)
		if err != nil {
			o.log.Error("load assignment for failure failed", "assignment_id", entityID, "error", err)
			return err
		}
		if a == nil {
			return nil
		}
		o.FailAssignment(ctx, a, stage, cause)
	}
	return nil
}

// MaterialsSettled is the materials barrier. Call it after any material of
// the assignment reaches a terminal status; it reports true only to the one
// caller whose statement moved the assignment to materials_ready.
func (o *Orchestrator) MaterialsSettled(ctx context.Context, assignmentID uuid.UUID) (bool, error) {
	fired, err := o.assignments.AdvanceWhenMaterialsTerminal(dbctx.Context{Ctx: ctx}, assignmentID)
	if err != nil || !fired {
		return fired, err
	}
	o.log.Info("materials ready", "assignment_id", assignmentID)
	o.notify(ctx, assignmentID, types.EntityAssignment, assignmentID, string(types.AssignmentMaterialsReady), "")
	if o.autoGenerate {
		if _, err := o.StartGeneration(dbctx.Context{Ctx: ctx}, assignmentID); err != nil {
			o.log.Warn("auto generation not started", "assignment_id", assignmentID, "error", err)
		}
	}
	return true, nil
}

// StartGeneration accepts a draft request only from materials_ready or
// error and queues draft_generate. When the job cannot be queued the
// assignment is moved to error so a later request can retry.
func (o *Orchestrator) StartGeneration(dbc dbctx.Context, assignmentID uuid.UUID) (*types.JobRun, error) {
	a, err := o.assignments.GetByID(dbc, assignmentID)
	if err != nil {
		return nil, err
	}
	if a == nil {
		return nil, apierr.NotFound("assignment_not_found", fmt.Errorf("assignment %s not found", assignmentID))
	}
	if !a.Status.CanGenerate() {
		return nil, conflict("assignment", string(a.Status), "generate a draft")
	}
	ok, err := o.assignments.TransitionFromAny(dbc, a.ID,
		[]types.AssignmentStatus{types.AssignmentMaterialsReady, types.AssignmentError},
		types.AssignmentGeneratingDraft,
		map[string]interface{}{"error": ""},
	)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, conflict("assignment", string(a.Status), "generate a draft")
	}
	a.Status = types.AssignmentGeneratingDraft
	o.notify(dbc.Ctx, a.ID, types.EntityAssignment, a.ID, string(types.AssignmentGeneratingDraft), "")
	job, err := o.EnqueueAssignmentStage(dbc, a.ID, types.JobTypeDraftGenerate, nil)
	if err != nil {
		return nil, o.FailAssignment(dbc.Ctx, a, "generate", err)
	}
	return job, nil
}

type pendingStatusKey struct{}

type statusEvent struct {
	assignmentID uuid.UUID
	entityType   string
	entityID     uuid.UUID
	status       string
	reason       string
}

type pendingStatus struct {
	events []statusEvent
}

// InTx runs fn in one transaction. Status events raised by moves inside fn
// are sent after commit and dropped on rollback.
func (o *Orchestrator) InTx(ctx context.Context, fn func(txc dbctx.Context) error) error {
	pending := &pendingStatus{}
	txCtx := context.WithValue(ctx, pendingStatusKey{}, pending)
	err := o.db.WithContext(txCtx).Transaction(func(tx *gorm.DB) error {
		return fn(dbctx.Context{Ctx: txCtx, Tx: tx})
	})
	if err != nil {
		return err
	}
	for _, ev := range pending.events {
		o.emit(ev)
	}
	return nil
}

func (o *Orchestrator) notify(ctx context.Context, assignmentID uuid.UUID, entityType string, entityID uuid.UUID, status, reason string) {
	ev := statusEvent{assignmentID: assignmentID, entityType: entityType, entityID: entityID, status: status, reason: reason}
	if ctx != nil {
		if pending, ok := ctx.Value(pendingStatusKey{}).(*pendingStatus); ok {
			pending.events = append(pending.events, ev)
			return
		}
	}
	o.emit(ev)
}

func (o *Orchestrator) emit(ev statusEvent) {
	if o.status != nil {
		o.status.StatusChanged(ev.assignmentID, ev.entityType, ev.entityID, ev.status, ev.reason)
	}
}

func conflict(entity, status, op string) error {
	return apierr.Conflict("state_conflict", fmt.Errorf("cannot %s: %s is %s: %w", op, entity, status, ErrStateConflict))
}
