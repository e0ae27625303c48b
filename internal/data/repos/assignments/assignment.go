package assignments

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/domain/assignments"
	"github.com/yungbote/draftbridge-backend/internal/domain/materials"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type AssignmentRepo interface {
	Create(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error)
	ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Assignment, error)
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from, to types.AssignmentStatus, updates map[string]interface{}) (bool, error)
	// TransitionFromAny moves to `to` from whichever of froms the row holds.
	TransitionFromAny(dbc dbctx.Context, id uuid.UUID, froms []types.AssignmentStatus, to types.AssignmentStatus, updates map[string]interface{}) (bool, error)
	MarkError(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error)
	// AdvanceWhenMaterialsTerminal is the materials barrier: a single
	// statement that moves syncing|processing -> materials_ready only when
	// no material of the assignment is still non-terminal. True means this
	// caller fired it.
	AdvanceWhenMaterialsTerminal(dbc dbctx.Context, id uuid.UUID) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
}

type assignmentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return &assignmentRepo{db: db, log: baseLog.With("repo", "AssignmentRepo")}
}

func (r *assignmentRepo) Create(dbc dbctx.Context, a *types.Assignment) (*types.Assignment, error) {
	if a == nil {
		return nil, errors.New("assignment: nil row")
	}
	if err := dbc.Handle(r.db).Create(a).Error; err != nil {
		return nil, err
	}
	return a, nil
}

func (r *assignmentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Assignment, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Assignment
	err := dbc.Handle(r.db).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *assignmentRepo) ListByCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Assignment, error) {
	var out []*types.Assignment
	if courseID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Handle(r.db).
		Where("course_id = ?", courseID).
		Order("created_at ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *assignmentRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from, to types.AssignmentStatus, updates map[string]interface{}) (bool, error) {
	return r.TransitionFromAny(dbc, id, []types.AssignmentStatus{from}, to, updates)
}

func (r *assignmentRepo) TransitionFromAny(dbc dbctx.Context, id uuid.UUID, froms []types.AssignmentStatus, to types.AssignmentStatus, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil || len(froms) == 0 {
		return false, nil
	}
	fromStrs := make([]string, 0, len(froms))
	for _, from := range froms {
		if err := assignments.AssignmentTransitions.Check("assignment", from, to); err != nil {
			return false, err
		}
		fromStrs = append(fromStrs, string(from))
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = string(to)
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbc.Handle(r.db).
		Model(&types.Assignment{}).
		Where("id = ? AND status IN ?", id, fromStrs).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *assignmentRepo) MarkError(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.Handle(r.db).
		Model(&types.Assignment{}).
		Where("id = ? AND status IN ?", id, assignments.NonTerminalAssignmentStatuses()).
		Updates(map[string]interface{}{
			"status":     string(types.AssignmentError),
			"error":      reason,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		r.log.Warn("assignment marked error", "assignment_id", id, "reason", reason)
	}
	return res.RowsAffected == 1, nil
}

func (r *assignmentRepo) AdvanceWhenMaterialsTerminal(dbc dbctx.Context, id uuid.UUID) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.Handle(r.db).Exec(`
    UPDATE assignment
    SET status = ?, error = '', updated_at = ?
    WHERE id = ?
      AND status IN ?
      AND NOT EXISTS (
        SELECT 1 FROM material m
        WHERE m.assignment_id = ?
          AND m.status NOT IN ?
      )
  `,
		string(types.AssignmentMaterialsReady),
		time.Now(),
		id,
		[]string{string(types.AssignmentSyncing), string(types.AssignmentProcessing)},
		id,
		materials.TerminalMaterialStatuses(),
	)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *assignmentRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
	if id == uuid.Nil {
		return nil
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	return dbc.Handle(r.db).
		Model(&types.Assignment{}).
		Where("id = ?", id).
		Updates(updates).Error
}
