package materials

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/domain/materials"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type MaterialRepo interface {
	Create(dbc dbctx.Context, rows []*types.Material) ([]*types.Material, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Material, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Material, error)
	ListByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.Material, error)
	// TransitionStatus moves from -> to only if the row still holds from.
	TransitionStatus(dbc dbctx.Context, id uuid.UUID, from, to types.MaterialStatus, updates map[string]interface{}) (bool, error)
	// MarkError moves any non-terminal material to error with a reason.
	MarkError(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error)
	UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error
	CountNonTerminal(dbc dbctx.Context, assignmentID uuid.UUID) (int64, error)
}

type materialRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return &materialRepo{db: db, log: baseLog.With("repo", "MaterialRepo")}
}

func (r *materialRepo) Create(dbc dbctx.Context, rows []*types.Material) ([]*types.Material, error) {
	if len(rows) == 0 {
		return []*types.Material{}, nil
	}
	if err := dbc.Handle(r.db).Create(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *materialRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Material, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Material
	err := dbc.Handle(r.db).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *materialRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Material, error) {
	var out []*types.Material
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Handle(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *materialRepo) ListByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.Material, error) {
	var out []*types.Material
	if assignmentID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Handle(r.db).
		Where("assignment_id = ?", assignmentID).
		Order("created_at ASC, id ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *materialRepo) TransitionStatus(dbc dbctx.Context, id uuid.UUID, from, to types.MaterialStatus, updates map[string]interface{}) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	if err := materials.MaterialTransitions.Check("material", from, to); err != nil {
		return false, err
	}
	if updates == nil {
		updates = map[string]interface{}{}
	}
	updates["status"] = string(to)
	if _, ok := updates["updated_at"]; !ok {
		updates["updated_at"] = time.Now()
	}
	res := dbc.Handle(r.db).
		Model(&types.Material{}).
		Where("id = ? AND status = ?", id, string(from)).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *materialRepo) MarkError(dbc dbctx.Context, id uuid.UUID, reason string) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.Handle(r.db).
		Model(&types.Material{}).
		Where("id = ? AND status IN ?", id, materials.NonTerminalMaterialStatuses()).
		Updates(map[string]interface{}{
			"status":     string(types.MaterialError),
			"error":      reason,
			"updated_at": time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	if res.RowsAffected == 1 {
		r.log.Warn("material marked error", "material_id", id, "reason", reason)
	}
	return res.RowsAffected == 1, nil
}

func (r *materialRepo) UpdateFields(dbc dbctx.Context, id uuid.UUID, updates map[string]interface{}) error {
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
		Model(&types.Material{}).
		Where("id = ?", id).
		Updates(updates).Error
}

func (r *materialRepo) CountNonTerminal(dbc dbctx.Context, assignmentID uuid.UUID) (int64, error) {
	var count int64
	err := dbc.Handle(r.db).
		Model(&types.Material{}).
		Where("assignment_id = ? AND status NOT IN ?", assignmentID, materials.TerminalMaterialStatuses()).
		Count(&count).Error
	return count, err
}
