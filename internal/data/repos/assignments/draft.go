package assignments

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type DraftRepo interface {
	// Create inserts the draft and its ranked chunk references together.
	Create(dbc dbctx.Context, d *types.Draft, refs []*types.DraftChunk) (*types.Draft, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Draft, error)
	ListByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.Draft, error)
	GetFinal(dbc dbctx.Context, assignmentID uuid.UUID) (*types.Draft, error)
	ChunkRefs(dbc dbctx.Context, draftID uuid.UUID) ([]*types.DraftChunk, error)
	// MarkFinal sets final content only while the draft is not yet final.
	MarkFinal(dbc dbctx.Context, id uuid.UUID, edited *string, finalContent string) (bool, error)
	MarkSubmitted(dbc dbctx.Context, id uuid.UUID, ref string, at time.Time) (bool, error)
}

type draftRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDraftRepo(db *gorm.DB, baseLog *logger.Logger) DraftRepo {
	return &draftRepo{db: db, log: baseLog.With("repo", "DraftRepo")}
}

func (r *draftRepo) Create(dbc dbctx.Context, d *types.Draft, refs []*types.DraftChunk) (*types.Draft, error) {
	if d == nil {
		return nil, errors.New("draft: nil row")
	}
	err := dbc.Handle(r.db).Transaction(func(txx *gorm.DB) error {
		if err := txx.Create(d).Error; err != nil {
			return err
		}
		if len(refs) == 0 {
			return nil
		}
		for _, ref := range refs {
			ref.DraftID = d.ID
		}
		return txx.Create(&refs).Error
	})
	if err != nil {
		return nil, err
	}
	return d, nil
}

func (r *draftRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Draft, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var row types.Draft
	err := dbc.Handle(r.db).Where("id = ?", id).First(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &row, nil
}

func (r *draftRepo) ListByAssignment(dbc dbctx.Context, assignmentID uuid.UUID) ([]*types.Draft, error) {
	var out []*types.Draft
	if assignmentID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Handle(r.db).
		Where("assignment_id = ?", assignmentID).
		Order("created_at DESC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *draftRepo) GetFinal(dbc dbctx.Context, assignmentID uuid.UUID) (*types.Draft, error) {
	if assignmentID == uuid.Nil {
		return nil, nil
	}
	var row types.Draft
	err := dbc.Handle(r.db).
		Where("assignment_id = ? AND is_final = ?", assignmentID, true).
		Order("updated_at DESC").
		Limit(1).
		Find(&row).Error
	if err != nil {
		return nil, err
	}
	if row.ID == uuid.Nil {
		return nil, nil
	}
	return &row, nil
}

func (r *draftRepo) ChunkRefs(dbc dbctx.Context, draftID uuid.UUID) ([]*types.DraftChunk, error) {
	var out []*types.DraftChunk
	if draftID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Handle(r.db).
		Where("draft_id = ?", draftID).
		Order("rank ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *draftRepo) MarkFinal(dbc dbctx.Context, id uuid.UUID, edited *string, finalContent string) (bool, error) {
	if id == uuid.Nil || finalContent == "" {
		return false, nil
	}
	updates := map[string]interface{}{
		"final_content": finalContent,
		"is_final":      true,
		"updated_at":    time.Now(),
	}
	if edited != nil {
		updates["user_edited_content"] = *edited
	}
	res := dbc.Handle(r.db).
		Model(&types.Draft{}).
		Where("id = ? AND is_final = ?", id, false).
		Updates(updates)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}

func (r *draftRepo) MarkSubmitted(dbc dbctx.Context, id uuid.UUID, ref string, at time.Time) (bool, error) {
	if id == uuid.Nil {
		return false, nil
	}
	res := dbc.Handle(r.db).
		Model(&types.Draft{}).
		Where("id = ? AND is_final = ? AND is_submitted = ?", id, true, false).
		Updates(map[string]interface{}{
			"is_submitted":   true,
			"submitted_at":   at,
			"submission_ref": ref,
			"updated_at":     time.Now(),
		})
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected == 1, nil
}
