package materials

import (
	"errors"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type DocumentRepo interface {
	GetByMaterialID(dbc dbctx.Context, materialID uuid.UUID) (*types.Document, error)
	GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error)
	// Upsert replaces the material's document. changed reports whether the
	// text hash differs from what was stored before.
	Upsert(dbc dbctx.Context, doc *types.Document) (changed bool, err error)
}

type documentRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return &documentRepo{db: db, log: baseLog.With("repo", "DocumentRepo")}
}

func (r *documentRepo) GetByMaterialID(dbc dbctx.Context, materialID uuid.UUID) (*types.Document, error) {
	if materialID == uuid.Nil {
		return nil, nil
	}
	var doc types.Document
	err := dbc.Handle(r.db).Where("material_id = ?", materialID).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) GetByID(dbc dbctx.Context, id uuid.UUID) (*types.Document, error) {
	if id == uuid.Nil {
		return nil, nil
	}
	var doc types.Document
	err := dbc.Handle(r.db).Where("id = ?", id).First(&doc).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &doc, nil
}

func (r *documentRepo) Upsert(dbc dbctx.Context, doc *types.Document) (bool, error) {
	if doc == nil || doc.MaterialID == uuid.Nil {
		return false, errors.New("document: material_id required")
	}
	if doc.TextHash == "" {
		doc.TextHash = types.HashText(doc.Text)
	}
	if doc.ProcessedAt.IsZero() {
		doc.ProcessedAt = time.Now()
	}

	prev, err := r.GetByMaterialID(dbc, doc.MaterialID)
	if err != nil {
		return false, err
	}
	if prev == nil {
		if err := dbc.Handle(r.db).Create(doc).Error; err != nil {
			return false, err
		}
		return true, nil
	}

	doc.ID = prev.ID
	doc.CreatedAt = prev.CreatedAt
	err = dbc.Handle(r.db).
		Model(&types.Document{}).
		Where("id = ?", prev.ID).
		Updates(map[string]interface{}{
			"text":         doc.Text,
			"text_hash":    doc.TextHash,
			"page_count":   doc.PageCount,
			"metadata":     doc.Metadata,
			"processed_at": doc.ProcessedAt,
			"updated_at":   time.Now(),
		}).Error
	if err != nil {
		return false, err
	}
	return prev.TextHash != doc.TextHash, nil
}
