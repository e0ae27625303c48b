package materials

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/domain/materials"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type ChunkRepo interface {
	// ReplaceForDocument deletes every chunk of the document and inserts
	// texts as ordinals 0..n-1. Callers pass a transaction.
	ReplaceForDocument(dbc dbctx.Context, documentID uuid.UUID, chunks []*types.Chunk) ([]*types.Chunk, error)
	DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error
	ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error)
	GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Chunk, error)
	SetEmbedding(dbc dbctx.Context, id uuid.UUID, vec []float32, model string) error
	// ListEmbeddedForCourse loads embedded chunks of processed materials
	// attached to any assignment of the course.
	ListEmbeddedForCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Chunk, error)
}

type chunkRepo struct {
	db  *gorm.DB
	log *logger.Logger
}

func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return &chunkRepo{db: db, log: baseLog.With("repo", "ChunkRepo")}
}

func (r *chunkRepo) ReplaceForDocument(dbc dbctx.Context, documentID uuid.UUID, chunks []*types.Chunk) ([]*types.Chunk, error) {
	if documentID == uuid.Nil {
		return nil, fmt.Errorf("chunk: document_id required")
	}
	if err := r.DeleteByDocument(dbc, documentID); err != nil {
		return nil, err
	}
	if len(chunks) == 0 {
		return []*types.Chunk{}, nil
	}
	for i, c := range chunks {
		c.DocumentID = documentID
		c.Ordinal = i
	}

	// Keep batches small because Text is large
	const batchSize = 100

	if err := dbc.Handle(r.db).CreateInBatches(chunks, batchSize).Error; err != nil {
		return nil, err
	}
	return chunks, nil
}

func (r *chunkRepo) DeleteByDocument(dbc dbctx.Context, documentID uuid.UUID) error {
	if documentID == uuid.Nil {
		return nil
	}
	return dbc.Handle(r.db).
		Where("document_id = ?", documentID).
		Delete(&types.Chunk{}).Error
}

func (r *chunkRepo) ListByDocument(dbc dbctx.Context, documentID uuid.UUID) ([]*types.Chunk, error) {
	var out []*types.Chunk
	if documentID == uuid.Nil {
		return out, nil
	}
	if err := dbc.Handle(r.db).
		Where("document_id = ?", documentID).
		Order("ordinal ASC").
		Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) GetByIDs(dbc dbctx.Context, ids []uuid.UUID) ([]*types.Chunk, error) {
	var out []*types.Chunk
	if len(ids) == 0 {
		return out, nil
	}
	if err := dbc.Handle(r.db).Where("id IN ?", ids).Find(&out).Error; err != nil {
		return nil, err
	}
	return out, nil
}

func (r *chunkRepo) SetEmbedding(dbc dbctx.Context, id uuid.UUID, vec []float32, model string) error {
	if id == uuid.Nil {
		return nil
	}
	raw, err := materials.EncodeVector(vec)
	if err != nil {
		return err
	}
	return dbc.Handle(r.db).
		Model(&types.Chunk{}).
		Where("id = ?", id).
		Updates(map[string]interface{}{
			"embedding":       raw,
			"embedding_model": model,
			"dim":             len(vec),
			"updated_at":      time.Now(),
		}).Error
}

func (r *chunkRepo) ListEmbeddedForCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Chunk, error) {
	var out []*types.Chunk
	if courseID == uuid.Nil {
		return out, nil
	}
	err := dbc.Handle(r.db).
		Table("material_chunk AS c").
		Select("c.*").
		Joins("JOIN material_document AS d ON d.id = c.document_id").
		Joins("JOIN material AS m ON m.id = d.material_id").
		Joins("JOIN assignment AS a ON a.id = m.assignment_id").
		Where("a.course_id = ? AND m.status = ? AND c.dim > 0", courseID, string(types.MaterialProcessed)).
		Order("m.created_at ASC, c.document_id ASC, c.ordinal ASC").
		Find(&out).Error
	if err != nil {
		return nil, err
	}
	return out, nil
}
