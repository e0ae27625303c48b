// Package objectstore keeps cached material bytes and submission artifacts.
package objectstore

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/gcp"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

var ErrNotFound = errors.New("object not found")

type Store interface {
	Put(ctx context.Context, key, contentType string, data []byte) error
	Get(ctx context.Context, key string) (data []byte, contentType string, err error)
	Delete(ctx context.Context, key string) error
}

func MaterialKey(materialID uuid.UUID, name string) string {
	name = strings.TrimSpace(name)
	if name == "" {
		name = "source"
	}
	name = strings.ReplaceAll(name, "/", "_")
	return fmt.Sprintf("materials/%s/%s", materialID, name)
}

// SubmissionKey names the rendered artifact of a submitted draft. ext has
// no leading dot.
func SubmissionKey(assignmentID, draftID uuid.UUID, ext string) string {
	ext = strings.TrimPrefix(strings.TrimSpace(ext), ".")
	if ext == "" {
		ext = "bin"
	}
	return fmt.Sprintf("submissions/%s/%s.%s", assignmentID, draftID, ext)
}

type dbStore struct {
	db  *gorm.DB
	log *logger.Logger
}

// NewDB stores objects as rows of stored_object.
func NewDB(db *gorm.DB, log *logger.Logger) Store {
	return &dbStore{db: db, log: log.With("store", "DBObjectStore")}
}

func (s *dbStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	obj := types.StoredObject{Key: key, ContentType: contentType, Size: int64(len(data)), Data: data}
	return s.db.WithContext(ctx).Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "key"}},
		DoUpdates: clause.AssignmentColumns([]string{"content_type", "size", "data", "updated_at"}),
	}).Create(&obj).Error
}

func (s *dbStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	var obj types.StoredObject
	err := s.db.WithContext(ctx).Where("key = ?", key).First(&obj).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	if err != nil {
		return nil, "", err
	}
	return obj.Data, obj.ContentType, nil
}

func (s *dbStore) Delete(ctx context.Context, key string) error {
	return s.db.WithContext(ctx).Where("key = ?", key).Delete(&types.StoredObject{}).Error
}

type gcsStore struct {
	bucket *gcp.Bucket
}

func NewGCS(b *gcp.Bucket) Store { return &gcsStore{bucket: b} }

func (s *gcsStore) Put(ctx context.Context, key, contentType string, data []byte) error {
	return s.bucket.Put(ctx, key, contentType, data)
}

func (s *gcsStore) Get(ctx context.Context, key string) ([]byte, string, error) {
	data, ct, err := s.bucket.Get(ctx, key)
	if errors.Is(err, gcp.ErrObjectNotFound) {
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, key)
	}
	return data, ct, err
}

func (s *gcsStore) Delete(ctx context.Context, key string) error {
	return s.bucket.Delete(ctx, key)
}
