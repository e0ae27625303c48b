package materials

import (
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Document is the extracted text of exactly one Material.
// PageCount is an estimate for formats without native pages.
type Document struct {
	ID          uuid.UUID                            `gorm:"type:uuid;primaryKey" json:"id"`
	MaterialID  uuid.UUID                            `gorm:"type:uuid;not null;uniqueIndex" json:"material_id"`
	Text        string                               `gorm:"column:text;type:text;not null" json:"text"`
	TextHash    string                               `gorm:"column:text_hash;index" json:"text_hash"`
	PageCount   int                                  `gorm:"column:page_count;not null;default:0" json:"page_count"`
	Metadata    datatypes.JSONType[map[string]string] `gorm:"column:metadata;type:jsonb" json:"metadata"`
	ProcessedAt time.Time                            `gorm:"column:processed_at" json:"processed_at"`
	CreatedAt   time.Time                            `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time                            `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Document) TableName() string { return "material_document" }

func (d *Document) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// HashText is the fingerprint used to decide whether chunks are stale.
func HashText(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}
