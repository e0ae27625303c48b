package materials

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Chunk is one retrievable segment of a Document. Ordinals are contiguous
// from 0 and the set is always replaced as a whole.
type Chunk struct {
	ID             uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	DocumentID     uuid.UUID      `gorm:"type:uuid;not null;index;uniqueIndex:idx_chunk_document_ordinal" json:"document_id"`
	Ordinal        int            `gorm:"column:ordinal;not null;uniqueIndex:idx_chunk_document_ordinal" json:"ordinal"`
	Text           string         `gorm:"column:text;type:text;not null" json:"text"`
	Embedding      datatypes.JSON `gorm:"column:embedding;type:jsonb" json:"-"`
	EmbeddingModel string         `gorm:"column:embedding_model" json:"embedding_model,omitempty"`
	Dim            int            `gorm:"column:dim;not null;default:0;index" json:"dim"`
	Metadata       datatypes.JSON `gorm:"column:metadata;type:jsonb" json:"metadata"`
	CreatedAt      time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt      time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Chunk) TableName() string { return "material_chunk" }

func (c *Chunk) BeforeCreate(tx *gorm.DB) error {
	if c.ID == uuid.Nil {
		c.ID = uuid.New()
	}
	return nil
}

// Vector decodes the stored embedding. An unembedded chunk yields nil.
func (c *Chunk) Vector() ([]float32, error) {
	if c == nil || len(c.Embedding) == 0 || string(c.Embedding) == "null" {
		return nil, nil
	}
	var v []float32
	if err := json.Unmarshal(c.Embedding, &v); err != nil {
		return nil, fmt.Errorf("decode embedding for chunk %s: %w", c.ID, err)
	}
	return v, nil
}

// EncodeVector is the storage form written by SetEmbedding-style updates.
func EncodeVector(v []float32) (datatypes.JSON, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return datatypes.JSON(b), nil
}

func (c *Chunk) Embedded() bool { return c != nil && c.Dim > 0 }
