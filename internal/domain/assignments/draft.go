package assignments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// Draft is one generated answer. An assignment may collect several drafts
// over retries; at most one is final.
type Draft struct {
	ID                uuid.UUID  `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID      uuid.UUID  `gorm:"type:uuid;not null;index" json:"assignment_id"`
	GeneratedContent  string     `gorm:"column:generated_content;type:text;not null" json:"generated_content"`
	PromptUsed        string     `gorm:"column:prompt_used;type:text" json:"-"`
	Model             string     `gorm:"column:model" json:"model,omitempty"`
	UserEditedContent *string    `gorm:"column:user_edited_content;type:text" json:"user_edited_content,omitempty"`
	FinalContent      *string    `gorm:"column:final_content;type:text" json:"final_content,omitempty"`
	IsFinal           bool       `gorm:"column:is_final;not null;default:false;index" json:"is_final"`
	IsSubmitted       bool       `gorm:"column:is_submitted;not null;default:false" json:"is_submitted"`
	SubmittedAt       *time.Time `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	SubmissionRef     string     `gorm:"column:submission_ref" json:"submission_ref,omitempty"`
	CreatedAt         time.Time  `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt         time.Time  `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Draft) TableName() string { return "draft" }

func (d *Draft) BeforeCreate(tx *gorm.DB) error {
	if d.ID == uuid.Nil {
		d.ID = uuid.New()
	}
	return nil
}

// ResolveFinalContent picks the edited text when present, else the generated text.
func (d *Draft) ResolveFinalContent(edited *string) string {
	if edited != nil && *edited != "" {
		return *edited
	}
	if d.UserEditedContent != nil && *d.UserEditedContent != "" {
		return *d.UserEditedContent
	}
	return d.GeneratedContent
}

// DraftChunk records which chunk grounded a draft and at what rank.
type DraftChunk struct {
	DraftID uuid.UUID `gorm:"type:uuid;primaryKey" json:"draft_id"`
	ChunkID uuid.UUID `gorm:"type:uuid;primaryKey;index" json:"chunk_id"`
	Rank    int       `gorm:"column:rank;not null" json:"rank"`
	Score   float64   `gorm:"column:score" json:"score"`
}

func (DraftChunk) TableName() string { return "draft_chunk" }
