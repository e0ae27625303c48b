package assignments

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/domain/transition"
)

type AssignmentStatus string

const (
	AssignmentNew             AssignmentStatus = "new"
	AssignmentSyncing         AssignmentStatus = "syncing"
	AssignmentProcessing      AssignmentStatus = "processing"
	AssignmentMaterialsReady  AssignmentStatus = "materials_ready"
	AssignmentGeneratingDraft AssignmentStatus = "generating_draft"
	AssignmentDraftReady      AssignmentStatus = "draft_ready"
	AssignmentUserReviewing   AssignmentStatus = "user_reviewing"
	AssignmentGeneratingPDF   AssignmentStatus = "generating_pdf"
	AssignmentSubmitting      AssignmentStatus = "submitting"
	AssignmentSubmitted       AssignmentStatus = "submitted"
	AssignmentError           AssignmentStatus = "error"
)

var AssignmentTransitions = transition.Table[AssignmentStatus]{
	AssignmentNew:             {AssignmentSyncing, AssignmentError},
	AssignmentSyncing:         {AssignmentProcessing, AssignmentMaterialsReady, AssignmentError},
	AssignmentProcessing:      {AssignmentMaterialsReady, AssignmentError},
	AssignmentMaterialsReady:  {AssignmentGeneratingDraft, AssignmentSyncing, AssignmentError},
	AssignmentGeneratingDraft: {AssignmentDraftReady, AssignmentError},
	AssignmentDraftReady:      {AssignmentUserReviewing, AssignmentError},
	AssignmentUserReviewing:   {AssignmentGeneratingPDF, AssignmentError},
	AssignmentGeneratingPDF:   {AssignmentSubmitting, AssignmentError},
	AssignmentSubmitting:      {AssignmentSubmitted, AssignmentError},
	AssignmentSubmitted:       {},
	AssignmentError:           {AssignmentGeneratingDraft, AssignmentSyncing},
}

func (s AssignmentStatus) Terminal() bool {
	return s == AssignmentSubmitted || s == AssignmentError
}

// NonTerminalAssignmentStatuses lists every status from which error is reachable.
func NonTerminalAssignmentStatuses() []string {
	var out []string
	for _, s := range AssignmentTransitions.Sources(AssignmentError) {
		out = append(out, string(s))
	}
	return out
}

func (s AssignmentStatus) Valid() bool {
	_, ok := AssignmentTransitions[s]
	return ok
}

func (s AssignmentStatus) CanTransition(to AssignmentStatus) bool {
	return AssignmentTransitions.Allows(s, to)
}

// CanGenerate reports whether a draft generation request is accepted.
func (s AssignmentStatus) CanGenerate() bool {
	return s == AssignmentMaterialsReady || s == AssignmentError
}

// Assignment is a unit of coursework. Materials attach to it and drafts are
// generated against the whole course corpus it belongs to.
type Assignment struct {
	ID          uuid.UUID        `gorm:"type:uuid;primaryKey" json:"id"`
	CourseID    uuid.UUID        `gorm:"type:uuid;not null;index" json:"course_id"`
	OwnerUserID uuid.UUID        `gorm:"type:uuid;index" json:"owner_user_id"`
	Title       string           `gorm:"column:title;not null" json:"title"`
	Description string           `gorm:"column:description;type:text" json:"description"`
	Status      AssignmentStatus `gorm:"column:status;not null;index" json:"status"`
	DueAt       *time.Time       `gorm:"column:due_at" json:"due_at,omitempty"`
	Error       string           `gorm:"column:error" json:"error,omitempty"`
	SubmittedAt *time.Time       `gorm:"column:submitted_at" json:"submitted_at,omitempty"`
	CreatedAt   time.Time        `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt   time.Time        `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Assignment) TableName() string { return "assignment" }

func (a *Assignment) BeforeCreate(tx *gorm.DB) error {
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	if a.Status == "" {
		a.Status = AssignmentNew
	}
	return nil
}

// Query is the retrieval text for draft generation.
func (a *Assignment) Query() string {
	return a.Title + " " + a.Description
}
