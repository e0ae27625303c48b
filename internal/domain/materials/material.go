package materials

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/domain/transition"
)

type MaterialStatus string

const (
	MaterialPending     MaterialStatus = "pending"
	MaterialDownloading MaterialStatus = "downloading"
	MaterialDownloaded  MaterialStatus = "downloaded"
	MaterialProcessing  MaterialStatus = "processing"
	MaterialChunking    MaterialStatus = "chunking"
	MaterialEmbedding   MaterialStatus = "embedding"
	MaterialProcessed   MaterialStatus = "processed"
	MaterialError       MaterialStatus = "error"
)

// MaterialTransitions is the only set of moves the pipeline may persist.
// processed/error are terminal for a run; an explicit re-sync restarts them.
var MaterialTransitions = transition.Table[MaterialStatus]{
	MaterialPending:     {MaterialDownloading, MaterialError},
	MaterialDownloading: {MaterialDownloaded, MaterialError},
	MaterialDownloaded:  {MaterialProcessing, MaterialError},
	MaterialProcessing:  {MaterialChunking, MaterialError},
	MaterialChunking:    {MaterialEmbedding, MaterialError},
	MaterialEmbedding:   {MaterialProcessed, MaterialError},
	MaterialProcessed:   {MaterialPending},
	MaterialError:       {MaterialPending},
}

func (s MaterialStatus) Terminal() bool {
	return s == MaterialProcessed || s == MaterialError
}

func (s MaterialStatus) Valid() bool {
	_, ok := MaterialTransitions[s]
	return ok
}

func (s MaterialStatus) CanTransition(to MaterialStatus) bool {
	return MaterialTransitions.Allows(s, to)
}

// TerminalMaterialStatuses is used by the materials barrier query.
func TerminalMaterialStatuses() []string {
	return []string{string(MaterialProcessed), string(MaterialError)}
}

// NonTerminalMaterialStatuses lists every status from which error is reachable.
func NonTerminalMaterialStatuses() []string {
	var out []string
	for _, s := range MaterialTransitions.Sources(MaterialError) {
		out = append(out, string(s))
	}
	return out
}

type Format string

const (
	FormatPDF     Format = "pdf"
	FormatDoc     Format = "doc"
	FormatSlide   Format = "slide"
	FormatText    Format = "text"
	FormatUnknown Format = "unknown"
)

// Material is one source file attached to an assignment.
type Material struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID uuid.UUID      `gorm:"type:uuid;not null;index" json:"assignment_id"`
	Title        string         `gorm:"column:title;not null" json:"title"`
	SourceRef    string         `gorm:"column:source_ref" json:"source_ref"`
	OriginalName string         `gorm:"column:original_name" json:"original_name"`
	MimeType     string         `gorm:"column:mime_type" json:"mime_type"`
	Format       Format         `gorm:"column:format;not null;default:'unknown'" json:"format"`
	Status       MaterialStatus `gorm:"column:status;not null;index" json:"status"`
	StorageKey   string         `gorm:"column:storage_key" json:"storage_key,omitempty"`
	SizeBytes    int64          `gorm:"column:size_bytes" json:"size_bytes"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`
	CreatedAt    time.Time      `gorm:"autoCreateTime" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime" json:"updated_at"`
}

func (Material) TableName() string { return "material" }

func (m *Material) BeforeCreate(tx *gorm.DB) error {
	if m.ID == uuid.Nil {
		m.ID = uuid.New()
	}
	if m.Status == "" {
		m.Status = MaterialPending
	}
	if m.Format == "" {
		m.Format = FormatUnknown
	}
	return nil
}
