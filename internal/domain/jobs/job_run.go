package jobs

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

const (
	StatusQueued    = "queued"
	StatusRunning   = "running"
	StatusSucceeded = "succeeded"
	StatusFailed    = "failed"
	StatusCanceled  = "canceled"
)

// JobRun is one unit of background work. Rows are claimed by workers and
// carry their own retry bookkeeping.
type JobRun struct {
	ID           uuid.UUID      `gorm:"type:uuid;primaryKey" json:"id"`
	AssignmentID uuid.UUID      `gorm:"type:uuid;column:assignment_id;index" json:"assignment_id"`
	JobType      string         `gorm:"column:job_type;not null;index" json:"job_type"`
	EntityType   string         `gorm:"column:entity_type;index" json:"entity_type,omitempty"`
	EntityID     *uuid.UUID     `gorm:"type:uuid;column:entity_id;index" json:"entity_id,omitempty"`
	Status       string         `gorm:"column:status;not null;index" json:"status"`
	Stage        string         `gorm:"column:stage;not null;index" json:"stage"`
	Progress     int            `gorm:"column:progress;not null;default:0" json:"progress"`
	Attempts     int            `gorm:"column:attempts;not null;default:0" json:"attempts"`
	Message      string         `gorm:"column:message;type:text" json:"message,omitempty"`
	Error        string         `gorm:"column:error" json:"error,omitempty"`
	LockedAt     *time.Time     `gorm:"column:locked_at;index" json:"locked_at,omitempty"`
	HeartbeatAt  *time.Time     `gorm:"column:heartbeat_at;index" json:"heartbeat_at,omitempty"`
	LastErrorAt  *time.Time     `gorm:"column:last_error_at;index" json:"last_error_at,omitempty"`
	Payload      datatypes.JSON `gorm:"column:payload;type:jsonb" json:"payload"`
	Result       datatypes.JSON `gorm:"column:result;type:jsonb" json:"result"`
	CreatedAt    time.Time      `gorm:"autoCreateTime;index" json:"created_at"`
	UpdatedAt    time.Time      `gorm:"autoUpdateTime;index" json:"updated_at"`
}

func (JobRun) TableName() string { return "job_run" }

func (j *JobRun) BeforeCreate(tx *gorm.DB) error {
	if j.ID == uuid.Nil {
		j.ID = uuid.New()
	}
	if j.Status == "" {
		j.Status = StatusQueued
	}
	if j.Stage == "" {
		j.Stage = "queued"
	}
	return nil
}

func (j *JobRun) Terminal() bool {
	return j.Status == StatusSucceeded || j.Status == StatusFailed || j.Status == StatusCanceled
}

// Pipeline job types, one per stage.
const (
	TypeMaterialDownload   = "material_download"
	TypeMaterialExtract    = "material_extract"
	TypeMaterialIndex      = "material_index"
	TypeAssignmentSync     = "assignment_sync"
	TypeDraftGenerate      = "draft_generate"
	TypeAssignmentFinalize = "assignment_finalize"
)

// StageTypes lists every job type a runner must handle.
func StageTypes() []string {
	return []string{
		TypeAssignmentSync,
		TypeMaterialDownload,
		TypeMaterialExtract,
		TypeMaterialIndex,
		TypeDraftGenerate,
		TypeAssignmentFinalize,
	}
}

const (
	EntityMaterial   = "material"
	EntityAssignment = "assignment"
	EntityDraft      = "draft"
)
