package domain

import (
	"github.com/yungbote/draftbridge-backend/internal/domain/assignments"
	"github.com/yungbote/draftbridge-backend/internal/domain/jobs"
	"github.com/yungbote/draftbridge-backend/internal/domain/materials"
	"github.com/yungbote/draftbridge-backend/internal/domain/transition"
)

type (
	Material       = materials.Material
	MaterialStatus = materials.MaterialStatus
	Format         = materials.Format
	Document       = materials.Document
	Chunk          = materials.Chunk
	StoredObject   = materials.StoredObject

	Assignment       = assignments.Assignment
	AssignmentStatus = assignments.AssignmentStatus
	Draft            = assignments.Draft
	DraftChunk       = assignments.DraftChunk

	JobRun       = jobs.JobRun
	JobRunEvent  = jobs.JobRunEvent
	JobEventKind = jobs.JobEventKind
)

const (
	MaterialPending     = materials.MaterialPending
	MaterialDownloading = materials.MaterialDownloading
	MaterialDownloaded  = materials.MaterialDownloaded
	MaterialProcessing  = materials.MaterialProcessing
	MaterialChunking    = materials.MaterialChunking
	MaterialEmbedding   = materials.MaterialEmbedding
	MaterialProcessed   = materials.MaterialProcessed
	MaterialError       = materials.MaterialError

	AssignmentNew             = assignments.AssignmentNew
	AssignmentSyncing         = assignments.AssignmentSyncing
	AssignmentProcessing      = assignments.AssignmentProcessing
	AssignmentMaterialsReady  = assignments.AssignmentMaterialsReady
	AssignmentGeneratingDraft = assignments.AssignmentGeneratingDraft
	AssignmentDraftReady      = assignments.AssignmentDraftReady
	AssignmentUserReviewing   = assignments.AssignmentUserReviewing
	AssignmentGeneratingPDF   = assignments.AssignmentGeneratingPDF
	AssignmentSubmitting      = assignments.AssignmentSubmitting
	AssignmentSubmitted       = assignments.AssignmentSubmitted
	AssignmentError           = assignments.AssignmentError

	JobStatusQueued    = jobs.StatusQueued
	JobStatusRunning   = jobs.StatusRunning
	JobStatusSucceeded = jobs.StatusSucceeded
	JobStatusFailed    = jobs.StatusFailed
	JobStatusCanceled  = jobs.StatusCanceled

	JobEventCreated   = jobs.JobEventCreated
	JobEventProgress  = jobs.JobEventProgress
	JobEventFailed    = jobs.JobEventFailed
	JobEventSucceeded = jobs.JobEventSucceeded
	JobEventRetried   = jobs.JobEventRetried

	JobTypeMaterialDownload   = jobs.TypeMaterialDownload
	JobTypeMaterialExtract    = jobs.TypeMaterialExtract
	JobTypeMaterialIndex      = jobs.TypeMaterialIndex
	JobTypeAssignmentSync     = jobs.TypeAssignmentSync
	JobTypeDraftGenerate      = jobs.TypeDraftGenerate
	JobTypeAssignmentFinalize = jobs.TypeAssignmentFinalize

	EntityMaterial   = jobs.EntityMaterial
	EntityAssignment = jobs.EntityAssignment
	EntityDraft      = jobs.EntityDraft
)

// ErrInvalidTransition is matched (errors.Is) by every rejected status move.
var ErrInvalidTransition = transition.ErrInvalid

var HashText = materials.HashText

var StageTypes = jobs.StageTypes

// Models is the migration set, in dependency order.
func Models() []any {
	return []any{
		&Assignment{},
		&Material{},
		&Document{},
		&Chunk{},
		&Draft{},
		&DraftChunk{},
		&JobRun{},
		&JobRunEvent{},
		&StoredObject{},
	}
}
