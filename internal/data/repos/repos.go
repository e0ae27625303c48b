package repos

import (
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos/assignments"
	"github.com/yungbote/draftbridge-backend/internal/data/repos/jobs"
	"github.com/yungbote/draftbridge-backend/internal/data/repos/materials"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type MaterialRepo = materials.MaterialRepo
type DocumentRepo = materials.DocumentRepo
type ChunkRepo = materials.ChunkRepo

type AssignmentRepo = assignments.AssignmentRepo
type DraftRepo = assignments.DraftRepo

type JobRunRepo = jobs.JobRunRepo
type JobRunEventRepo = jobs.JobRunEventRepo

func NewMaterialRepo(db *gorm.DB, baseLog *logger.Logger) MaterialRepo {
	return materials.NewMaterialRepo(db, baseLog)
}
func NewDocumentRepo(db *gorm.DB, baseLog *logger.Logger) DocumentRepo {
	return materials.NewDocumentRepo(db, baseLog)
}
func NewChunkRepo(db *gorm.DB, baseLog *logger.Logger) ChunkRepo {
	return materials.NewChunkRepo(db, baseLog)
}

func NewAssignmentRepo(db *gorm.DB, baseLog *logger.Logger) AssignmentRepo {
	return assignments.NewAssignmentRepo(db, baseLog)
}
func NewDraftRepo(db *gorm.DB, baseLog *logger.Logger) DraftRepo {
	return assignments.NewDraftRepo(db, baseLog)
}

func NewJobRunRepo(db *gorm.DB, baseLog *logger.Logger) JobRunRepo {
	return jobs.NewJobRunRepo(db, baseLog)
}
func NewJobRunEventRepo(db *gorm.DB, baseLog *logger.Logger) JobRunEventRepo {
	return jobs.NewJobRunEventRepo(db, baseLog)
}
