package app

import (
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type Repos struct {
	Material   repos.MaterialRepo
	Document   repos.DocumentRepo
	Chunk      repos.ChunkRepo
	Assignment repos.AssignmentRepo
	Draft      repos.DraftRepo
	JobRun     repos.JobRunRepo
	JobEvent   repos.JobRunEventRepo
}

func wireRepos(db *gorm.DB, log *logger.Logger) Repos {
	log.Info("Wiring repos...")
	return Repos{
		Material:   repos.NewMaterialRepo(db, log),
		Document:   repos.NewDocumentRepo(db, log),
		Chunk:      repos.NewChunkRepo(db, log),
		Assignment: repos.NewAssignmentRepo(db, log),
		Draft:      repos.NewDraftRepo(db, log),
		JobRun:     repos.NewJobRunRepo(db, log),
		JobEvent:   repos.NewJobRunEventRepo(db, log),
	}
}
