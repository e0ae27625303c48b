package material_extract

import (
	"context"

	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	"github.com/yungbote/draftbridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/platform/objectstore"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

// Extractor is satisfied by *extractor.Extractor.
type Extractor interface {
	Extract(ctx context.Context, data []byte, declaredName string) extractor.Result
}

type Pipeline struct {
	db        *gorm.DB
	log       *logger.Logger
	orch      *services.Orchestrator
	documents repos.DocumentRepo
	chunks    repos.ChunkRepo
	store     objectstore.Store
	extract   Extractor
}

func New(
	db *gorm.DB,
	baseLog *logger.Logger,
	orch *services.Orchestrator,
	documents repos.DocumentRepo,
	chunks repos.ChunkRepo,
	store objectstore.Store,
	extract Extractor,
) *Pipeline {
	return &Pipeline{
		db:        db,
		log:       baseLog.With("job", "material_extract"),
		orch:      orch,
		documents: documents,
		chunks:    chunks,
		store:     store,
		extract:   extract,
	}
}

func (p *Pipeline) Type() string { return "material_extract" }
