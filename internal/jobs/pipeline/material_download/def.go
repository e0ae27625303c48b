package material_download

import (
	"github.com/yungbote/draftbridge-backend/internal/ingestion/source"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/platform/objectstore"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type Pipeline struct {
	log     *logger.Logger
	orch    *services.Orchestrator
	sources source.FileSource
	store   objectstore.Store
}

func New(baseLog *logger.Logger, orch *services.Orchestrator, sources source.FileSource, store objectstore.Store) *Pipeline {
	return &Pipeline{
		log:     baseLog.With("job", "material_download"),
		orch:    orch,
		sources: sources,
		store:   store,
	}
}

func (p *Pipeline) Type() string { return "material_download" }
