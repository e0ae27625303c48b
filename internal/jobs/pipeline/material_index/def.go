package material_index

import (
	"context"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	"github.com/yungbote/draftbridge-backend/internal/ingestion/chunker"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/rag/embedder"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

// Embedder is satisfied by *embedder.Embedder.
type Embedder interface {
	EmbedEach(ctx context.Context, texts []string) embedder.BatchResult
	ModelName() string
}

// Pipeline chunks a material's document and embeds every chunk.
type Pipeline struct {
	log       *logger.Logger
	orch      *services.Orchestrator
	documents repos.DocumentRepo
	chunks    repos.ChunkRepo
	embed     Embedder
	opts      chunker.Options
}

func New(
	baseLog *logger.Logger,
	orch *services.Orchestrator,
	documents repos.DocumentRepo,
	chunks repos.ChunkRepo,
	embed Embedder,
	opts chunker.Options,
) *Pipeline {
	return &Pipeline{
		log:       baseLog.With("job", "material_index"),
		orch:      orch,
		documents: documents,
		chunks:    chunks,
		embed:     embed,
		opts:      opts,
	}
}

func (p *Pipeline) Type() string { return "material_index" }
