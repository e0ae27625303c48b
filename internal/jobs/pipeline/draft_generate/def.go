package draft_generate

import (
	"context"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/rag/drafting"
	"github.com/yungbote/draftbridge-backend/internal/rag/retriever"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type Retriever interface {
	Retrieve(ctx context.Context, query string, scope retriever.Scope, k int) []retriever.ScoredChunk
}

// Generator is satisfied by *drafting.Generator.
type Generator interface {
	Generate(ctx context.Context, in drafting.PromptInput) (drafting.Output, error)
	ModelName() string
}

type Pipeline struct {
	log    *logger.Logger
	orch   *services.Orchestrator
	drafts repos.DraftRepo
	search Retriever
	gen    Generator
	topK   int
}

func New(
	baseLog *logger.Logger,
	orch *services.Orchestrator,
	drafts repos.DraftRepo,
	search Retriever,
	gen Generator,
	topK int,
) *Pipeline {
	if topK <= 0 {
		topK = retriever.DefaultK
	}
	return &Pipeline{
		log:    baseLog.With("job", "draft_generate"),
		orch:   orch,
		drafts: drafts,
		search: search,
		gen:    gen,
		topK:   topK,
	}
}

func (p *Pipeline) Type() string { return "draft_generate" }
