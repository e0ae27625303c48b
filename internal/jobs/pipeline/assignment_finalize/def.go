package assignment_finalize

import (
	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/platform/objectstore"
	"github.com/yungbote/draftbridge-backend/internal/services"
	"github.com/yungbote/draftbridge-backend/internal/submission"
)

// Pipeline renders the final draft, stores the artifact and submits it.
type Pipeline struct {
	log      *logger.Logger
	orch     *services.Orchestrator
	drafts   repos.DraftRepo
	store    objectstore.Store
	finalize submission.Finalizer
}

func New(
	baseLog *logger.Logger,
	orch *services.Orchestrator,
	drafts repos.DraftRepo,
	store objectstore.Store,
	finalize submission.Finalizer,
) *Pipeline {
	return &Pipeline{
		log:      baseLog.With("job", "assignment_finalize"),
		orch:     orch,
		drafts:   drafts,
		store:    store,
		finalize: finalize,
	}
}

func (p *Pipeline) Type() string { return "assignment_finalize" }
