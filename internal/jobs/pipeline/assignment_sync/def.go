package assignment_sync

import (
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

// Pipeline fans an assignment out into one download job per pending material.
type Pipeline struct {
	log  *logger.Logger
	orch *services.Orchestrator
}

func New(baseLog *logger.Logger, orch *services.Orchestrator) *Pipeline {
	return &Pipeline{log: baseLog.With("job", "assignment_sync"), orch: orch}
}

func (p *Pipeline) Type() string { return "assignment_sync" }
