package app

import (
	"gorm.io/gorm"

	httpserver "github.com/yungbote/draftbridge-backend/internal/http"
	httpH "github.com/yungbote/draftbridge-backend/internal/http/handlers"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type Handlers struct {
	Assignment *httpH.AssignmentHandler
	Draft      *httpH.DraftHandler
	Material   *httpH.MaterialHandler
	Job        *httpH.JobHandler
	Health     *httpH.HealthHandler
}

func wireHandlers(db *gorm.DB, log *logger.Logger, s Services) Handlers {
	log.Info("Wiring handlers...")
	return Handlers{
		Assignment: httpH.NewAssignmentHandler(s.Pipeline),
		Draft:      httpH.NewDraftHandler(s.Pipeline),
		Material:   httpH.NewMaterialHandler(s.Pipeline),
		Job:        httpH.NewJobHandler(s.Pipeline),
		Health:     httpH.NewHealthHandler(db),
	}
}

func wireServer(log *logger.Logger, cfg Config, h Handlers) *httpserver.Server {
	return httpserver.NewServer(httpserver.RouterConfig{
		Log:               log,
		ServiceName:       cfg.ServiceName,
		AllowedOrigins:    cfg.AllowedOrigins,
		AssignmentHandler: h.Assignment,
		DraftHandler:      h.Draft,
		MaterialHandler:   h.Material,
		JobHandler:        h.Job,
		HealthHandler:     h.Health,
	})
}
