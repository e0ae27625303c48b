package http

import (
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	httpH "github.com/yungbote/draftbridge-backend/internal/http/handlers"
	httpMW "github.com/yungbote/draftbridge-backend/internal/http/middleware"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

type RouterConfig struct {
	Log            *logger.Logger
	ServiceName    string
	AllowedOrigins []string

	AssignmentHandler *httpH.AssignmentHandler
	DraftHandler      *httpH.DraftHandler
	MaterialHandler   *httpH.MaterialHandler
	JobHandler        *httpH.JobHandler

	HealthHandler *httpH.HealthHandler
}

func NewRouter(cfg RouterConfig) *gin.Engine {
	serviceName := cfg.ServiceName
	if serviceName == "" {
		serviceName = "draftbridge"
	}
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(otelgin.Middleware(serviceName))
	r.Use(httpMW.AttachTraceContext())
	r.Use(httpMW.RequestLogger(cfg.Log))
	r.Use(httpMW.CORS(cfg.AllowedOrigins))

	// Health
	if cfg.HealthHandler != nil {
		r.GET("/healthcheck", cfg.HealthHandler.HealthCheck)
	}

	api := r.Group("/api")
	{
		// Assignments
		if cfg.AssignmentHandler != nil {
			api.POST("/assignments", cfg.AssignmentHandler.Create)
			api.GET("/assignments/:id/status", cfg.AssignmentHandler.Status)
			api.POST("/assignments/:id/sync", cfg.AssignmentHandler.Sync)
			api.POST("/assignments/:id/generate", cfg.AssignmentHandler.Generate)
			api.POST("/assignments/:id/submit", cfg.AssignmentHandler.Submit)
		}

		// Drafts
		if cfg.DraftHandler != nil {
			api.GET("/drafts/:id", cfg.DraftHandler.Get)
			api.POST("/drafts/:id/approve", cfg.DraftHandler.Approve)
		}

		// Materials
		if cfg.MaterialHandler != nil {
			api.POST("/materials/:id/resync", cfg.MaterialHandler.Resync)
		}

		// Job
		if cfg.JobHandler != nil {
			api.GET("/jobs/:id", cfg.JobHandler.GetJob)
		}
	}

	return r
}
