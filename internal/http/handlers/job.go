package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/draftbridge-backend/internal/http/response"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type JobHandler struct {
	pipeline services.PipelineService
}

func NewJobHandler(pipeline services.PipelineService) *JobHandler {
	return &JobHandler{pipeline: pipeline}
}

// GET /api/jobs/:id
func (h *JobHandler) GetJob(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invalid_job_id")
	if !ok {
		return
	}
	view, err := h.pipeline.GetJob(requestDBC(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}
