package handlers

import (
	"github.com/gin-gonic/gin"

	"github.com/yungbote/draftbridge-backend/internal/http/response"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type MaterialHandler struct {
	pipeline services.PipelineService
}

func NewMaterialHandler(pipeline services.PipelineService) *MaterialHandler {
	return &MaterialHandler{pipeline: pipeline}
}

// POST /api/materials/:id/resync
func (h *MaterialHandler) Resync(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invalid_material_id")
	if !ok {
		return
	}
	job, err := h.pipeline.ResyncMaterial(requestDBC(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}
