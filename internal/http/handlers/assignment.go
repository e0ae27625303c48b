package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/draftbridge-backend/internal/http/response"
	"github.com/yungbote/draftbridge-backend/internal/platform/apierr"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type AssignmentHandler struct {
	pipeline services.PipelineService
}

func NewAssignmentHandler(pipeline services.PipelineService) *AssignmentHandler {
	return &AssignmentHandler{pipeline: pipeline}
}

// POST /api/assignments
func (h *AssignmentHandler) Create(c *gin.Context) {
	var in services.CreateAssignmentInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondErr(c, apierr.BadRequest("invalid_body", err))
		return
	}
	a, mats, job, err := h.pipeline.CreateAssignment(requestDBC(c), in)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"assignment": a, "materials": mats, "job": job})
}

// GET /api/assignments/:id/status
func (h *AssignmentHandler) Status(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invalid_assignment_id")
	if !ok {
		return
	}
	view, err := h.pipeline.StatusView(requestDBC(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"assignment": view})
}

// POST /api/assignments/:id/sync
func (h *AssignmentHandler) Sync(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invalid_assignment_id")
	if !ok {
		return
	}
	job, err := h.pipeline.Sync(requestDBC(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}

// POST /api/assignments/:id/generate
func (h *AssignmentHandler) Generate(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invalid_assignment_id")
	if !ok {
		return
	}
	job, err := h.pipeline.StartGeneration(requestDBC(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}

// POST /api/assignments/:id/submit
func (h *AssignmentHandler) Submit(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invalid_assignment_id")
	if !ok {
		return
	}
	job, err := h.pipeline.Submit(requestDBC(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondAccepted(c, gin.H{"job": job})
}
