package handlers

import (
	"errors"
	"io"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/draftbridge-backend/internal/http/response"
	"github.com/yungbote/draftbridge-backend/internal/platform/apierr"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type DraftHandler struct {
	pipeline services.PipelineService
}

func NewDraftHandler(pipeline services.PipelineService) *DraftHandler {
	return &DraftHandler{pipeline: pipeline}
}

type approveDraftRequest struct {
	EditedContent *string `json:"edited_content"`
}

// GET /api/drafts/:id
func (h *DraftHandler) Get(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invalid_draft_id")
	if !ok {
		return
	}
	view, err := h.pipeline.GetDraft(requestDBC(c), id)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, view)
}

// POST /api/drafts/:id/approve
func (h *DraftHandler) Approve(c *gin.Context) {
	id, ok := paramUUID(c, "id", "invalid_draft_id")
	if !ok {
		return
	}
	var req approveDraftRequest
	if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
		response.RespondErr(c, apierr.BadRequest("invalid_body", err))
		return
	}
	d, err := h.pipeline.ApproveDraft(requestDBC(c), id, req.EditedContent)
	if err != nil {
		response.RespondErr(c, err)
		return
	}
	response.RespondOK(c, gin.H{"draft": d})
}
