package handlers

import (
	"fmt"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/yungbote/draftbridge-backend/internal/http/response"
	"github.com/yungbote/draftbridge-backend/internal/platform/apierr"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
)

func paramUUID(c *gin.Context, name, code string) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param(name))
	if err != nil || id == uuid.Nil {
		response.RespondErr(c, apierr.BadRequest(code, fmt.Errorf("invalid %s %q", name, c.Param(name))))
		return uuid.Nil, false
	}
	return id, true
}

func requestDBC(c *gin.Context) dbctx.Context {
	return dbctx.Context{Ctx: c.Request.Context()}
}
