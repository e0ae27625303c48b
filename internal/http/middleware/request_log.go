package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/draftbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
)

// RequestLogger logs one line per request at a level chosen by status.
// Health probes are only logged when they fail.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	log = log.With("component", "http")
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		route := c.FullPath()
		if route == "/healthcheck" && status < 400 {
			return
		}
		if route == "" {
			route = c.Request.URL.Path
		}
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"status", status,
			"bytes", c.Writer.Size(),
			"took_ms", time.Since(start).Milliseconds(),
		}
		kv = append(kv, ctxutil.GetTraceData(c.Request.Context()).LogFields()...)
		if errs := c.Errors.ByType(gin.ErrorTypeAny); len(errs) > 0 {
			kv = append(kv, "errors", errs.String())
		}

		switch {
		case status >= 500:
			log.Error("request", kv...)
		case status >= 400:
			log.Warn("request", kv...)
		default:
			log.Info("request", kv...)
		}
	}
}
