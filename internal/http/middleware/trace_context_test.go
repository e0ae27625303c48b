package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/draftbridge-backend/internal/platform/ctxutil"
)

func TestAttachTraceContext(t *testing.T) {
	gin.SetMode(gin.TestMode)
	var seen *ctxutil.TraceData
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) {
		seen = ctxutil.GetTraceData(c.Request.Context())
		c.Status(http.StatusNoContent)
	})

	req := httptest.NewRequest(http.MethodGet, "/x", nil)
	req.Header.Set(HeaderRequestID, "req-42")
	req.Header.Set(HeaderTraceID, "spoofed")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)

	if seen == nil {
		t.Fatalf("trace data not attached")
	}
	if seen.RequestID != "req-42" {
		t.Fatalf("request id: want req-42 got %q", seen.RequestID)
	}
	if seen.TraceID == "" || seen.TraceID == "spoofed" {
		t.Fatalf("trace id must be server generated, got %q", seen.TraceID)
	}
	if got := w.Header().Get(HeaderTraceID); got != seen.TraceID {
		t.Fatalf("response trace header: want %q got %q", seen.TraceID, got)
	}
	if got := w.Header().Get(HeaderRequestID); got != "req-42" {
		t.Fatalf("response request header: got %q", got)
	}
}

func TestAttachTraceContextGeneratesRequestID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(AttachTraceContext())
	r.GET("/x", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/x", nil))

	if w.Header().Get(HeaderRequestID) == "" {
		t.Fatalf("expected a generated request id")
	}
}
