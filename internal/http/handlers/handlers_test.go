package handlers

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/apierr"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type fakePipeline struct {
	services.PipelineService

	generateErr error
	edited      *string
	approved    bool
	created     services.CreateAssignmentInput
}

func (f *fakePipeline) CreateAssignment(dbc dbctx.Context, in services.CreateAssignmentInput) (*types.Assignment, []*types.Material, *types.JobRun, error) {
	f.created = in
	return &types.Assignment{ID: uuid.New(), Title: in.Title}, nil, &types.JobRun{ID: uuid.New()}, nil
}

func (f *fakePipeline) StatusView(dbc dbctx.Context, id uuid.UUID) (*services.AssignmentStatusView, error) {
	return nil, apierr.NotFound("assignment_not_found", fmt.Errorf("assignment %s not found", id))
}

func (f *fakePipeline) StartGeneration(dbc dbctx.Context, id uuid.UUID) (*types.JobRun, error) {
	if f.generateErr != nil {
		return nil, f.generateErr
	}
	return &types.JobRun{ID: uuid.New(), JobType: types.JobTypeDraftGenerate}, nil
}

func (f *fakePipeline) ApproveDraft(dbc dbctx.Context, id uuid.UUID, edited *string) (*types.Draft, error) {
	f.approved = true
	f.edited = edited
	return &types.Draft{ID: id, IsFinal: true}, nil
}

func newTestRouter(p services.PipelineService) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	ah := NewAssignmentHandler(p)
	dh := NewDraftHandler(p)
	r.POST("/api/assignments", ah.Create)
	r.GET("/api/assignments/:id/status", ah.Status)
	r.POST("/api/assignments/:id/generate", ah.Generate)
	r.POST("/api/drafts/:id/approve", dh.Approve)
	return r
}

func do(r http.Handler, method, path, body string) *httptest.ResponseRecorder {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, path, nil)
	} else {
		req = httptest.NewRequest(method, path, strings.NewReader(body))
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	return rec
}

func errorCode(t *testing.T, rec *httptest.ResponseRecorder) string {
	t.Helper()
	var env struct {
		Error struct {
			Code string `json:"code"`
		} `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &env); err != nil {
		t.Fatalf("decode error body %q: %v", rec.Body.String(), err)
	}
	return env.Error.Code
}

func TestInvalidIDIsBadRequest(t *testing.T) {
	rec := do(newTestRouter(&fakePipeline{}), http.MethodGet, "/api/assignments/not-a-uuid/status", "")
	if rec.Code != http.StatusBadRequest || errorCode(t, rec) != "invalid_assignment_id" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestNotFoundIsMapped(t *testing.T) {
	rec := do(newTestRouter(&fakePipeline{}), http.MethodGet, "/api/assignments/"+uuid.NewString()+"/status", "")
	if rec.Code != http.StatusNotFound || errorCode(t, rec) != "assignment_not_found" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestGenerateConflictAndAccepted(t *testing.T) {
	p := &fakePipeline{generateErr: apierr.Conflict("state_conflict", services.ErrStateConflict)}
	r := newTestRouter(p)
	path := "/api/assignments/" + uuid.NewString() + "/generate"

	rec := do(r, http.MethodPost, path, "")
	if rec.Code != http.StatusConflict || errorCode(t, rec) != "state_conflict" {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}

	p.generateErr = nil
	rec = do(r, http.MethodPost, path, "")
	if rec.Code != http.StatusAccepted || !strings.Contains(rec.Body.String(), types.JobTypeDraftGenerate) {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestUntypedErrorIsHidden(t *testing.T) {
	p := &fakePipeline{generateErr: fmt.Errorf("dial tcp 10.0.0.1:5432: refused")}
	rec := do(newTestRouter(p), http.MethodPost, "/api/assignments/"+uuid.NewString()+"/generate", "")
	if rec.Code != http.StatusInternalServerError || strings.Contains(rec.Body.String(), "10.0.0.1") {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
}

func TestApproveBodyIsOptional(t *testing.T) {
	p := &fakePipeline{}
	r := newTestRouter(p)
	path := "/api/drafts/" + uuid.NewString() + "/approve"

	rec := do(r, http.MethodPost, path, "")
	if rec.Code != http.StatusOK || !p.approved || p.edited != nil {
		t.Fatalf("got %d edited=%v", rec.Code, p.edited)
	}

	rec = do(r, http.MethodPost, path, `{"edited_content":"mine"}`)
	if rec.Code != http.StatusOK || p.edited == nil || *p.edited != "mine" {
		t.Fatalf("got %d edited=%v", rec.Code, p.edited)
	}

	rec = do(r, http.MethodPost, path, `{"edited_content":`)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("malformed body: got %d", rec.Code)
	}
}

func TestCreateAssignment(t *testing.T) {
	p := &fakePipeline{}
	body := `{"course_id":"` + uuid.NewString() + `","title":"Essay","materials":[{"source_ref":"drive:abc"}]}`
	rec := do(newTestRouter(p), http.MethodPost, "/api/assignments", body)
	if rec.Code != http.StatusCreated {
		t.Fatalf("got %d %s", rec.Code, rec.Body.String())
	}
	if p.created.Title != "Essay" || len(p.created.Materials) != 1 || p.created.Materials[0].SourceRef != "drive:abc" {
		t.Fatalf("unexpected input %+v", p.created)
	}
}
