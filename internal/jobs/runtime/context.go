package runtime

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/ctxutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

/*
Context is the execution handle for a single job run. Handlers never touch
job_run directly; they report through Progress/Fail/Succeed, which refuse to
overwrite a canceled row.
*/
type Context struct {
	Ctx    context.Context
	DB     *gorm.DB
	Job    *types.JobRun
	Repo   repos.JobRunRepo
	Notify services.JobNotifier
	// MaxAttempts is what the dispatcher retries up to; Permanent failures
	// jump straight to it.
	MaxAttempts int
	// Entities, when set, is told about failures that end the job for good.
	Entities EntityFailer
	payload  map[string]any
}

// EntityFailer moves the material or assignment a job works on to its error
// status. It must be a no-op for entities already terminal.
type EntityFailer interface {
	FailEntity(ctx context.Context, entityType string, entityID uuid.UUID, stage string, cause error) error
}

func NewContext(ctx context.Context, db *gorm.DB, job *types.JobRun, repo repos.JobRunRepo, notify services.JobNotifier) *Context {
	c := &Context{
		Ctx:    ctxutil.Default(ctx),
		DB:     db,
		Job:    job,
		Repo:   repo,
		Notify: notify,
	}
	_ = c.decodePayload()
	c.applyTraceData()
	return c
}

func (c *Context) decodePayload() error {
	if c.Job == nil {
		return nil
	}
	if len(c.Job.Payload) == 0 {
		c.payload = map[string]any{}
		return nil
	}
	var m map[string]any
	if err := json.Unmarshal(c.Job.Payload, &m); err != nil {
		c.payload = map[string]any{}
		return err
	}
	c.payload = m
	return nil
}

func (c *Context) applyTraceData() {
	payload := c.Payload()
	traceID, _ := payload["trace_id"].(string)
	reqID, _ := payload["request_id"].(string)
	traceID, reqID = strings.TrimSpace(traceID), strings.TrimSpace(reqID)
	if traceID == "" && reqID == "" {
		return
	}
	c.Ctx = ctxutil.WithTraceData(c.Ctx, &ctxutil.TraceData{TraceID: traceID, RequestID: reqID})
}

// DBC is the non-transactional db context for handler reads and writes.
func (c *Context) DBC() dbctx.Context {
	return dbctx.Context{Ctx: c.Ctx}
}

// Payload never returns nil.
func (c *Context) Payload() map[string]any {
	if c.payload == nil {
		c.payload = map[string]any{}
	}
	return c.payload
}

func (c *Context) PayloadUUID(key string) (uuid.UUID, bool) {
	v, ok := c.Payload()[key]
	if !ok || v == nil {
		return uuid.Nil, false
	}
	id, err := uuid.Parse(fmt.Sprint(v))
	if err != nil || id == uuid.Nil {
		return uuid.Nil, false
	}
	return id, true
}

// EntityID prefers the job's entity column and falls back to the payload key.
func (c *Context) EntityID(payloadKey string) (uuid.UUID, bool) {
	if c.Job != nil && c.Job.EntityID != nil && *c.Job.EntityID != uuid.Nil {
		return *c.Job.EntityID, true
	}
	return c.PayloadUUID(payloadKey)
}

func (c *Context) Progress(stage string, pct int, msg string) {
	now := time.Now()
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(c.DBC(), c.Job.ID, []string{types.JobStatusCanceled}, map[string]interface{}{
			"stage":        stage,
			"progress":     pct,
			"message":      msg,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Stage = stage
		c.Job.Progress = pct
		c.Job.Message = msg
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobProgress(c.Job, stage, pct, msg)
	}
}

// Fail marks the run failed. A Permanent error also exhausts the attempt
// budget so the polling dispatcher does not retry it.
func (c *Context) Fail(stage string, err error) {
	now := time.Now()
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	updates := map[string]interface{}{
		"status":        types.JobStatusFailed,
		"stage":         stage,
		"message":       "",
		"error":         msg,
		"last_error_at": now,
		"locked_at":     nil,
		"updated_at":    now,
	}
	permanent := IsPermanent(err) && c.MaxAttempts > 0
	if permanent {
		updates["attempts"] = c.MaxAttempts
	}
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(c.DBC(), c.Job.ID, []string{types.JobStatusCanceled}, updates)
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = types.JobStatusFailed
		c.Job.Stage = stage
		c.Job.Message = ""
		c.Job.Error = msg
		c.Job.LastErrorAt = &now
		c.Job.LockedAt = nil
		c.Job.UpdatedAt = now
		if permanent {
			c.Job.Attempts = c.MaxAttempts
		}
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobFailed(c.Job, stage, msg)
	}
	if c.Exhausted() {
		c.failEntity(stage, err)
	}
}

// Exhausted reports whether the dispatcher will not run the job again.
func (c *Context) Exhausted() bool {
	if c.Job == nil || c.Job.Status != types.JobStatusFailed {
		return false
	}
	return c.MaxAttempts > 0 && c.Job.Attempts >= c.MaxAttempts
}

func (c *Context) failEntity(stage string, err error) {
	if c.Entities == nil || c.Job.EntityID == nil || *c.Job.EntityID == uuid.Nil {
		return
	}
	if err == nil {
		err = errors.New("job failed")
	}
	// FailEntity logs its own errors; the job row is already final.
	_ = c.Entities.FailEntity(c.Ctx, c.Job.EntityType, *c.Job.EntityID, stage, err)
}

func (c *Context) Succeed(finalStage string, result any) {
	now := time.Now()
	var res datatypes.JSON
	if result != nil {
		b, _ := json.Marshal(result)
		res = datatypes.JSON(b)
	}
	if c.Repo != nil && c.Job != nil && c.Job.ID != uuid.Nil {
		ok, _ := c.Repo.UpdateFieldsUnlessStatus(c.DBC(), c.Job.ID, []string{types.JobStatusCanceled}, map[string]interface{}{
			"status":       types.JobStatusSucceeded,
			"stage":        finalStage,
			"progress":     100,
			"message":      "",
			"error":        "",
			"result":       res,
			"locked_at":    nil,
			"heartbeat_at": now,
			"updated_at":   now,
		})
		if !ok {
			return
		}
	}
	if c.Job != nil {
		c.Job.Status = types.JobStatusSucceeded
		c.Job.Stage = finalStage
		c.Job.Progress = 100
		c.Job.Message = ""
		c.Job.Error = ""
		c.Job.Result = res
		c.Job.LockedAt = nil
		c.Job.HeartbeatAt = &now
		c.Job.UpdatedAt = now
	}
	if c.Notify != nil && c.Job != nil {
		c.Notify.JobDone(c.Job)
	}
}

type permanentError struct{ err error }

func (e *permanentError) Error() string { return e.err.Error() }
func (e *permanentError) Unwrap() error { return e.err }

// Permanent marks err as not worth retrying, e.g. after the entity itself
// has been moved to its error state.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &permanentError{err: err}
}

func IsPermanent(err error) bool {
	var p *permanentError
	return errors.As(err, &p)
}
