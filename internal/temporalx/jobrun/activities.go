package jobrun

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.temporal.io/sdk/activity"
	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	jobrt "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type Activities struct {
	Log      *logger.Logger
	DB       *gorm.DB
	Jobs     repos.JobRunRepo
	Registry *jobrt.Registry
	Notify   services.JobNotifier
	// Entities moves a job's material or assignment to error once the job
	// is out of attempts. Optional.
	Entities jobrt.EntityFailer
	// MaxAttempts lets a workflow retry re-run a failed job until the job's
	// own attempt counter is exhausted.
	MaxAttempts int

	// heartbeat is swapped out in tests that run outside an activity context.
	heartbeat func(ctx context.Context)
}

// Tick runs the job once if it is still runnable and reports its status.
func (a *Activities) Tick(ctx context.Context, jobID string) (TickResult, error) {
	res := TickResult{JobID: strings.TrimSpace(jobID)}
	if a == nil || a.DB == nil || a.Jobs == nil || a.Registry == nil {
		return res, fmt.Errorf("jobrun: activity not configured")
	}
	id, err := uuid.Parse(res.JobID)
	if err != nil || id == uuid.Nil {
		return res, fmt.Errorf("jobrun: invalid job_id")
	}
	job, err := a.Jobs.GetByID(dbctx.Context{Ctx: ctx, Tx: a.DB}, id)
	if err != nil {
		return res, err
	}
	if job == nil {
		return res, fmt.Errorf("jobrun: job not found")
	}

	if !a.runnable(job) {
		a.fill(&res, job)
		return res, nil
	}

	stop := a.startHeartbeat(ctx, id)
	defer stop()

	now := time.Now().UTC()
	_ = a.DB.WithContext(ctx).
		Model(&types.JobRun{}).
		Where("id = ? AND status <> ?", id, types.JobStatusCanceled).
		Updates(map[string]any{
			"status":       types.JobStatusRunning,
			"attempts":     gorm.Expr("attempts + 1"),
			"locked_at":    now,
			"heartbeat_at": now,
			"updated_at":   now,
		}).Error
	job.Status = types.JobStatusRunning
	job.Attempts++
	job.LockedAt = &now
	job.HeartbeatAt = &now

	jc := jobrt.NewContext(ctx, a.DB, job, a.Jobs, a.Notify)
	jc.MaxAttempts = a.MaxAttempts
	jc.Entities = a.Entities
	returnedNil := false
	h, ok := a.Registry.Get(job.JobType)
	if !ok {
		jc.Fail("dispatch", jobrt.Permanent(fmt.Errorf("no handler registered for job_type=%s", job.JobType)))
	} else {
		func() {
			defer func() {
				if r := recover(); r != nil {
					if a.Log != nil {
						a.Log.Error("Job handler panic", "job_id", id, "job_type", job.JobType, "panic", r)
					}
					jc.Fail("panic", jobrt.Permanent(fmt.Errorf("panic: %v", r)))
				}
			}()
			if runErr := h.Run(jc); runErr != nil {
				if job.Status != types.JobStatusFailed {
					jc.Fail("run", runErr)
				}
				return
			}
			returnedNil = true
		}()
	}

	updated, err := a.Jobs.GetByID(dbctx.Context{Ctx: ctx, Tx: a.DB}, id)
	if err != nil {
		return res, err
	}
	if updated == nil {
		return res, fmt.Errorf("jobrun: job not found after tick")
	}
	// A handler that returns nil without a terminal status would otherwise
	// leave the row running forever.
	if returnedNil && updated.Status == types.JobStatusRunning {
		if a.Log != nil {
			a.Log.Warn("Job handler returned nil without terminal status; marking succeeded", "job_id", id, "job_type", updated.JobType)
		}
		jc.Succeed(finalStage(updated.Stage), nil)
		if again, rerr := a.Jobs.GetByID(dbctx.Context{Ctx: ctx, Tx: a.DB}, id); rerr == nil && again != nil {
			updated = again
		}
	}
	a.fill(&res, updated)
	return res, nil
}

func (a *Activities) runnable(job *types.JobRun) bool {
	switch job.Status {
	case types.JobStatusQueued, types.JobStatusRunning:
		return true
	case types.JobStatusFailed:
		return a.MaxAttempts > 0 && job.Attempts < a.MaxAttempts
	default:
		return false
	}
}

func (a *Activities) fill(res *TickResult, job *types.JobRun) {
	res.Status = job.Status
	res.Retryable = job.Status == types.JobStatusFailed && a.runnable(job)
	res.Stage = job.Stage
	res.Progress = job.Progress
	res.Message = job.Message
}

func finalStage(stage string) string {
	s := strings.TrimSpace(stage)
	if s == "" || strings.EqualFold(s, "queued") || strings.EqualFold(s, "running") {
		return "done"
	}
	return s
}

func (a *Activities) startHeartbeat(ctx context.Context, jobID uuid.UUID) func() {
	beat := a.heartbeat
	if beat == nil {
		beat = func(ctx context.Context) { activity.RecordHeartbeat(ctx) }
	}
	done := make(chan struct{})
	go func() {
		temporalHB := time.NewTicker(10 * time.Second)
		defer temporalHB.Stop()
		dbHB := time.NewTicker(30 * time.Second)
		defer dbHB.Stop()
		for {
			select {
			case <-done:
				return
			case <-ctx.Done():
				return
			case <-temporalHB.C:
				beat(ctx)
			case <-dbHB.C:
				_ = a.Jobs.Heartbeat(dbctx.Context{Ctx: ctx, Tx: a.DB}, jobID)
			}
		}
	}()
	return func() { close(done) }
}
