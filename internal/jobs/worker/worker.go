package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"gorm.io/gorm"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/envutil"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

type Config struct {
	Concurrency  int
	PollInterval time.Duration
	MaxAttempts  int
	RetryDelay   time.Duration
	StaleRunning time.Duration
}

func ConfigFromEnv(log *logger.Logger) Config {
	return Config{
		Concurrency:  envutil.Int("WORKER_CONCURRENCY", 4, log),
		PollInterval: envutil.Millis("WORKER_POLL_INTERVAL_MS", time.Second),
		MaxAttempts:  envutil.Int("JOB_MAX_ATTEMPTS", 5, log),
		RetryDelay:   envutil.Seconds("JOB_RETRY_DELAY_SECONDS", 30*time.Second),
		StaleRunning: envutil.Seconds("JOB_STALE_RUNNING_SECONDS", 30*time.Minute),
	}
}

func (c Config) withDefaults() Config {
	if c.Concurrency < 1 {
		c.Concurrency = 1
	}
	if c.PollInterval <= 0 {
		c.PollInterval = time.Second
	}
	if c.MaxAttempts < 1 {
		c.MaxAttempts = 1
	}
	if c.StaleRunning <= 0 {
		c.StaleRunning = 30 * time.Minute
	}
	return c
}

// Worker polls job_run for claimable rows. It is the dispatcher when no
// Temporal cluster is configured.
type Worker struct {
	db       *gorm.DB
	log      *logger.Logger
	repo     repos.JobRunRepo
	registry *runtime.Registry
	notify   services.JobNotifier
	entities runtime.EntityFailer
	cfg      Config
	wg       sync.WaitGroup
}

// NewWorker builds the polling dispatcher. entities may be nil; when set, a
// job's material or assignment is moved to error once the job is out of
// attempts.
func NewWorker(db *gorm.DB, baseLog *logger.Logger, repo repos.JobRunRepo, registry *runtime.Registry, notify services.JobNotifier, entities runtime.EntityFailer, cfg Config) *Worker {
	return &Worker{
		db:       db,
		log:      baseLog.With("component", "JobWorker"),
		repo:     repo,
		registry: registry,
		notify:   notify,
		entities: entities,
		cfg:      cfg.withDefaults(),
	}
}

func (w *Worker) Start(ctx context.Context) {
	w.log.Info("Starting job worker pool", "concurrency", w.cfg.Concurrency, "max_attempts", w.cfg.MaxAttempts)
	for i := 0; i < w.cfg.Concurrency; i++ {
		workerID := i + 1
		w.wg.Add(1)
		go func() {
			defer w.wg.Done()
			w.runLoop(ctx, workerID)
		}()
	}
}

// Wait blocks until every loop has observed ctx cancellation.
func (w *Worker) Wait() { w.wg.Wait() }

func (w *Worker) runLoop(ctx context.Context, workerID int) {
	ticker := time.NewTicker(w.cfg.PollInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			w.log.Info("Worker loop stopped", "worker_id", workerID)
			return
		case <-ticker.C:
			// Drain everything claimable before sleeping again.
			for w.RunOnce(ctx) {
				if ctx.Err() != nil {
					return
				}
			}
		}
	}
}

// RunOnce claims and executes at most one job. It reports whether a job was
// claimed.
func (w *Worker) RunOnce(ctx context.Context) bool {
	job, err := w.repo.ClaimNextRunnable(dbctx.Context{Ctx: ctx, Tx: w.db}, w.cfg.MaxAttempts, w.cfg.RetryDelay, w.cfg.StaleRunning)
	if err != nil {
		w.log.Warn("ClaimNextRunnable failed", "error", err)
		return false
	}
	if job == nil {
		return false
	}

	jc := runtime.NewContext(ctx, w.db, job, w.repo, w.notify)
	jc.MaxAttempts = w.cfg.MaxAttempts
	jc.Entities = w.entities
	h, ok := w.registry.Get(job.JobType)
	if !ok {
		w.log.Warn("No handler registered for job_type", "job_type", job.JobType, "job_id", job.ID)
		jc.Fail("dispatch", runtime.Permanent(&missingHandlerError{JobType: job.JobType}))
		return true
	}

	func() {
		defer func() {
			if r := recover(); r != nil {
				w.log.Error("Job handler panic", "job_id", job.ID, "job_type", job.JobType, "panic", r)
				jc.Fail("panic", runtime.Permanent(&panicError{Val: r}))
			}
		}()
		if runErr := h.Run(jc); runErr != nil {
			// Handlers usually fail the job themselves; this covers the rest.
			if job.Status != types.JobStatusFailed {
				jc.Fail("run", runErr)
			}
			return
		}
		if job.Status == types.JobStatusRunning {
			jc.Succeed("done", nil)
		}
	}()
	return true
}

type missingHandlerError struct{ JobType string }

func (e *missingHandlerError) Error() string { return "no handler registered for job_type=" + e.JobType }

type panicError struct{ Val any }

func (e *panicError) Error() string { return fmt.Sprintf("panic: %v", e.Val) }
