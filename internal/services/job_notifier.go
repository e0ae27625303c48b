package services

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/yungbote/draftbridge-backend/internal/data/repos"
	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/realtime"
	"github.com/yungbote/draftbridge-backend/internal/realtime/bus"
)

type JobNotifier interface {
	JobCreated(job *types.JobRun)
	JobProgress(job *types.JobRun, stage string, progress int, message string)
	JobFailed(job *types.JobRun, stage string, errorMessage string)
	JobDone(job *types.JobRun)
}

// StatusNotifier announces entity status changes on the assignment channel.
type StatusNotifier interface {
	StatusChanged(assignmentID uuid.UUID, entityType string, entityID uuid.UUID, status string, reason string)
}

type Notifier interface {
	JobNotifier
	StatusNotifier
}

type notifier struct {
	log    *logger.Logger
	bus    bus.Bus
	events repos.JobRunEventRepo
}

// NewNotifier appends a job_run_event row for each job change and publishes
// every change on the bus. Publishing is best effort.
func NewNotifier(baseLog *logger.Logger, b bus.Bus, events repos.JobRunEventRepo) Notifier {
	return &notifier{log: baseLog.With("service", "Notifier"), bus: b, events: events}
}

func (n *notifier) JobCreated(job *types.JobRun) {
	n.record(job, types.JobEventCreated, job.Stage, job.Progress, job.Message)
	n.publish(jobChannel(job), realtime.EventJobCreated, map[string]any{"job": job})
}

func (n *notifier) JobProgress(job *types.JobRun, stage string, progress int, message string) {
	n.record(job, types.JobEventProgress, stage, progress, message)
	n.publish(jobChannel(job), realtime.EventJobProgress, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"progress": progress,
		"message":  message,
	})
}

func (n *notifier) JobFailed(job *types.JobRun, stage string, errorMessage string) {
	n.record(job, types.JobEventFailed, stage, job.Progress, errorMessage)
	n.publish(jobChannel(job), realtime.EventJobFailed, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
		"stage":    stage,
		"error":    errorMessage,
	})
}

func (n *notifier) JobDone(job *types.JobRun) {
	n.record(job, types.JobEventSucceeded, job.Stage, 100, "")
	n.publish(jobChannel(job), realtime.EventJobDone, map[string]any{
		"job_id":   job.ID,
		"job_type": job.JobType,
	})
}

func (n *notifier) StatusChanged(assignmentID uuid.UUID, entityType string, entityID uuid.UUID, status string, reason string) {
	data := map[string]any{
		"entity_type": entityType,
		"entity_id":   entityID,
		"status":      status,
	}
	if reason != "" {
		data["error"] = reason
	}
	n.publish(assignmentID.String(), realtime.EventStatusChanged, data)
}

func (n *notifier) record(job *types.JobRun, kind types.JobEventKind, stage string, progress int, message string) {
	if n.events == nil || job == nil || job.ID == uuid.Nil {
		return
	}
	ev := &types.JobRunEvent{
		JobID:      job.ID,
		JobType:    job.JobType,
		EntityType: job.EntityType,
		EntityID:   job.EntityID,
		Kind:       kind,
		Status:     job.Status,
		Stage:      stage,
		Progress:   progress,
		Message:    message,
	}
	if err := n.events.Append(dbctx.Context{Ctx: context.Background()}, ev); err != nil {
		n.log.Warn("job event append failed", "job_id", job.ID, "kind", kind, "error", err)
	}
}

func (n *notifier) publish(channel string, typ realtime.EventType, data map[string]any) {
	if n.bus == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	if err := n.bus.Publish(ctx, realtime.Event{Channel: channel, Type: typ, Data: data, At: time.Now().UTC()}); err != nil {
		n.log.Warn("event publish failed", "channel", channel, "type", typ, "error", err)
	}
}

func jobChannel(job *types.JobRun) string {
	if job == nil {
		return ""
	}
	if job.AssignmentID != uuid.Nil {
		return job.AssignmentID.String()
	}
	if job.EntityID != nil {
		return job.EntityID.String()
	}
	return job.ID.String()
}
