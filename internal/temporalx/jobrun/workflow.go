package jobrun

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"go.temporal.io/sdk/temporal"
	"go.temporal.io/sdk/workflow"
)

// Workflow drives one job_run row; the workflow ID is the job ID. A failed
// tick fails the workflow so its retry policy can schedule another run.
func Workflow(ctx workflow.Context) error {
	jobID := strings.TrimSpace(workflow.GetInfo(ctx).WorkflowExecution.ID)
	if jobID == "" {
		return fmt.Errorf("jobrun: missing job_id")
	}

	const (
		pollInterval         = 2 * time.Second
		continueTickLimit    = 2000
		continueHistoryLimit = 15000
	)

	ctx = workflow.WithActivityOptions(ctx, workflow.ActivityOptions{
		StartToCloseTimeout: 24 * time.Hour,
		HeartbeatTimeout:    30 * time.Second,
	})

	for ticks := 1; ; ticks++ {
		var out TickResult
		if err := workflow.ExecuteActivity(ctx, ActivityTick, jobID).Get(ctx, &out); err != nil {
			return err
		}
		switch strings.ToLower(strings.TrimSpace(out.Status)) {
		case "succeeded", "canceled":
			return nil
		case "failed":
			msg := fmt.Sprintf("job failed (stage=%s)", strings.TrimSpace(out.Stage))
			if !out.Retryable {
				return temporal.NewNonRetryableApplicationError(msg, "JobFailed", nil)
			}
			return errors.New(msg)
		}
		if err := workflow.Sleep(ctx, pollInterval); err != nil {
			return err
		}
		if ticks >= continueTickLimit || workflow.GetInfo(ctx).GetCurrentHistoryLength() >= continueHistoryLimit {
			return workflow.NewContinueAsNewError(ctx, Workflow)
		}
	}
}
