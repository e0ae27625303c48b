// Package pipeline holds what the stage handlers share: failure recording
// and the skip path for entities already past a handler's stage.
package pipeline

import (
	"fmt"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	jobrt "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/services"
)

// FailMaterial moves m to error, re-evaluates the barrier and fails the job
// without retry.
func FailMaterial(jc *jobrt.Context, orch *services.Orchestrator, m *types.Material, stage string, cause error) error {
	err := jobrt.Permanent(orch.FailMaterial(jc.Ctx, m, stage, cause))
	jc.Fail(stage, err)
	return err
}

func FailAssignment(jc *jobrt.Context, orch *services.Orchestrator, a *types.Assignment, stage string, cause error) error {
	err := jobrt.Permanent(orch.FailAssignment(jc.Ctx, a, stage, cause))
	jc.Fail(stage, err)
	return err
}

// Invalid fails the job for a payload it can never run.
func Invalid(jc *jobrt.Context, err error) error {
	err = jobrt.Permanent(err)
	jc.Fail("validate", err)
	return err
}

// Skip succeeds the job without doing work: the entity moved on or away.
func Skip(jc *jobrt.Context, entity string, status string) {
	jc.Succeed("skipped", map[string]any{
		"skipped": true,
		"reason":  fmt.Sprintf("%s is %s", entity, status),
	})
}

func FirstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
