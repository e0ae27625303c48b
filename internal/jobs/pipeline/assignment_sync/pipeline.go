package assignment_sync

import (
	"fmt"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline"
	jobrt "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	id, ok := jc.EntityID("assignment_id")
	if !ok {
		return pipeline.Invalid(jc, fmt.Errorf("missing assignment_id"))
	}
	dbc := jc.DBC()
	a, err := p.orch.Assignments().GetByID(dbc, id)
	if err != nil {
		return err
	}
	if a == nil {
		return pipeline.Invalid(jc, fmt.Errorf("assignment %s not found", id))
	}

	switch a.Status {
	case types.AssignmentNew:
		moved, err := p.orch.MoveAssignment(dbc, a, types.AssignmentSyncing, nil)
		if err != nil {
			return err
		}
		if !moved {
			pipeline.Skip(jc, "assignment", "no longer new")
			return nil
		}
	case types.AssignmentSyncing:
	default:
		pipeline.Skip(jc, "assignment", string(a.Status))
		return nil
	}

	jc.Progress("sync", 10, "Listing materials")
	mats, err := p.orch.Materials().ListByAssignment(dbc, a.ID)
	if err != nil {
		return err
	}

	var pending []*types.Material
	retried := 0
	for _, m := range mats {
		switch m.Status {
		case types.MaterialError:
			moved, err := p.orch.MoveMaterial(dbc, m, types.MaterialPending, map[string]interface{}{"error": ""})
			if err != nil {
				return err
			}
			if moved {
				retried++
				pending = append(pending, m)
			}
		case types.MaterialPending:
			pending = append(pending, m)
		}
	}

	if len(pending) > 0 {
		if _, err := p.orch.MoveAssignment(dbc, a, types.AssignmentProcessing, nil); err != nil {
			return err
		}
		for i, m := range pending {
			if _, err := p.orch.EnqueueMaterialStage(dbc, m, types.JobTypeMaterialDownload); err != nil {
				return pipeline.FailAssignment(jc, p.orch, a, "enqueue", err)
			}
			jc.Progress("sync", 10+80*(i+1)/len(pending), fmt.Sprintf("Queued %d of %d downloads", i+1, len(pending)))
		}
	}

	// Nothing to download, or every download already finished.
	ready, err := p.orch.MaterialsSettled(jc.Ctx, a.ID)
	if err != nil {
		return err
	}
	p.log.Info("assignment synced",
		"assignment_id", a.ID,
		"materials", len(mats),
		"queued", len(pending),
		"retried", retried,
		"materials_ready", ready,
	)
	jc.Succeed("done", map[string]any{
		"assignment_id":   a.ID.String(),
		"materials":       len(mats),
		"queued":          len(pending),
		"retried":         retried,
		"materials_ready": ready,
	})
	return nil
}
