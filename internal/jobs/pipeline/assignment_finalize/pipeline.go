package assignment_finalize

import (
	"errors"
	"fmt"
	"time"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline"
	jobrt "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/objectstore"
)

var errMoved = errors.New("assignment left submitting")

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
	case types.AssignmentUserReviewing, types.AssignmentGeneratingPDF, types.AssignmentSubmitting:
	default:
		pipeline.Skip(jc, "assignment", string(a.Status))
		return nil
	}

	d, err := p.finalDraft(jc, a)
	if err != nil {
		return err
	}
	if d == nil {
		return pipeline.FailAssignment(jc, p.orch, a, "finalize", errors.New("no final draft to submit"))
	}

	if a.Status == types.AssignmentUserReviewing {
		moved, err := p.orch.MoveAssignment(dbc, a, types.AssignmentGeneratingPDF, nil)
		if err != nil {
			return err
		}
		if !moved {
			pipeline.Skip(jc, "assignment", "no longer user_reviewing")
			return nil
		}
	}

	// A resumed submitting run renders again; the stored key is deterministic.
	jc.Progress("render", 20, "Rendering submission")
	content := d.ResolveFinalContent(nil)
	if d.FinalContent != nil && *d.FinalContent != "" {
		content = *d.FinalContent
	}
	art, err := p.finalize.RenderPDF(jc.Ctx, a, d, content)
	if err != nil {
		return pipeline.FailAssignment(jc, p.orch, a, "render", err)
	}
	key := objectstore.SubmissionKey(a.ID, d.ID, art.Ext)
	if err := p.store.Put(jc.Ctx, key, art.ContentType, art.Data); err != nil {
		return pipeline.FailAssignment(jc, p.orch, a, "store", err)
	}

	if a.Status == types.AssignmentGeneratingPDF {
		moved, err := p.orch.MoveAssignment(dbc, a, types.AssignmentSubmitting, nil)
		if err != nil {
			return err
		}
		if !moved {
			pipeline.Skip(jc, "assignment", "no longer generating_pdf")
			return nil
		}
	}

	jc.Progress("submit", 60, "Submitting")
	ref, err := p.finalize.Submit(jc.Ctx, a, key, art)
	if err != nil {
		return pipeline.FailAssignment(jc, p.orch, a, "submit", err)
	}

	now := time.Now().UTC()
	err = p.orch.InTx(jc.Ctx, func(txc dbctx.Context) error {
		if _, err := p.drafts.MarkSubmitted(txc, d.ID, ref, now); err != nil {
			return err
		}
		ok, err := p.orch.MoveAssignment(txc, a, types.AssignmentSubmitted, map[string]interface{}{"submitted_at": now})
		if err != nil {
			return err
		}
		if !ok {
			return errMoved
		}
		return nil
	})
	if errors.Is(err, errMoved) {
		pipeline.Skip(jc, "assignment", "no longer submitting")
		return nil
	}
	if err != nil {
		return pipeline.FailAssignment(jc, p.orch, a, "record", err)
	}

	p.log.Info("assignment submitted", "assignment_id", a.ID, "draft_id", d.ID, "ref", ref)
	jc.Succeed("done", map[string]any{
		"assignment_id":  a.ID.String(),
		"draft_id":       d.ID.String(),
		"storage_key":    key,
		"submission_ref": ref,
	})
	return nil
}

// finalDraft prefers the payload's draft_id and falls back to the
// assignment's final draft.
func (p *Pipeline) finalDraft(jc *jobrt.Context, a *types.Assignment) (*types.Draft, error) {
	if draftID, ok := jc.PayloadUUID("draft_id"); ok {
		d, err := p.drafts.GetByID(jc.DBC(), draftID)
		if err != nil {
			return nil, err
		}
		if d != nil && d.AssignmentID == a.ID && d.IsFinal {
			return d, nil
		}
	}
	return p.drafts.GetFinal(jc.DBC(), a.ID)
}
