package draft_generate

import (
	"errors"
	"fmt"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline"
	jobrt "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/rag/drafting"
	"github.com/yungbote/draftbridge-backend/internal/rag/retriever"
)

var errMoved = errors.New("assignment left generating_draft")

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	id, ok := jc.EntityID("assignment_id")
	if !ok {
		return pipeline.Invalid(jc, fmt.Errorf("missing assignment_id"))
	}
	a, err := p.orch.Assignments().GetByID(jc.DBC(), id)
	if err != nil {
		return err
	}
	if a == nil {
		return pipeline.Invalid(jc, fmt.Errorf("assignment %s not found", id))
	}
	if a.Status != types.AssignmentGeneratingDraft {
		pipeline.Skip(jc, "assignment", string(a.Status))
		return nil
	}

	ctx, span := otel.Tracer("draftbridge/jobs").Start(jc.Ctx, "draft_generate.Run")
	defer span.End()
	span.SetAttributes(attribute.String("assignment_id", a.ID.String()))

	jc.Progress("retrieve", 10, "Retrieving course material")
	hits := p.search.Retrieve(ctx, a.Query(), retriever.Scope{CourseID: a.CourseID}, p.topK)
	if len(hits) == 0 {
		p.log.Warn("no chunks retrieved; generating without material", "assignment_id", a.ID, "course_id", a.CourseID)
	}
	sections := make([]string, 0, len(hits))
	refs := make([]*types.DraftChunk, 0, len(hits))
	for i, h := range hits {
		sections = append(sections, h.Chunk.Text)
		refs = append(refs, &types.DraftChunk{ChunkID: h.Chunk.ID, Rank: i, Score: h.Score})
	}

	jc.Progress("generate", 30, "Generating draft")
	out, err := p.gen.Generate(ctx, drafting.PromptInput{
		Title:        a.Title,
		Instructions: a.Description,
		Sections:     sections,
	})
	if err != nil {
		return pipeline.FailAssignment(jc, p.orch, a, "generate", err)
	}

	jc.Progress("persist", 90, "Saving draft")
	draft := &types.Draft{
		AssignmentID:     a.ID,
		GeneratedContent: out.Content,
		PromptUsed:       out.Prompt,
		Model:            p.gen.ModelName(),
	}
	err = p.orch.InTx(ctx, func(txc dbctx.Context) error {
		if _, err := p.drafts.Create(txc, draft, refs); err != nil {
			return err
		}
		ok, err := p.orch.MoveAssignment(txc, a, types.AssignmentDraftReady, map[string]interface{}{"error": ""})
		if err != nil {
			return err
		}
		if !ok {
			return errMoved
		}
		return nil
	})
	if errors.Is(err, errMoved) {
		pipeline.Skip(jc, "assignment", "no longer generating_draft")
		return nil
	}
	if err != nil {
		return pipeline.FailAssignment(jc, p.orch, a, "persist", err)
	}

	p.log.Info("draft ready", "assignment_id", a.ID, "draft_id", draft.ID, "chunks", len(refs))
	jc.Succeed("done", map[string]any{
		"assignment_id": a.ID.String(),
		"draft_id":      draft.ID.String(),
		"chunks":        len(refs),
		"model":         draft.Model,
	})
	return nil
}
