package material_extract

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline"
	jobrt "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
)

func (p *Pipeline) Run(jc *jobrt.Context) error {
	if jc == nil || jc.Job == nil {
		return nil
	}
	id, ok := jc.EntityID("material_id")
	if !ok {
		return pipeline.Invalid(jc, fmt.Errorf("missing material_id"))
	}
	dbc := jc.DBC()
	m, err := p.orch.Materials().GetByID(dbc, id)
	if err != nil {
		return err
	}
	if m == nil {
		return pipeline.Invalid(jc, fmt.Errorf("material %s not found", id))
	}

	switch m.Status {
	case types.MaterialDownloaded:
		moved, err := p.orch.MoveMaterial(dbc, m, types.MaterialProcessing, nil)
		if err != nil {
			return err
		}
		if !moved {
			pipeline.Skip(jc, "material", "no longer downloaded")
			return nil
		}
	case types.MaterialProcessing:
	default:
		pipeline.Skip(jc, "material", string(m.Status))
		return nil
	}

	if m.StorageKey == "" {
		return pipeline.FailMaterial(jc, p.orch, m, "extract", errors.New("material has no cached bytes"))
	}
	jc.Progress("extract", 10, "Loading material bytes")
	data, _, err := p.store.Get(jc.Ctx, m.StorageKey)
	if err != nil {
		return pipeline.FailMaterial(jc, p.orch, m, "extract", fmt.Errorf("load %s: %w", m.StorageKey, err))
	}

	jc.Progress("extract", 30, "Extracting text")
	name := pipeline.FirstNonEmpty(m.OriginalName, m.Title)
	res := p.extract.Extract(jc.Ctx, data, name)
	if res.Failed() {
		return pipeline.FailMaterial(jc, p.orch, m, "extract", errors.New(res.Error()))
	}
	if strings.TrimSpace(res.Text) == "" {
		return pipeline.FailMaterial(jc, p.orch, m, "extract", errors.New("no text could be extracted"))
	}

	meta := res.Metadata
	if meta == nil {
		meta = map[string]string{}
	}
	doc := &types.Document{
		MaterialID:  m.ID,
		Text:        res.Text,
		TextHash:    types.HashText(res.Text),
		PageCount:   res.PageCount,
		Metadata:    datatypes.NewJSONType(meta),
		ProcessedAt: time.Now(),
	}
	var changed bool
	err = p.db.WithContext(jc.Ctx).Transaction(func(tx *gorm.DB) error {
		txc := dbctx.Context{Ctx: jc.Ctx, Tx: tx}
		var uerr error
		changed, uerr = p.documents.Upsert(txc, doc)
		if uerr != nil {
			return uerr
		}
		// New text invalidates every chunk cut from the old text.
		if changed {
			return p.chunks.DeleteByDocument(txc, doc.ID)
		}
		return nil
	})
	if err != nil {
		return pipeline.FailMaterial(jc, p.orch, m, "extract", fmt.Errorf("store document: %w", err))
	}

	moved, err := p.orch.MoveMaterial(dbc, m, types.MaterialChunking, map[string]interface{}{"error": ""})
	if err != nil {
		return err
	}
	if !moved {
		pipeline.Skip(jc, "material", "no longer processing")
		return nil
	}
	p.log.Info("material extracted",
		"material_id", m.ID,
		"chars", len(res.Text),
		"pages", res.PageCount,
		"method", meta["extraction_method"],
		"text_changed", changed,
	)

	if _, err := p.orch.EnqueueMaterialStage(dbc, m, types.JobTypeMaterialIndex); err != nil {
		return pipeline.FailMaterial(jc, p.orch, m, "enqueue", err)
	}
	jc.Succeed("done", map[string]any{
		"material_id":  m.ID.String(),
		"document_id":  doc.ID.String(),
		"page_count":   res.PageCount,
		"text_changed": changed,
	})
	return nil
}
