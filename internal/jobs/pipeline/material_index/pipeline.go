package material_index

import (
	"encoding/json"
	"errors"
	"fmt"

	"gorm.io/datatypes"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/ingestion/chunker"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline"
	jobrt "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
)

var errMoved = errors.New("material left chunking")

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
	if m.Status != types.MaterialChunking && m.Status != types.MaterialEmbedding {
		pipeline.Skip(jc, "material", string(m.Status))
		return nil
	}

	doc, err := p.documents.GetByMaterialID(dbc, m.ID)
	if err != nil {
		return err
	}
	if doc == nil {
		return pipeline.FailMaterial(jc, p.orch, m, "chunk", errors.New("material has no document"))
	}

	if m.Status == types.MaterialChunking {
		jc.Progress("chunk", 10, "Splitting text into chunks")
		n, err := p.chunkDocument(jc, m, doc)
		if errors.Is(err, errMoved) {
			pipeline.Skip(jc, "material", "no longer chunking")
			return nil
		}
		if err != nil {
			return pipeline.FailMaterial(jc, p.orch, m, "chunk", err)
		}
		p.log.Debug("material chunked", "material_id", m.ID, "chunks", n)
	}

	jc.Progress("embed", 40, "Embedding chunks")
	total, embedded, failed, err := p.embedDocument(jc, doc)
	if err != nil {
		return pipeline.FailMaterial(jc, p.orch, m, "embed", err)
	}
	if failed > 0 {
		p.log.Warn("some chunks were not embedded", "material_id", m.ID, "failed", failed, "total", total)
	}

	moved, err := p.orch.MoveMaterial(dbc, m, types.MaterialProcessed, map[string]interface{}{"error": ""})
	if err != nil {
		return err
	}
	if !moved {
		pipeline.Skip(jc, "material", "no longer embedding")
		return nil
	}
	fired, err := p.orch.MaterialsSettled(jc.Ctx, m.AssignmentID)
	if err != nil {
		p.log.Warn("barrier evaluation failed", "assignment_id", m.AssignmentID, "error", err)
	}
	jc.Succeed("done", map[string]any{
		"material_id":     m.ID.String(),
		"chunks_total":    total,
		"chunks_embedded": embedded,
		"chunks_failed":   failed,
		"materials_ready": fired,
	})
	return nil
}

// chunkDocument replaces the document's chunks and moves the material to
// embedding in one transaction. If another writer moved the material first
// the new chunk set is rolled back.
func (p *Pipeline) chunkDocument(jc *jobrt.Context, m *types.Material, doc *types.Document) (int, error) {
	texts := chunker.Chunk(doc.Text, p.opts)
	if len(texts) == 0 {
		return 0, errors.New("document produced no chunks")
	}
	rows := make([]*types.Chunk, 0, len(texts))
	for i, text := range texts {
		meta, _ := json.Marshal(map[string]any{"page_estimate": i / 2})
		rows = append(rows, &types.Chunk{Text: text, Metadata: datatypes.JSON(meta)})
	}
	err := p.orch.InTx(jc.Ctx, func(txc dbctx.Context) error {
		if _, err := p.chunks.ReplaceForDocument(txc, doc.ID, rows); err != nil {
			return err
		}
		ok, err := p.orch.MoveMaterial(txc, m, types.MaterialEmbedding, nil)
		if err != nil {
			return err
		}
		if !ok {
			return errMoved
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return len(rows), nil
}

// embedDocument embeds the chunks that still lack a vector. A partial
// failure is tolerated as long as at least one chunk ends up embedded.
func (p *Pipeline) embedDocument(jc *jobrt.Context, doc *types.Document) (total, embedded, failed int, err error) {
	dbc := jc.DBC()
	rows, err := p.chunks.ListByDocument(dbc, doc.ID)
	if err != nil {
		return 0, 0, 0, err
	}
	total = len(rows)
	if total == 0 {
		return 0, 0, 0, errors.New("document has no chunks")
	}
	var pending []*types.Chunk
	for _, c := range rows {
		if c.Embedded() {
			embedded++
			continue
		}
		pending = append(pending, c)
	}
	if len(pending) == 0 {
		return total, embedded, 0, nil
	}

	texts := make([]string, len(pending))
	for i, c := range pending {
		texts[i] = c.Text
	}
	res := p.embed.EmbedEach(jc.Ctx, texts)
	for i, c := range pending {
		if res.Errs[i] != nil {
			failed++
			continue
		}
		if serr := p.chunks.SetEmbedding(dbc, c.ID, res.Vectors[i], p.embed.ModelName()); serr != nil {
			return total, embedded, failed, fmt.Errorf("store embedding: %w", serr)
		}
		embedded++
		if embedded%16 == 0 {
			jc.Progress("embed", 40+55*embedded/total, fmt.Sprintf("Embedded %d of %d chunks", embedded, total))
		}
	}
	if embedded == 0 {
		return total, 0, failed, fmt.Errorf("no chunk could be embedded: %w", res.FirstError())
	}
	return total, embedded, failed, nil
}
