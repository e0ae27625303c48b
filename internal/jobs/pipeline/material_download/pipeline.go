package material_download

import (
	"errors"
	"fmt"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/ingestion/extractor"
	"github.com/yungbote/draftbridge-backend/internal/jobs/pipeline"
	jobrt "github.com/yungbote/draftbridge-backend/internal/jobs/runtime"
	"github.com/yungbote/draftbridge-backend/internal/platform/gcp"
	"github.com/yungbote/draftbridge-backend/internal/platform/objectstore"
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
	case types.MaterialPending:
		moved, err := p.orch.MoveMaterial(dbc, m, types.MaterialDownloading, nil)
		if err != nil {
			return err
		}
		if !moved {
			pipeline.Skip(jc, "material", "no longer pending")
			return nil
		}
	case types.MaterialDownloading:
		// resumed after a crash or a stale claim
	default:
		pipeline.Skip(jc, "material", string(m.Status))
		return nil
	}

	jc.Progress("download", 10, "Downloading material")
	blob, err := p.sources.Fetch(jc.Ctx, m.SourceRef)
	if err != nil {
		return pipeline.FailMaterial(jc, p.orch, m, "download", err)
	}
	if blob == nil || len(blob.Data) == 0 {
		return pipeline.FailMaterial(jc, p.orch, m, "download", errors.New("source returned an empty file"))
	}

	name := pipeline.FirstNonEmpty(m.OriginalName, blob.Name, m.Title)
	mime := pipeline.FirstNonEmpty(blob.MimeType, m.MimeType, gcp.ContentTypeForKey(name))
	key := objectstore.MaterialKey(m.ID, name)

	jc.Progress("store", 60, "Caching material bytes")
	if err := p.store.Put(jc.Ctx, key, mime, blob.Data); err != nil {
		return pipeline.FailMaterial(jc, p.orch, m, "store", err)
	}

	moved, err := p.orch.MoveMaterial(dbc, m, types.MaterialDownloaded, map[string]interface{}{
		"storage_key":   key,
		"size_bytes":    int64(len(blob.Data)),
		"mime_type":     mime,
		"original_name": name,
		"format":        string(extractor.FormatFor(name)),
	})
	if err != nil {
		return err
	}
	if !moved {
		pipeline.Skip(jc, "material", "no longer downloading")
		return nil
	}
	p.log.Info("material downloaded", "material_id", m.ID, "bytes", len(blob.Data), "key", key)

	if _, err := p.orch.EnqueueMaterialStage(dbc, m, types.JobTypeMaterialExtract); err != nil {
		return pipeline.FailMaterial(jc, p.orch, m, "enqueue", err)
	}
	jc.Succeed("done", map[string]any{
		"material_id": m.ID.String(),
		"storage_key": key,
		"size_bytes":  len(blob.Data),
	})
	return nil
}
