package retriever

import (
	"context"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/platform/dbctx"
	"github.com/yungbote/draftbridge-backend/internal/platform/logger"
	"github.com/yungbote/draftbridge-backend/internal/rag/vectorindex"
)

const DefaultK = 5

// QueryEmbedder is satisfied by *embedder.Embedder.
type QueryEmbedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// ChunkSource is satisfied by repos.ChunkRepo.
type ChunkSource interface {
	ListEmbeddedForCourse(dbc dbctx.Context, courseID uuid.UUID) ([]*types.Chunk, error)
}

// Scope selects the corpus: every processed material of every assignment
// in the course.
type Scope struct {
	CourseID uuid.UUID
}

type ScoredChunk struct {
	Chunk *types.Chunk
	Score float64
}

type Retriever struct {
	log      *logger.Logger
	embedder QueryEmbedder
	chunks   ChunkSource
}

func New(log *logger.Logger, embedder QueryEmbedder, chunks ChunkSource) *Retriever {
	return &Retriever{
		log:      log.With("component", "Retriever"),
		embedder: embedder,
		chunks:   chunks,
	}
}

// Retrieve ranks the scope's chunks against query. Failures only
// impoverish the result: an empty scope, an embedding failure or a load
// failure all return an empty slice.
func (r *Retriever) Retrieve(ctx context.Context, query string, scope Scope, k int) []ScoredChunk {
	ctx, span := otel.Tracer("draftbridge/rag").Start(ctx, "retriever.Retrieve")
	defer span.End()
	span.SetAttributes(attribute.String("course_id", scope.CourseID.String()))

	if k <= 0 {
		k = DefaultK
	}
	out := []ScoredChunk{}
	if scope.CourseID == uuid.Nil {
		return out
	}

	rows, err := r.chunks.ListEmbeddedForCourse(dbctx.Context{Ctx: ctx}, scope.CourseID)
	if err != nil {
		r.log.Warn("load chunks failed", "course_id", scope.CourseID, "error", err)
		return out
	}
	if len(rows) == 0 {
		r.log.Info("no embedded chunks in scope", "course_id", scope.CourseID)
		return out
	}

	qv, err := r.embedder.Embed(ctx, query)
	if err != nil {
		r.log.Warn("query embedding failed", "course_id", scope.CourseID, "error", err)
		return out
	}

	idx := vectorindex.New(len(qv))
	byID := make(map[uuid.UUID]*types.Chunk, len(rows))
	skipped := 0
	for _, c := range rows {
		vec, err := c.Vector()
		if err != nil || len(vec) != len(qv) {
			skipped++
			continue
		}
		if err := idx.Add(c.ID, vec); err != nil {
			skipped++
			continue
		}
		byID[c.ID] = c
	}
	if skipped > 0 {
		r.log.Warn("skipped chunks with unusable vectors", "course_id", scope.CourseID, "skipped", skipped, "dim", len(qv))
	}

	hits, err := idx.Search(qv, k)
	if err != nil {
		r.log.Warn("search failed", "error", err)
		return out
	}
	for _, h := range hits {
		out = append(out, ScoredChunk{Chunk: byID[h.ID], Score: h.Score})
	}
	span.SetAttributes(attribute.Int("hits", len(out)), attribute.Int("corpus", idx.Len()))
	return out
}
