package testutil

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	types "github.com/yungbote/draftbridge-backend/internal/domain"
	"github.com/yungbote/draftbridge-backend/internal/domain/materials"
)

func SeedAssignment(tb testing.TB, ctx context.Context, tx *gorm.DB, courseID uuid.UUID, status types.AssignmentStatus) *types.Assignment {
	tb.Helper()
	a := &types.Assignment{
		ID:          uuid.New(),
		CourseID:    courseID,
		OwnerUserID: uuid.New(),
		Title:       "Essay on photosynthesis",
		Description: "Explain the light dependent reactions.",
		Status:      status,
	}
	if err := tx.WithContext(ctx).Create(a).Error; err != nil {
		tb.Fatalf("seed assignment: %v", err)
	}
	return a
}

func SeedMaterial(tb testing.TB, ctx context.Context, tx *gorm.DB, assignmentID uuid.UUID, status types.MaterialStatus) *types.Material {
	tb.Helper()
	m := &types.Material{
		ID:           uuid.New(),
		AssignmentID: assignmentID,
		Title:        "lecture notes",
		SourceRef:    "https://example.com/notes.txt",
		OriginalName: "notes.txt",
		Format:       materials.FormatText,
		Status:       status,
	}
	if err := tx.WithContext(ctx).Create(m).Error; err != nil {
		tb.Fatalf("seed material: %v", err)
	}
	return m
}

func SeedDocument(tb testing.TB, ctx context.Context, tx *gorm.DB, materialID uuid.UUID, text string) *types.Document {
	tb.Helper()
	d := &types.Document{
		ID:         uuid.New(),
		MaterialID: materialID,
		Text:       text,
		TextHash:   types.HashText(text),
		PageCount:  1,
		Metadata:   datatypes.NewJSONType(map[string]string{}),
	}
	if err := tx.WithContext(ctx).Create(d).Error; err != nil {
		tb.Fatalf("seed document: %v", err)
	}
	return d
}

// SeedChunk stores a chunk with vec as its embedding; nil vec leaves it unembedded.
func SeedChunk(tb testing.TB, ctx context.Context, tx *gorm.DB, documentID uuid.UUID, ordinal int, text string, vec []float32) *types.Chunk {
	tb.Helper()
	c := &types.Chunk{
		ID:         uuid.New(),
		DocumentID: documentID,
		Ordinal:    ordinal,
		Text:       text,
		Metadata:   datatypes.JSON([]byte("{}")),
	}
	if vec != nil {
		raw, err := materials.EncodeVector(vec)
		if err != nil {
			tb.Fatalf("encode vector: %v", err)
		}
		c.Embedding = raw
		c.Dim = len(vec)
		c.EmbeddingModel = "test"
	}
	if err := tx.WithContext(ctx).Create(c).Error; err != nil {
		tb.Fatalf("seed chunk: %v", err)
	}
	return c
}
