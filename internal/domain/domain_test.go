package domain

import (
	"errors"
	"testing"

	"github.com/yungbote/draftbridge-backend/internal/domain/assignments"
	"github.com/yungbote/draftbridge-backend/internal/domain/materials"
)

func TestMaterialTransitions(t *testing.T) {
	cases := []struct {
		from, to MaterialStatus
		ok       bool
	}{
		{MaterialPending, MaterialDownloading, true},
		{MaterialDownloading, MaterialDownloaded, true},
		{MaterialEmbedding, MaterialProcessed, true},
		{MaterialChunking, MaterialError, true},
		{MaterialPending, MaterialProcessed, false},
		{MaterialProcessed, MaterialError, false},
		{MaterialError, MaterialProcessed, false},
		{MaterialProcessed, MaterialPending, true},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: want %v got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestAssignmentTransitions(t *testing.T) {
	cases := []struct {
		from, to AssignmentStatus
		ok       bool
	}{
		{AssignmentNew, AssignmentSyncing, true},
		{AssignmentSyncing, AssignmentMaterialsReady, true},
		{AssignmentProcessing, AssignmentMaterialsReady, true},
		{AssignmentError, AssignmentGeneratingDraft, true},
		{AssignmentError, AssignmentSyncing, true},
		{AssignmentDraftReady, AssignmentUserReviewing, true},
		{AssignmentNew, AssignmentDraftReady, false},
		{AssignmentSubmitted, AssignmentError, false},
		{AssignmentDraftReady, AssignmentSubmitted, false},
	}
	for _, tc := range cases {
		if got := tc.from.CanTransition(tc.to); got != tc.ok {
			t.Fatalf("%s -> %s: want %v got %v", tc.from, tc.to, tc.ok, got)
		}
	}
}

func TestTransitionErrorMatchesSentinel(t *testing.T) {
	err := assignments.AssignmentTransitions.Check("assignment", AssignmentNew, AssignmentSubmitted)
	if err == nil {
		t.Fatalf("expected error")
	}
	if !errors.Is(err, ErrInvalidTransition) {
		t.Fatalf("expected ErrInvalidTransition, got %v", err)
	}
	if err := materials.MaterialTransitions.Check("material", MaterialPending, MaterialDownloading); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestNonTerminalStatusLists(t *testing.T) {
	nt := materials.NonTerminalMaterialStatuses()
	if len(nt) != 6 {
		t.Fatalf("want 6 non-terminal material statuses, got %v", nt)
	}
	for _, s := range nt {
		if MaterialStatus(s).Terminal() {
			t.Fatalf("%s listed as non-terminal", s)
		}
	}
	for _, s := range assignments.NonTerminalAssignmentStatuses() {
		if s == string(AssignmentSubmitted) || s == string(AssignmentError) {
			t.Fatalf("%s listed as non-terminal", s)
		}
	}
}

func TestCanGenerate(t *testing.T) {
	if !AssignmentMaterialsReady.CanGenerate() || !AssignmentError.CanGenerate() {
		t.Fatalf("materials_ready and error must allow generation")
	}
	if AssignmentProcessing.CanGenerate() || AssignmentDraftReady.CanGenerate() {
		t.Fatalf("unexpected generation allowance")
	}
}
