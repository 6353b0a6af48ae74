package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/lbansal/face-attendance/internal/store"
)

func TestUpdateSubject_PatchesFields(t *testing.T) {
	m := store.NewMemory()
	m.PutSubject(context.Background(), store.Subject{
		ID: "321654", Name: "Murtaza Hassan", Branch: "R&D", Embedding: []float32{0.1},
	})

	patch := subjectPatch{Name: "Murtaza H.", Branch: "", BranchSet: true}
	if err := updateSubject(context.Background(), m, "321654", patch); err != nil {
		t.Fatalf("updateSubject failed: %v", err)
	}

	got, _ := m.GetSubject(context.Background(), "321654")
	if got.Name != "Murtaza H." {
		t.Errorf("expected renamed subject, got %q", got.Name)
	}
	if got.Branch != "" {
		t.Errorf("expected branch cleared, got %q", got.Branch)
	}
	if len(got.Embedding) != 1 || got.Embedding[0] != 0.1 {
		t.Errorf("expected embedding untouched, got %v", got.Embedding)
	}
}

func TestUpdateSubject_ReplacesEmbedding(t *testing.T) {
	m := store.NewMemory()
	m.PutSubject(context.Background(), store.Subject{
		ID: "321654", Name: "Murtaza Hassan", Embedding: []float32{0.1}, Dim: 1,
	})

	patch := subjectPatch{Embedding: []float32{0.5, 0.5}}
	if err := updateSubject(context.Background(), m, "321654", patch); err != nil {
		t.Fatalf("updateSubject failed: %v", err)
	}

	got, _ := m.GetSubject(context.Background(), "321654")
	if len(got.Embedding) != 2 || got.Dim != 2 {
		t.Errorf("expected 2-dim embedding, got %v dim %d", got.Embedding, got.Dim)
	}
	if got.Name != "Murtaza Hassan" {
		t.Errorf("expected name untouched, got %q", got.Name)
	}
}

func TestUpdateSubject_NotEnrolled(t *testing.T) {
	err := updateSubject(context.Background(), store.NewMemory(), "999", subjectPatch{Name: "x"})
	if err == nil || !strings.Contains(err.Error(), "not enrolled") {
		t.Errorf("expected not-enrolled error, got %v", err)
	}
}
