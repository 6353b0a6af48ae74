package handlers

import (
	"context"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/lbansal/face-attendance/internal/store"
)

// countingGallery records rebuilds so tests can assert refresh behavior.
type countingGallery struct {
	rebuilds int
	subjects int
}

func (g *countingGallery) Rebuild(subjects []store.Subject) error {
	g.rebuilds++
	g.subjects = len(subjects)
	return nil
}

func (g *countingGallery) Len() int { return g.subjects }

func embeddingJSON(dim int) string {
	out := "["
	for i := range dim {
		if i > 0 {
			out += ","
		}
		out += fmt.Sprintf("%g", float32(i)/float32(dim))
	}
	return out + "]"
}

func TestSubjectsPut_EnrollsAndRefreshesGallery(t *testing.T) {
	st := store.NewMemory()
	gallery := &countingGallery{}
	h := NewSubjectsHandler(st, gallery)

	body := `{"name":"Elon Musk","branch":"AI","embedding":` + embeddingJSON(8) + `}`
	req := jsonRequest(t, http.MethodPut, "/subjects/963852", body)
	req = requestWithChiParams(req, map[string]string{"id": "963852"})
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	subj, err := st.GetSubject(context.Background(), "963852")
	if err != nil || subj == nil {
		t.Fatalf("expected subject to be stored, got %v err %v", subj, err)
	}
	if len(subj.Embedding) != 8 {
		t.Errorf("expected 8-dim embedding, got %d", len(subj.Embedding))
	}
	if gallery.rebuilds != 1 {
		t.Errorf("expected 1 gallery rebuild, got %d", gallery.rebuilds)
	}
}

func TestSubjectsPut_MissingName(t *testing.T) {
	h := NewSubjectsHandler(store.NewMemory(), nil)

	body := `{"embedding":` + embeddingJSON(8) + `}`
	req := jsonRequest(t, http.MethodPut, "/subjects/963852", body)
	req = requestWithChiParams(req, map[string]string{"id": "963852"})
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing name, got %d", rec.Code)
	}
}

func TestSubjectsPut_MissingEmbedding(t *testing.T) {
	h := NewSubjectsHandler(store.NewMemory(), nil)

	req := jsonRequest(t, http.MethodPut, "/subjects/963852", `{"name":"Elon Musk"}`)
	req = requestWithChiParams(req, map[string]string{"id": "963852"})
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing embedding, got %d", rec.Code)
	}
}

func TestSubjectsList_HidesEmbeddings(t *testing.T) {
	st := store.NewMemory()
	st.PutSubject(context.Background(), store.Subject{
		ID: "963852", Name: "Elon Musk", Branch: "AI",
		Embedding: []float32{0.1, 0.2, 0.3},
	})
	h := NewSubjectsHandler(st, nil)

	req := httptest.NewRequest(http.MethodGet, "/subjects", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var summaries []map[string]any
	decodeJSON(t, rec, &summaries)
	if len(summaries) != 1 {
		t.Fatalf("expected 1 subject, got %d", len(summaries))
	}
	if _, ok := summaries[0]["embedding"]; ok {
		t.Error("expected embedding to be hidden from list responses")
	}
	if dim, ok := summaries[0]["dim"].(float64); !ok || dim != 3 {
		t.Errorf("expected dim 3, got %v", summaries[0]["dim"])
	}
}

func TestSubjectsList_SearchIgnoresDiacritics(t *testing.T) {
	st := store.NewMemory()
	st.PutSubject(context.Background(), store.Subject{ID: "S001", Name: "Jiří Novák", Embedding: []float32{0.1}})
	st.PutSubject(context.Background(), store.Subject{ID: "S002", Name: "Eva Dvořáková", Embedding: []float32{0.2}})
	h := NewSubjectsHandler(st, nil)

	// ASCII query matches the accented name.
	req := httptest.NewRequest(http.MethodGet, "/subjects?search=novak", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	var summaries []map[string]any
	decodeJSON(t, rec, &summaries)
	if len(summaries) != 1 || summaries[0]["id"] != "S001" {
		t.Errorf("expected only S001 for search=novak, got %v", summaries)
	}

	// Accented query matches too, the comparison normalizes both sides.
	req = httptest.NewRequest(http.MethodGet, "/subjects?search=Dvořák", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req)

	decodeJSON(t, rec, &summaries)
	if len(summaries) != 1 || summaries[0]["id"] != "S002" {
		t.Errorf("expected only S002 for search=Dvořák, got %v", summaries)
	}

	// No match yields an empty list, not an error.
	req = httptest.NewRequest(http.MethodGet, "/subjects?search=zzz", nil)
	rec = httptest.NewRecorder()
	h.List(rec, req)

	decodeJSON(t, rec, &summaries)
	if len(summaries) != 0 {
		t.Errorf("expected no subjects for search=zzz, got %v", summaries)
	}
}

func TestSubjectsGet_NotFound(t *testing.T) {
	h := NewSubjectsHandler(store.NewMemory(), nil)

	req := httptest.NewRequest(http.MethodGet, "/subjects/999", nil)
	req = requestWithChiParams(req, map[string]string{"id": "999"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestSubjectsDelete_RefreshesGallery(t *testing.T) {
	st := store.NewMemory()
	st.PutSubject(context.Background(), store.Subject{
		ID: "963852", Name: "Elon Musk", Embedding: []float32{0.1},
	})
	gallery := &countingGallery{}
	h := NewSubjectsHandler(st, gallery)

	req := httptest.NewRequest(http.MethodDelete, "/subjects/963852", nil)
	req = requestWithChiParams(req, map[string]string{"id": "963852"})
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if gallery.rebuilds != 1 {
		t.Errorf("expected 1 gallery rebuild, got %d", gallery.rebuilds)
	}
	if gallery.subjects != 0 {
		t.Errorf("expected rebuild with 0 subjects, got %d", gallery.subjects)
	}
}
