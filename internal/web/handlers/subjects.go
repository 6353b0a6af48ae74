package handlers

import (
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/lbansal/face-attendance/internal/store"
)

// Gallery is the in-memory face index refreshed after enrollment changes.
type Gallery interface {
	Rebuild(subjects []store.Subject) error
	Len() int
}

// SubjectsHandler serves the subject enrollment admin API. Mutations rebuild
// the recognition gallery so new enrollments take effect without a restart.
type SubjectsHandler struct {
	store   store.SubjectWriter
	gallery Gallery
}

// NewSubjectsHandler creates a subjects handler. The gallery may be nil when
// the server runs without a recognizer (admin-only deployments).
func NewSubjectsHandler(st store.SubjectWriter, gallery Gallery) *SubjectsHandler {
	return &SubjectsHandler{store: st, gallery: gallery}
}

// subjectSummary hides embeddings from list responses; they are large and
// useless to the admin UI.
type subjectSummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Branch    string `json:"branch"`
	Dim       int    `json:"dim"`
	CreatedAt string `json:"created_at"`
}

// List handles GET /subjects. An optional search query filters by name,
// ignoring case and diacritics.
func (h *SubjectsHandler) List(w http.ResponseWriter, r *http.Request) {
	subjects, err := h.store.ListSubjects(r.Context())
	if err != nil {
		log.Printf("list subjects: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list subjects")
		return
	}

	search := store.NormalizeName(r.URL.Query().Get("search"))

	summaries := make([]subjectSummary, 0, len(subjects))
	for _, s := range subjects {
		if search != "" && !strings.Contains(store.NormalizeName(s.Name), search) {
			continue
		}
		summaries = append(summaries, subjectSummary{
			ID:        s.ID,
			Name:      s.Name,
			Branch:    s.Branch,
			Dim:       len(s.Embedding),
			CreatedAt: s.CreatedAt.Format("2006-01-02 15:04:05"),
		})
	}
	respondJSON(w, http.StatusOK, summaries)
}

// Get handles GET /subjects/{id}. The embedding is included.
func (h *SubjectsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	subj, err := h.store.GetSubject(r.Context(), id)
	if err != nil {
		log.Printf("get subject %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to get subject")
		return
	}
	if subj == nil {
		respondError(w, http.StatusNotFound, "subject not found")
		return
	}
	respondJSON(w, http.StatusOK, subj)
}

// Put handles PUT /subjects/{id}, enrolling or re-enrolling a subject.
func (h *SubjectsHandler) Put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var subj store.Subject
	if err := json.NewDecoder(r.Body).Decode(&subj); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	subj.ID = id

	if subj.Name == "" {
		respondError(w, http.StatusBadRequest, "name is required")
		return
	}
	if len(subj.Embedding) == 0 {
		respondError(w, http.StatusBadRequest, "embedding is required")
		return
	}

	if err := h.store.PutSubject(r.Context(), subj); err != nil {
		log.Printf("put subject %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to store subject")
		return
	}

	h.refreshGallery(r)
	respondJSON(w, http.StatusOK, map[string]string{"status": "enrolled", "id": id})
}

// Delete handles DELETE /subjects/{id}.
func (h *SubjectsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteSubject(r.Context(), id); err != nil {
		log.Printf("delete subject %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to delete subject")
		return
	}

	h.refreshGallery(r)
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

func (h *SubjectsHandler) refreshGallery(r *http.Request) {
	if h.gallery == nil {
		return
	}
	subjects, err := h.store.ListSubjects(r.Context())
	if err != nil {
		log.Printf("gallery refresh: %v", err)
		return
	}
	if err := h.gallery.Rebuild(subjects); err != nil {
		log.Printf("gallery rebuild: %v", err)
	}
}
