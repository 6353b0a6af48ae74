package handlers

import (
	"encoding/csv"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/lbansal/face-attendance/internal/store"
)

// RecordsHandler serves the attendance record admin API.
type RecordsHandler struct {
	store store.RecordWriter
}

// NewRecordsHandler creates a records handler.
func NewRecordsHandler(st store.RecordWriter) *RecordsHandler {
	return &RecordsHandler{store: st}
}

// List handles GET /records.
func (h *RecordsHandler) List(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListRecords(r.Context())
	if err != nil {
		log.Printf("list records: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}
	if records == nil {
		records = []store.AttendanceRecord{}
	}
	respondJSON(w, http.StatusOK, records)
}

// Get handles GET /records/{id}.
func (h *RecordsHandler) Get(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	rec, err := h.store.GetRecord(r.Context(), id)
	if err != nil {
		log.Printf("get record %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to get record")
		return
	}
	if rec == nil {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Put handles PUT /records/{id}, creating or replacing a record.
func (h *RecordsHandler) Put(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var rec store.AttendanceRecord
	if err := json.NewDecoder(r.Body).Decode(&rec); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}
	rec.SubjectID = id

	if !validStatus(rec.Status) {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}

	if err := h.store.PutRecord(r.Context(), rec); err != nil {
		log.Printf("put record %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to store record")
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// recordPatch mirrors store.RecordFields for JSON decoding. Absent fields
// stay nil and are not touched by the merge.
type recordPatch struct {
	Name               *string                 `json:"name"`
	Branch             *string                 `json:"branch"`
	Status             *store.AttendanceStatus `json:"status"`
	TotalAttendance    *int                    `json:"total_attendance"`
	LastAttendanceTime *string                 `json:"last_attendance_time"`
}

// Update handles PATCH /records/{id}, merging the provided fields.
func (h *RecordsHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	var patch recordPatch
	if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
		respondError(w, http.StatusBadRequest, errInvalidRequestBody)
		return
	}

	if patch.Status != nil && !validStatus(*patch.Status) {
		respondError(w, http.StatusBadRequest, "invalid status")
		return
	}
	if patch.TotalAttendance != nil && *patch.TotalAttendance < 0 {
		respondError(w, http.StatusBadRequest, "total_attendance must not be negative")
		return
	}

	fields := store.RecordFields{
		Name:               patch.Name,
		Branch:             patch.Branch,
		Status:             patch.Status,
		TotalAttendance:    patch.TotalAttendance,
		LastAttendanceTime: patch.LastAttendanceTime,
	}

	err := h.store.UpdateRecord(r.Context(), id, fields)
	if err == store.ErrNotFound {
		respondError(w, http.StatusNotFound, "record not found")
		return
	}
	if err != nil {
		log.Printf("update record %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to update record")
		return
	}

	rec, err := h.store.GetRecord(r.Context(), id)
	if err != nil || rec == nil {
		respondJSON(w, http.StatusOK, map[string]string{"status": "updated"})
		return
	}
	respondJSON(w, http.StatusOK, rec)
}

// Delete handles DELETE /records/{id}.
func (h *RecordsHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if err := h.store.DeleteRecord(r.Context(), id); err != nil {
		log.Printf("delete record %s: %v", sanitizeForLog(id), err)
		respondError(w, http.StatusInternalServerError, "failed to delete record")
		return
	}
	respondJSON(w, http.StatusOK, map[string]string{"status": "deleted"})
}

// ExportCSV handles GET /records/export, streaming all records as CSV for
// spreadsheet imports.
func (h *RecordsHandler) ExportCSV(w http.ResponseWriter, r *http.Request) {
	records, err := h.store.ListRecords(r.Context())
	if err != nil {
		log.Printf("export records: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list records")
		return
	}

	w.Header().Set("Content-Type", "text/csv")
	w.Header().Set("Content-Disposition",
		"attachment; filename=attendance-"+time.Now().Format("2006-01-02")+".csv")

	cw := csv.NewWriter(w)
	cw.Write([]string{"subject_id", "name", "branch", "status", "total_attendance", "last_attendance_time"})
	for _, rec := range records {
		cw.Write([]string{
			rec.SubjectID,
			rec.Name,
			rec.Branch,
			string(rec.Status),
			strconv.Itoa(rec.TotalAttendance),
			rec.LastAttendanceTime,
		})
	}
	cw.Flush()
}

// validStatus accepts the empty status and the three admin flags.
func validStatus(s store.AttendanceStatus) bool {
	switch s {
	case "", store.StatusPresent, store.StatusAbsent, store.StatusExcused:
		return true
	}
	return false
}
