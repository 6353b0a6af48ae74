package handlers

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lbansal/face-attendance/internal/store"
)

func TestRecordsList(t *testing.T) {
	h := NewRecordsHandler(seededStore(t))

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var records []store.AttendanceRecord
	decodeJSON(t, rec, &records)
	if len(records) != 1 {
		t.Fatalf("expected 1 record, got %d", len(records))
	}
	if records[0].SubjectID != "321654" {
		t.Errorf("unexpected subject ID '%s'", records[0].SubjectID)
	}
}

func TestRecordsList_EmptyStoreReturnsArray(t *testing.T) {
	h := NewRecordsHandler(store.NewMemory())

	req := httptest.NewRequest(http.MethodGet, "/records", nil)
	rec := httptest.NewRecorder()
	h.List(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if body := strings.TrimSpace(rec.Body.String()); body != "[]" {
		t.Errorf("expected empty JSON array, got %s", body)
	}
}

func TestRecordsGet(t *testing.T) {
	h := NewRecordsHandler(seededStore(t))

	req := httptest.NewRequest(http.MethodGet, "/records/321654", nil)
	req = requestWithChiParams(req, map[string]string{"id": "321654"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	var got store.AttendanceRecord
	decodeJSON(t, rec, &got)
	if got.TotalAttendance != 7 {
		t.Errorf("expected total 7, got %d", got.TotalAttendance)
	}
}

func TestRecordsGet_NotFound(t *testing.T) {
	h := NewRecordsHandler(seededStore(t))

	req := httptest.NewRequest(http.MethodGet, "/records/999", nil)
	req = requestWithChiParams(req, map[string]string{"id": "999"})
	rec := httptest.NewRecorder()
	h.Get(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRecordsPut_CreatesRecord(t *testing.T) {
	st := store.NewMemory()
	h := NewRecordsHandler(st)

	body := `{"name":"New Person","branch":"CSE","total_attendance":0,"last_attendance_time":""}`
	req := jsonRequest(t, http.MethodPut, "/records/111", body)
	req = requestWithChiParams(req, map[string]string{"id": "111"})
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, err := st.GetRecord(context.Background(), "111")
	if err != nil || got == nil {
		t.Fatalf("expected record to be stored, got %v err %v", got, err)
	}
	if got.Name != "New Person" {
		t.Errorf("unexpected name '%s'", got.Name)
	}
}

func TestRecordsPut_InvalidStatus(t *testing.T) {
	h := NewRecordsHandler(store.NewMemory())

	req := jsonRequest(t, http.MethodPut, "/records/111", `{"name":"X","status":"Q"}`)
	req = requestWithChiParams(req, map[string]string{"id": "111"})
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid status, got %d", rec.Code)
	}
}

func TestRecordsPut_InvalidBody(t *testing.T) {
	h := NewRecordsHandler(store.NewMemory())

	req := jsonRequest(t, http.MethodPut, "/records/111", `{not json`)
	req = requestWithChiParams(req, map[string]string{"id": "111"})
	rec := httptest.NewRecorder()
	h.Put(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for invalid body, got %d", rec.Code)
	}
}

func TestRecordsUpdate_PartialMerge(t *testing.T) {
	st := seededStore(t)
	h := NewRecordsHandler(st)

	req := jsonRequest(t, http.MethodPatch, "/records/321654", `{"branch":"AI"}`)
	req = requestWithChiParams(req, map[string]string{"id": "321654"})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	got, _ := st.GetRecord(context.Background(), "321654")
	if got.Branch != "AI" {
		t.Errorf("expected branch 'AI', got '%s'", got.Branch)
	}
	// Untouched fields survive the merge.
	if got.Name != "Murtaza Hassan" {
		t.Errorf("expected name to survive, got '%s'", got.Name)
	}
	if got.TotalAttendance != 7 {
		t.Errorf("expected total to survive, got %d", got.TotalAttendance)
	}
}

func TestRecordsUpdate_NotFound(t *testing.T) {
	h := NewRecordsHandler(store.NewMemory())

	req := jsonRequest(t, http.MethodPatch, "/records/999", `{"branch":"AI"}`)
	req = requestWithChiParams(req, map[string]string{"id": "999"})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRecordsUpdate_NegativeTotal(t *testing.T) {
	h := NewRecordsHandler(seededStore(t))

	req := jsonRequest(t, http.MethodPatch, "/records/321654", `{"total_attendance":-1}`)
	req = requestWithChiParams(req, map[string]string{"id": "321654"})
	rec := httptest.NewRecorder()
	h.Update(rec, req)

	if rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for negative total, got %d", rec.Code)
	}
}

func TestRecordsDelete(t *testing.T) {
	st := seededStore(t)
	h := NewRecordsHandler(st)

	req := httptest.NewRequest(http.MethodDelete, "/records/321654", nil)
	req = requestWithChiParams(req, map[string]string{"id": "321654"})
	rec := httptest.NewRecorder()
	h.Delete(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}

	got, _ := st.GetRecord(context.Background(), "321654")
	if got != nil {
		t.Error("expected record to be deleted")
	}
}

func TestRecordsExportCSV(t *testing.T) {
	h := NewRecordsHandler(seededStore(t))

	req := httptest.NewRequest(http.MethodGet, "/records/export", nil)
	rec := httptest.NewRecorder()
	h.ExportCSV(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "text/csv" {
		t.Errorf("expected text/csv, got '%s'", ct)
	}

	lines := strings.Split(strings.TrimSpace(rec.Body.String()), "\n")
	if len(lines) != 2 {
		t.Fatalf("expected header plus 1 row, got %d lines", len(lines))
	}
	if !strings.HasPrefix(lines[0], "subject_id,") {
		t.Errorf("unexpected CSV header '%s'", lines[0])
	}
	if !strings.Contains(lines[1], "321654") {
		t.Errorf("expected row to contain subject ID, got '%s'", lines[1])
	}
}
