package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/lbansal/face-attendance/internal/store"
)

// requestWithChiParams creates a request with chi URL parameters.
func requestWithChiParams(r *http.Request, params map[string]string) *http.Request {
	rctx := chi.NewRouteContext()
	for key, value := range params {
		rctx.URLParams.Add(key, value)
	}
	return r.WithContext(context.WithValue(r.Context(), chi.RouteCtxKey, rctx))
}

// jsonRequest creates a request carrying a JSON body.
func jsonRequest(t *testing.T, method, path, body string) *http.Request {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

// decodeJSON decodes a response body, failing the test on malformed JSON.
func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.NewDecoder(rec.Body).Decode(out); err != nil {
		t.Fatalf("failed to decode response: %v", err)
	}
}

// seededStore creates a memory store with one attendance record.
func seededStore(t *testing.T) *store.Memory {
	t.Helper()
	m := store.NewMemory()
	rec := store.AttendanceRecord{
		SubjectID:          "321654",
		Name:               "Murtaza Hassan",
		Branch:             "R&D",
		TotalAttendance:    7,
		LastAttendanceTime: "2026-01-15 09:12:00",
	}
	if err := m.PutRecord(context.Background(), rec); err != nil {
		t.Fatalf("failed to seed record: %v", err)
	}
	return m
}
