package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/lbansal/face-attendance/internal/config"
	"github.com/lbansal/face-attendance/internal/session"
	"github.com/lbansal/face-attendance/internal/store"
)

// SignalSource exposes the latest controller output. The kiosk page polls it
// every tick interval to decide which screen to render.
type SignalSource interface {
	LastSignal() session.Signal
}

// DisplayHandler serves the kiosk display state.
type DisplayHandler struct {
	signals SignalSource
	modes   *config.ModesConfig
}

// NewDisplayHandler creates a display handler.
func NewDisplayHandler(signals SignalSource, modes *config.ModesConfig) *DisplayHandler {
	return &DisplayHandler{signals: signals, modes: modes}
}

// displayState is the payload the kiosk page renders.
type displayState struct {
	Mode       string                  `json:"mode"`
	Label      string                  `json:"label"`
	Background string                  `json:"background"`
	SubjectID  string                  `json:"subject_id,omitempty"`
	Record     *store.AttendanceRecord `json:"record,omitempty"`
}

// State handles GET /display. Without a running controller (admin-only
// deployments) it reports the idle screen.
func (h *DisplayHandler) State(w http.ResponseWriter, r *http.Request) {
	sig := session.Signal{Mode: session.ModeIdle}
	if h.signals != nil {
		sig = h.signals.LastSignal()
	}

	screen := h.modes.Screen(string(sig.Mode))
	state := displayState{
		Mode:       string(sig.Mode),
		Label:      screen.Label,
		Background: screen.Background,
		SubjectID:  sig.SubjectID,
	}
	if screen.ShowRecord {
		state.Record = sig.Record
	}
	respondJSON(w, http.StatusOK, state)
}

// EventsHandler serves the attendance event audit trail.
type EventsHandler struct {
	events store.EventReader
}

// NewEventsHandler creates an events handler.
func NewEventsHandler(events store.EventReader) *EventsHandler {
	return &EventsHandler{events: events}
}

// Recent handles GET /events?limit=N, newest first.
func (h *EventsHandler) Recent(w http.ResponseWriter, r *http.Request) {
	limit := 50
	if q := r.URL.Query().Get("limit"); q != "" {
		n, err := strconv.Atoi(q)
		if err != nil || n <= 0 || n > 1000 {
			respondError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	if h.events == nil {
		respondJSON(w, http.StatusOK, []store.AttendanceEvent{})
		return
	}

	events, err := h.events.RecentEvents(r.Context(), limit)
	if err != nil {
		log.Printf("list events: %v", err)
		respondError(w, http.StatusInternalServerError, "failed to list events")
		return
	}
	if events == nil {
		events = []store.AttendanceEvent{}
	}
	respondJSON(w, http.StatusOK, events)
}
