package session

import (
	"github.com/lbansal/face-attendance/internal/store"
)

// Stage is the lifecycle state of one active session.
type Stage string

// Stage constants define the session state machine. There is no stored idle
// stage: an idle subject simply has no session entry.
const (
	StageIdentified     Stage = "identified"
	StageDisplaying     Stage = "displaying"
	StageDeniedCooldown Stage = "denied_cooldown"
)

// Mode is the display-mode signal handed to the UI renderer each tick.
type Mode string

// Mode constants instruct the renderer which screen to show.
const (
	ModeIdle          Mode = "idle"
	ModeChecking      Mode = "checking"
	ModeShowingRecord Mode = "showing_record"
	ModeAlreadyMarked Mode = "already_marked"
)

// Signal is the per-tick output of the controller. Record is populated only
// for ModeShowingRecord, with the fields the renderer should display.
type Signal struct {
	Mode      Mode                    `json:"mode"`
	SubjectID string                  `json:"subject_id,omitempty"`
	Record    *store.AttendanceRecord `json:"record,omitempty"`
}

// Observation is one accepted face match for the current tick: the minimum
// distance candidate whose accept flag was true. Faces without an accepted
// match never reach the controller.
type Observation struct {
	SubjectID string
	Distance  float64
}
