package store

import (
	"time"
)

// TimeLayout is the wire format for attendance timestamps.
// It matches the format stored by the original enrollment tooling.
const TimeLayout = "2006-01-02 15:04:05"

// AttendanceStatus is the admin-facing attendance flag.
type AttendanceStatus string

const (
	StatusPresent AttendanceStatus = "P"
	StatusAbsent  AttendanceStatus = "A"
	StatusExcused AttendanceStatus = "E"
)

// AttendanceRecord is the per-subject record owned by the record store.
// TotalAttendance is monotonically non-decreasing; LastAttendanceTime is a
// TimeLayout string, where an empty or unparsable value means "never marked".
type AttendanceRecord struct {
	SubjectID          string           `json:"subject_id"`
	Name               string           `json:"name"`
	Branch             string           `json:"branch"`
	Status             AttendanceStatus `json:"status,omitempty"`
	TotalAttendance    int              `json:"total_attendance"`
	LastAttendanceTime string           `json:"last_attendance_time"`
}

// LastMarked parses LastAttendanceTime. The second return value is false for
// the "never marked" sentinel (empty or unparsable timestamp).
func (r *AttendanceRecord) LastMarked() (time.Time, bool) {
	if r.LastAttendanceTime == "" {
		return time.Time{}, false
	}
	t, err := time.ParseInLocation(TimeLayout, r.LastAttendanceTime, time.Local)
	if err != nil {
		return time.Time{}, false
	}
	return t, true
}

// Eligible reports whether a mark at the given time passes the cooldown gate.
// Never-marked records are always eligible.
func (r *AttendanceRecord) Eligible(now time.Time, cooldown time.Duration) bool {
	last, ok := r.LastMarked()
	if !ok {
		return true
	}
	return now.Sub(last) > cooldown
}

// RecordFields is a partial update for an AttendanceRecord.
// Nil fields are left untouched by Update.
type RecordFields struct {
	Name               *string
	Branch             *string
	Status             *AttendanceStatus
	TotalAttendance    *int
	LastAttendanceTime *string
}

// Apply merges the non-nil fields into the record.
func (f *RecordFields) Apply(r *AttendanceRecord) {
	if f.Name != nil {
		r.Name = *f.Name
	}
	if f.Branch != nil {
		r.Branch = *f.Branch
	}
	if f.Status != nil {
		r.Status = *f.Status
	}
	if f.TotalAttendance != nil {
		r.TotalAttendance = *f.TotalAttendance
	}
	if f.LastAttendanceTime != nil {
		r.LastAttendanceTime = *f.LastAttendanceTime
	}
}

// Subject is an enrolled identity. The embedding is immutable once enrolled
// unless the subject is explicitly re-enrolled.
type Subject struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Branch    string    `json:"branch"`
	Embedding []float32 `json:"embedding,omitempty"`
	Dim       int       `json:"dim,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// AttendanceEvent is one accepted attendance mark, kept for auditing.
type AttendanceEvent struct {
	ID        string    `json:"id"`
	SubjectID string    `json:"subject_id"`
	Station   string    `json:"station,omitempty"`
	MarkedAt  time.Time `json:"marked_at"`
	Total     int       `json:"total"` // total_attendance after the mark
}
