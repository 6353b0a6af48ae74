// Package store defines the record store boundary consumed by the session
// controller and the admin surfaces, plus an in-memory reference backend.
// SQL backends live in the postgres and mariadb subpackages.
package store

import (
	"context"
	"errors"
	"time"
)

// ErrNotFound is returned when a subject or record does not exist.
var ErrNotFound = errors.New("not found")

// RecordReader provides read access to attendance records.
type RecordReader interface {
	// GetRecord retrieves a record by subject ID, returns nil if not found.
	GetRecord(ctx context.Context, subjectID string) (*AttendanceRecord, error)
	// ListRecords returns all records ordered by subject ID.
	ListRecords(ctx context.Context) ([]AttendanceRecord, error)
}

// RecordWriter provides write access to attendance records.
// UpdateRecord applies a partial merge; fields left nil are untouched.
// The store guarantees last-write-wins per key and nothing stronger.
type RecordWriter interface {
	RecordReader

	// PutRecord creates or replaces a record.
	PutRecord(ctx context.Context, rec AttendanceRecord) error
	// UpdateRecord merges the given fields into an existing record.
	// Returns ErrNotFound if the subject has no record.
	UpdateRecord(ctx context.Context, subjectID string, fields RecordFields) error
	// DeleteRecord removes a record. Deleting an absent record is not an error.
	DeleteRecord(ctx context.Context, subjectID string) error
}

// ConditionalMarker is an optional capability of a record store backend.
// MarkAttendance applies the cooldown gate and the increment as one atomic
// operation, closing the read-then-write race between concurrent stations.
// It returns the record as of after the call and whether the mark was applied.
// Returns ErrNotFound if the subject has no record.
type ConditionalMarker interface {
	MarkAttendance(ctx context.Context, subjectID string, at time.Time, cooldown time.Duration) (*AttendanceRecord, bool, error)
}

// SubjectReader provides read access to enrolled subjects.
type SubjectReader interface {
	// GetSubject retrieves a subject by ID, returns nil if not found.
	GetSubject(ctx context.Context, id string) (*Subject, error)
	// ListSubjects returns all subjects ordered by ID. Embeddings are included.
	ListSubjects(ctx context.Context) ([]Subject, error)
}

// SubjectWriter provides write access to enrolled subjects.
type SubjectWriter interface {
	SubjectReader

	// PutSubject creates or replaces a subject and its embedding.
	PutSubject(ctx context.Context, s Subject) error
	// DeleteSubject removes a subject. Deleting an absent subject is not an error.
	DeleteSubject(ctx context.Context, id string) error
}

// EventWriter records accepted attendance marks for auditing.
type EventWriter interface {
	AppendEvent(ctx context.Context, ev AttendanceEvent) error
}

// EventReader lists recent attendance events, newest first.
type EventReader interface {
	RecentEvents(ctx context.Context, limit int) ([]AttendanceEvent, error)
}
