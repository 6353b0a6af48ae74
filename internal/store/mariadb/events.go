package mariadb

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lbansal/face-attendance/internal/store"
)

// parseDatetime parses a MariaDB DATETIME column value.
func parseDatetime(s string) (time.Time, error) {
	return time.ParseInLocation(store.TimeLayout, s, time.Local)
}

// EventMirror writes attendance events into MariaDB.
type EventMirror struct {
	pool *Pool
}

// NewEventMirror creates a mirror and ensures its table exists.
func NewEventMirror(ctx context.Context, pool *Pool) (*EventMirror, error) {
	_, err := pool.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance_events (
			id VARCHAR(36) PRIMARY KEY,
			subject_id VARCHAR(255) NOT NULL,
			station VARCHAR(255) NOT NULL DEFAULT '',
			marked_at DATETIME NOT NULL,
			total INT NOT NULL,
			KEY idx_marked_at (marked_at),
			KEY idx_subject (subject_id)
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create events table: %w", err)
	}
	return &EventMirror{pool: pool}, nil
}

// AppendEvent inserts one event. Replays of the same event ID are ignored.
func (m *EventMirror) AppendEvent(ctx context.Context, ev store.AttendanceEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	query := `
		INSERT IGNORE INTO attendance_events (id, subject_id, station, marked_at, total)
		VALUES (?, ?, ?, ?, ?)
	`

	_, err := m.pool.db.ExecContext(ctx, query,
		ev.ID, ev.SubjectID, ev.Station, ev.MarkedAt.Format(store.TimeLayout), ev.Total,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents lists recent attendance events, newest first.
func (m *EventMirror) RecentEvents(ctx context.Context, limit int) ([]store.AttendanceEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, subject_id, station, marked_at, total
		FROM attendance_events
		ORDER BY marked_at DESC, id DESC
		LIMIT ?
	`

	rows, err := m.pool.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []store.AttendanceEvent
	for rows.Next() {
		var ev store.AttendanceEvent
		var markedAt string
		if err := rows.Scan(&ev.ID, &ev.SubjectID, &ev.Station, &markedAt, &ev.Total); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		if t, err := parseDatetime(markedAt); err == nil {
			ev.MarkedAt = t
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
