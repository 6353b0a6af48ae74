package postgres

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/lbansal/face-attendance/internal/store"
)

// AppendEvent records an accepted attendance mark.
// An empty ID is filled in with a fresh UUID.
func (s *Store) AppendEvent(ctx context.Context, ev store.AttendanceEvent) error {
	if ev.ID == "" {
		ev.ID = uuid.New().String()
	}

	query := `
		INSERT INTO attendance_events (id, subject_id, station, marked_at, total)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (id) DO NOTHING
	`

	if _, err := s.pool.Exec(ctx, query, ev.ID, ev.SubjectID, ev.Station, ev.MarkedAt, ev.Total); err != nil {
		return fmt.Errorf("insert event: %w", err)
	}
	return nil
}

// RecentEvents lists recent attendance events, newest first.
func (s *Store) RecentEvents(ctx context.Context, limit int) ([]store.AttendanceEvent, error) {
	if limit <= 0 {
		limit = 50
	}

	query := `
		SELECT id, subject_id, station, marked_at, total
		FROM attendance_events
		ORDER BY marked_at DESC, id DESC
		LIMIT $1
	`

	rows, err := s.pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()

	var events []store.AttendanceEvent
	for rows.Next() {
		var ev store.AttendanceEvent
		if err := rows.Scan(&ev.ID, &ev.SubjectID, &ev.Station, &ev.MarkedAt, &ev.Total); err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, ev)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate events: %w", err)
	}
	return events, nil
}
