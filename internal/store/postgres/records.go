package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lbansal/face-attendance/internal/store"
)

// Store provides PostgreSQL-backed storage for attendance records, subjects
// and events.
type Store struct {
	pool *Pool
}

// NewStore creates a PostgreSQL store on top of an existing pool.
func NewStore(pool *Pool) *Store {
	return &Store{pool: pool}
}

// GetRecord retrieves a record by subject ID, returns nil if not found.
func (s *Store) GetRecord(ctx context.Context, subjectID string) (*store.AttendanceRecord, error) {
	query := `
		SELECT subject_id, name, branch, status, total_attendance, last_attendance_time
		FROM attendance_records
		WHERE subject_id = $1
	`

	var rec store.AttendanceRecord
	var status string
	err := s.pool.QueryRow(ctx, query, subjectID).Scan(
		&rec.SubjectID, &rec.Name, &rec.Branch, &status,
		&rec.TotalAttendance, &rec.LastAttendanceTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query record: %w", err)
	}
	rec.Status = store.AttendanceStatus(status)
	return &rec, nil
}

// ListRecords returns all records ordered by subject ID.
func (s *Store) ListRecords(ctx context.Context) ([]store.AttendanceRecord, error) {
	query := `
		SELECT subject_id, name, branch, status, total_attendance, last_attendance_time
		FROM attendance_records
		ORDER BY subject_id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query records: %w", err)
	}
	defer rows.Close()

	var records []store.AttendanceRecord
	for rows.Next() {
		var rec store.AttendanceRecord
		var status string
		if err := rows.Scan(
			&rec.SubjectID, &rec.Name, &rec.Branch, &status,
			&rec.TotalAttendance, &rec.LastAttendanceTime,
		); err != nil {
			return nil, fmt.Errorf("scan record: %w", err)
		}
		rec.Status = store.AttendanceStatus(status)
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate records: %w", err)
	}
	return records, nil
}

// PutRecord creates or replaces a record.
func (s *Store) PutRecord(ctx context.Context, rec store.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (subject_id, name, branch, status, total_attendance, last_attendance_time)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (subject_id) DO UPDATE SET
			name = EXCLUDED.name,
			branch = EXCLUDED.branch,
			status = EXCLUDED.status,
			total_attendance = EXCLUDED.total_attendance,
			last_attendance_time = EXCLUDED.last_attendance_time
	`

	_, err := s.pool.Exec(ctx, query,
		rec.SubjectID, rec.Name, rec.Branch, string(rec.Status),
		rec.TotalAttendance, rec.LastAttendanceTime,
	)
	if err != nil {
		return fmt.Errorf("upsert record: %w", err)
	}
	return nil
}

// UpdateRecord merges the given fields into an existing record.
// The merge runs under a row lock so concurrent partial updates do not
// clobber each other's fields.
func (s *Store) UpdateRecord(ctx context.Context, subjectID string, fields store.RecordFields) error {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	var rec store.AttendanceRecord
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT subject_id, name, branch, status, total_attendance, last_attendance_time
		FROM attendance_records
		WHERE subject_id = $1
		FOR UPDATE
	`, subjectID).Scan(
		&rec.SubjectID, &rec.Name, &rec.Branch, &status,
		&rec.TotalAttendance, &rec.LastAttendanceTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return store.ErrNotFound
	}
	if err != nil {
		return fmt.Errorf("lock record: %w", err)
	}
	rec.Status = store.AttendanceStatus(status)

	fields.Apply(&rec)

	_, err = tx.ExecContext(ctx, `
		UPDATE attendance_records
		SET name = $2, branch = $3, status = $4, total_attendance = $5, last_attendance_time = $6
		WHERE subject_id = $1
	`, rec.SubjectID, rec.Name, rec.Branch, string(rec.Status), rec.TotalAttendance, rec.LastAttendanceTime)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record update: %w", err)
	}
	return nil
}

// DeleteRecord removes a record. Deleting an absent record is not an error.
func (s *Store) DeleteRecord(ctx context.Context, subjectID string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM attendance_records WHERE subject_id = $1", subjectID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// MarkAttendance applies the cooldown gate and the attendance increment
// atomically. The row lock serializes concurrent marks for the same subject,
// so at most one caller inside a cooldown window gets applied=true.
func (s *Store) MarkAttendance(ctx context.Context, subjectID string, at time.Time, cooldown time.Duration) (*store.AttendanceRecord, bool, error) {
	tx, err := s.pool.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	var rec store.AttendanceRecord
	var status string
	err = tx.QueryRowContext(ctx, `
		SELECT subject_id, name, branch, status, total_attendance, last_attendance_time
		FROM attendance_records
		WHERE subject_id = $1
		FOR UPDATE
	`, subjectID).Scan(
		&rec.SubjectID, &rec.Name, &rec.Branch, &status,
		&rec.TotalAttendance, &rec.LastAttendanceTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, store.ErrNotFound
	}
	if err != nil {
		return nil, false, fmt.Errorf("lock record: %w", err)
	}
	rec.Status = store.AttendanceStatus(status)

	if !rec.Eligible(at, cooldown) {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit mark check: %w", err)
		}
		return &rec, false, nil
	}

	rec.TotalAttendance++
	rec.LastAttendanceTime = at.Format(store.TimeLayout)

	_, err = tx.ExecContext(ctx, `
		UPDATE attendance_records
		SET total_attendance = $2, last_attendance_time = $3
		WHERE subject_id = $1
	`, rec.SubjectID, rec.TotalAttendance, rec.LastAttendanceTime)
	if err != nil {
		return nil, false, fmt.Errorf("apply mark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit mark: %w", err)
	}
	return &rec, true, nil
}
