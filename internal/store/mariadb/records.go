package mariadb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lbansal/face-attendance/internal/store"
)

// RecordStore keeps attendance records in MariaDB, for deployments whose
// student data already lives there. Subjects and their embeddings stay in
// PostgreSQL; only the record surface moves.
type RecordStore struct {
	pool *Pool
}

// NewRecordStore creates a record store and ensures its table exists.
func NewRecordStore(ctx context.Context, pool *Pool) (*RecordStore, error) {
	_, err := pool.db.ExecContext(ctx, `
		CREATE TABLE IF NOT EXISTS attendance_records (
			subject_id VARCHAR(255) PRIMARY KEY,
			name VARCHAR(255) NOT NULL DEFAULT '',
			branch VARCHAR(255) NOT NULL DEFAULT '',
			status VARCHAR(8) NOT NULL DEFAULT '',
			total_attendance INT NOT NULL DEFAULT 0,
			last_attendance_time VARCHAR(32) NOT NULL DEFAULT ''
		)
	`)
	if err != nil {
		return nil, fmt.Errorf("create records table: %w", err)
	}
	return &RecordStore{pool: pool}, nil
}

// GetRecord retrieves a record by subject ID, returns nil if not found.
func (s *RecordStore) GetRecord(ctx context.Context, subjectID string) (*store.AttendanceRecord, error) {
	query := `
		SELECT subject_id, name, branch, status, total_attendance, last_attendance_time
		FROM attendance_records
		WHERE subject_id = ?
	`

	var rec store.AttendanceRecord
	var status string
	err := s.pool.db.QueryRowContext(ctx, query, subjectID).Scan(
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
func (s *RecordStore) ListRecords(ctx context.Context) ([]store.AttendanceRecord, error) {
	query := `
		SELECT subject_id, name, branch, status, total_attendance, last_attendance_time
		FROM attendance_records
		ORDER BY subject_id
	`

	rows, err := s.pool.db.QueryContext(ctx, query)
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
func (s *RecordStore) PutRecord(ctx context.Context, rec store.AttendanceRecord) error {
	query := `
		INSERT INTO attendance_records (subject_id, name, branch, status, total_attendance, last_attendance_time)
		VALUES (?, ?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			name = VALUES(name),
			branch = VALUES(branch),
			status = VALUES(status),
			total_attendance = VALUES(total_attendance),
			last_attendance_time = VALUES(last_attendance_time)
	`

	_, err := s.pool.db.ExecContext(ctx, query,
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
func (s *RecordStore) UpdateRecord(ctx context.Context, subjectID string, fields store.RecordFields) error {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	rec, err := lockRecord(ctx, tx, subjectID)
	if err != nil {
		return err
	}

	fields.Apply(rec)

	_, err = tx.ExecContext(ctx, `
		UPDATE attendance_records
		SET name = ?, branch = ?, status = ?, total_attendance = ?, last_attendance_time = ?
		WHERE subject_id = ?
	`, rec.Name, rec.Branch, string(rec.Status), rec.TotalAttendance, rec.LastAttendanceTime, rec.SubjectID)
	if err != nil {
		return fmt.Errorf("update record: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit record update: %w", err)
	}
	return nil
}

// DeleteRecord removes a record. Deleting an absent record is not an error.
func (s *RecordStore) DeleteRecord(ctx context.Context, subjectID string) error {
	if _, err := s.pool.db.ExecContext(ctx, "DELETE FROM attendance_records WHERE subject_id = ?", subjectID); err != nil {
		return fmt.Errorf("delete record: %w", err)
	}
	return nil
}

// MarkAttendance applies the cooldown gate and the attendance increment
// atomically. The row lock serializes concurrent marks for the same subject,
// so at most one caller inside a cooldown window gets applied=true.
func (s *RecordStore) MarkAttendance(ctx context.Context, subjectID string, at time.Time, cooldown time.Duration) (*store.AttendanceRecord, bool, error) {
	tx, err := s.pool.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, false, err
	}
	defer tx.Rollback()

	rec, err := lockRecord(ctx, tx, subjectID)
	if err != nil {
		return nil, false, err
	}

	if !rec.Eligible(at, cooldown) {
		if err := tx.Commit(); err != nil {
			return nil, false, fmt.Errorf("commit mark check: %w", err)
		}
		return rec, false, nil
	}

	rec.TotalAttendance++
	rec.LastAttendanceTime = at.Format(store.TimeLayout)

	_, err = tx.ExecContext(ctx, `
		UPDATE attendance_records
		SET total_attendance = ?, last_attendance_time = ?
		WHERE subject_id = ?
	`, rec.TotalAttendance, rec.LastAttendanceTime, rec.SubjectID)
	if err != nil {
		return nil, false, fmt.Errorf("apply mark: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, false, fmt.Errorf("commit mark: %w", err)
	}
	return rec, true, nil
}

// lockRecord selects one record FOR UPDATE inside a transaction.
func lockRecord(ctx context.Context, tx *sql.Tx, subjectID string) (*store.AttendanceRecord, error) {
	var rec store.AttendanceRecord
	var status string
	err := tx.QueryRowContext(ctx, `
		SELECT subject_id, name, branch, status, total_attendance, last_attendance_time
		FROM attendance_records
		WHERE subject_id = ?
		FOR UPDATE
	`, subjectID).Scan(
		&rec.SubjectID, &rec.Name, &rec.Branch, &status,
		&rec.TotalAttendance, &rec.LastAttendanceTime,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, store.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("lock record: %w", err)
	}
	rec.Status = store.AttendanceStatus(status)
	return &rec, nil
}
