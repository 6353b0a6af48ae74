package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lbansal/face-attendance/internal/store"
	"github.com/pgvector/pgvector-go"
)

// GetSubject retrieves a subject by ID, returns nil if not found.
func (s *Store) GetSubject(ctx context.Context, id string) (*store.Subject, error) {
	query := `
		SELECT id, name, branch, embedding, dim, created_at
		FROM subjects
		WHERE id = $1
	`

	var subj store.Subject
	var embedding pgvector.Vector
	err := s.pool.QueryRow(ctx, query, id).Scan(
		&subj.ID, &subj.Name, &subj.Branch, &embedding, &subj.Dim, &subj.CreatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query subject: %w", err)
	}
	subj.Embedding = embedding.Slice()
	return &subj, nil
}

// ListSubjects returns all subjects ordered by ID. Embeddings are included.
func (s *Store) ListSubjects(ctx context.Context) ([]store.Subject, error) {
	query := `
		SELECT id, name, branch, embedding, dim, created_at
		FROM subjects
		ORDER BY id
	`

	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	var subjects []store.Subject
	for rows.Next() {
		var subj store.Subject
		var embedding pgvector.Vector
		if err := rows.Scan(
			&subj.ID, &subj.Name, &subj.Branch, &embedding, &subj.Dim, &subj.CreatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		subj.Embedding = embedding.Slice()
		subjects = append(subjects, subj)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate subjects: %w", err)
	}
	return subjects, nil
}

// PutSubject creates or replaces a subject and its embedding.
func (s *Store) PutSubject(ctx context.Context, subj store.Subject) error {
	if subj.CreatedAt.IsZero() {
		subj.CreatedAt = time.Now()
	}

	query := `
		INSERT INTO subjects (id, name, branch, embedding, dim, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (id) DO UPDATE SET
			name = EXCLUDED.name,
			branch = EXCLUDED.branch,
			embedding = EXCLUDED.embedding,
			dim = EXCLUDED.dim
	`

	_, err := s.pool.Exec(ctx, query,
		subj.ID, subj.Name, subj.Branch,
		pgvector.NewVector(subj.Embedding), len(subj.Embedding), subj.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("upsert subject: %w", err)
	}
	return nil
}

// DeleteSubject removes a subject. Deleting an absent subject is not an error.
func (s *Store) DeleteSubject(ctx context.Context, id string) error {
	if _, err := s.pool.Exec(ctx, "DELETE FROM subjects WHERE id = $1", id); err != nil {
		return fmt.Errorf("delete subject: %w", err)
	}
	return nil
}
