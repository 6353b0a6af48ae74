package cmd

import (
	"context"
	"errors"
	"fmt"

	"github.com/lbansal/face-attendance/internal/config"
	"github.com/lbansal/face-attendance/internal/recognize"
	"github.com/lbansal/face-attendance/internal/store"
	"github.com/lbansal/face-attendance/internal/store/mariadb"
	"github.com/lbansal/face-attendance/internal/store/postgres"
)

// openStore connects to PostgreSQL and applies pending migrations.
// The caller owns the returned pool.
func openStore(ctx context.Context, cfg *config.Config) (*postgres.Store, *postgres.Pool, error) {
	if cfg.Database.URL == "" {
		return nil, nil, errors.New("DATABASE_URL environment variable is required")
	}

	fmt.Printf("Connecting to PostgreSQL database...\n")
	pool, err := postgres.NewPool(&cfg.Database)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to initialize PostgreSQL: %w", err)
	}

	if err := pool.Migrate(ctx); err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return postgres.NewStore(pool), pool, nil
}

// openRecords selects the attendance record backend: the PostgreSQL store by
// default, or MariaDB when DATABASE_MARIADB_DSN is set. Subjects and their
// embeddings always stay in PostgreSQL. The returned closer may be nil.
func openRecords(ctx context.Context, cfg *config.Config, pg *postgres.Store) (store.RecordWriter, func() error, error) {
	if cfg.Database.MariaDSN == "" {
		return pg, nil, nil
	}

	pool, err := mariadb.NewPool(cfg.Database.MariaDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect record backend: %w", err)
	}

	records, err := mariadb.NewRecordStore(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to prepare record backend: %w", err)
	}

	fmt.Printf("Attendance records stored in MariaDB\n")
	return records, pool.Close, nil
}

// eventWriters assembles the event sinks: the primary store plus an optional
// MariaDB mirror for campus reporting tools. The returned closer may be nil.
func eventWriters(ctx context.Context, cfg *config.Config, primary store.EventWriter) (store.EventWriter, func() error, error) {
	if cfg.Events.MariaDSN == "" {
		return primary, nil, nil
	}

	pool, err := mariadb.NewPool(cfg.Events.MariaDSN)
	if err != nil {
		return nil, nil, fmt.Errorf("failed to connect event mirror: %w", err)
	}

	mirror, err := mariadb.NewEventMirror(ctx, pool)
	if err != nil {
		pool.Close()
		return nil, nil, fmt.Errorf("failed to prepare event mirror: %w", err)
	}

	fmt.Printf("Mirroring attendance events to MariaDB\n")
	return store.MultiEventWriter{primary, mirror}, pool.Close, nil
}

// loadGallery builds the in-memory face index from enrolled subjects.
func loadGallery(ctx context.Context, st store.SubjectReader, threshold float64) (*recognize.Gallery, error) {
	subjects, err := st.ListSubjects(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list subjects: %w", err)
	}

	gallery := recognize.NewGallery(threshold)
	if err := gallery.Rebuild(subjects); err != nil {
		return nil, fmt.Errorf("failed to build face index: %w", err)
	}

	fmt.Printf("Face index built with %d subjects\n", gallery.Len())
	return gallery, nil
}
