// Package postgres stores context entries in PostgreSQL with optimistic
// versioning on update.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"

	"github.com/zigral/zigral/pkg/contextstore"
	"github.com/zigral/zigral/pkg/models"
)

const uniqueViolation = "23505"

const schema = `
CREATE TABLE IF NOT EXISTS context_entries (
	job_id     TEXT PRIMARY KEY,
	job_type   TEXT NOT NULL,
	context_data JSONB NOT NULL,
	version    BIGINT NOT NULL,
	created_at TIMESTAMPTZ NOT NULL,
	updated_at TIMESTAMPTZ NOT NULL
)`

type Store struct {
	db *sql.DB
}

func NewStore(databaseURL string) (*Store, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		return nil, err
	}

	return store, nil
}

func (s *Store) migrate() error {
	if _, err := s.db.Exec(schema); err != nil {
		return fmt.Errorf("failed to migrate context_entries: %w", err)
	}

	return nil
}

func (s *Store) Create(ctx context.Context, entry *models.ContextEntry) (*models.ContextEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(entry.ContextData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode context_data: %w", err)
	}

	now := time.Now().UTC()

	_, err = s.db.ExecContext(ctx,
		`INSERT INTO context_entries (job_id, job_type, context_data, version, created_at, updated_at)
		 VALUES ($1, $2, $3, 1, $4, $4)`,
		entry.JobID, entry.JobType, data, now)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && string(pqErr.Code) == uniqueViolation {
			return nil, contextstore.ErrAlreadyExists
		}

		return nil, fmt.Errorf("failed to insert context entry: %w", err)
	}

	stored := entry.Clone()
	stored.Version = 1
	stored.CreatedAt = now
	stored.UpdatedAt = now

	return stored, nil
}

func (s *Store) Get(ctx context.Context, jobID string) (*models.ContextEntry, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT job_id, job_type, context_data, version, created_at, updated_at
		 FROM context_entries WHERE job_id = $1`,
		jobID)

	return scanEntry(row)
}

func (s *Store) Update(ctx context.Context, jobID string, entry *models.ContextEntry) (*models.ContextEntry, error) {
	if jobID != entry.JobID {
		return nil, contextstore.ErrJobIDMismatch
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	data, err := json.Marshal(entry.ContextData)
	if err != nil {
		return nil, fmt.Errorf("failed to encode context_data: %w", err)
	}

	now := time.Now().UTC()

	query := `UPDATE context_entries
		 SET job_type = $2, context_data = $3, version = version + 1, updated_at = $4
		 WHERE job_id = $1`
	args := []any{jobID, entry.JobType, data, now}

	if entry.Version != 0 {
		query += ` AND version = $5`
		args = append(args, entry.Version)
	}

	result, err := s.db.ExecContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to update context entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("failed to read update result: %w", err)
	}

	if affected == 0 {
		// Distinguish a missing entry from a stale version.
		if _, err := s.Get(ctx, jobID); err != nil {
			return nil, err
		}

		return nil, contextstore.ErrVersionConflict
	}

	return s.Get(ctx, jobID)
}

func (s *Store) Delete(ctx context.Context, jobID string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM context_entries WHERE job_id = $1`, jobID)
	if err != nil {
		return fmt.Errorf("failed to delete context entry: %w", err)
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read delete result: %w", err)
	}

	if affected == 0 {
		return contextstore.ErrNotFound
	}

	return nil
}

func (s *Store) HealthCheck(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *Store) Close(_ context.Context) error {
	return s.db.Close()
}

func scanEntry(row *sql.Row) (*models.ContextEntry, error) {
	var (
		entry models.ContextEntry
		data  []byte
	)

	err := row.Scan(&entry.JobID, &entry.JobType, &data, &entry.Version, &entry.CreatedAt, &entry.UpdatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, contextstore.ErrNotFound
		}

		return nil, fmt.Errorf("failed to scan context entry: %w", err)
	}

	if err := json.Unmarshal(data, &entry.ContextData); err != nil {
		return nil, fmt.Errorf("failed to decode context_data: %w", err)
	}

	return &entry, nil
}
