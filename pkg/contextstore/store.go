// Package contextstore persists per-job context entries. The orchestrator
// reads an entry at command start and writes it back at completion; every
// implementation enforces optimistic versioning so concurrent writers to the
// same job id surface a conflict instead of silently losing updates.
package contextstore

import (
	"context"
	"errors"

	"github.com/zigral/zigral/pkg/models"
)

var (
	ErrNotFound        = errors.New("context entry not found")
	ErrAlreadyExists   = errors.New("context entry already exists")
	ErrVersionConflict = errors.New("context entry version conflict")
	ErrJobIDMismatch   = errors.New("job id does not match entry")
)

func IsNotFound(err error) bool {
	return errors.Is(err, ErrNotFound)
}

func IsConflict(err error) bool {
	return errors.Is(err, ErrAlreadyExists) || errors.Is(err, ErrVersionConflict)
}

type Store interface {
	// Create inserts a new entry at version 1.
	Create(ctx context.Context, entry *models.ContextEntry) (*models.ContextEntry, error)
	Get(ctx context.Context, jobID string) (*models.ContextEntry, error)
	// Update writes the entry if jobID matches entry.JobID and the stored
	// version equals entry.Version. A zero entry version skips the check
	// (last-writer-wins, for callers that opted out of versioning).
	Update(ctx context.Context, jobID string, entry *models.ContextEntry) (*models.ContextEntry, error)
	Delete(ctx context.Context, jobID string) error

	HealthCheck(ctx context.Context) error
	Close(ctx context.Context) error
}
