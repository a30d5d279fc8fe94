// Package file stores context entries as one JSON file per job under a root
// directory.
package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/zigral/zigral/pkg/contextstore"
	"github.com/zigral/zigral/pkg/models"
)

type Store struct {
	root string
}

func NewStore(root string) *Store {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Store{root: cleanRoot}
}

func (s *Store) entryPath(jobID string) (string, error) {
	if jobID == "" || strings.ContainsAny(jobID, "/\\") {
		return "", fmt.Errorf("%w: unusable job id %q", contextstore.ErrJobIDMismatch, jobID)
	}

	return filepath.Join(s.root, jobID+".json"), nil
}

func (s *Store) read(jobID string) (*models.ContextEntry, error) {
	path, err := s.entryPath(jobID)
	if err != nil {
		return nil, err
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return nil, contextstore.ErrNotFound
		}

		return nil, fmt.Errorf("failed to read context entry %s: %w", jobID, err)
	}

	var entry models.ContextEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to decode context entry %s: %w", jobID, err)
	}

	return &entry, nil
}

func (s *Store) write(entry *models.ContextEntry) error {
	path, err := s.entryPath(entry.JobID)
	if err != nil {
		return err
	}

	if err := os.MkdirAll(s.root, 0o755); err != nil {
		return fmt.Errorf("failed to create context store root: %w", err)
	}

	data, err := json.MarshalIndent(entry, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode context entry %s: %w", entry.JobID, err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("failed to write context entry %s: %w", entry.JobID, err)
	}

	return nil
}

func (s *Store) Create(_ context.Context, entry *models.ContextEntry) (*models.ContextEntry, error) {
	if err := entry.Validate(); err != nil {
		return nil, err
	}

	if _, err := s.read(entry.JobID); err == nil {
		return nil, contextstore.ErrAlreadyExists
	} else if !contextstore.IsNotFound(err) {
		return nil, err
	}

	stored := entry.Clone()
	stored.Version = 1
	stored.CreatedAt = time.Now().UTC()
	stored.UpdatedAt = stored.CreatedAt

	if err := s.write(stored); err != nil {
		return nil, err
	}

	return stored, nil
}

func (s *Store) Get(_ context.Context, jobID string) (*models.ContextEntry, error) {
	return s.read(jobID)
}

func (s *Store) Update(_ context.Context, jobID string, entry *models.ContextEntry) (*models.ContextEntry, error) {
	if jobID != entry.JobID {
		return nil, contextstore.ErrJobIDMismatch
	}

	if err := entry.Validate(); err != nil {
		return nil, err
	}

	stored, err := s.read(jobID)
	if err != nil {
		return nil, err
	}

	if entry.Version != 0 && entry.Version != stored.Version {
		return nil, contextstore.ErrVersionConflict
	}

	updated := entry.Clone()
	updated.Version = stored.Version + 1
	updated.CreatedAt = stored.CreatedAt
	updated.UpdatedAt = time.Now().UTC()

	if err := s.write(updated); err != nil {
		return nil, err
	}

	return updated, nil
}

func (s *Store) Delete(_ context.Context, jobID string) error {
	path, err := s.entryPath(jobID)
	if err != nil {
		return err
	}

	if err := os.Remove(path); err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return contextstore.ErrNotFound
		}

		return fmt.Errorf("failed to delete context entry %s: %w", jobID, err)
	}

	return nil
}

func (s *Store) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(s.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

func (s *Store) Close(_ context.Context) error {
	return nil
}
