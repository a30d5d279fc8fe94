package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// DefaultJobType is assigned to context entries created implicitly at
// command start when the caller did not declare one.
const DefaultJobType = "prospecting"

// ContextEntry is the persisted state associated with one job. Version is an
// optimistic concurrency stamp: stores reject updates whose version does not
// match the stored one.
type ContextEntry struct {
	JobID       string         `json:"job_id"   validate:"required,min=1"`
	JobType     string         `json:"job_type" validate:"required,min=1"`
	ContextData map[string]any `json:"context_data"`
	Version     int64          `json:"version"`
	CreatedAt   time.Time      `json:"created_at"`
	UpdatedAt   time.Time      `json:"updated_at"`
}

var ErrInvalidContextEntry = errors.New("invalid context entry")

func (e *ContextEntry) Validate() error {
	if e.JobID == "" {
		return fmt.Errorf("%w: job_id is required", ErrInvalidContextEntry)
	}

	if strings.TrimSpace(e.JobType) == "" {
		return fmt.Errorf("%w: job_type cannot be empty", ErrInvalidContextEntry)
	}

	if len(e.ContextData) == 0 {
		return fmt.Errorf("%w: context_data cannot be empty", ErrInvalidContextEntry)
	}

	return nil
}

// Clone returns a deep-enough copy for the orchestrator's read-modify-write
// cycle: the top-level data map is copied, nested values are shared.
func (e *ContextEntry) Clone() *ContextEntry {
	clone := *e
	clone.ContextData = make(map[string]any, len(e.ContextData))

	for k, v := range e.ContextData {
		clone.ContextData[k] = v
	}

	return &clone
}
