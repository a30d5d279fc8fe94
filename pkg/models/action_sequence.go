package models

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Well-known agent identifiers. The registry accepts arbitrary agent names;
// these are the two the default deployment ships with.
const (
	AgentLinkedIn = "linkedin"
	AgentSheets   = "sheets"
)

// DefaultStepTimeout bounds a single agent call when the step does not
// declare its own timeout.
const DefaultStepTimeout = 5 * time.Second

// ActionStep is one agent operation inside an action sequence. Steps are
// immutable once generated and execute strictly in sequence order.
type ActionStep struct {
	Agent      string         `json:"agent"      validate:"required"`
	Action     string         `json:"action"     validate:"required"`
	Target     string         `json:"target,omitempty"`
	Criteria   map[string]any `json:"criteria,omitempty"`
	Fields     []string       `json:"fields,omitempty"`
	Parameters map[string]any `json:"parameters,omitempty"`
	TimeoutMS  int64          `json:"timeout,omitempty"`
}

// Timeout returns the per-step execution deadline.
func (s ActionStep) Timeout() time.Duration {
	if s.TimeoutMS > 0 {
		return time.Duration(s.TimeoutMS) * time.Millisecond
	}

	return DefaultStepTimeout
}

// ActionSequence is the ordered plan derived from a command. It is produced
// once per command and never mutated afterwards, only iterated.
type ActionSequence struct {
	JobID     string       `json:"job_id"`
	Objective string       `json:"objective" validate:"required"`
	Steps     []ActionStep `json:"steps"`
	CreatedAt time.Time    `json:"created_at"`
	UpdatedAt time.Time    `json:"updated_at"`
}

var ErrInvalidSequence = errors.New("invalid action sequence")

// Validate applies the structural rules for a generated sequence: a
// non-empty objective and steps that each name an agent and an action.
func (a *ActionSequence) Validate() error {
	if strings.TrimSpace(a.Objective) == "" {
		return fmt.Errorf("%w: objective is required", ErrInvalidSequence)
	}

	if a.Steps == nil {
		return fmt.Errorf("%w: steps must be a list", ErrInvalidSequence)
	}

	for i, step := range a.Steps {
		if strings.TrimSpace(step.Agent) == "" {
			return fmt.Errorf("%w: step %d is missing an agent", ErrInvalidSequence, i)
		}

		if strings.TrimSpace(step.Action) == "" {
			return fmt.Errorf("%w: step %d is missing an action", ErrInvalidSequence, i)
		}
	}

	return nil
}
