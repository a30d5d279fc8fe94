// Package models defines the data structures shared across the orchestration core.
package models

import (
	"errors"
	"fmt"
	"strings"
)

// ContextJobIDKey is the command context key carrying the caller-supplied job id.
const ContextJobIDKey = "job_id"

// Command is a free-form natural-language instruction submitted by a user,
// together with optional caller-supplied context.
type Command struct {
	Command string         `json:"command" validate:"required"`
	Context map[string]any `json:"context,omitempty"`
}

var (
	ErrEmptyCommand   = errors.New("command cannot be empty")
	ErrInvalidContext = errors.New("invalid command context")
)

// Validate checks the command text and the structural rules for context
// values: values must be non-empty strings or non-empty lists of strings.
func (c *Command) Validate() error {
	if strings.TrimSpace(c.Command) == "" {
		return ErrEmptyCommand
	}

	for key, value := range c.Context {
		if key == "" {
			return fmt.Errorf("%w: context keys must be non-empty strings", ErrInvalidContext)
		}

		if err := validateContextValue(key, value); err != nil {
			return err
		}
	}

	return nil
}

func validateContextValue(key string, value any) error {
	switch v := value.(type) {
	case string:
		if strings.TrimSpace(v) == "" {
			return fmt.Errorf("%w: context value for %q cannot be empty", ErrInvalidContext, key)
		}
	case []string:
		if len(v) == 0 {
			return fmt.Errorf("%w: context list for %q cannot be empty", ErrInvalidContext, key)
		}
	case []any:
		if len(v) == 0 {
			return fmt.Errorf("%w: context list for %q cannot be empty", ErrInvalidContext, key)
		}

		for _, item := range v {
			if _, ok := item.(string); !ok {
				return fmt.Errorf("%w: context list for %q must contain only strings", ErrInvalidContext, key)
			}
		}
	default:
		return fmt.Errorf("%w: context value for %q must be a string or a list of strings", ErrInvalidContext, key)
	}

	return nil
}

// JobID returns the caller-supplied job id from the command context, or an
// empty string when none was provided.
func (c *Command) JobID() string {
	if c.Context == nil {
		return ""
	}

	if id, ok := c.Context[ContextJobIDKey].(string); ok {
		return id
	}

	return ""
}
