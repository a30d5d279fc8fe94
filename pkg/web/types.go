// Package web provides the HTTP surface of the orchestrator: command
// submission, job context management, and health reporting.
package web

import "github.com/zigral/zigral/pkg/models"

// CommandRequest represents the request body for submitting a
// natural-language command.
type CommandRequest struct {
	Command string         `json:"command" validate:"required,min=1"`
	Context map[string]any `json:"context,omitempty"`
}

// ToCommand converts the request into the domain command.
func (r CommandRequest) ToCommand() models.Command {
	return models.Command{
		Command: r.Command,
		Context: r.Context,
	}
}

// CreateContextRequest represents the request body for creating a job
// context entry.
type CreateContextRequest struct {
	JobID       string         `json:"job_id"       validate:"required,min=1"`
	JobType     string         `json:"job_type"`
	ContextData map[string]any `json:"context_data"`
}

// UpdateContextRequest represents the request body for replacing a job
// context entry. JobID, when present, must match the path parameter.
type UpdateContextRequest struct {
	JobID       string         `json:"job_id,omitempty"`
	JobType     string         `json:"job_type"`
	ContextData map[string]any `json:"context_data"`
	Version     int64          `json:"version,omitempty"`
}
