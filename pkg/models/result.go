package models

import "time"

type StepStatus string

const (
	StepStatusSuccess StepStatus = "success"
	StepStatusError   StepStatus = "error"
)

// StepResult records the outcome of one executed step. Results accumulate in
// sequence order and are immutable once created.
type StepResult struct {
	Step    ActionStep     `json:"step"`
	Status  StepStatus     `json:"status"`
	Message string         `json:"message,omitempty"`
	Data    map[string]any `json:"data,omitempty"`
	Error   string         `json:"error,omitempty"`
}

// ExecutionReport is the final aggregate returned to the caller once every
// step has resolved or the sequence was aborted.
type ExecutionReport struct {
	JobID       string       `json:"job_id"`
	Objective   string       `json:"objective"`
	Steps       []StepResult `json:"steps"`
	StartedAt   time.Time    `json:"started_at"`
	CompletedAt time.Time    `json:"completed_at"`
}

type ErrorType string

const (
	ErrorTypeOpenAI     ErrorType = "openai_error"
	ErrorTypeRateLimit  ErrorType = "rate_limited"
	ErrorTypeValidation ErrorType = "validation_error"
	ErrorTypeAgent      ErrorType = "agent_error"
)

// ErrorResponse is the terminal payload returned instead of an
// ActionSequence or ExecutionReport when a recoverable failure occurred.
type ErrorResponse struct {
	Error     string    `json:"error"`
	ErrorType ErrorType `json:"error_type,omitempty"`
}
