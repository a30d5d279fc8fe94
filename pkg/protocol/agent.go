// Package protocol defines the contracts between the orchestration core and
// its external collaborators.
package protocol

import (
	"context"

	"github.com/zigral/zigral/pkg/models"
)

// AgentExecutor executes a single action step. Implementations are
// agent-type-specific and opaque to the core: expected failures are reported
// inside the StepResult, a non-nil error means the executor itself broke.
type AgentExecutor interface {
	Execute(ctx context.Context, step models.ActionStep) (*models.StepResult, error)
}

// AgentFactory builds executors for one agent type.
type AgentFactory interface {
	ID() string
	Create(config map[string]any) (AgentExecutor, error)
}
