// Package sheets implements the executor contract for the spreadsheet
// agent that maintains the prospect list.
package sheets

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zigral/zigral/pkg/models"
	"github.com/zigral/zigral/pkg/protocol"
)

const (
	ActionUpdate = "update"
	ActionGet    = "get"
)

func NewAgentFactory() *AgentFactory {
	return &AgentFactory{}
}

type AgentFactory struct{}

func (*AgentFactory) ID() string {
	return models.AgentSheets
}

func (f *AgentFactory) Create(config map[string]any) (protocol.AgentExecutor, error) {
	if config == nil {
		config = map[string]any{}
	}

	return NewAgent(config), nil
}

type Agent struct {
	config map[string]any
	logger *slog.Logger
}

func NewAgent(config map[string]any) *Agent {
	return &Agent{
		config: config,
		logger: slog.With("module", "sheets_agent"),
	}
}

func (a *Agent) Execute(ctx context.Context, step models.ActionStep) (*models.StepResult, error) {
	a.logger.InfoContext(ctx, "Executing step", "action", step.Action)

	switch step.Action {
	case ActionUpdate:
		return a.update(step), nil
	case ActionGet:
		return a.get(step), nil
	default:
		return &models.StepResult{
			Step:   step,
			Status: models.StepStatusError,
			Error:  fmt.Sprintf("unsupported sheets action: %s", step.Action),
		}, nil
	}
}

func (a *Agent) update(step models.ActionStep) *models.StepResult {
	prospects := prospectRows(step)

	return &models.StepResult{
		Step:    step,
		Status:  models.StepStatusSuccess,
		Message: fmt.Sprintf("update dispatched for %d prospects", len(prospects)),
		Data: map[string]any{
			"prospects": prospects,
			"filters":   step.Criteria,
		},
	}
}

func (a *Agent) get(step models.ActionStep) *models.StepResult {
	return &models.StepResult{
		Step:    step,
		Status:  models.StepStatusSuccess,
		Message: "get dispatched",
		Data: map[string]any{
			"filters": step.Criteria,
			"fields":  step.Fields,
		},
	}
}

func prospectRows(step models.ActionStep) []any {
	raw, ok := step.Parameters["prospects"]
	if !ok {
		return []any{}
	}

	if rows, ok := raw.([]any); ok {
		return rows
	}

	return []any{}
}
