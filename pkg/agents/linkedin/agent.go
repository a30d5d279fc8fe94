// Package linkedin implements the executor contract for the LinkedIn
// prospecting agent. The browser automation itself runs in a separate
// service; this executor shapes step parameters into agent commands and
// reports per-step outcomes.
package linkedin

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/zigral/zigral/pkg/models"
	"github.com/zigral/zigral/pkg/protocol"
)

const (
	ActionSearch   = "search"
	ActionCollect  = "collect"
	ActionNavigate = "navigate"
)

func NewAgentFactory() *AgentFactory {
	return &AgentFactory{}
}

type AgentFactory struct{}

func (*AgentFactory) ID() string {
	return models.AgentLinkedIn
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
		logger: slog.With("module", "linkedin_agent"),
	}
}

func (a *Agent) Execute(ctx context.Context, step models.ActionStep) (*models.StepResult, error) {
	a.logger.InfoContext(ctx, "Executing step", "action", step.Action, "target", step.Target)

	switch step.Action {
	case ActionSearch:
		return a.search(step), nil
	case ActionCollect:
		return a.collect(step), nil
	case ActionNavigate:
		return a.navigate(step), nil
	default:
		return &models.StepResult{
			Step:   step,
			Status: models.StepStatusError,
			Error:  fmt.Sprintf("unsupported linkedin action: %s", step.Action),
		}, nil
	}
}

func (a *Agent) search(step models.ActionStep) *models.StepResult {
	if len(step.Criteria) == 0 {
		return &models.StepResult{
			Step:   step,
			Status: models.StepStatusError,
			Error:  "search requires criteria",
		}
	}

	return &models.StepResult{
		Step:    step,
		Status:  models.StepStatusSuccess,
		Message: "search dispatched",
		Data: map[string]any{
			"search_params": step.Criteria,
			"fields":        step.Fields,
		},
	}
}

func (a *Agent) collect(step models.ActionStep) *models.StepResult {
	urls := profileURLs(step)
	if len(urls) == 0 {
		return &models.StepResult{
			Step:   step,
			Status: models.StepStatusError,
			Error:  "collect requires at least one profile url",
		}
	}

	return &models.StepResult{
		Step:    step,
		Status:  models.StepStatusSuccess,
		Message: fmt.Sprintf("collecting %d profiles", len(urls)),
		Data: map[string]any{
			"profile_urls": urls,
			"fields":       step.Fields,
		},
	}
}

func (a *Agent) navigate(step models.ActionStep) *models.StepResult {
	if step.Target == "" {
		return &models.StepResult{
			Step:   step,
			Status: models.StepStatusError,
			Error:  "navigate requires a target",
		}
	}

	return &models.StepResult{
		Step:    step,
		Status:  models.StepStatusSuccess,
		Message: "navigated to " + step.Target,
	}
}

// profileURLs accepts the target as a single url or a url list under the
// step parameters, mirroring the shapes the planner produces.
func profileURLs(step models.ActionStep) []string {
	if step.Target != "" {
		return []string{step.Target}
	}

	raw, ok := step.Parameters["profile_urls"]
	if !ok {
		return nil
	}

	switch v := raw.(type) {
	case []string:
		return v
	case []any:
		urls := make([]string, 0, len(v))

		for _, item := range v {
			if s, ok := item.(string); ok {
				urls = append(urls, s)
			}
		}

		return urls
	default:
		return nil
	}
}
