package linkedin_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigral/zigral/pkg/agents/linkedin"
	"github.com/zigral/zigral/pkg/models"
)

func TestAgentFactory(t *testing.T) {
	t.Parallel()

	factory := linkedin.NewAgentFactory()
	assert.Equal(t, models.AgentLinkedIn, factory.ID())

	executor, err := factory.Create(nil)
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestAgent_Execute(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name       string
		step       models.ActionStep
		wantStatus models.StepStatus
		wantError  string
	}{
		{
			name: "search with criteria",
			step: models.ActionStep{
				Agent:    models.AgentLinkedIn,
				Action:   linkedin.ActionSearch,
				Criteria: map[string]any{"title": "CTO", "location": "San Francisco"},
				Fields:   []string{"name", "company"},
			},
			wantStatus: models.StepStatusSuccess,
		},
		{
			name: "search without criteria",
			step: models.ActionStep{
				Agent:  models.AgentLinkedIn,
				Action: linkedin.ActionSearch,
			},
			wantStatus: models.StepStatusError,
			wantError:  "search requires criteria",
		},
		{
			name: "collect with target url",
			step: models.ActionStep{
				Agent:  models.AgentLinkedIn,
				Action: linkedin.ActionCollect,
				Target: "https://linkedin.com/in/example",
			},
			wantStatus: models.StepStatusSuccess,
		},
		{
			name: "collect with parameter urls",
			step: models.ActionStep{
				Agent:  models.AgentLinkedIn,
				Action: linkedin.ActionCollect,
				Parameters: map[string]any{
					"profile_urls": []any{"https://linkedin.com/in/a", "https://linkedin.com/in/b"},
				},
			},
			wantStatus: models.StepStatusSuccess,
		},
		{
			name: "collect without urls",
			step: models.ActionStep{
				Agent:  models.AgentLinkedIn,
				Action: linkedin.ActionCollect,
			},
			wantStatus: models.StepStatusError,
			wantError:  "collect requires at least one profile url",
		},
		{
			name: "navigate with target",
			step: models.ActionStep{
				Agent:  models.AgentLinkedIn,
				Action: linkedin.ActionNavigate,
				Target: "https://linkedin.com/search",
			},
			wantStatus: models.StepStatusSuccess,
		},
		{
			name: "unsupported action",
			step: models.ActionStep{
				Agent:  models.AgentLinkedIn,
				Action: "fly",
			},
			wantStatus: models.StepStatusError,
			wantError:  "unsupported linkedin action: fly",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			agent := linkedin.NewAgent(nil)

			result, err := agent.Execute(context.Background(), tt.step)
			require.NoError(t, err, "agent failures are reported in the result, not as errors")
			require.NotNil(t, result)

			assert.Equal(t, tt.wantStatus, result.Status)

			if tt.wantError != "" {
				assert.Equal(t, tt.wantError, result.Error)
			}
		})
	}
}
