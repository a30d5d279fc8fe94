package sheets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigral/zigral/pkg/agents/sheets"
	"github.com/zigral/zigral/pkg/models"
)

func TestAgentFactory(t *testing.T) {
	t.Parallel()

	factory := sheets.NewAgentFactory()
	assert.Equal(t, models.AgentSheets, factory.ID())

	executor, err := factory.Create(map[string]any{"sheet_id": "abc"})
	require.NoError(t, err)
	assert.NotNil(t, executor)
}

func TestAgent_Execute_Update(t *testing.T) {
	t.Parallel()

	agent := sheets.NewAgent(nil)

	result, err := agent.Execute(context.Background(), models.ActionStep{
		Agent:  models.AgentSheets,
		Action: sheets.ActionUpdate,
		Parameters: map[string]any{
			"prospects": []any{
				map[string]any{"name": "Ada", "company": "Analytical Engines"},
			},
		},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StepStatusSuccess, result.Status)
	assert.Equal(t, "update dispatched for 1 prospects", result.Message)
}

func TestAgent_Execute_Get(t *testing.T) {
	t.Parallel()

	agent := sheets.NewAgent(nil)

	result, err := agent.Execute(context.Background(), models.ActionStep{
		Agent:    models.AgentSheets,
		Action:   sheets.ActionGet,
		Criteria: map[string]any{"status": "new"},
	})
	require.NoError(t, err)

	assert.Equal(t, models.StepStatusSuccess, result.Status)
	assert.Equal(t, map[string]any{"status": "new"}, result.Data["filters"])
}

func TestAgent_Execute_UnsupportedAction(t *testing.T) {
	t.Parallel()

	agent := sheets.NewAgent(nil)

	result, err := agent.Execute(context.Background(), models.ActionStep{
		Agent:  models.AgentSheets,
		Action: "pivot",
	})
	require.NoError(t, err)

	assert.Equal(t, models.StepStatusError, result.Status)
	assert.Equal(t, "unsupported sheets action: pivot", result.Error)
}
