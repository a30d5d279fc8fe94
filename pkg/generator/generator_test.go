package generator_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	openai "github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigral/zigral/pkg/generator"
	"github.com/zigral/zigral/pkg/log"
	"github.com/zigral/zigral/pkg/models"
)

type fakeCompleter struct {
	response openai.ChatCompletionResponse
	err      error

	lastRequest openai.ChatCompletionRequest
}

func (f *fakeCompleter) CreateChatCompletion(_ context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error) {
	f.lastRequest = request

	return f.response, f.err
}

func completionWith(content string) openai.ChatCompletionResponse {
	return openai.ChatCompletionResponse{
		Choices: []openai.ChatCompletionChoice{
			{Message: openai.ChatCompletionMessage{Content: content}},
		},
	}
}

const validSequenceJSON = `{
	"objective": "Find CTOs in San Francisco",
	"steps": [
		{"agent": "linkedin", "action": "search", "criteria": {"title": "CTO", "location": "San Francisco"}},
		{"agent": "sheets", "action": "update", "parameters": {"prospects": []}}
	]
}`

func TestGenerator_Generate(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{response: completionWith(validSequenceJSON)}
	gen := generator.NewGenerator(client, "", time.Second, log.WithModule("test"))

	cmd := models.Command{Command: "find CTOs in San Francisco"}
	entry := &models.ContextEntry{
		JobID:       "job-1",
		JobType:     models.DefaultJobType,
		ContextData: map[string]any{"industry": "fintech"},
	}

	sequence, errResponse, err := gen.Generate(context.Background(), cmd, entry)
	require.NoError(t, err)
	require.Nil(t, errResponse)
	require.NotNil(t, sequence)

	assert.Equal(t, "Find CTOs in San Francisco", sequence.Objective)
	require.Len(t, sequence.Steps, 2)
	assert.Equal(t, models.AgentLinkedIn, sequence.Steps[0].Agent)
	assert.Equal(t, "search", sequence.Steps[0].Action)
	assert.Equal(t, models.AgentSheets, sequence.Steps[1].Agent)
	assert.NotEmpty(t, sequence.JobID)
	assert.False(t, sequence.CreatedAt.IsZero())

	assert.Equal(t, generator.DefaultModel, client.lastRequest.Model)
	require.Len(t, client.lastRequest.Messages, 2)
	assert.Contains(t, client.lastRequest.Messages[1].Content, "find CTOs in San Francisco")
	assert.Contains(t, client.lastRequest.Messages[1].Content, "fintech")
}

func TestGenerator_Generate_QuotaExhausted(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{
		err: &openai.APIError{
			HTTPStatusCode: http.StatusTooManyRequests,
			Message:        "You exceeded your current quota",
		},
	}
	gen := generator.NewGenerator(client, "", time.Second, log.WithModule("test"))

	sequence, errResponse, err := gen.Generate(context.Background(), models.Command{Command: "find CTOs"}, nil)
	require.NoError(t, err, "quota exhaustion is a recoverable outcome, not a failure")
	require.Nil(t, sequence)
	require.NotNil(t, errResponse)

	assert.Equal(t, models.ErrorTypeOpenAI, errResponse.ErrorType)
	assert.Contains(t, errResponse.Error, "quota")
}

func TestGenerator_Generate_ProviderFailure(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{
		err: &openai.APIError{
			HTTPStatusCode: http.StatusInternalServerError,
			Message:        "server error",
		},
	}
	gen := generator.NewGenerator(client, "", time.Second, log.WithModule("test"))

	sequence, errResponse, err := gen.Generate(context.Background(), models.Command{Command: "find CTOs"}, nil)
	require.Error(t, err)
	assert.Nil(t, sequence)
	assert.Nil(t, errResponse)
}

func TestGenerator_Generate_NoChoices(t *testing.T) {
	t.Parallel()

	client := &fakeCompleter{response: openai.ChatCompletionResponse{}}
	gen := generator.NewGenerator(client, "", time.Second, log.WithModule("test"))

	_, _, err := gen.Generate(context.Background(), models.Command{Command: "find CTOs"}, nil)
	assert.ErrorIs(t, err, generator.ErrNoChoices)
}

func TestGenerator_Generate_RejectsMalformedResponses(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		content string
	}{
		{name: "not json", content: "sure, here is your plan:"},
		{name: "missing objective", content: `{"steps": []}`},
		{name: "missing steps", content: `{"objective": "Find CTOs"}`},
		{name: "step missing action", content: `{"objective": "Find CTOs", "steps": [{"agent": "linkedin"}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			client := &fakeCompleter{response: completionWith(tt.content)}
			gen := generator.NewGenerator(client, "", time.Second, log.WithModule("test"))

			sequence, errResponse, err := gen.Generate(context.Background(), models.Command{Command: "find CTOs"}, nil)
			require.Error(t, err)
			assert.True(t, errors.Is(err, models.ErrInvalidSequence), "got: %v", err)
			assert.Nil(t, sequence)
			assert.Nil(t, errResponse)
		})
	}
}
