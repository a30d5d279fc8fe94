// Package generator turns a user command plus job context into a validated
// action sequence via a single chat-completion call.
package generator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/google/uuid"
	openai "github.com/sashabaranov/go-openai"
	"github.com/xeipuuv/gojsonschema"

	"github.com/zigral/zigral/pkg/models"
)

const DefaultModel = openai.GPT4TurboPreview

// ErrNoChoices is returned when the provider answers with an empty choice
// list, which the contract treats as a hard failure.
var ErrNoChoices = errors.New("provider returned no choices")

// ChatCompleter is the slice of the provider client the generator needs.
// *openai.Client satisfies it; tests substitute a fake.
type ChatCompleter interface {
	CreateChatCompletion(ctx context.Context, request openai.ChatCompletionRequest) (openai.ChatCompletionResponse, error)
}

type Generator struct {
	client  ChatCompleter
	model   string
	timeout time.Duration
	logger  *slog.Logger
}

// NewGenerator builds a generator around an explicitly constructed provider
// client. There is no lazily-initialized global client: whoever wires the
// orchestrator owns the client's lifecycle.
func NewGenerator(client ChatCompleter, model string, timeout time.Duration, logger *slog.Logger) *Generator {
	if model == "" {
		model = DefaultModel
	}

	return &Generator{
		client:  client,
		model:   model,
		timeout: timeout,
		logger:  logger.With("module", "generator"),
	}
}

// Generate produces an action sequence for the command. The three outcomes
// are disjoint:
//   - sequence, nil, nil on success;
//   - nil, errorResponse, nil when the provider reported a quota/rate-limit
//     condition (recoverable, rendered to the user as "AI is busy");
//   - nil, nil, err for every other provider or validation failure.
func (g *Generator) Generate(ctx context.Context, cmd models.Command, entry *models.ContextEntry) (*models.ActionSequence, *models.ErrorResponse, error) {
	if g.timeout > 0 {
		var cancel context.CancelFunc

		ctx, cancel = context.WithTimeout(ctx, g.timeout)
		defer cancel()
	}

	request := openai.ChatCompletionRequest{
		Model: g.model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: buildPrompt(cmd, entry)},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: 0.7,
	}

	response, err := g.client.CreateChatCompletion(ctx, request)
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) && apiErr.HTTPStatusCode == http.StatusTooManyRequests {
			g.logger.WarnContext(ctx, "Provider quota exhausted", "error", err)

			return nil, &models.ErrorResponse{
				Error:     err.Error(),
				ErrorType: models.ErrorTypeOpenAI,
			}, nil
		}

		return nil, nil, fmt.Errorf("chat completion failed: %w", err)
	}

	if len(response.Choices) == 0 {
		return nil, nil, ErrNoChoices
	}

	sequence, err := parseSequence(response.Choices[0].Message.Content)
	if err != nil {
		return nil, nil, err
	}

	g.logger.InfoContext(ctx, "Generated action sequence",
		"job_id", sequence.JobID,
		"objective", sequence.Objective,
		"steps", len(sequence.Steps))

	return sequence, nil, nil
}

// parseSequence validates the provider's raw JSON against the sequence
// schema before unmarshalling. Malformed JSON is a validation failure, never
// silently coerced.
func parseSequence(content string) (*models.ActionSequence, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(sequenceSchema),
		gojsonschema.NewStringLoader(content),
	)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidSequence, err)
	}

	if !result.Valid() {
		detail := ""
		for _, desc := range result.Errors() {
			detail += desc.String() + "; "
		}

		return nil, fmt.Errorf("%w: %s", models.ErrInvalidSequence, detail)
	}

	var sequence models.ActionSequence
	if err := json.Unmarshal([]byte(content), &sequence); err != nil {
		return nil, fmt.Errorf("%w: %s", models.ErrInvalidSequence, err)
	}

	if err := sequence.Validate(); err != nil {
		return nil, err
	}

	now := time.Now().UTC()

	if sequence.JobID == "" {
		sequence.JobID = uuid.New().String()
	}

	if sequence.CreatedAt.IsZero() {
		sequence.CreatedAt = now
	}

	if sequence.UpdatedAt.IsZero() {
		sequence.UpdatedAt = now
	}

	return &sequence, nil
}

const sequenceSchema = `{
	"type": "object",
	"required": ["objective", "steps"],
	"properties": {
		"objective": {"type": "string", "minLength": 1},
		"steps": {
			"type": "array",
			"items": {
				"type": "object",
				"required": ["agent", "action"],
				"properties": {
					"agent": {"type": "string", "minLength": 1},
					"action": {"type": "string", "minLength": 1},
					"target": {"type": "string"},
					"criteria": {"type": "object"},
					"fields": {"type": "array", "items": {"type": "string"}},
					"parameters": {"type": "object"},
					"timeout": {"type": "integer"}
				}
			}
		}
	}
}`
