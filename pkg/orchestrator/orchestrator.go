// Package orchestrator coordinates a command's journey from natural-language
// text to an executed action sequence: load context, generate the plan,
// dispatch steps to agents in order, persist progress, and broadcast update
// events along the way.
package orchestrator

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/zigral/zigral/pkg/checkpoint"
	"github.com/zigral/zigral/pkg/contextstore"
	"github.com/zigral/zigral/pkg/eventbus"
	"github.com/zigral/zigral/pkg/events"
	"github.com/zigral/zigral/pkg/models"
	"github.com/zigral/zigral/pkg/otelhelper"
	"github.com/zigral/zigral/pkg/registry"
)

// FailurePolicy decides what happens to the rest of a sequence when a step
// reports an error. Steps are assumed loosely coupled, so the default is to
// record the failure and keep going.
type FailurePolicy string

const (
	PolicyContinue FailurePolicy = "continue"
	PolicyAbort    FailurePolicy = "abort"
)

type Config struct {
	FailurePolicy FailurePolicy
	// StepTimeout, when set, overrides the per-step timeout declared in the
	// sequence. External calls are never retried here; retries belong to
	// the agent and provider client layers.
	StepTimeout time.Duration
}

// SequenceGenerator is the slice of the generator the orchestrator depends on.
type SequenceGenerator interface {
	Generate(ctx context.Context, cmd models.Command, entry *models.ContextEntry) (*models.ActionSequence, *models.ErrorResponse, error)
}

// Result is the terminal outcome of a command: exactly one of Report or
// ErrorResponse is set. An ErrorResponse is still a successful response at
// the transport level (the caller got an answer, just an error payload).
type Result struct {
	Report        *models.ExecutionReport `json:"report,omitempty"`
	ErrorResponse *models.ErrorResponse   `json:"error,omitempty"`
}

type Orchestrator struct {
	generator   SequenceGenerator
	registry    *registry.Registry
	store       contextstore.Store
	eventBus    eventbus.EventBus
	checkpoints *checkpoint.Manager
	tracer      trace.Tracer
	config      Config
	logger      *slog.Logger
}

func NewOrchestrator(
	generator SequenceGenerator,
	reg *registry.Registry,
	store contextstore.Store,
	eventBus eventbus.EventBus,
	checkpoints *checkpoint.Manager,
	config Config,
	logger *slog.Logger,
) *Orchestrator {
	if config.FailurePolicy == "" {
		config.FailurePolicy = PolicyContinue
	}

	return &Orchestrator{
		generator:   generator,
		registry:    reg,
		store:       store,
		eventBus:    eventBus,
		checkpoints: checkpoints,
		tracer:      otel.Tracer("zigral-orchestrator"),
		config:      config,
		logger:      logger.With("module", "orchestrator"),
	}
}

// Execute runs one command through the full pipeline. Each call is an
// independent state machine instance; concurrent calls share only the
// context store and the event bus.
func (o *Orchestrator) Execute(ctx context.Context, cmd models.Command) (result *Result, err error) {
	if err := cmd.Validate(); err != nil {
		return nil, err
	}

	jobID := cmd.JobID()
	if jobID == "" {
		jobID = "job-" + uuid.New().String()[:8]
	}

	logger := o.logger.With("job_id", jobID)

	ctx, span := o.tracer.Start(ctx, "orchestrator.execute", trace.WithAttributes(
		attribute.String(otelhelper.JobIDKey, jobID),
		attribute.String(otelhelper.CommandKey, cmd.Command),
	))
	defer span.End()

	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("command execution panicked: %v", r)
			result = nil

			otelhelper.SetError(span, err)
			o.publishError(ctx, jobID, err.Error(), "")
		}
	}()

	logger.InfoContext(ctx, "Received command", "command", cmd.Command)
	o.publish(ctx, jobID, events.CommandReceived{
		BaseEvent: events.NewBaseEvent(events.CommandReceivedEvent, jobID),
		Command:   cmd.Command,
	})

	entry, err := o.loadOrCreateContext(ctx, jobID, cmd)
	if err != nil {
		otelhelper.SetError(span, err)
		o.publishError(ctx, jobID, err.Error(), "")

		return nil, fmt.Errorf("failed to load context for job %s: %w", jobID, err)
	}

	sequence, errResponse, err := o.generator.Generate(ctx, cmd, entry)
	if err != nil {
		otelhelper.SetError(span, err)
		o.publishError(ctx, jobID, err.Error(), "")

		return nil, fmt.Errorf("failed to generate action sequence: %w", err)
	}

	if errResponse != nil {
		// Recoverable generation outcome (provider quota). Returned as a
		// normal response so the frontend can render retry guidance.
		o.publishError(ctx, jobID, errResponse.Error, errResponse.ErrorType)

		return &Result{ErrorResponse: errResponse}, nil
	}

	sequence.JobID = jobID
	span.SetAttributes(attribute.String(otelhelper.ObjectiveKey, sequence.Objective))

	o.publish(ctx, jobID, events.ActionSequenceGenerated{
		BaseEvent: events.NewBaseEvent(events.ActionSequenceGeneratedEvent, jobID),
		Objective: sequence.Objective,
		Steps:     sequence.Steps,
	})

	startedAt := time.Now().UTC()
	results := o.executeSteps(ctx, jobID, sequence, logger)

	report := &models.ExecutionReport{
		JobID:       jobID,
		Objective:   sequence.Objective,
		Steps:       results,
		StartedAt:   startedAt,
		CompletedAt: time.Now().UTC(),
	}

	if err := o.persistProgress(ctx, entry, cmd, report); err != nil {
		logger.ErrorContext(ctx, "Failed to persist job context", "error", err)
		otelhelper.SetError(span, err)
		o.publishError(ctx, jobID, err.Error(), "")

		return nil, err
	}

	o.publish(ctx, jobID, events.ExecutionComplete{
		BaseEvent: events.NewBaseEvent(events.ExecutionCompleteEvent, jobID),
		Report:    report,
	})

	logger.InfoContext(ctx, "Command completed", "steps", len(results))

	return &Result{Report: report}, nil
}

func (o *Orchestrator) executeSteps(ctx context.Context, jobID string, sequence *models.ActionSequence, logger *slog.Logger) []models.StepResult {
	results := make([]models.StepResult, 0, len(sequence.Steps))

	for i, step := range sequence.Steps {
		result := o.executeStep(ctx, i, step, logger)
		results = append(results, *result)

		o.saveCheckpoint(jobID, sequence, results, logger)

		message := fmt.Sprintf("Executed step %d/%d: %s.%s (%s)",
			i+1, len(sequence.Steps), step.Agent, step.Action, result.Status)

		o.publish(ctx, jobID, events.ExecutionProgress{
			BaseEvent:  events.NewBaseEvent(events.ExecutionProgressEvent, jobID),
			StepIndex:  i,
			TotalSteps: len(sequence.Steps),
			Message:    message,
			Result:     result,
		})

		if result.Status == models.StepStatusError && o.config.FailurePolicy == PolicyAbort {
			logger.WarnContext(ctx, "Aborting sequence after step failure", "step_index", i)

			break
		}
	}

	return results
}

func (o *Orchestrator) executeStep(ctx context.Context, index int, step models.ActionStep, logger *slog.Logger) *models.StepResult {
	ctx, span := o.tracer.Start(ctx, "orchestrator.execute_step", trace.WithAttributes(
		attribute.Int(otelhelper.StepIndexKey, index),
		attribute.String(otelhelper.StepAgentKey, step.Agent),
		attribute.String(otelhelper.StepActionKey, step.Action),
	))
	defer span.End()

	executor, err := o.registry.CreateAgent(step.Agent, nil)
	if err != nil {
		// An unknown agent fails the step, not the command.
		logger.WarnContext(ctx, "Unknown agent", "agent", step.Agent)
		otelhelper.SetError(span, err)

		return &models.StepResult{
			Step:   step,
			Status: models.StepStatusError,
			Error:  fmt.Sprintf("unknown agent: %s", step.Agent),
		}
	}

	timeout := step.Timeout()
	if o.config.StepTimeout > 0 {
		timeout = o.config.StepTimeout
	}

	stepCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	result, err := executor.Execute(stepCtx, step)
	if err != nil {
		logger.ErrorContext(ctx, "Step execution failed", "agent", step.Agent, "action", step.Action, "error", err)
		otelhelper.SetError(span, err)

		return &models.StepResult{
			Step:   step,
			Status: models.StepStatusError,
			Error:  err.Error(),
		}
	}

	span.SetAttributes(attribute.String(otelhelper.StepStatusKey, string(result.Status)))

	return result
}

// loadOrCreateContext fetches the job's context entry, creating a fresh one
// when this is the first command for the job id.
func (o *Orchestrator) loadOrCreateContext(ctx context.Context, jobID string, cmd models.Command) (*models.ContextEntry, error) {
	entry, err := o.store.Get(ctx, jobID)
	if err == nil {
		return entry, nil
	}

	if !contextstore.IsNotFound(err) {
		return nil, err
	}

	return o.store.Create(ctx, &models.ContextEntry{
		JobID:       jobID,
		JobType:     models.DefaultJobType,
		ContextData: map[string]any{"command": cmd.Command},
	})
}

// persistProgress writes the execution outcome back to the context store.
// The write is optimistic: on a version conflict it re-reads once and
// reapplies before surfacing the conflict.
func (o *Orchestrator) persistProgress(ctx context.Context, entry *models.ContextEntry, cmd models.Command, report *models.ExecutionReport) error {
	_, err := o.store.Update(ctx, entry.JobID, progressEntry(entry, cmd, report))
	if err == nil {
		return nil
	}

	if !contextstore.IsConflict(err) {
		return err
	}

	fresh, getErr := o.store.Get(ctx, entry.JobID)
	if getErr != nil {
		return getErr
	}

	_, err = o.store.Update(ctx, entry.JobID, progressEntry(fresh, cmd, report))

	return err
}

func progressEntry(entry *models.ContextEntry, cmd models.Command, report *models.ExecutionReport) *models.ContextEntry {
	updated := entry.Clone()

	statuses := make([]string, 0, len(report.Steps))
	lastSuccess := -1

	for i, step := range report.Steps {
		statuses = append(statuses, string(step.Status))

		if step.Status == models.StepStatusSuccess {
			lastSuccess = i
		}
	}

	updated.ContextData["command"] = cmd.Command
	updated.ContextData["objective"] = report.Objective
	updated.ContextData["step_statuses"] = statuses
	updated.ContextData["last_successful_step"] = lastSuccess
	updated.ContextData["completed_at"] = report.CompletedAt.Format(time.RFC3339)

	return updated
}

func (o *Orchestrator) saveCheckpoint(jobID string, sequence *models.ActionSequence, results []models.StepResult, logger *slog.Logger) {
	if o.checkpoints == nil {
		return
	}

	statuses := make([]string, 0, len(results))
	for _, r := range results {
		statuses = append(statuses, string(r.Status))
	}

	_, err := o.checkpoints.Save(jobID, map[string]any{
		"objective":       sequence.Objective,
		"total_steps":     len(sequence.Steps),
		"completed_steps": len(results),
		"step_statuses":   statuses,
	})
	if err != nil {
		logger.Warn("Failed to write checkpoint", "error", err)
	}
}

// publish delivers an update event best-effort: a publish failure is logged
// and never fails the command.
func (o *Orchestrator) publish(ctx context.Context, jobID string, event eventbus.Event) {
	if o.eventBus == nil {
		return
	}

	if err := o.eventBus.Publish(ctx, jobID, event); err != nil {
		o.logger.WarnContext(ctx, "Failed to publish update event",
			"job_id", jobID, "event_type", event.GetType(), "error", err)
	}
}

func (o *Orchestrator) publishError(ctx context.Context, jobID, message string, errorType models.ErrorType) {
	o.publish(ctx, jobID, events.ExecutionError{
		BaseEvent: events.NewBaseEvent(events.ErrorEvent, jobID),
		Error:     message,
		ErrorType: errorType,
	})
}
