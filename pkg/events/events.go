// Package events defines the update events pushed to subscribers while a
// command moves through the orchestration pipeline.
package events

import (
	"time"

	"github.com/google/uuid"

	"github.com/zigral/zigral/pkg/models"
)

type EventType string

// Topic is the event bus topic carrying all update events.
const Topic = "zigral.updates"

const EventMetadataKey = "key"
const EventTypeMetadataKey = "event_type"

const (
	CommandReceivedEvent         EventType = "command_received"
	ActionSequenceGeneratedEvent EventType = "action_sequence_generated"
	ExecutionProgressEvent       EventType = "execution_progress"
	ExecutionCompleteEvent       EventType = "execution_complete"
	ErrorEvent                   EventType = "error"
	PongEvent                    EventType = "pong"
)

type BaseEvent struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	Timestamp time.Time `json:"timestamp"`
	JobID     string    `json:"job_id,omitempty"`
}

func NewBaseEvent(eventType EventType, jobID string) BaseEvent {
	return BaseEvent{
		ID:        uuid.New().String(),
		Type:      eventType,
		Timestamp: time.Now().UTC(),
		JobID:     jobID,
	}
}

type CommandReceived struct {
	BaseEvent

	Command string `json:"command"`
}

func (e CommandReceived) GetType() EventType {
	return CommandReceivedEvent
}

type ActionSequenceGenerated struct {
	BaseEvent

	Objective string              `json:"objective"`
	Steps     []models.ActionStep `json:"steps"`
}

func (e ActionSequenceGenerated) GetType() EventType {
	return ActionSequenceGeneratedEvent
}

type ExecutionProgress struct {
	BaseEvent

	StepIndex  int                `json:"step_index"`
	TotalSteps int                `json:"total_steps"`
	Message    string             `json:"message"`
	Result     *models.StepResult `json:"result,omitempty"`
}

func (e ExecutionProgress) GetType() EventType {
	return ExecutionProgressEvent
}

type ExecutionComplete struct {
	BaseEvent

	Report *models.ExecutionReport `json:"report"`
}

func (e ExecutionComplete) GetType() EventType {
	return ExecutionCompleteEvent
}

type ExecutionError struct {
	BaseEvent

	Error     string           `json:"error"`
	ErrorType models.ErrorType `json:"error_type,omitempty"`
}

func (e ExecutionError) GetType() EventType {
	return ErrorEvent
}

// Pong carries no business payload. It answers a subscriber's liveness ping
// and echoes whatever the client sent.
type Pong struct {
	BaseEvent

	Data string `json:"data"`
}

func (e Pong) GetType() EventType {
	return PongEvent
}
