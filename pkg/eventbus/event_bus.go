// Package eventbus abstracts the transport that fans orchestration update
// events out to subscribers.
package eventbus

import (
	"context"

	"github.com/zigral/zigral/pkg/events"
)

type Event interface {
	GetType() events.EventType
}

type EventHandler func(ctx context.Context, event any) error

type EventBus interface {
	// Publish emits an event keyed by job id. Delivery is best-effort:
	// events emitted with no live subscriber are lost.
	Publish(ctx context.Context, key string, event Event) error
	Subscribe(ctx context.Context) error
	Handle(eventType events.EventType, handler EventHandler) error
	GenerateID() string
	Close() error
}
