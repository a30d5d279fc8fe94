// Package updates fans orchestration events out to live subscribers over
// WebSocket connections. Delivery is at-most-once: events emitted while a
// client is disconnected are not buffered or replayed.
package updates

import (
	"context"
	"log/slog"
	"sync"

	"github.com/zigral/zigral/pkg/eventbus"
	"github.com/zigral/zigral/pkg/events"
)

// Conn is the slice of a WebSocket connection the hub needs. Satisfied by
// *websocket.Conn; tests substitute a recorder.
type Conn interface {
	WriteJSON(v any) error
	Close() error
}

// Hub tracks one connection per client id and pushes events to all of them.
type Hub struct {
	mu      sync.Mutex
	clients map[string]Conn
	logger  *slog.Logger
}

func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[string]Conn),
		logger:  logger.With("module", "updates_hub"),
	}
}

// Register attaches a connection under the client id, replacing any previous
// connection for the same id (a reconnecting client regenerates its
// subscription).
func (h *Hub) Register(clientID string, conn Conn) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if old, ok := h.clients[clientID]; ok {
		_ = old.Close()
	}

	h.clients[clientID] = conn
	h.logger.Info("Client subscribed", "client_id", clientID, "subscribers", len(h.clients))
}

func (h *Hub) Unregister(clientID string) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if conn, ok := h.clients[clientID]; ok {
		_ = conn.Close()
		delete(h.clients, clientID)
		h.logger.Info("Client unsubscribed", "client_id", clientID, "subscribers", len(h.clients))
	}
}

// Broadcast pushes an event to every subscriber. Connections that fail the
// write are dropped.
func (h *Hub) Broadcast(event any) {
	h.mu.Lock()
	defer h.mu.Unlock()

	for clientID, conn := range h.clients {
		if err := conn.WriteJSON(event); err != nil {
			h.logger.Warn("Dropping dead subscriber", "client_id", clientID, "error", err)
			_ = conn.Close()
			delete(h.clients, clientID)
		}
	}
}

// SendTo pushes an event to a single subscriber.
func (h *Hub) SendTo(clientID string, event any) bool {
	h.mu.Lock()
	defer h.mu.Unlock()

	conn, ok := h.clients[clientID]
	if !ok {
		return false
	}

	if err := conn.WriteJSON(event); err != nil {
		h.logger.Warn("Dropping dead subscriber", "client_id", clientID, "error", err)
		_ = conn.Close()
		delete(h.clients, clientID)

		return false
	}

	return true
}

func (h *Hub) Subscribers() int {
	h.mu.Lock()
	defer h.mu.Unlock()

	return len(h.clients)
}

// BindEventBus routes every orchestration event type from the bus to the
// hub's subscribers.
func (h *Hub) BindEventBus(bus eventbus.EventBus) {
	broadcast := func(_ context.Context, event any) error {
		h.Broadcast(event)

		return nil
	}

	for _, eventType := range []events.EventType{
		events.CommandReceivedEvent,
		events.ActionSequenceGeneratedEvent,
		events.ExecutionProgressEvent,
		events.ExecutionCompleteEvent,
		events.ErrorEvent,
	} {
		_ = bus.Handle(eventType, broadcast)
	}
}
