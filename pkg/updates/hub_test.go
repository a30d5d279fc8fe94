package updates_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigral/zigral/pkg/events"
	"github.com/zigral/zigral/pkg/log"
	"github.com/zigral/zigral/pkg/updates"
)

type recorderConn struct {
	mu       sync.Mutex
	written  []any
	writeErr error
	closed   bool
}

func (c *recorderConn) WriteJSON(v any) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.writeErr != nil {
		return c.writeErr
	}

	c.written = append(c.written, v)

	return nil
}

func (c *recorderConn) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.closed = true

	return nil
}

func (c *recorderConn) messages() []any {
	c.mu.Lock()
	defer c.mu.Unlock()

	return append([]any(nil), c.written...)
}

func TestHub_Broadcast(t *testing.T) {
	t.Parallel()

	hub := updates.NewHub(log.WithModule("test"))

	alice := &recorderConn{}
	bob := &recorderConn{}
	hub.Register("alice", alice)
	hub.Register("bob", bob)

	event := events.ExecutionProgress{
		BaseEvent: events.NewBaseEvent(events.ExecutionProgressEvent, "job-1"),
		StepIndex: 0,
		Message:   "Executed step 1/2",
	}
	hub.Broadcast(event)

	require.Len(t, alice.messages(), 1)
	require.Len(t, bob.messages(), 1)
}

func TestHub_BroadcastDropsDeadConnections(t *testing.T) {
	t.Parallel()

	hub := updates.NewHub(log.WithModule("test"))

	dead := &recorderConn{writeErr: errors.New("broken pipe")}
	live := &recorderConn{}
	hub.Register("dead", dead)
	hub.Register("live", live)

	hub.Broadcast(events.NewBaseEvent(events.ExecutionCompleteEvent, "job-1"))

	assert.Equal(t, 1, hub.Subscribers())
	assert.True(t, dead.closed)
	assert.Len(t, live.messages(), 1)
}

func TestHub_SendTo(t *testing.T) {
	t.Parallel()

	hub := updates.NewHub(log.WithModule("test"))

	alice := &recorderConn{}
	hub.Register("alice", alice)

	assert.True(t, hub.SendTo("alice", events.Pong{
		BaseEvent: events.NewBaseEvent(events.PongEvent, ""),
		Data:      "ping",
	}))
	assert.False(t, hub.SendTo("nobody", events.NewBaseEvent(events.PongEvent, "")))

	require.Len(t, alice.messages(), 1)
}

func TestHub_RegisterReplacesExistingConnection(t *testing.T) {
	t.Parallel()

	hub := updates.NewHub(log.WithModule("test"))

	first := &recorderConn{}
	second := &recorderConn{}
	hub.Register("alice", first)
	hub.Register("alice", second)

	assert.Equal(t, 1, hub.Subscribers())
	assert.True(t, first.closed, "the stale connection is closed on reconnect")

	hub.Broadcast(events.NewBaseEvent(events.ExecutionCompleteEvent, "job-1"))
	assert.Empty(t, first.messages())
	assert.Len(t, second.messages(), 1)
}

func TestHub_Unregister(t *testing.T) {
	t.Parallel()

	hub := updates.NewHub(log.WithModule("test"))

	alice := &recorderConn{}
	hub.Register("alice", alice)
	hub.Unregister("alice")

	assert.Zero(t, hub.Subscribers())
	assert.True(t, alice.closed)
}
