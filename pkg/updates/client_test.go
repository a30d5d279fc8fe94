package updates_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigral/zigral/pkg/log"
	"github.com/zigral/zigral/pkg/updates"
)

type scriptedConn struct {
	mu       sync.Mutex
	messages [][]byte
}

func (c *scriptedConn) ReadMessage() (int, []byte, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(c.messages) == 0 {
		return 0, nil, errors.New("connection reset")
	}

	msg := c.messages[0]
	c.messages = c.messages[1:]

	return 1, msg, nil
}

func (c *scriptedConn) WriteMessage(_ int, _ []byte) error { return nil }

func (c *scriptedConn) Close() error { return nil }

// scriptedDialer answers each dial from a fixed script: a nil entry is a
// failed dial, anything else connects.
type scriptedDialer struct {
	mu    sync.Mutex
	conns []*scriptedConn
	dials int
}

func (d *scriptedDialer) Dial(_ context.Context, _ string) (updates.ClientConn, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.dials++

	if len(d.conns) == 0 {
		return nil, errors.New("connection refused")
	}

	conn := d.conns[0]
	d.conns = d.conns[1:]

	if conn == nil {
		return nil, errors.New("connection refused")
	}

	return conn, nil
}

func (d *scriptedDialer) dialCount() int {
	d.mu.Lock()
	defer d.mu.Unlock()

	return d.dials
}

func newTestClient(dialer updates.Dialer, opts ...updates.ClientOption) *updates.Client {
	base := []updates.ClientOption{
		updates.WithDialer(dialer),
		updates.WithInitialWait(time.Millisecond),
	}

	return updates.NewClient("ws://localhost:8000/ws/updates/test", log.WithModule("test"),
		append(base, opts...)...)
}

func TestClient_GivesUpAfterMaxAttempts(t *testing.T) {
	t.Parallel()

	dialer := &scriptedDialer{}
	client := newTestClient(dialer)

	err := client.Run(context.Background(), make(chan []byte, 1))
	require.ErrorIs(t, err, updates.ErrMaxAttemptsReached)
	assert.Equal(t, updates.DefaultMaxAttempts, dialer.dialCount())
	assert.Equal(t, updates.StateDisconnected, client.State())
}

func TestClient_ReceivesMessagesAndReconnects(t *testing.T) {
	t.Parallel()

	dialer := &scriptedDialer{conns: []*scriptedConn{
		{messages: [][]byte{[]byte(`{"type":"command_received"}`)}},
		{messages: [][]byte{[]byte(`{"type":"execution_complete"}`)}},
	}}
	client := newTestClient(dialer)

	var (
		mu     sync.Mutex
		states []updates.ClientState
	)

	client.OnStateChange = func(state updates.ClientState) {
		mu.Lock()
		defer mu.Unlock()
		states = append(states, state)
	}

	out := make(chan []byte, 4)

	err := client.Run(context.Background(), out)
	require.ErrorIs(t, err, updates.ErrMaxAttemptsReached,
		"once the script is spent, reconnects fail and the budget runs out")

	close(out)

	var received []string
	for msg := range out {
		received = append(received, string(msg))
	}

	assert.Equal(t, []string{
		`{"type":"command_received"}`,
		`{"type":"execution_complete"}`,
	}, received)

	mu.Lock()
	defer mu.Unlock()

	connected := 0
	for _, state := range states {
		if state == updates.StateConnected {
			connected++
		}
	}

	assert.Equal(t, 2, connected, "the client reconnected after losing the first connection")
	assert.Equal(t, updates.StateDisconnected, states[len(states)-1])
}

func TestClient_HonorsContextCancellation(t *testing.T) {
	t.Parallel()

	dialer := &scriptedDialer{}
	client := newTestClient(dialer, updates.WithMaxAttempts(1000))

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)

	go func() {
		done <- client.Run(ctx, make(chan []byte, 1))
	}()

	cancel()

	select {
	case err := <-done:
		assert.ErrorIs(t, err, context.Canceled)
	case <-time.After(time.Second):
		t.Fatal("client did not stop after cancellation")
	}
}

func TestClient_PingRequiresConnection(t *testing.T) {
	t.Parallel()

	client := newTestClient(&scriptedDialer{})

	assert.Error(t, client.Ping())
}
