package updates

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/fasthttp/websocket"
)

type ClientState string

const (
	StateDisconnected ClientState = "disconnected"
	StateConnecting   ClientState = "connecting"
	StateConnected    ClientState = "connected"
)

// DefaultMaxAttempts bounds how many consecutive failed dials the client
// tolerates before giving up.
const DefaultMaxAttempts = 5

var ErrMaxAttemptsReached = errors.New("maximum reconnection attempts reached")

// ClientConn is the slice of a WebSocket connection the client needs.
type ClientConn interface {
	ReadMessage() (int, []byte, error)
	WriteMessage(messageType int, data []byte) error
	Close() error
}

// Dialer opens a connection to the update stream. Tests substitute a scripted
// implementation.
type Dialer interface {
	Dial(ctx context.Context, url string) (ClientConn, error)
}

type wsDialer struct{}

func (wsDialer) Dial(_ context.Context, url string) (ClientConn, error) {
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	if err != nil {
		return nil, err
	}

	return conn, nil
}

// Client consumes the update stream and reconnects with exponential backoff
// when the connection drops. Messages received while disconnected are lost;
// the server does not replay.
type Client struct {
	url         string
	dialer      Dialer
	maxAttempts int
	initialWait time.Duration
	logger      *slog.Logger

	mu    sync.Mutex
	state ClientState
	conn  ClientConn

	// OnStateChange, when set before Run, observes every state transition.
	OnStateChange func(state ClientState)
}

type ClientOption func(*Client)

func WithDialer(dialer Dialer) ClientOption {
	return func(c *Client) { c.dialer = dialer }
}

func WithMaxAttempts(attempts int) ClientOption {
	return func(c *Client) { c.maxAttempts = attempts }
}

// WithInitialWait overrides the first backoff interval. Subsequent intervals
// double from it.
func WithInitialWait(wait time.Duration) ClientOption {
	return func(c *Client) { c.initialWait = wait }
}

func NewClient(url string, logger *slog.Logger, opts ...ClientOption) *Client {
	c := &Client{
		url:         url,
		dialer:      wsDialer{},
		maxAttempts: DefaultMaxAttempts,
		initialWait: time.Second,
		logger:      logger.With("module", "updates_client"),
		state:       StateDisconnected,
	}

	for _, opt := range opts {
		opt(c)
	}

	return c
}

func (c *Client) State() ClientState {
	c.mu.Lock()
	defer c.mu.Unlock()

	return c.state
}

func (c *Client) setState(state ClientState) {
	c.mu.Lock()
	c.state = state
	c.mu.Unlock()

	if c.OnStateChange != nil {
		c.OnStateChange(state)
	}
}

// Ping sends a liveness probe; the server answers with a pong event on the
// stream.
func (c *Client) Ping() error {
	c.mu.Lock()
	conn := c.conn
	c.mu.Unlock()

	if conn == nil {
		return errors.New("not connected")
	}

	return conn.WriteMessage(websocket.TextMessage, []byte(pingMessage))
}

func (c *Client) newBackOff() backoff.BackOff {
	b := backoff.NewExponentialBackOff()
	b.InitialInterval = c.initialWait
	b.RandomizationFactor = 0
	b.Multiplier = 2
	b.MaxInterval = c.initialWait << (DefaultMaxAttempts - 1)
	b.MaxElapsedTime = 0

	return b
}

// Run connects and forwards every received frame to out until ctx is
// cancelled or the reconnection budget is spent. A successful connection
// resets the budget.
func (c *Client) Run(ctx context.Context, out chan<- []byte) error {
	defer c.setState(StateDisconnected)

	wait := c.newBackOff()
	attempts := 0

	for {
		if err := ctx.Err(); err != nil {
			return err
		}

		c.setState(StateConnecting)

		conn, err := c.dialer.Dial(ctx, c.url)
		if err != nil {
			attempts++
			if attempts >= c.maxAttempts {
				return fmt.Errorf("%w after %d attempts: %w", ErrMaxAttemptsReached, attempts, err)
			}

			next := wait.NextBackOff()
			c.logger.Warn("Connection failed, retrying",
				"attempt", attempts, "next_retry_in", next, "error", err)
			c.setState(StateDisconnected)

			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(next):
			}

			continue
		}

		attempts = 0
		wait.Reset()

		c.mu.Lock()
		c.conn = conn
		c.mu.Unlock()
		c.setState(StateConnected)
		c.logger.Info("Connected to update stream", "url", c.url)

		err = c.readLoop(ctx, conn, out)

		c.mu.Lock()
		c.conn = nil
		c.mu.Unlock()
		_ = conn.Close()

		if ctx.Err() != nil {
			return ctx.Err()
		}

		c.logger.Warn("Connection lost, reconnecting", "error", err)
		c.setState(StateDisconnected)
	}
}

func (c *Client) readLoop(ctx context.Context, conn ClientConn, out chan<- []byte) error {
	for {
		_, payload, err := conn.ReadMessage()
		if err != nil {
			return err
		}

		select {
		case out <- payload:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
