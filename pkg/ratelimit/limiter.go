// Package ratelimit guards the command endpoint with a per-client request
// window. Limiter state is a coarse abuse guard, not a correctness
// mechanism: it is process-local unless the Redis variant is used, and it is
// lost on restart.
package ratelimit

import (
	"context"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

const (
	DefaultLimit  = 5
	DefaultPeriod = 60 * time.Second
)

type Limiter interface {
	// Allow reports whether the client identified by key may proceed.
	// Denied requests are not retried by the limiter; backing off is the
	// caller's responsibility.
	Allow(ctx context.Context, key string) (bool, error)
}

// Window is a fixed-window limiter: once a client's window elapses the
// count resets to zero.
type Window struct {
	limit  int
	period time.Duration
	clock  clockwork.Clock

	mu      sync.Mutex
	windows map[string]*clientWindow
}

type clientWindow struct {
	start time.Time
	count int
}

func NewWindow(limit int, period time.Duration) *Window {
	return NewWindowWithClock(limit, period, clockwork.NewRealClock())
}

// NewWindowWithClock injects the clock so window expiry is testable without
// wall-clock sleeps.
func NewWindowWithClock(limit int, period time.Duration, clock clockwork.Clock) *Window {
	return &Window{
		limit:   limit,
		period:  period,
		clock:   clock,
		windows: make(map[string]*clientWindow),
	}
}

func (w *Window) Allow(_ context.Context, key string) (bool, error) {
	w.mu.Lock()
	defer w.mu.Unlock()

	now := w.clock.Now()

	cw, ok := w.windows[key]
	if !ok || now.Sub(cw.start) >= w.period {
		cw = &clientWindow{start: now}
		w.windows[key] = cw
	}

	if cw.count >= w.limit {
		return false, nil
	}

	cw.count++

	return true, nil
}
