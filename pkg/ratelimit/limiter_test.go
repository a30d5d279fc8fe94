package ratelimit_test

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/zigral/zigral/pkg/ratelimit"
)

func TestWindow_AllowsUpToLimit(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	limiter := ratelimit.NewWindowWithClock(5, 60*time.Second, clock)
	ctx := context.Background()

	for i := range 5 {
		allowed, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
		assert.True(t, allowed, "request %d should be allowed", i+1)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.False(t, allowed, "sixth request in the window should be denied")
}

func TestWindow_ResetsAfterPeriod(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	limiter := ratelimit.NewWindowWithClock(5, 60*time.Second, clock)
	ctx := context.Background()

	for range 5 {
		_, err := limiter.Allow(ctx, "10.0.0.1")
		require.NoError(t, err)
	}

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, allowed)

	clock.Advance(60 * time.Second)

	allowed, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	assert.True(t, allowed, "a fresh window should admit requests again")
}

func TestWindow_TracksClientsIndependently(t *testing.T) {
	t.Parallel()

	clock := clockwork.NewFakeClock()
	limiter := ratelimit.NewWindowWithClock(1, 60*time.Second, clock)
	ctx := context.Background()

	allowed, err := limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.True(t, allowed)

	allowed, err = limiter.Allow(ctx, "10.0.0.1")
	require.NoError(t, err)
	require.False(t, allowed)

	allowed, err = limiter.Allow(ctx, "10.0.0.2")
	require.NoError(t, err)
	assert.True(t, allowed, "a different client has its own window")
}
