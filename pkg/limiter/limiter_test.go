package limiter

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectThrottleSpacing(t *testing.T) {
	t.Parallel()

	now := time.Unix(1000, 0)

	throttle := NewConnectThrottle(DefaultConnectSpacing)
	throttle.now = func() time.Time { return now }

	assert.Equal(t, time.Duration(0), throttle.Reserve())
	assert.Equal(t, 6*time.Second, throttle.Reserve())
	assert.Equal(t, 12*time.Second, throttle.Reserve())

	// Once the booked slots have passed the next attempt is immediate.
	now = now.Add(time.Minute)

	assert.Equal(t, time.Duration(0), throttle.Reserve())
	assert.Equal(t, 6*time.Second, throttle.Reserve())
}

func TestConnectThrottleWaitCancelled(t *testing.T) {
	t.Parallel()

	throttle := NewConnectThrottle(time.Hour)

	require.NoError(t, throttle.Wait(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
	defer cancel()

	assert.ErrorIs(t, throttle.Wait(ctx), context.DeadlineExceeded)
}

func TestDurationLimiter(t *testing.T) {
	t.Parallel()

	l := NewDurationLimiter(2, 50*time.Millisecond)
	ctx := context.Background()

	start := time.Now()

	require.NoError(t, l.Lock(ctx))
	require.NoError(t, l.Lock(ctx))
	assert.Less(t, time.Since(start), 40*time.Millisecond)

	require.NoError(t, l.Lock(ctx))
	assert.GreaterOrEqual(t, time.Since(start), 40*time.Millisecond)

	cancelled, cancel := context.WithCancel(ctx)
	cancel()

	require.NoError(t, l.Lock(cancelled))
	assert.ErrorIs(t, l.Lock(cancelled), context.Canceled)
}
