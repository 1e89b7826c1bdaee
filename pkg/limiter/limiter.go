package limiter

import (
	"context"
	"sync"
	"time"

	"go.uber.org/atomic"
)

// DurationLimiter allows an operation to run only limit times within a
// duration.
type DurationLimiter struct {
	limit    int32
	duration time.Duration

	resetsAt  *atomic.Int64
	available *atomic.Int32
}

// NewDurationLimiter creates a DurationLimiter. This is useful for allowing
// a specific operation to run only X amount of times in a duration of Y.
func NewDurationLimiter(limit int32, duration time.Duration) *DurationLimiter {
	return &DurationLimiter{
		limit:    limit,
		duration: duration,

		resetsAt:  atomic.NewInt64(0),
		available: atomic.NewInt32(0),
	}
}

// Lock waits until there is an available slot in the Limiter or the
// context is done.
func (l *DurationLimiter) Lock(ctx context.Context) error {
	for {
		now := time.Now().UnixNano()

		// If we have surpassed the resetAt, then make a new resetAt and free
		// up available.
		if resetsAt := l.resetsAt.Load(); resetsAt <= now {
			if l.resetsAt.CompareAndSwap(resetsAt, now+l.duration.Nanoseconds()) {
				l.available.Store(l.limit)
			}
		}

		if l.available.Dec() >= 0 {
			return nil
		}

		l.available.Inc()

		timer := time.NewTimer(time.Duration(l.resetsAt.Load() - now))

		select {
		case <-ctx.Done():
			timer.Stop()

			return ctx.Err()
		case <-timer.C:
		}
	}
}

// Reset resets the resetsAt.
func (l *DurationLimiter) Reset() {
	l.resetsAt.Store(time.Now().UnixNano() + l.duration.Nanoseconds())
}

// ConnectThrottle enforces a minimum spacing between connection attempts.
// A single throttle may be shared by several clients.
type ConnectThrottle struct {
	mu       sync.Mutex
	spacing  time.Duration
	nextSlot time.Time

	now func() time.Time
}

// DefaultConnectSpacing is the minimum time between two connection attempts.
const DefaultConnectSpacing = 6 * time.Second

func NewConnectThrottle(spacing time.Duration) *ConnectThrottle {
	return &ConnectThrottle{
		spacing: spacing,
		now:     time.Now,
	}
}

// Reserve books the next free slot and returns how long the caller must
// wait before using it.
func (c *ConnectThrottle) Reserve() time.Duration {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()

	slot := c.nextSlot
	if slot.Before(now) {
		slot = now
	}

	c.nextSlot = slot.Add(c.spacing)

	return slot.Sub(now)
}

// Wait blocks until the caller's reserved slot arrives.
func (c *ConnectThrottle) Wait(ctx context.Context) error {
	wait := c.Reserve()
	if wait <= 0 {
		return nil
	}

	timer := time.NewTimer(wait)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
