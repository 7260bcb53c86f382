package batch

import (
	"context"
	"time"
)

// Throttle paces externally-billed work loops: after every burst of ticks
// it sleeps for a fixed cooldown, bounding the call rate and spend.
type Throttle struct {
	burst    int
	cooldown time.Duration
	ticks    int
	sleep    func(ctx context.Context, d time.Duration) error
}

// NewThrottle creates a throttle. A burst of zero or less disables pacing.
func NewThrottle(burst int, cooldown time.Duration) *Throttle {
	return &Throttle{
		burst:    burst,
		cooldown: cooldown,
		sleep:    sleepContext,
	}
}

// Tick records one unit of work and blocks for the cooldown when a burst
// completes. Returns the context error if cancelled while sleeping.
func (t *Throttle) Tick(ctx context.Context) error {
	if t.burst <= 0 || t.cooldown <= 0 {
		return nil
	}
	t.ticks++
	if t.ticks%t.burst != 0 {
		return nil
	}
	return t.sleep(ctx, t.cooldown)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
