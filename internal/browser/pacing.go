package browser

import (
	"context"
	"math/rand"
	"time"
)

// Pacer inserts randomized delays between discrete actions to emulate human
// pacing. This is rate-shaping for abuse avoidance, not a correctness
// mechanism.
type Pacer struct {
	min time.Duration
	max time.Duration
}

// NewPacer creates a pacer with delays drawn uniformly from [min, max].
func NewPacer(min, max time.Duration) *Pacer {
	if max < min {
		max = min
	}
	return &Pacer{min: min, max: max}
}

// Wait sleeps for a random duration in the configured range, returning early
// when the context is cancelled.
func (p *Pacer) Wait(ctx context.Context) error {
	return p.WaitRange(ctx, p.min, p.max)
}

// WaitRange sleeps for a random duration in [min, max], returning early when
// the context is cancelled. Callers use this for action-specific pacing
// tighter than the configured default.
func (p *Pacer) WaitRange(ctx context.Context, min, max time.Duration) error {
	delay := min
	if max > min {
		delay += time.Duration(rand.Int63n(int64(max - min + 1)))
	}

	timer := time.NewTimer(delay)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
