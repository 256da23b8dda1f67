package pipeline

import (
	"context"
	"math/rand"
	"time"
)

// RatePolicy bounds the request rate against the target site. The runner
// waits once between consecutive article fetches; the policy decides for
// how long.
type RatePolicy interface {
	Wait(ctx context.Context) error
}

// DefaultDelay matches the politeness interval the target site has
// tolerated so far.
const DefaultDelay = 800 * time.Millisecond

// FixedDelay waits the same duration every time.
type FixedDelay struct {
	Delay time.Duration
}

// Wait sleeps for the fixed delay, or returns early if the context is
// cancelled.
func (p FixedDelay) Wait(ctx context.Context) error {
	return sleep(ctx, p.Delay)
}

// JitteredDelay waits Base plus a uniformly random duration up to Jitter,
// spreading requests so they look less mechanical.
type JitteredDelay struct {
	Base   time.Duration
	Jitter time.Duration
}

// Wait sleeps for the base delay plus random jitter, or returns early if
// the context is cancelled.
func (p JitteredDelay) Wait(ctx context.Context) error {
	d := p.Base
	if p.Jitter > 0 {
		d += time.Duration(rand.Int63n(int64(p.Jitter)))
	}
	return sleep(ctx, d)
}

// NoDelay skips waiting entirely. Tests use it to keep runs fast.
type NoDelay struct{}

func (NoDelay) Wait(context.Context) error { return nil }

func sleep(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
