package throttle

import (
	"context"
	"fmt"
	"time"
)

// DefaultInterval keeps well clear of the remote five-second-per-token limit.
const DefaultInterval = 10 * time.Second

// Clock abstracts time so waits can be driven in tests.
type Clock interface {
	Now() time.Time
	After(d time.Duration) <-chan time.Time
}

type systemClock struct{}

func (systemClock) Now() time.Time                         { return time.Now() }
func (systemClock) After(d time.Duration) <-chan time.Time { return time.After(d) }

// SystemClock is the wall clock.
var SystemClock Clock = systemClock{}

// Store keeps the time of the last request per key.
type Store interface {
	LastRequest(ctx context.Context, key string) (time.Time, bool, error)
	SetLastRequest(ctx context.Context, key string, at time.Time) error
	Forget(ctx context.Context, key string) error
}

// Throttle enforces a minimum spacing between requests sharing a key.
type Throttle struct {
	interval time.Duration
	clock    Clock
	store    Store
}

// New builds a throttle. A nil store falls back to memory, a nil clock to the
// wall clock. A non-positive interval disables waiting.
func New(interval time.Duration, store Store, clock Clock) *Throttle {
	if store == nil {
		store = NewMemoryStore(2 * interval)
	}
	if clock == nil {
		clock = SystemClock
	}
	return &Throttle{interval: interval, clock: clock, store: store}
}

func (t *Throttle) Interval() time.Duration {
	return t.interval
}

// Wait suspends until key may issue its next request and reports how long it
// waited. It returns early with ctx.Err() when ctx is cancelled.
func (t *Throttle) Wait(ctx context.Context, key string) (time.Duration, error) {
	if t.interval <= 0 {
		return 0, nil
	}
	last, ok, err := t.store.LastRequest(ctx, key)
	if err != nil {
		return 0, fmt.Errorf("load last request: %w", err)
	}
	if !ok {
		return 0, nil
	}
	elapsed := t.clock.Now().Sub(last)
	if elapsed >= t.interval {
		return 0, nil
	}
	wait := t.interval - elapsed
	select {
	case <-t.clock.After(wait):
		return wait, nil
	case <-ctx.Done():
		return 0, ctx.Err()
	}
}

// Mark records that key issued a request now.
func (t *Throttle) Mark(ctx context.Context, key string) (time.Time, error) {
	now := t.clock.Now()
	if err := t.store.SetLastRequest(ctx, key, now); err != nil {
		return now, fmt.Errorf("store last request: %w", err)
	}
	return now, nil
}

// Forget drops key once nothing will request under it again.
func (t *Throttle) Forget(ctx context.Context, key string) error {
	if err := t.store.Forget(ctx, key); err != nil {
		return fmt.Errorf("forget last request: %w", err)
	}
	return nil
}
