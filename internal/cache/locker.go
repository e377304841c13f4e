package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
)

// Locker implements owner-tagged TTL locks on top of a Store
type Locker struct {
	store Store
	poll  time.Duration
}

// NewLocker creates a locker polling every poll while waiting
func NewLocker(store Store, poll time.Duration) *Locker {
	if poll <= 0 {
		poll = time.Second
	}
	return &Locker{store: store, poll: poll}
}

// TryAcquire takes key for owner if nobody holds it
func (l *Locker) TryAcquire(ctx context.Context, key, owner string, ttl time.Duration) (bool, error) {
	return l.store.TryAcquire(ctx, key, owner, ttl)
}

// Release frees key if owner still holds it. Releasing a lock held by
// somebody else, or an expired one, is a no-op.
func (l *Locker) Release(ctx context.Context, key, owner string) error {
	_, err := l.store.Release(ctx, key, owner)
	return err
}

// Holder returns the current owner of key, if any
func (l *Locker) Holder(ctx context.Context, key string) (string, bool, error) {
	return l.store.Get(ctx, key)
}

// WaitAcquire polls until owner holds key or maxWait elapses.
// Returns ErrLockTimeout on expiry and ctx.Err() on cancellation.
func (l *Locker) WaitAcquire(ctx context.Context, key, owner string, ttl, maxWait time.Duration) error {
	deadline := time.Now().Add(maxWait)
	ticker := time.NewTicker(l.poll)
	defer ticker.Stop()

	for {
		ok, err := l.store.TryAcquire(ctx, key, owner, ttl)
		if err != nil {
			return err
		}
		if ok {
			return nil
		}
		if !time.Now().Before(deadline) {
			return fmt.Errorf("lock %s after %s: %w", key, maxWait, models.ErrLockTimeout)
		}

		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
		}
	}
}
