package cache

import (
	"context"
	"time"
)

// Store is the shared key/value capability behind locks, the queue ledger
// and the progress cache. Implementations must make TryAcquire and Release
// atomic across every process sharing the store.
type Store interface {
	// TryAcquire sets key to value only if key is absent
	TryAcquire(ctx context.Context, key, value string, ttl time.Duration) (bool, error)
	// Release deletes key only if it still holds value
	Release(ctx context.Context, key, value string) (bool, error)

	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, bool, error)
	Delete(ctx context.Context, key string) error

	// HSet writes one field and refreshes the expiry of the whole collection
	HSet(ctx context.Context, key, field, value string, ttl time.Duration) error
	HGet(ctx context.Context, key, field string) (string, bool, error)
	HDel(ctx context.Context, key, field string) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)

	Ping(ctx context.Context) error
}

// Key layout shared by every process
const (
	QueueKey        = "nassav:queue"
	DownloadLockKey = "nassav:lock:download"
	EventsChannel   = "nassav:events"
)

// TaskLockKey is the per-identifier download lock
func TaskLockKey(identifier string) string {
	return "nassav:lock:task:" + identifier
}

// ProgressKey holds the latest progress of an identifier
func ProgressKey(identifier string) string {
	return "nassav:progress:" + identifier
}
