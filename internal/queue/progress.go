package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/cache"
	"github.com/Florenz0707/NASSAV-sub000/internal/services/transfer"
)

// ProgressTTL keeps stale progress from outliving a crashed worker for long
const ProgressTTL = 60 * time.Second

// ProgressCache holds the latest transfer progress per identifier
type ProgressCache struct {
	store cache.Store
	ttl   time.Duration
}

// NewProgressCache creates a progress cache on store
func NewProgressCache(store cache.Store) *ProgressCache {
	return &ProgressCache{store: store, ttl: ProgressTTL}
}

func (c *ProgressCache) Set(ctx context.Context, identifier string, p transfer.Progress) error {
	data, err := json.Marshal(p)
	if err != nil {
		return fmt.Errorf("failed to marshal progress: %w", err)
	}
	return c.store.Set(ctx, cache.ProgressKey(identifier), string(data), c.ttl)
}

func (c *ProgressCache) Get(ctx context.Context, identifier string) (*transfer.Progress, bool, error) {
	raw, ok, err := c.store.Get(ctx, cache.ProgressKey(identifier))
	if err != nil || !ok {
		return nil, false, err
	}
	var p transfer.Progress
	if err := json.Unmarshal([]byte(raw), &p); err != nil {
		return nil, false, fmt.Errorf("corrupt progress for %s: %w", identifier, err)
	}
	return &p, true, nil
}

func (c *ProgressCache) Clear(ctx context.Context, identifier string) error {
	return c.store.Delete(ctx, cache.ProgressKey(identifier))
}
