package cache

import (
	"context"
	"sync"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryStore is a process-local Store backed by go-cache.
// It only coordinates goroutines of one process.
type MemoryStore struct {
	mu    sync.Mutex
	items *gocache.Cache
}

// NewMemoryStore creates an empty in-memory store
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		items: gocache.New(gocache.NoExpiration, time.Minute),
	}
}

// Ping always succeeds
func (s *MemoryStore) Ping(context.Context) error {
	return nil
}

func expiration(ttl time.Duration) time.Duration {
	if ttl <= 0 {
		return gocache.NoExpiration
	}
	return ttl
}

func (s *MemoryStore) TryAcquire(_ context.Context, key, value string, ttl time.Duration) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items.Add(key, value, expiration(ttl)) == nil, nil
}

func (s *MemoryStore) Release(_ context.Context, key, value string) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.items.Get(key)
	if !ok || current != value {
		return false, nil
	}
	s.items.Delete(key)
	return true, nil
}

func (s *MemoryStore) Set(_ context.Context, key, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Set(key, value, expiration(ttl))
	return nil
}

func (s *MemoryStore) Get(_ context.Context, key string) (string, bool, error) {
	v, ok := s.items.Get(key)
	if !ok {
		return "", false, nil
	}
	str, ok := v.(string)
	return str, ok, nil
}

func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items.Delete(key)
	return nil
}

func (s *MemoryStore) HSet(_ context.Context, key, field, value string, ttl time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := s.hash(key)
	updated := make(map[string]string, len(hash)+1)
	for k, v := range hash {
		updated[k] = v
	}
	updated[field] = value
	s.items.Set(key, updated, expiration(ttl))
	return nil
}

func (s *MemoryStore) HGet(_ context.Context, key, field string) (string, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.hash(key)[field]
	return v, ok, nil
}

func (s *MemoryStore) HDel(_ context.Context, key, field string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := s.hash(key)
	if _, ok := hash[field]; !ok {
		return nil
	}
	updated := make(map[string]string, len(hash))
	for k, v := range hash {
		if k != field {
			updated[k] = v
		}
	}
	if len(updated) == 0 {
		s.items.Delete(key)
		return nil
	}
	// keep the remaining expiry of the collection
	_, exp, _ := s.items.GetWithExpiration(key)
	ttl := gocache.NoExpiration
	if !exp.IsZero() {
		ttl = time.Until(exp)
	}
	s.items.Set(key, updated, ttl)
	return nil
}

func (s *MemoryStore) HGetAll(_ context.Context, key string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	hash := s.hash(key)
	out := make(map[string]string, len(hash))
	for k, v := range hash {
		out[k] = v
	}
	return out, nil
}

// hash returns the stored map; callers must hold mu and never mutate it
func (s *MemoryStore) hash(key string) map[string]string {
	v, ok := s.items.Get(key)
	if !ok {
		return nil
	}
	m, _ := v.(map[string]string)
	return m
}
