package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/Florenz0707/NASSAV-sub000/internal/models"
	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newRedisStore(t *testing.T) (*RedisStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewRedisStore(client), mr
}

func stores(t *testing.T) map[string]Store {
	redisStore, _ := newRedisStore(t)
	return map[string]Store{
		"memory": NewMemoryStore(),
		"redis":  redisStore,
	}
}

func TestStoreLockSemantics(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			ok, err := store.TryAcquire(ctx, "lock", "job-1", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)

			ok, err = store.TryAcquire(ctx, "lock", "job-2", time.Minute)
			require.NoError(t, err)
			assert.False(t, ok)

			// wrong owner cannot release
			released, err := store.Release(ctx, "lock", "job-2")
			require.NoError(t, err)
			assert.False(t, released)

			holder, found, err := store.Get(ctx, "lock")
			require.NoError(t, err)
			assert.True(t, found)
			assert.Equal(t, "job-1", holder)

			released, err = store.Release(ctx, "lock", "job-1")
			require.NoError(t, err)
			assert.True(t, released)

			ok, err = store.TryAcquire(ctx, "lock", "job-2", time.Minute)
			require.NoError(t, err)
			assert.True(t, ok)
		})
	}
}

func TestStoreHash(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()

			require.NoError(t, store.HSet(ctx, QueueKey, "ABC-123", "a", time.Hour))
			require.NoError(t, store.HSet(ctx, QueueKey, "XYZ-001", "b", time.Hour))

			v, ok, err := store.HGet(ctx, QueueKey, "ABC-123")
			require.NoError(t, err)
			assert.True(t, ok)
			assert.Equal(t, "a", v)

			require.NoError(t, store.HDel(ctx, QueueKey, "ABC-123"))
			all, err := store.HGetAll(ctx, QueueKey)
			require.NoError(t, err)
			assert.Equal(t, map[string]string{"XYZ-001": "b"}, all)

			_, ok, err = store.HGet(ctx, QueueKey, "ABC-123")
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestRedisStoreExpiry(t *testing.T) {
	store, mr := newRedisStore(t)
	ctx := context.Background()

	require.NoError(t, store.Set(ctx, ProgressKey("ABC-123"), "50", time.Minute))
	ok, err := store.TryAcquire(ctx, TaskLockKey("ABC-123"), "job-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	mr.FastForward(2 * time.Minute)

	_, found, err := store.Get(ctx, ProgressKey("ABC-123"))
	require.NoError(t, err)
	assert.False(t, found)

	ok, err = store.TryAcquire(ctx, TaskLockKey("ABC-123"), "job-2", time.Minute)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestWaitAcquireTimesOut(t *testing.T) {
	store := NewMemoryStore()
	locker := NewLocker(store, 5*time.Millisecond)
	ctx := context.Background()

	ok, err := locker.TryAcquire(ctx, DownloadLockKey, "job-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	err = locker.WaitAcquire(ctx, DownloadLockKey, "job-2", time.Minute, 30*time.Millisecond)
	assert.ErrorIs(t, err, models.ErrLockTimeout)
}

func TestWaitAcquireAfterRelease(t *testing.T) {
	store := NewMemoryStore()
	locker := NewLocker(store, 5*time.Millisecond)
	ctx := context.Background()

	ok, err := locker.TryAcquire(ctx, DownloadLockKey, "job-1", time.Minute)
	require.NoError(t, err)
	require.True(t, ok)

	go func() {
		time.Sleep(20 * time.Millisecond)
		_ = locker.Release(ctx, DownloadLockKey, "job-1")
	}()

	require.NoError(t, locker.WaitAcquire(ctx, DownloadLockKey, "job-2", time.Minute, time.Second))
	holder, _, err := locker.Holder(ctx, DownloadLockKey)
	require.NoError(t, err)
	assert.Equal(t, "job-2", holder)
}

func TestLockExclusivityUnderContention(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			locker := NewLocker(store, time.Millisecond)
			ctx := context.Background()

			var holders, maxHolders int32
			var wg sync.WaitGroup
			for i := 0; i < 8; i++ {
				wg.Add(1)
				go func(owner string) {
					defer wg.Done()
					if !assert.NoError(t, locker.WaitAcquire(ctx, DownloadLockKey, owner, time.Minute, 5*time.Second)) {
						return
					}
					n := atomic.AddInt32(&holders, 1)
					for {
						m := atomic.LoadInt32(&maxHolders)
						if n <= m || atomic.CompareAndSwapInt32(&maxHolders, m, n) {
							break
						}
					}
					time.Sleep(2 * time.Millisecond)
					atomic.AddInt32(&holders, -1)
					assert.NoError(t, locker.Release(ctx, DownloadLockKey, owner))
				}(string(rune('a' + i)))
			}
			wg.Wait()
			assert.Equal(t, int32(1), maxHolders)
		})
	}
}
