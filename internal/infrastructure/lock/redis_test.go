package lock

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newLocker(t *testing.T, cfg Config) (*RedisLocker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })
	return NewRedisLocker(rdb, cfg), mr
}

func TestRedisLocker_LockAndRelease(t *testing.T) {
	l, mr := newLocker(t, Config{})

	unlock, err := l.Lock(context.Background(), "Acme|X1", "Acme|X2")
	require.NoError(t, err)
	assert.True(t, mr.Exists("shopstock:lock:Acme|X1"))
	assert.True(t, mr.Exists("shopstock:lock:Acme|X2"))

	unlock()
	unlock()
	assert.False(t, mr.Exists("shopstock:lock:Acme|X1"))
	assert.False(t, mr.Exists("shopstock:lock:Acme|X2"))
}

func TestRedisLocker_BusyKeyTimesOut(t *testing.T) {
	l, mr := newLocker(t, Config{Wait: 50 * time.Millisecond, RetryInterval: 5 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), "Acme|X1")
	require.NoError(t, err)
	defer unlock()

	_, err = l.Lock(context.Background(), "Acme|X2", "Acme|X1")
	require.ErrorIs(t, err, ErrBusy)
	// The key obtained before the failure is given back.
	assert.False(t, mr.Exists("shopstock:lock:Acme|X2"))
}

func TestRedisLocker_CallerCancellation(t *testing.T) {
	l, _ := newLocker(t, Config{Wait: time.Second, RetryInterval: 5 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	defer unlock()

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	_, err = l.Lock(ctx, "k")
	require.ErrorIs(t, err, context.DeadlineExceeded)
}

func TestRedisLocker_ExpiredHolderFreesKey(t *testing.T) {
	l, mr := newLocker(t, Config{TTL: time.Second, Wait: 50 * time.Millisecond, RetryInterval: 5 * time.Millisecond})

	_, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	mr.FastForward(2 * time.Second)

	unlock, err := l.Lock(context.Background(), "k")
	require.NoError(t, err)
	unlock()
}

func TestRedisLocker_MutualExclusion(t *testing.T) {
	l, _ := newLocker(t, Config{Wait: 5 * time.Second, RetryInterval: time.Millisecond})

	var inside, maxInside atomic.Int32
	var wg sync.WaitGroup
	for range 10 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			unlock, err := l.Lock(context.Background(), "shared")
			if !assert.NoError(t, err) {
				return
			}
			n := inside.Add(1)
			for {
				m := maxInside.Load()
				if n <= m || maxInside.CompareAndSwap(m, n) {
					break
				}
			}
			time.Sleep(time.Millisecond)
			inside.Add(-1)
			unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), maxInside.Load())
}

func TestRedisLocker_RefreshesHeldLocks(t *testing.T) {
	l, mr := newLocker(t, Config{TTL: 300 * time.Millisecond, RefreshInterval: 20 * time.Millisecond})

	unlock, err := l.Lock(context.Background(), "Acme|X1")
	require.NoError(t, err)

	key := "shopstock:lock:Acme|X1"
	mr.FastForward(200 * time.Millisecond)
	require.True(t, mr.Exists(key))

	assert.Eventually(t, func() bool {
		return mr.TTL(key) > 200*time.Millisecond
	}, time.Second, 10*time.Millisecond, "held lock was not extended")

	unlock()
	assert.False(t, mr.Exists(key))
}
