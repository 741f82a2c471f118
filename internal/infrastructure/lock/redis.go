// Package lock provides a Redis-backed allocation.Locker so that several
// server instances serialize stock changes for the same product.
package lock

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/bsm/redislock"
	"github.com/redis/go-redis/v9"

	"shopstock/internal/domain/allocation"
	"shopstock/pkg/logger"
)

// Config tunes the Redis locker.
type Config struct {
	// Prefix namespaces lock keys in Redis.
	Prefix string
	// TTL bounds how long a crashed holder can block a product. Held locks
	// are refreshed every RefreshInterval, so a slow operation keeps them.
	TTL time.Duration
	// RefreshInterval defaults to TTL/3.
	RefreshInterval time.Duration
	// Wait is how long Lock retries before giving up.
	Wait time.Duration
	// RetryInterval is the pause between attempts.
	RetryInterval time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		Prefix:        "shopstock:lock:",
		TTL:           30 * time.Second,
		Wait:          5 * time.Second,
		RetryInterval: 25 * time.Millisecond,
	}
}

// ErrBusy is returned when a key stays held for longer than Config.Wait.
var ErrBusy = errors.New("product is locked by another operation")

// RedisLocker implements allocation.Locker with bsm/redislock.
type RedisLocker struct {
	client *redislock.Client
	cfg    Config
}

var _ allocation.Locker = (*RedisLocker)(nil)

// NewRedisLocker creates a locker on top of rdb.
func NewRedisLocker(rdb redis.UniversalClient, cfg Config) *RedisLocker {
	def := DefaultConfig()
	if cfg.Prefix == "" {
		cfg.Prefix = def.Prefix
	}
	if cfg.TTL <= 0 {
		cfg.TTL = def.TTL
	}
	if cfg.Wait <= 0 {
		cfg.Wait = def.Wait
	}
	if cfg.RetryInterval <= 0 {
		cfg.RetryInterval = def.RetryInterval
	}
	if cfg.RefreshInterval <= 0 || cfg.RefreshInterval >= cfg.TTL {
		cfg.RefreshInterval = cfg.TTL / 3
	}
	return &RedisLocker{client: redislock.New(rdb), cfg: cfg}
}

// Lock obtains every key in sorted order, or none of them.
func (l *RedisLocker) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = allocation.NormalizeKeys(keys)

	waitCtx, cancel := context.WithTimeout(ctx, l.cfg.Wait)
	defer cancel()

	opts := &redislock.Options{RetryStrategy: redislock.LinearBackoff(l.cfg.RetryInterval)}
	held := make([]*redislock.Lock, 0, len(keys))
	for _, key := range keys {
		lk, err := l.client.Obtain(waitCtx, l.cfg.Prefix+key, l.cfg.TTL, opts)
		if err != nil {
			l.release(ctx, held)
			if errors.Is(err, redislock.ErrNotObtained) || errors.Is(err, context.DeadlineExceeded) {
				if ctxErr := ctx.Err(); ctxErr != nil {
					return nil, ctxErr
				}
				return nil, fmt.Errorf("lock %q: %w", key, ErrBusy)
			}
			return nil, fmt.Errorf("lock %q: %w", key, err)
		}
		held = append(held, lk)
	}

	stop := make(chan struct{})
	done := make(chan struct{})
	go l.keepAlive(context.WithoutCancel(ctx), held, stop, done)

	var once sync.Once
	return func() {
		once.Do(func() {
			close(stop)
			<-done
			l.release(context.WithoutCancel(ctx), held)
		})
	}, nil
}

// keepAlive extends held locks until stop is closed. A lock that has
// already expired is not refreshed again.
func (l *RedisLocker) keepAlive(ctx context.Context, held []*redislock.Lock, stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)
	ticker := time.NewTicker(l.cfg.RefreshInterval)
	defer ticker.Stop()

	alive := slices.Clone(held)
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			alive = slices.DeleteFunc(alive, func(lk *redislock.Lock) bool {
				rctx, cancel := context.WithTimeout(ctx, l.cfg.RefreshInterval)
				defer cancel()
				err := lk.Refresh(rctx, l.cfg.TTL, nil)
				if err == nil {
					return false
				}
				logger.Error(ctx, "refresh product lock failed; mutual exclusion may be lost",
					"key", lk.Key(), "error", err)
				return errors.Is(err, redislock.ErrNotObtained)
			})
		}
	}
}

func (l *RedisLocker) release(ctx context.Context, held []*redislock.Lock) {
	ctx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	for i := len(held) - 1; i >= 0; i-- {
		if err := held[i].Release(ctx); err != nil && !errors.Is(err, redislock.ErrLockNotHeld) {
			logger.Warn(ctx, "release product lock failed", "key", held[i].Key(), "error", err)
		}
	}
}
