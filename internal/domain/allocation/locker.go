package allocation

import (
	"context"
	"slices"
	"sync"
)

// Locker serializes the read-decide-write sequence per product key.
// Lock acquires every key or none and returns a function releasing them.
type Locker interface {
	Lock(ctx context.Context, keys ...string) (unlock func(), err error)
}

// NormalizeKeys sorts and deduplicates keys so that callers locking
// several keys always acquire them in the same order.
func NormalizeKeys(keys []string) []string {
	out := slices.Clone(keys)
	slices.Sort(out)
	return slices.Compact(out)
}

// KeyedMutex is an in-process Locker.
type KeyedMutex struct {
	mu    sync.Mutex
	locks map[string]*keyLock
}

type keyLock struct {
	sem  chan struct{}
	refs int
}

// NewKeyedMutex creates an empty KeyedMutex.
func NewKeyedMutex() *KeyedMutex {
	return &KeyedMutex{locks: make(map[string]*keyLock)}
}

// Lock implements Locker. It gives up when ctx is done.
func (m *KeyedMutex) Lock(ctx context.Context, keys ...string) (func(), error) {
	keys = NormalizeKeys(keys)
	held := make([]string, 0, len(keys))
	for _, k := range keys {
		if err := m.acquire(ctx, k); err != nil {
			m.release(held)
			return nil, err
		}
		held = append(held, k)
	}

	var once sync.Once
	return func() { once.Do(func() { m.release(held) }) }, nil
}

func (m *KeyedMutex) acquire(ctx context.Context, key string) error {
	m.mu.Lock()
	l, ok := m.locks[key]
	if !ok {
		l = &keyLock{sem: make(chan struct{}, 1)}
		m.locks[key] = l
	}
	l.refs++
	m.mu.Unlock()

	select {
	case l.sem <- struct{}{}:
		return nil
	case <-ctx.Done():
		m.mu.Lock()
		m.unref(key, l)
		m.mu.Unlock()
		return ctx.Err()
	}
}

func (m *KeyedMutex) release(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for i := len(keys) - 1; i >= 0; i-- {
		l := m.locks[keys[i]]
		<-l.sem
		m.unref(keys[i], l)
	}
}

func (m *KeyedMutex) unref(key string, l *keyLock) {
	l.refs--
	if l.refs == 0 {
		delete(m.locks, key)
	}
}
