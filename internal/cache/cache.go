// Package cache memoises expensive lookups for a fixed time.
package cache

import (
	"sync"
	"time"

	"github.com/Mzack9999/gcache"
)

const defaultSize = 128

// TTL caches computed values for a fixed duration. Computations for
// different keys run concurrently; callers asking for the same key wait
// for the one computation in flight.
type TTL[K comparable, V any] struct {
	ttl   time.Duration
	store gcache.Cache[K, V]

	mu    sync.Mutex
	keys  map[K]*keyState
	epoch uint64
}

// keyState serialises computations for one key. gen changes whenever the
// key is invalidated so a computation that started earlier is not stored.
type keyState struct {
	mu   sync.Mutex
	refs int
	gen  uint64
}

// New returns a TTL cache holding up to size entries for ttl each.
func New[K comparable, V any](size int, ttl time.Duration) *TTL[K, V] {
	if size <= 0 {
		size = defaultSize
	}
	return &TTL[K, V]{
		ttl:   ttl,
		store: gcache.New[K, V](size).LRU().Build(),
		keys:  make(map[K]*keyState),
	}
}

// GetOrCompute returns the cached value for key, calling fn to fill it when
// missing or expired. Errors from fn are returned and not cached. A value
// computed while key was invalidated is returned but not stored.
func (c *TTL[K, V]) GetOrCompute(key K, fn func() (V, error)) (V, error) {
	if v, err := c.store.GetIFPresent(key); err == nil {
		return v, nil
	}

	ks := c.acquire(key)
	defer c.release(key, ks)

	if v, err := c.store.GetIFPresent(key); err == nil {
		return v, nil
	}

	epoch, gen := c.version(ks)
	v, err := fn()
	if err != nil {
		var zero V
		return zero, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.epoch != epoch || ks.gen != gen {
		return v, nil
	}
	if c.ttl > 0 {
		_ = c.store.SetWithExpire(key, v, c.ttl)
	} else {
		_ = c.store.Set(key, v)
	}
	return v, nil
}

// Invalidate drops key.
func (c *TTL[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if ks, ok := c.keys[key]; ok {
		ks.gen++
	}
	c.store.Remove(key)
}

// Purge drops every entry.
func (c *TTL[K, V]) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.epoch++
	c.store.Purge()
}

// Len returns the number of live entries.
func (c *TTL[K, V]) Len() int {
	return c.store.Len(true)
}

func (c *TTL[K, V]) acquire(key K) *keyState {
	c.mu.Lock()
	ks, ok := c.keys[key]
	if !ok {
		ks = &keyState{}
		c.keys[key] = ks
	}
	ks.refs++
	c.mu.Unlock()

	ks.mu.Lock()
	return ks
}

func (c *TTL[K, V]) release(key K, ks *keyState) {
	ks.mu.Unlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	ks.refs--
	if ks.refs == 0 {
		delete(c.keys, key)
	}
}

func (c *TTL[K, V]) version(ks *keyState) (epoch, gen uint64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.epoch, ks.gen
}
