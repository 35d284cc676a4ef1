package cache

import (
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Cache is a TTL keyed store for values that are expensive to fetch
type Cache[V any] interface {
	// Get returns the value and true if present and not expired
	Get(key string) (V, bool)

	Set(key string, value V, ttl time.Duration)

	// GetOrLoad returns the cached value or calls load once per key,
	// concurrent callers for the same key share that call. Errors are
	// not cached.
	GetOrLoad(key string, ttl time.Duration, load func() (V, error)) (V, error)

	Delete(key string)
	Clear()

	// Size includes expired items the janitor has not removed yet
	Size() int

	Stop()
}

type entry[V any] struct {
	value     V
	expiresAt time.Time
}

// InMemoryCache is safe for concurrent use. A janitor goroutine drops
// expired entries every cleanupInterval until Stop is called.
type InMemoryCache[V any] struct {
	mu      sync.RWMutex
	items   map[string]entry[V]
	loads   singleflight.Group
	now     func() time.Time
	stop    chan struct{}
	stopped sync.Once
}

func NewInMemoryCache[V any](cleanupInterval time.Duration) *InMemoryCache[V] {
	c := &InMemoryCache[V]{
		items: make(map[string]entry[V]),
		now:   time.Now,
		stop:  make(chan struct{}),
	}
	go c.janitor(cleanupInterval)
	return c
}

func (c *InMemoryCache[V]) Get(key string) (V, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.items[key]
	if !ok || !c.now().Before(e.expiresAt) {
		var zero V
		return zero, false
	}
	return e.value, true
}

func (c *InMemoryCache[V]) Set(key string, value V, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items[key] = entry[V]{value: value, expiresAt: c.now().Add(ttl)}
}

func (c *InMemoryCache[V]) GetOrLoad(key string, ttl time.Duration, load func() (V, error)) (V, error) {
	if v, ok := c.Get(key); ok {
		return v, nil
	}

	// the lock is not held while loading, loads can be slow network calls
	v, err, _ := c.loads.Do(key, func() (interface{}, error) {
		if v, ok := c.Get(key); ok {
			return v, nil
		}
		v, err := load()
		if err != nil {
			return nil, err
		}
		c.Set(key, v, ttl)
		return v, nil
	})
	if err != nil {
		var zero V
		return zero, err
	}
	return v.(V), nil
}

func (c *InMemoryCache[V]) Delete(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.items, key)
}

func (c *InMemoryCache[V]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.items = make(map[string]entry[V])
}

func (c *InMemoryCache[V]) Size() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.items)
}

// Stop ends the janitor. It is safe to call more than once.
func (c *InMemoryCache[V]) Stop() {
	c.stopped.Do(func() { close(c.stop) })
}

func (c *InMemoryCache[V]) janitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.removeExpired()
		case <-c.stop:
			return
		}
	}
}

func (c *InMemoryCache[V]) removeExpired() {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for key, e := range c.items {
		if !now.Before(e.expiresAt) {
			delete(c.items, key)
		}
	}
}
