package cache

import (
	"context"
	"sync"
	"time"

	"golang.org/x/sync/singleflight"
)

// Entry is a cached value with its bookkeeping
type Entry[V any] struct {
	Value     V         `json:"-"`
	CachedAt  time.Time `json:"cached_at"`
	ExpiresAt time.Time `json:"expires_at"`
	HitCount  int       `json:"hit_count"`
}

// Stats reports cache usage
type Stats struct {
	Entries    int     `json:"entries"`
	MaxSize    int     `json:"max_size"`
	HitCount   int64   `json:"hit_count"`
	MissCount  int64   `json:"miss_count"`
	HitRatio   float64 `json:"hit_ratio"`
	TTLSeconds float64 `json:"ttl_seconds"`
}

// Cache memoizes immutable values by key with a TTL and a size bound.
// Concurrent loads of the same key run the loader once.
type Cache[V any] struct {
	entries   map[string]Entry[V]
	mutex     sync.RWMutex
	ttl       time.Duration
	maxSize   int
	hitCount  int64
	missCount int64
	group     singleflight.Group
	stopChan  chan struct{}
	stopOnce  sync.Once
	onEvict   func(key string)
}

// New creates a cache and starts its expiry sweeper. A zero ttl keeps entries until evicted.
func New[V any](ttl time.Duration, maxSize int) *Cache[V] {
	c := &Cache[V]{
		entries:  make(map[string]Entry[V]),
		ttl:      ttl,
		maxSize:  maxSize,
		stopChan: make(chan struct{}),
	}
	go c.cleanup(sweepInterval(ttl))
	return c
}

// OnEvict registers a callback run after an entry is evicted, expired or invalidated
func (c *Cache[V]) OnEvict(fn func(key string)) {
	c.mutex.Lock()
	defer c.mutex.Unlock()
	c.onEvict = fn
}

func sweepInterval(ttl time.Duration) time.Duration {
	if ttl <= 0 || ttl > 5*time.Minute {
		return 5 * time.Minute
	}
	return ttl
}

// Get retrieves a value
func (c *Cache[V]) Get(key string) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, exists := c.entries[key]
	if !exists || c.expired(entry, time.Now()) {
		c.missCount++
		var zero V
		return zero, false
	}

	entry.HitCount++
	c.entries[key] = entry
	c.hitCount++
	return entry.Value, true
}

// Set stores a value, evicting the oldest entry when full
func (c *Cache[V]) Set(key string, value V) {
	var evicted []string
	c.mutex.Lock()
	if c.maxSize <= 0 {
		c.mutex.Unlock()
		return
	}
	if _, exists := c.entries[key]; !exists && len(c.entries) >= c.maxSize {
		if k := c.evictOldest(); k != "" {
			evicted = append(evicted, k)
		}
	}
	now := time.Now()
	entry := Entry[V]{Value: value, CachedAt: now}
	if c.ttl > 0 {
		entry.ExpiresAt = now.Add(c.ttl)
	}
	c.entries[key] = entry
	fn := c.onEvict
	c.mutex.Unlock()

	notify(fn, evicted)
}

// GetOrLoad returns the cached value for key or runs load once, even when
// called concurrently, and caches its result. Errors are not cached.
// load runs detached from the cancellation of whichever caller started it, so
// one caller giving up does not fail the others waiting on the same key; each
// caller stops waiting when its own ctx is done.
func (c *Cache[V]) GetOrLoad(ctx context.Context, key string, load func(context.Context) (V, error)) (V, bool, error) {
	var zero V
	if v, ok := c.Get(key); ok {
		return v, true, nil
	}
	loadCtx := context.WithoutCancel(ctx)
	ch := c.group.DoChan(key, func() (interface{}, error) {
		if v, ok := c.peek(key); ok {
			return v, nil
		}
		v, err := load(loadCtx)
		if err != nil {
			return nil, err
		}
		c.Set(key, v)
		return v, nil
	})
	select {
	case <-ctx.Done():
		return zero, false, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, false, res.Err
		}
		return res.Val.(V), false, nil
	}
}

func (c *Cache[V]) peek(key string) (V, bool) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	entry, ok := c.entries[key]
	if !ok || c.expired(entry, time.Now()) {
		var zero V
		return zero, false
	}
	return entry.Value, true
}

// Invalidate removes a value and reports whether it was present
func (c *Cache[V]) Invalidate(key string) bool {
	c.mutex.Lock()
	_, ok := c.entries[key]
	delete(c.entries, key)
	fn := c.onEvict
	c.mutex.Unlock()

	if ok {
		notify(fn, []string{key})
	}
	return ok
}

// Purge removes every value
func (c *Cache[V]) Purge() {
	c.mutex.Lock()
	keys := make([]string, 0, len(c.entries))
	for k := range c.entries {
		keys = append(keys, k)
	}
	c.entries = make(map[string]Entry[V])
	fn := c.onEvict
	c.mutex.Unlock()

	notify(fn, keys)
}

// Len returns the number of stored entries, including expired ones not yet swept
func (c *Cache[V]) Len() int {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	return len(c.entries)
}

// GetStats returns cache statistics
func (c *Cache[V]) GetStats() Stats {
	c.mutex.RLock()
	defer c.mutex.RUnlock()

	total := c.hitCount + c.missCount
	ratio := float64(0)
	if total > 0 {
		ratio = float64(c.hitCount) / float64(total)
	}
	return Stats{
		Entries:    len(c.entries),
		MaxSize:    c.maxSize,
		HitCount:   c.hitCount,
		MissCount:  c.missCount,
		HitRatio:   ratio,
		TTLSeconds: c.ttl.Seconds(),
	}
}

func (c *Cache[V]) expired(e Entry[V], now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

func (c *Cache[V]) evictOldest() string {
	var oldestKey string
	var oldestTime time.Time

	for key, entry := range c.entries {
		if oldestKey == "" || entry.CachedAt.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.CachedAt
		}
	}
	if oldestKey != "" {
		delete(c.entries, oldestKey)
	}
	return oldestKey
}

// Stop stops the sweeper goroutine
func (c *Cache[V]) Stop() {
	c.stopOnce.Do(func() { close(c.stopChan) })
}

func (c *Cache[V]) cleanup(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.sweep(time.Now())
		case <-c.stopChan:
			return
		}
	}
}

func (c *Cache[V]) sweep(now time.Time) {
	var expired []string
	c.mutex.Lock()
	for key, entry := range c.entries {
		if c.expired(entry, now) {
			delete(c.entries, key)
			expired = append(expired, key)
		}
	}
	fn := c.onEvict
	c.mutex.Unlock()

	notify(fn, expired)
}

func notify(fn func(string), keys []string) {
	if fn == nil {
		return
	}
	for _, k := range keys {
		fn(k)
	}
}
