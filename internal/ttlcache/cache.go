// Package ttlcache is a bounded in-memory cache whose entries expire a
// fixed time after they were written and a fixed time after they were
// last touched, whichever comes first.
//
// It backs the write-dedup tracker and the version lookup caches. None
// of these are systems of record, so eviction only ever costs a reload.
package ttlcache

import (
	"container/list"
	"sync"
	"time"
)

// Options bounds a cache. A zero AfterWrite or AfterAccess disables that
// expiry. A zero SweepInterval picks one from the expiry windows.
type Options struct {
	MaxEntries    int
	AfterWrite    time.Duration
	AfterAccess   time.Duration
	SweepInterval time.Duration

	// Clock replaces time.Now in tests.
	Clock func() time.Time
}

type entry[K comparable, V any] struct {
	key       K
	value     V
	writtenAt time.Time
	touchedAt time.Time
	element   *list.Element
}

// Cache is safe for concurrent use.
type Cache[K comparable, V any] struct {
	opts    Options
	entries map[K]*entry[K, V]
	order   *list.List // front = most recently touched
	mu      sync.Mutex

	stop     chan struct{}
	stopOnce sync.Once
}

// New creates a cache and starts its background sweep.
// Call Close to stop the sweep goroutine.
func New[K comparable, V any](opts Options) *Cache[K, V] {
	if opts.MaxEntries < 1 {
		opts.MaxEntries = 1
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.SweepInterval <= 0 {
		opts.SweepInterval = sweepInterval(opts.AfterWrite, opts.AfterAccess)
	}

	c := &Cache[K, V]{
		opts:    opts,
		entries: make(map[K]*entry[K, V]),
		order:   list.New(),
		stop:    make(chan struct{}),
	}
	go c.sweepLoop()
	return c
}

func sweepInterval(afterWrite, afterAccess time.Duration) time.Duration {
	shortest := afterWrite
	if shortest <= 0 || (afterAccess > 0 && afterAccess < shortest) {
		shortest = afterAccess
	}
	if shortest <= 0 {
		return time.Minute
	}
	if half := shortest / 2; half > time.Second {
		return half
	}
	return time.Second
}

func (c *Cache[K, V]) sweepLoop() {
	ticker := time.NewTicker(c.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			c.Sweep()
		case <-c.stop:
			return
		}
	}
}

// Close stops the background sweep. Safe to call more than once.
func (c *Cache[K, V]) Close() {
	c.stopOnce.Do(func() { close(c.stop) })
}

// GetIfPresent returns the live value for key and refreshes its access time.
func (c *Cache[K, V]) GetIfPresent(key K) (V, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.live(key, c.opts.Clock())
	if !ok {
		var zero V
		return zero, false
	}
	return e.value, true
}

// GetOrInsert returns the live value for key, or stores and returns
// load(). load runs under the cache lock, so concurrent callers for the
// same key observe a single insertion. Keep it cheap.
func (c *Cache[K, V]) GetOrInsert(key K, load func() V) V {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Clock()
	if e, ok := c.live(key, now); ok {
		return e.value
	}
	v := load()
	c.insert(key, v, now)
	return v
}

// Set stores value, resetting both expiry windows.
func (c *Cache[K, V]) Set(key K, value V) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Clock()
	if e, ok := c.entries[key]; ok {
		e.value = value
		e.writtenAt = now
		e.touchedAt = now
		c.order.MoveToFront(e.element)
		return
	}
	c.insert(key, value, now)
}

// Invalidate drops key.
func (c *Cache[K, V]) Invalidate(key K) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		c.remove(e)
	}
}

// Len counts stored entries, including expired ones not yet swept.
func (c *Cache[K, V]) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Sweep removes expired entries and returns how many were dropped.
func (c *Cache[K, V]) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.opts.Clock()
	removed := 0
	for _, e := range c.entries {
		if c.expired(e, now) {
			c.remove(e)
			removed++
		}
	}
	return removed
}

// live looks key up, dropping it when expired. Must hold mu.
func (c *Cache[K, V]) live(key K, now time.Time) (*entry[K, V], bool) {
	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.expired(e, now) {
		c.remove(e)
		return nil, false
	}
	e.touchedAt = now
	c.order.MoveToFront(e.element)
	return e, true
}

func (c *Cache[K, V]) expired(e *entry[K, V], now time.Time) bool {
	if c.opts.AfterWrite > 0 && now.Sub(e.writtenAt) >= c.opts.AfterWrite {
		return true
	}
	if c.opts.AfterAccess > 0 && now.Sub(e.touchedAt) >= c.opts.AfterAccess {
		return true
	}
	return false
}

func (c *Cache[K, V]) insert(key K, value V, now time.Time) {
	e := &entry[K, V]{key: key, value: value, writtenAt: now, touchedAt: now}
	e.element = c.order.PushFront(e)
	c.entries[key] = e

	for c.order.Len() > c.opts.MaxEntries {
		oldest := c.order.Back()
		if oldest == nil {
			break
		}
		c.remove(oldest.Value.(*entry[K, V]))
	}
}

func (c *Cache[K, V]) remove(e *entry[K, V]) {
	c.order.Remove(e.element)
	delete(c.entries, e.key)
}
