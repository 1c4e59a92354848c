package cache

import (
	"sort"
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jonwraymond/erpgate/observe"
)

// TTLCache is the in-memory Cache implementation.
//
// All sweeping and mutating operations execute under one mutex scoped
// to the cache instance; sweep + evict + insert are atomic relative to
// other cache operations. The lock is never held across upstream I/O
// (the cache performs none).
type TTLCache struct {
	mu      sync.Mutex
	policy  Policy
	clock   clock.Clock
	log     observe.Logger
	entries map[string]*entry
}

type entry struct {
	value     any
	createdAt time.Time
	ttl       time.Duration
}

// expired reports whether the entry is past its TTL. TTL <= 0 never expires.
func (e *entry) expired(now time.Time) bool {
	if e.ttl <= 0 {
		return false
	}
	return now.Sub(e.createdAt) > e.ttl
}

// Option configures a TTLCache.
type Option func(*TTLCache)

// WithClock injects a clock, letting tests control expiry.
func WithClock(c clock.Clock) Option {
	return func(t *TTLCache) { t.clock = c }
}

// WithLogger attaches a logger for hit/miss/evict events.
func WithLogger(l observe.Logger) Option {
	return func(t *TTLCache) { t.log = l }
}

// NewTTLCache creates a TTL cache with the given policy.
func NewTTLCache(policy Policy, opts ...Option) *TTLCache {
	c := &TTLCache{
		policy:  policy,
		clock:   clock.New(),
		log:     observe.NopLogger{},
		entries: make(map[string]*entry),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Get retrieves a cached value. The lookup sweeps expired entries
// first; an expired entry under the key is deleted as part of the read.
func (c *TTLCache) Get(key string) (any, bool) {
	if !c.policy.Enabled {
		return nil, false
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.sweepLocked(now)

	e, ok := c.entries[key]
	if !ok {
		c.log.Debug("cache miss", observe.F("key", key))
		return nil, false
	}
	if e.expired(now) {
		delete(c.entries, key)
		c.log.Debug("cache expired", observe.F("key", key))
		return nil, false
	}

	c.log.Debug("cache hit", observe.F("key", key))
	return e.value, true
}

// Set stores a value. Expired entries are swept and the oldest-created
// entries evicted until the new entry fits without exceeding MaxSize.
func (c *TTLCache) Set(key string, value any, ttl time.Duration) {
	if !c.policy.Enabled {
		return
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	c.sweepLocked(now)
	c.evictLocked(key)

	c.entries[key] = &entry{value: value, createdAt: now, ttl: ttl}
	c.log.Debug("cache set", observe.F("key", key), observe.F("ttl", ttl.String()))
}

// Delete removes one entry if present.
func (c *TTLCache) Delete(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; ok {
		delete(c.entries, key)
		c.log.Debug("cache delete", observe.F("key", key))
		return true
	}
	return false
}

// Clear removes all entries and returns the count removed.
func (c *TTLCache) Clear() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	n := len(c.entries)
	c.entries = make(map[string]*entry)
	c.log.Info("cache cleared", observe.F("removed", n))
	return n
}

// Stats returns a snapshot after a sweep.
func (c *TTLCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.sweepLocked(c.clock.Now())
	return Stats{
		Enabled: c.policy.Enabled,
		Size:    len(c.entries),
		MaxSize: c.policy.MaxSize,
		TTL:     c.policy.DefaultTTL,
	}
}

// sweepLocked removes all expired entries. Callers hold c.mu.
func (c *TTLCache) sweepLocked(now time.Time) {
	var swept int
	for key, e := range c.entries {
		if e.expired(now) {
			delete(c.entries, key)
			swept++
		}
	}
	if swept > 0 {
		c.log.Debug("cache sweep", observe.F("removed", swept))
	}
}

// evictLocked removes oldest-created entries until the entry for key
// fits without exceeding MaxSize. Read recency is deliberately ignored.
// Callers hold c.mu.
func (c *TTLCache) evictLocked(key string) {
	if c.policy.MaxSize <= 0 {
		return
	}
	if _, ok := c.entries[key]; ok {
		// Overwrite, no growth.
		return
	}
	excess := len(c.entries) - (c.policy.MaxSize - 1)
	if excess <= 0 {
		return
	}

	type aged struct {
		key       string
		createdAt time.Time
	}
	byAge := make([]aged, 0, len(c.entries))
	for k, e := range c.entries {
		byAge = append(byAge, aged{key: k, createdAt: e.createdAt})
	}
	sort.Slice(byAge, func(i, j int) bool {
		return byAge[i].createdAt.Before(byAge[j].createdAt)
	})

	for i := 0; i < excess; i++ {
		delete(c.entries, byAge[i].key)
	}
	c.log.Debug("cache evict", observe.F("removed", excess))
}

// Ensure TTLCache implements Cache
var _ Cache = (*TTLCache)(nil)
