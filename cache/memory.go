package cache

import (
	"container/list"
	"context"
	"strings"
	"sync"
	"time"
)

// Clock returns the current time. Tests substitute a simulated clock.
type Clock func() time.Time

// Option configures a MemoryCache.
type Option func(*MemoryCache)

// WithClock replaces time.Now as the source of expiry timestamps.
func WithClock(now Clock) Option {
	return func(c *MemoryCache) {
		if now != nil {
			c.now = now
		}
	}
}

// MemoryCache is an in-memory Cache.
//
// Entries live in a list ordered by eviction priority: the front is the next
// victim. Under EvictFIFO that is insertion order; under EvictLRU every hit and
// every overwrite moves the entry to the back. A single mutex serialises all
// operations, including Get, because Get mutates order and counters.
type MemoryCache struct {
	mu      sync.Mutex
	policy  Policy
	now     Clock
	entries map[string]*list.Element
	order   *list.List

	hits      uint64
	misses    uint64
	evictions uint64
}

type cacheEntry struct {
	key       string
	value     any
	expiresAt time.Time // zero means never
}

func (e *cacheEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && now.After(e.expiresAt)
}

// NewMemoryCache creates a cache with the given policy. A non-positive capacity
// falls back to DefaultCapacity and an unknown eviction policy to EvictLRU.
func NewMemoryCache(policy Policy, opts ...Option) *MemoryCache {
	if policy.Capacity <= 0 {
		policy.Capacity = DefaultCapacity
	}
	if ev, err := ParseEviction(string(policy.Eviction)); err == nil {
		policy.Eviction = ev
	} else {
		policy.Eviction = EvictLRU
	}

	c := &MemoryCache{
		policy:  policy,
		now:     time.Now,
		entries: make(map[string]*list.Element),
		order:   list.New(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Policy returns the normalised policy the cache runs with.
func (c *MemoryCache) Policy() Policy {
	return c.policy
}

// Get retrieves a value. Returns (nil, false) on miss or expiry.
func (c *MemoryCache) Get(_ context.Context, key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		c.misses++
		return nil, false
	}

	e := el.Value.(*cacheEntry)
	if e.expired(c.now()) {
		c.removeElement(el)
		c.misses++
		return nil, false
	}

	if c.policy.Eviction == EvictLRU {
		c.order.MoveToBack(el)
	}
	c.hits++
	return e.value, true
}

// Set stores a value. See Cache.Set for TTL semantics.
func (c *MemoryCache) Set(_ context.Context, key string, value any, ttl time.Duration) error {
	if err := ValidateKey(key); err != nil {
		return err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	var expiresAt time.Time
	if eff := c.policy.EffectiveTTL(ttl); eff > 0 {
		expiresAt = c.now().Add(eff)
	}

	if el, ok := c.entries[key]; ok {
		e := el.Value.(*cacheEntry)
		e.value = value
		e.expiresAt = expiresAt
		if c.policy.Eviction == EvictLRU {
			c.order.MoveToBack(el)
		}
		return nil
	}

	if len(c.entries) >= c.policy.Capacity {
		c.evictOne()
	}

	c.entries[key] = c.order.PushBack(&cacheEntry{
		key:       key,
		value:     value,
		expiresAt: expiresAt,
	})
	return nil
}

// Delete removes a value. Idempotent - no error on miss.
func (c *MemoryCache) Delete(_ context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		c.removeElement(el)
	}
	return nil
}

// Clear removes every entry whose key contains pattern, or every entry when
// pattern is empty. Counters are preserved.
func (c *MemoryCache) Clear(_ context.Context, pattern string) int {
	c.mu.Lock()
	defer c.mu.Unlock()

	if pattern == "" {
		n := len(c.entries)
		c.entries = make(map[string]*list.Element)
		c.order.Init()
		return n
	}

	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if strings.Contains(el.Value.(*cacheEntry).key, pattern) {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

// CleanupExpired removes every expired entry and returns how many were dropped.
// Expired entries are otherwise only reclaimed by Get or eviction.
func (c *MemoryCache) CleanupExpired() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for el := c.order.Front(); el != nil; {
		next := el.Next()
		if el.Value.(*cacheEntry).expired(now) {
			c.removeElement(el)
			removed++
		}
		el = next
	}
	return removed
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Keys returns stored keys in eviction order, next victim first.
func (c *MemoryCache) Keys() []string {
	c.mu.Lock()
	defer c.mu.Unlock()

	keys := make([]string, 0, len(c.entries))
	for el := c.order.Front(); el != nil; el = el.Next() {
		keys = append(keys, el.Value.(*cacheEntry).key)
	}
	return keys
}

// Stats returns a snapshot of the cache counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()

	return Stats{
		Size:      len(c.entries),
		Capacity:  c.policy.Capacity,
		Hits:      c.hits,
		Misses:    c.misses,
		Evictions: c.evictions,
		HitRate:   hitRate(c.hits, c.misses),
		TTL:       c.policy.TTLDescription(),
		Eviction:  string(c.policy.Eviction),
	}
}

// evictOne must be called with c.mu held.
func (c *MemoryCache) evictOne() {
	if el := c.order.Front(); el != nil {
		c.removeElement(el)
		c.evictions++
	}
}

func (c *MemoryCache) removeElement(el *list.Element) {
	c.order.Remove(el)
	delete(c.entries, el.Value.(*cacheEntry).key)
}

var _ Cache = (*MemoryCache)(nil)
