package cache

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
)

// Names of the caches built by NewDefaultRegistry.
const (
	PatientCache  = "patient"
	ResourceCache = "resource"
	BundleCache   = "bundle"
)

// DefaultPolicies returns the never-expiring policies of the three standard
// caches: patient (500), resource (1000) and bundle (200).
func DefaultPolicies() map[string]Policy {
	return map[string]Policy{
		PatientCache:  {Capacity: 500, Eviction: EvictLRU},
		ResourceCache: {Capacity: 1000, Eviction: EvictLRU},
		BundleCache:   {Capacity: 200, Eviction: EvictLRU},
	}
}

// Registry holds named caches. It is built once at start-up and passed to the
// components that need it.
type Registry struct {
	mu     sync.RWMutex
	caches map[string]Cache
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{caches: make(map[string]Cache)}
}

// NewDefaultRegistry builds a MemoryCache per policy. Policies missing from
// overrides fall back to DefaultPolicies.
func NewDefaultRegistry(overrides map[string]Policy, opts ...Option) (*Registry, error) {
	policies := DefaultPolicies()
	for name, p := range overrides {
		policies[name] = p
	}

	r := NewRegistry()
	for name, p := range policies {
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("cache %q: %w", name, err)
		}
		if err := r.Register(name, NewMemoryCache(p, opts...)); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a named cache.
func (r *Registry) Register(name string, c Cache) error {
	name = strings.TrimSpace(name)
	if name == "" {
		return fmt.Errorf("%w: empty cache name", ErrInvalidKey)
	}
	if c == nil {
		return ErrNilCache
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.caches[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateCache, name)
	}
	r.caches[name] = c
	return nil
}

// Get returns the named cache.
func (r *Registry) Get(name string) (Cache, error) {
	r.mu.RLock()
	c, ok := r.caches[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrCacheNotFound, name)
	}
	return c, nil
}

// MustGet returns the named cache and panics when it is missing.
func (r *Registry) MustGet(name string) Cache {
	c, err := r.Get(name)
	if err != nil {
		panic(err)
	}
	return c
}

// Names returns registered cache names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.caches))
	for name := range r.caches {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats returns stats for every registered cache.
func (r *Registry) Stats() map[string]Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]Stats, len(r.caches))
	for name, c := range r.caches {
		out[name] = c.Stats()
	}
	return out
}

// ClearAll empties every cache and returns the removed count per cache.
func (r *Registry) ClearAll(ctx context.Context) map[string]int {
	return r.ClearMatching(ctx, "")
}

// ClearMatching applies Clear(pattern) to every cache.
func (r *Registry) ClearMatching(ctx context.Context, pattern string) map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make(map[string]int, len(r.caches))
	for name, c := range r.caches {
		out[name] = c.Clear(ctx, pattern)
	}
	return out
}

// CleanupExpired reclaims expired entries in every cache that supports it.
func (r *Registry) CleanupExpired() int {
	r.mu.RLock()
	defer r.mu.RUnlock()

	total := 0
	for _, c := range r.caches {
		if mc, ok := c.(interface{ CleanupExpired() int }); ok {
			total += mc.CleanupExpired()
		}
	}
	return total
}
