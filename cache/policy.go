package cache

import (
	"fmt"
	"strings"
	"time"
)

// Eviction selects which entry a full cache drops before inserting a new key.
type Eviction string

const (
	// EvictLRU drops the least recently read or written entry.
	EvictLRU Eviction = "lru"
	// EvictFIFO drops the earliest inserted entry regardless of access.
	EvictFIFO Eviction = "fifo"
)

// ParseEviction parses a policy name. Empty selects EvictLRU.
func ParseEviction(s string) (Eviction, error) {
	switch Eviction(strings.ToLower(strings.TrimSpace(s))) {
	case "", EvictLRU:
		return EvictLRU, nil
	case EvictFIFO:
		return EvictFIFO, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrInvalidEviction, s)
	}
}

// Policy configures a cache.
type Policy struct {
	// Capacity is the maximum number of live entries.
	Capacity int

	// DefaultTTL applies when Set is called with ttl == 0.
	// Zero means entries never expire.
	DefaultTTL time.Duration

	// MaxTTL clamps finite TTLs. Never-expiring entries are not affected.
	// Zero disables clamping.
	MaxTTL time.Duration

	// Eviction chooses the victim when the cache is full.
	Eviction Eviction
}

// DefaultCapacity is used when Policy.Capacity is not set.
const DefaultCapacity = 1000

// DefaultPolicy returns a never-expiring LRU policy with DefaultCapacity entries.
func DefaultPolicy() Policy {
	return Policy{
		Capacity: DefaultCapacity,
		Eviction: EvictLRU,
	}
}

// Validate reports configuration errors.
func (p Policy) Validate() error {
	if p.Capacity <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidCapacity, p.Capacity)
	}
	if _, err := ParseEviction(string(p.Eviction)); err != nil {
		return err
	}
	return nil
}

// EffectiveTTL returns the TTL to apply for an override, or 0 for "never expires".
func (p Policy) EffectiveTTL(override time.Duration) time.Duration {
	ttl := override
	switch {
	case ttl == NoExpiration:
		return 0
	case ttl <= 0:
		ttl = p.DefaultTTL
	}

	if p.MaxTTL > 0 && ttl > p.MaxTTL {
		ttl = p.MaxTTL
	}
	return ttl
}

// TTLDescription renders the default TTL for stats output.
func (p Policy) TTLDescription() string {
	if p.DefaultTTL <= 0 {
		return "never expires"
	}
	return p.DefaultTTL.String()
}
