package cache

import (
	"context"
	"errors"
	"strings"
	"time"
)

// MaxKeyLength is the maximum allowed length for a cache key.
const MaxKeyLength = 512

// NoExpiration passed as a TTL stores an entry that never expires, even when
// the cache policy carries a default TTL.
const NoExpiration time.Duration = -1

// Sentinel errors for cache operations.
var (
	ErrNilCache        = errors.New("cache: cache is nil")
	ErrInvalidKey      = errors.New("cache: key is invalid")
	ErrKeyTooLong      = errors.New("cache: key exceeds max length")
	ErrCacheNotFound   = errors.New("cache: named cache not registered")
	ErrDuplicateCache  = errors.New("cache: named cache already registered")
	ErrInvalidCapacity = errors.New("cache: capacity must be positive")
	ErrInvalidEviction = errors.New("cache: unknown eviction policy")
)

// Cache is a key/value store with TTL expiry, bounded capacity and hit/miss
// accounting. Keys are opaque strings; values are opaque.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Get never errors; it returns (nil, false) on a miss, and every call counts
//   as exactly one hit or one miss.
// - Set evicts at most one entry, and only when inserting a key that is not
//   already present while the cache is full.
type Cache interface {
	// Get retrieves a live value. Expired entries are removed and count as misses.
	Get(ctx context.Context, key string) (any, bool)

	// Set stores a value. ttl == 0 uses the cache default, NoExpiration never expires.
	Set(ctx context.Context, key string, value any, ttl time.Duration) error

	// Delete removes a value. Idempotent - no error on miss.
	Delete(ctx context.Context, key string) error

	// Clear removes every key containing pattern, or everything when pattern
	// is empty, and returns how many entries were removed.
	Clear(ctx context.Context, pattern string) int

	// Stats returns a snapshot of size and counters.
	Stats() Stats
}

// ValidateKey checks if a key is valid for caching.
func ValidateKey(key string) error {
	if strings.TrimSpace(key) == "" {
		return ErrInvalidKey
	}
	if len(key) > MaxKeyLength {
		return ErrKeyTooLong
	}
	if strings.ContainsAny(key, "\n\r") {
		return ErrInvalidKey
	}
	return nil
}
