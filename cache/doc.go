// Package cache provides a bounded TTL cache and a memoizer built on it.
//
// MemoryCache evicts one entry before inserting a new key into a full cache,
// choosing the victim by recency (EvictLRU, the default) or by insertion order
// (EvictFIFO). Expired entries are dropped lazily on Get, or in bulk through
// CleanupExpired.
//
// Memoizer derives keys as "<producer>:<sha256 prefix>" over canonical JSON of
// the positional arguments followed by the name-sorted keyword arguments, so
// keyword order never changes the key while positional order always does.
//
// Registry replaces process-wide cache globals: build it once with
// NewDefaultRegistry and hand it to the components that memoize.
package cache
