package health

import (
	"context"
	"fmt"

	"github.com/jonwraymond/fhirstore/cache"
)

// CacheChecker reports per-cache statistics. Caches never make the service
// unhealthy; the checker exists so doctor output shows hit rates and sizes.
type CacheChecker struct {
	reg *cache.Registry
}

// NewCacheChecker creates a checker over reg.
func NewCacheChecker(reg *cache.Registry) *CacheChecker {
	return &CacheChecker{reg: reg}
}

// Name returns "caches".
func (c *CacheChecker) Name() string {
	return "caches"
}

// Check collects a stats snapshot of every registered cache.
func (c *CacheChecker) Check(context.Context) Result {
	stats := c.reg.Stats()
	details := make(map[string]any, len(stats))
	entries := 0
	for name, s := range stats {
		details[name] = s
		entries += s.Size
	}
	return Healthy(fmt.Sprintf("%d caches, %d entries", len(stats), entries)).WithDetails(details)
}
