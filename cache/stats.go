package cache

import "fmt"

// Stats is a point-in-time snapshot of a cache.
type Stats struct {
	Size      int     `json:"size"`
	Capacity  int     `json:"capacity"`
	Hits      uint64  `json:"hits"`
	Misses    uint64  `json:"misses"`
	Evictions uint64  `json:"evictions"`
	HitRate   float64 `json:"hit_rate"` // 0..1
	TTL       string  `json:"ttl"`
	Eviction  string  `json:"eviction"`
}

// HitRatePercent formats HitRate as e.g. "87.5%".
func (s Stats) HitRatePercent() string {
	return fmt.Sprintf("%.1f%%", s.HitRate*100)
}

// Requests is the number of Get calls observed.
func (s Stats) Requests() uint64 {
	return s.Hits + s.Misses
}

func hitRate(hits, misses uint64) float64 {
	total := hits + misses
	if total == 0 {
		return 0
	}
	return float64(hits) / float64(total)
}
