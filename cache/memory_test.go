package cache

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"
)

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
}

func (f *fakeClock) Now() time.Time {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.now
}

func (f *fakeClock) Advance(d time.Duration) {
	f.mu.Lock()
	f.now = f.now.Add(d)
	f.mu.Unlock()
}

func TestMemoryCache_GetSetDelete(t *testing.T) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	if val, ok := c.Get(ctx, "nonexistent"); ok || val != nil {
		t.Fatalf("Get on empty cache = (%v, %v), want (nil, false)", val, ok)
	}

	if err := c.Set(ctx, "Observation:1", "payload", 0); err != nil {
		t.Fatalf("Set failed: %v", err)
	}
	got, ok := c.Get(ctx, "Observation:1")
	if !ok || got != "payload" {
		t.Fatalf("Get after Set = (%v, %v), want (payload, true)", got, ok)
	}

	if err := c.Delete(ctx, "Observation:1"); err != nil {
		t.Fatalf("Delete failed: %v", err)
	}
	if _, ok := c.Get(ctx, "Observation:1"); ok {
		t.Error("Get after Delete should miss")
	}
	if err := c.Delete(ctx, "nonexistent"); err != nil {
		t.Errorf("Delete on missing key should not error, got %v", err)
	}
}

func TestMemoryCache_InvalidKeys(t *testing.T) {
	c := NewMemoryCache(DefaultPolicy())
	ctx := context.Background()

	tests := []struct {
		name string
		key  string
		want error
	}{
		{"empty", "", ErrInvalidKey},
		{"blank", "   ", ErrInvalidKey},
		{"newline", "a\nb", ErrInvalidKey},
		{"too long", strings.Repeat("k", MaxKeyLength+1), ErrKeyTooLong},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := c.Set(ctx, tt.key, 1, 0); !errors.Is(err, tt.want) {
				t.Errorf("Set(%q) error = %v, want %v", tt.key, err, tt.want)
			}
		})
	}
	if c.Len() != 0 {
		t.Errorf("Len() = %d after rejected sets, want 0", c.Len())
	}
}

func TestMemoryCache_CapacityEviction(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name     string
		eviction Eviction
		wantKeys []string
	}{
		// "a" was read after insertion, so LRU evicts "b" instead.
		{"lru", EvictLRU, []string{"c", "a", "d"}},
		{"fifo", EvictFIFO, []string{"b", "c", "d"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemoryCache(Policy{Capacity: 3, Eviction: tt.eviction})
			for _, k := range []string{"a", "b", "c"} {
				if err := c.Set(ctx, k, k, 0); err != nil {
					t.Fatalf("Set(%q): %v", k, err)
				}
			}
			if _, ok := c.Get(ctx, "a"); !ok {
				t.Fatal("expected hit on a")
			}
			if err := c.Set(ctx, "d", "d", 0); err != nil {
				t.Fatalf("Set(d): %v", err)
			}

			if got := c.Keys(); !reflect.DeepEqual(got, tt.wantKeys) {
				t.Errorf("Keys() = %v, want %v", got, tt.wantKeys)
			}
			st := c.Stats()
			if st.Size != 3 || st.Evictions != 1 {
				t.Errorf("Stats size=%d evictions=%d, want 3 and 1", st.Size, st.Evictions)
			}
		})
	}
}

func TestMemoryCache_OverwriteNeverEvicts(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(Policy{Capacity: 2, Eviction: EvictFIFO})

	_ = c.Set(ctx, "a", 1, 0)
	_ = c.Set(ctx, "b", 2, 0)
	if err := c.Set(ctx, "a", 10, 0); err != nil {
		t.Fatalf("overwrite: %v", err)
	}

	if got := c.Stats().Evictions; got != 0 {
		t.Errorf("Evictions = %d, want 0", got)
	}
	if v, _ := c.Get(ctx, "a"); v != 10 {
		t.Errorf("Get(a) = %v, want 10", v)
	}
	// FIFO keeps the original insertion position on overwrite.
	if got := c.Keys(); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("Keys() = %v, want [a b]", got)
	}
}

func TestMemoryCache_TTL(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(Policy{Capacity: 10, DefaultTTL: time.Minute}, WithClock(clock.Now))

	_ = c.Set(ctx, "default", 1, 0)
	_ = c.Set(ctx, "short", 2, 10*time.Second)
	_ = c.Set(ctx, "forever", 3, NoExpiration)

	clock.Advance(30 * time.Second)
	if _, ok := c.Get(ctx, "short"); ok {
		t.Error("short entry should have expired")
	}
	if _, ok := c.Get(ctx, "default"); !ok {
		t.Error("default entry should still be live")
	}

	clock.Advance(time.Hour)
	if _, ok := c.Get(ctx, "default"); ok {
		t.Error("default entry should have expired")
	}
	if _, ok := c.Get(ctx, "forever"); !ok {
		t.Error("NoExpiration entry should never expire")
	}

	st := c.Stats()
	if st.Hits != 2 || st.Misses != 2 {
		t.Errorf("hits=%d misses=%d, want 2 and 2", st.Hits, st.Misses)
	}
	if st.Size != 1 {
		t.Errorf("Size = %d, want 1 (expired entries removed on read)", st.Size)
	}
}

func TestMemoryCache_MaxTTLClamp(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(Policy{Capacity: 10, MaxTTL: time.Minute}, WithClock(clock.Now))

	_ = c.Set(ctx, "clamped", 1, time.Hour)
	_ = c.Set(ctx, "forever", 2, 0)

	clock.Advance(2 * time.Minute)
	if _, ok := c.Get(ctx, "clamped"); ok {
		t.Error("TTL above MaxTTL should be clamped")
	}
	if _, ok := c.Get(ctx, "forever"); !ok {
		t.Error("never-expiring entry should not be clamped")
	}
}

func TestMemoryCache_CleanupExpired(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()
	c := NewMemoryCache(Policy{Capacity: 10}, WithClock(clock.Now))

	for i := 0; i < 4; i++ {
		_ = c.Set(ctx, fmt.Sprintf("k%d", i), i, time.Duration(i+1)*time.Second)
	}
	_ = c.Set(ctx, "keep", 0, 0)

	clock.Advance(2500 * time.Millisecond)
	if n := c.CleanupExpired(); n != 2 {
		t.Errorf("CleanupExpired() = %d, want 2", n)
	}
	if c.Len() != 3 {
		t.Errorf("Len() = %d, want 3", c.Len())
	}
	if st := c.Stats(); st.Misses != 0 {
		t.Errorf("CleanupExpired should not count misses, got %d", st.Misses)
	}
}

func TestMemoryCache_Clear(t *testing.T) {
	ctx := context.Background()

	tests := []struct {
		name        string
		pattern     string
		wantRemoved int
		wantLeft    []string
	}{
		{"all", "", 4, []string{}},
		{"substring", "patient:", 2, []string{"bundle:x", "resource:y"}},
		{"no match", "encounter", 0, []string{"patient:1", "patient:2", "bundle:x", "resource:y"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewMemoryCache(Policy{Capacity: 10, Eviction: EvictFIFO})
			for _, k := range []string{"patient:1", "patient:2", "bundle:x", "resource:y"} {
				_ = c.Set(ctx, k, k, 0)
			}
			_, _ = c.Get(ctx, "patient:1")
			_, _ = c.Get(ctx, "missing")

			if got := c.Clear(ctx, tt.pattern); got != tt.wantRemoved {
				t.Errorf("Clear(%q) = %d, want %d", tt.pattern, got, tt.wantRemoved)
			}
			if got := c.Keys(); !reflect.DeepEqual(got, tt.wantLeft) {
				t.Errorf("Keys() = %v, want %v", got, tt.wantLeft)
			}
			st := c.Stats()
			if st.Hits != 1 || st.Misses != 1 {
				t.Errorf("Clear must preserve counters, got hits=%d misses=%d", st.Hits, st.Misses)
			}
		})
	}
}

func TestMemoryCache_Stats(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(Policy{Capacity: 5, Eviction: EvictFIFO})

	_ = c.Set(ctx, "a", 1, 0)
	for i := 0; i < 3; i++ {
		_, _ = c.Get(ctx, "a")
	}
	_, _ = c.Get(ctx, "b")

	st := c.Stats()
	if st.Requests() != 4 {
		t.Errorf("Requests() = %d, want 4", st.Requests())
	}
	if st.HitRate != 0.75 {
		t.Errorf("HitRate = %v, want 0.75", st.HitRate)
	}
	if st.HitRatePercent() != "75.0%" {
		t.Errorf("HitRatePercent() = %q, want 75.0%%", st.HitRatePercent())
	}
	if st.Capacity != 5 || st.Eviction != "fifo" || st.TTL != "never expires" {
		t.Errorf("unexpected stats %+v", st)
	}
	if empty := NewMemoryCache(DefaultPolicy()).Stats(); empty.HitRate != 0 {
		t.Errorf("HitRate with no requests = %v, want 0", empty.HitRate)
	}
}

func TestMemoryCache_NormalisesPolicy(t *testing.T) {
	c := NewMemoryCache(Policy{Capacity: 0, Eviction: "random"})
	p := c.Policy()
	if p.Capacity != DefaultCapacity {
		t.Errorf("Capacity = %d, want %d", p.Capacity, DefaultCapacity)
	}
	if p.Eviction != EvictLRU {
		t.Errorf("Eviction = %q, want lru", p.Eviction)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	ctx := context.Background()
	c := NewMemoryCache(Policy{Capacity: 50})

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			for i := 0; i < 200; i++ {
				key := fmt.Sprintf("k%d", (g*200+i)%120)
				_ = c.Set(ctx, key, i, 0)
				_, _ = c.Get(ctx, key)
			}
		}(g)
	}
	wg.Wait()

	st := c.Stats()
	if st.Size > 50 {
		t.Errorf("Size = %d exceeds capacity 50", st.Size)
	}
	if st.Requests() != 8*200 {
		t.Errorf("Requests() = %d, want %d", st.Requests(), 8*200)
	}
}
