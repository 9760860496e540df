package cache

import (
	"context"
	"errors"
	"reflect"
	"testing"
	"time"
)

func TestNewDefaultRegistry(t *testing.T) {
	r, err := NewDefaultRegistry(nil)
	if err != nil {
		t.Fatalf("NewDefaultRegistry: %v", err)
	}

	if got, want := r.Names(), []string{BundleCache, PatientCache, ResourceCache}; !reflect.DeepEqual(got, want) {
		t.Errorf("Names() = %v, want %v", got, want)
	}

	wantCap := map[string]int{PatientCache: 500, ResourceCache: 1000, BundleCache: 200}
	for name, st := range r.Stats() {
		if st.Capacity != wantCap[name] {
			t.Errorf("%s capacity = %d, want %d", name, st.Capacity, wantCap[name])
		}
		if st.TTL != "never expires" {
			t.Errorf("%s TTL = %q, want never expires", name, st.TTL)
		}
	}
}

func TestNewDefaultRegistry_Overrides(t *testing.T) {
	r, err := NewDefaultRegistry(map[string]Policy{
		BundleCache: {Capacity: 10, DefaultTTL: time.Minute, Eviction: EvictFIFO},
		"extra":     {Capacity: 5},
	})
	if err != nil {
		t.Fatal(err)
	}

	st := r.MustGet(BundleCache).Stats()
	if st.Capacity != 10 || st.Eviction != "fifo" || st.TTL != "1m0s" {
		t.Errorf("bundle stats = %+v", st)
	}
	if _, err := r.Get("extra"); err != nil {
		t.Errorf("extra cache missing: %v", err)
	}

	if _, err := NewDefaultRegistry(map[string]Policy{PatientCache: {Capacity: -1}}); !errors.Is(err, ErrInvalidCapacity) {
		t.Errorf("invalid override error = %v, want ErrInvalidCapacity", err)
	}
}

func TestRegistry_RegisterErrors(t *testing.T) {
	r := NewRegistry()
	c := NewMemoryCache(DefaultPolicy())

	if err := r.Register("a", c); err != nil {
		t.Fatal(err)
	}
	if err := r.Register("a", c); !errors.Is(err, ErrDuplicateCache) {
		t.Errorf("duplicate error = %v", err)
	}
	if err := r.Register(" ", c); !errors.Is(err, ErrInvalidKey) {
		t.Errorf("blank name error = %v", err)
	}
	if err := r.Register("b", nil); !errors.Is(err, ErrNilCache) {
		t.Errorf("nil cache error = %v", err)
	}
	if _, err := r.Get("missing"); !errors.Is(err, ErrCacheNotFound) {
		t.Errorf("missing cache error = %v", err)
	}

	defer func() {
		if recover() == nil {
			t.Error("MustGet on missing cache should panic")
		}
	}()
	r.MustGet("missing")
}

func TestRegistry_ClearAndCleanup(t *testing.T) {
	ctx := context.Background()
	clock := newFakeClock()

	r, err := NewDefaultRegistry(nil, WithClock(clock.Now))
	if err != nil {
		t.Fatal(err)
	}
	patient := r.MustGet(PatientCache)
	bundle := r.MustGet(BundleCache)

	_ = patient.Set(ctx, "patient:p1", 1, 0)
	_ = patient.Set(ctx, "patient:p2", 2, time.Second)
	_ = bundle.Set(ctx, "bundle:p1", 3, 0)

	clock.Advance(time.Minute)
	if n := r.CleanupExpired(); n != 1 {
		t.Errorf("CleanupExpired() = %d, want 1", n)
	}

	removed := r.ClearMatching(ctx, "p1")
	if removed[PatientCache] != 1 || removed[BundleCache] != 1 || removed[ResourceCache] != 0 {
		t.Errorf("ClearMatching(p1) = %v", removed)
	}

	_ = bundle.Set(ctx, "bundle:p3", 4, 0)
	if got := r.ClearAll(ctx); got[BundleCache] != 1 {
		t.Errorf("ClearAll() = %v", got)
	}
}
