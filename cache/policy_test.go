package cache

import (
	"errors"
	"testing"
	"time"
)

func TestParseEviction(t *testing.T) {
	tests := []struct {
		in      string
		want    Eviction
		wantErr bool
	}{
		{"", EvictLRU, false},
		{"lru", EvictLRU, false},
		{" FIFO ", EvictFIFO, false},
		{"random", "", true},
	}
	for _, tt := range tests {
		got, err := ParseEviction(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseEviction(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
			continue
		}
		if tt.wantErr && !errors.Is(err, ErrInvalidEviction) {
			t.Errorf("ParseEviction(%q) error = %v, want ErrInvalidEviction", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseEviction(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestPolicy_Validate(t *testing.T) {
	tests := []struct {
		name   string
		policy Policy
		want   error
	}{
		{"default", DefaultPolicy(), nil},
		{"zero capacity", Policy{Capacity: 0}, ErrInvalidCapacity},
		{"bad eviction", Policy{Capacity: 1, Eviction: "mru"}, ErrInvalidEviction},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Validate()
			if tt.want == nil && err != nil {
				t.Fatalf("Validate() = %v, want nil", err)
			}
			if tt.want != nil && !errors.Is(err, tt.want) {
				t.Fatalf("Validate() = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestPolicy_EffectiveTTL(t *testing.T) {
	p := Policy{DefaultTTL: time.Minute, MaxTTL: 10 * time.Minute}

	tests := []struct {
		name     string
		override time.Duration
		want     time.Duration
	}{
		{"zero uses default", 0, time.Minute},
		{"explicit", 5 * time.Minute, 5 * time.Minute},
		{"clamped", time.Hour, 10 * time.Minute},
		{"never expires", NoExpiration, 0},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := p.EffectiveTTL(tt.override); got != tt.want {
				t.Errorf("EffectiveTTL(%v) = %v, want %v", tt.override, got, tt.want)
			}
		})
	}
}
