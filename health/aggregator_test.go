package health

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func fixed(name string, r Result) Checker {
	return NewCheckerFunc(name, func(context.Context) Result { return r })
}

func TestNewAggregator_Defaults(t *testing.T) {
	agg := NewAggregator()
	if agg.config.Timeout != DefaultTimeout {
		t.Errorf("Timeout = %v, want %v", agg.config.Timeout, DefaultTimeout)
	}
	if agg.config.Sequential {
		t.Error("default should run checks in parallel")
	}

	agg = NewAggregator(AggregatorConfig{Timeout: -1, Sequential: true})
	if agg.config.Timeout != DefaultTimeout || !agg.config.Sequential {
		t.Errorf("config = %+v", agg.config)
	}
}

func TestAggregator_RegisterKeepsOrder(t *testing.T) {
	agg := NewAggregator()
	agg.Register(fixed("b", Healthy("")))
	agg.Register(fixed("a", Healthy("")))
	agg.Register(fixed("b", Degraded("replaced")))

	names := agg.Names()
	if len(names) != 2 || names[0] != "b" || names[1] != "a" {
		t.Fatalf("Names() = %v, want [b a]", names)
	}

	r, err := agg.Check(context.Background(), "b")
	if err != nil {
		t.Fatalf("Check() error = %v", err)
	}
	if r.Message != "replaced" {
		t.Errorf("re-registering should replace the checker, got %q", r.Message)
	}
}

func TestAggregator_CheckUnknown(t *testing.T) {
	_, err := NewAggregator().Check(context.Background(), "nope")
	if !errors.Is(err, ErrCheckerNotFound) {
		t.Errorf("Check() error = %v, want ErrCheckerNotFound", err)
	}
}

func TestAggregator_CheckAllStatus(t *testing.T) {
	tests := []struct {
		name    string
		results []Result
		want    Status
	}{
		{"empty", nil, StatusHealthy},
		{"all healthy", []Result{Healthy(""), Healthy("")}, StatusHealthy},
		{"one degraded", []Result{Healthy(""), Degraded("")}, StatusDegraded},
		{"unhealthy wins", []Result{Degraded(""), Unhealthy("", nil), Healthy("")}, StatusUnhealthy},
	}
	for _, tt := range tests {
		for _, sequential := range []bool{false, true} {
			agg := NewAggregator(AggregatorConfig{Sequential: sequential})
			for i, r := range tt.results {
				agg.Register(fixed(string(rune('a'+i)), r))
			}
			report := agg.CheckAll(context.Background())
			if report.Status != tt.want {
				t.Errorf("%s (sequential=%v): Status = %v, want %v", tt.name, sequential, report.Status, tt.want)
			}
			if len(report.Entries) != len(tt.results) {
				t.Fatalf("%s: %d entries, want %d", tt.name, len(report.Entries), len(tt.results))
			}
			for i, e := range report.Entries {
				if e.Name != string(rune('a'+i)) {
					t.Errorf("%s: entry %d = %q, entries must follow registration order", tt.name, i, e.Name)
				}
			}
		}
	}
}

func TestAggregator_Timeout(t *testing.T) {
	agg := NewAggregator(AggregatorConfig{Timeout: 20 * time.Millisecond})
	agg.Register(NewCheckerFunc("slow", func(ctx context.Context) Result {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return Healthy("too late")
	}))
	agg.Register(fixed("fast", Healthy("ok")))

	report := agg.CheckAll(context.Background())
	if report.Status != StatusUnhealthy {
		t.Errorf("Status = %v, want unhealthy", report.Status)
	}
	if !errors.Is(report.Entries[0].Result.Error, ErrCheckTimeout) {
		t.Errorf("slow error = %v, want ErrCheckTimeout", report.Entries[0].Result.Error)
	}
	if report.Entries[1].Result.Status != StatusHealthy {
		t.Errorf("fast status = %v", report.Entries[1].Result.Status)
	}
}

func TestAggregator_SetsDuration(t *testing.T) {
	var calls atomic.Int32
	agg := NewAggregator()
	agg.Register(NewCheckerFunc("sleepy", func(context.Context) Result {
		calls.Add(1)
		time.Sleep(5 * time.Millisecond)
		return Result{Status: StatusHealthy}
	}))

	report := agg.CheckAll(context.Background())
	r := report.Entries[0].Result
	if r.Duration < 5*time.Millisecond {
		t.Errorf("Duration = %v, want >= 5ms", r.Duration)
	}
	if r.Timestamp.IsZero() {
		t.Error("zero Timestamp should be filled in")
	}
	if calls.Load() != 1 {
		t.Errorf("checker called %d times", calls.Load())
	}
}
