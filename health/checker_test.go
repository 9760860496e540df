package health

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
)

func TestStatus_String(t *testing.T) {
	tests := []struct {
		status Status
		want   string
	}{
		{StatusHealthy, "healthy"},
		{StatusDegraded, "degraded"},
		{StatusUnhealthy, "unhealthy"},
		{Status(99), "unknown"},
	}
	for _, tt := range tests {
		if got := tt.status.String(); got != tt.want {
			t.Errorf("Status(%d).String() = %q, want %q", tt.status, got, tt.want)
		}
	}
}

func TestStatus_Worse(t *testing.T) {
	if got := StatusHealthy.Worse(StatusDegraded); got != StatusDegraded {
		t.Errorf("healthy.Worse(degraded) = %v", got)
	}
	if got := StatusUnhealthy.Worse(StatusDegraded); got != StatusUnhealthy {
		t.Errorf("unhealthy.Worse(degraded) = %v", got)
	}
}

func TestResult_Constructors(t *testing.T) {
	errBoom := errors.New("boom")

	if r := Healthy("ok"); r.Status != StatusHealthy || r.Message != "ok" || r.Timestamp.IsZero() {
		t.Errorf("Healthy() = %+v", r)
	}
	if r := Degraded("slow"); r.Status != StatusDegraded {
		t.Errorf("Degraded() status = %v", r.Status)
	}
	r := Unhealthy("down", errBoom).WithDetails(map[string]any{"k": 1})
	if r.Status != StatusUnhealthy || !errors.Is(r.Error, errBoom) {
		t.Errorf("Unhealthy() = %+v", r)
	}
	if r.Details["k"] != 1 {
		t.Errorf("Details = %v", r.Details)
	}
}

func TestResult_JSON(t *testing.T) {
	b, err := json.Marshal(Degraded("partial"))
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	var got map[string]any
	if err := json.Unmarshal(b, &got); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	if got["status"] != "degraded" {
		t.Errorf("status = %v, want degraded", got["status"])
	}
	if _, ok := got["details"]; ok {
		t.Error("empty details should be omitted")
	}
}

func TestCheckerFunc(t *testing.T) {
	c := NewCheckerFunc("ping", func(ctx context.Context) Result {
		return Healthy("pong")
	})
	if c.Name() != "ping" {
		t.Errorf("Name() = %q", c.Name())
	}
	if r := c.Check(context.Background()); r.Message != "pong" {
		t.Errorf("Check().Message = %q", r.Message)
	}
}
