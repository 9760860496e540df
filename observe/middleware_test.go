package observe

import (
	"context"
	"errors"
	"testing"

	"go.opentelemetry.io/otel/codes"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	zapobserver "go.uber.org/zap/zaptest/observer"
)

type recordingMiddleware struct {
	mw    *Middleware
	spans *tracetest.SpanRecorder
	logs  *zapobserver.ObservedLogs
}

func newRecordingMiddleware(t *testing.T) recordingMiddleware {
	t.Helper()
	spans := tracetest.NewSpanRecorder()
	tp := sdktrace.NewTracerProvider(sdktrace.WithSpanProcessor(spans))
	t.Cleanup(func() { _ = tp.Shutdown(context.Background()) })

	core, logs := zapobserver.New(zapcore.DebugLevel)
	mw := NewMiddleware(NewTracer(tp.Tracer("test")), nil, NewZapLogger(zap.New(core)))
	return recordingMiddleware{mw: mw, spans: spans, logs: logs}
}

func TestMiddleware_SuccessPath(t *testing.T) {
	rec := newRecordingMiddleware(t)
	meta := OpMeta{Component: "search", Operation: "search", ResourceType: "Observation"}

	var inner trace.SpanContext
	got, err := Run(context.Background(), rec.mw, meta, func(ctx context.Context) ([]string, error) {
		inner = trace.SpanContextFromContext(ctx)
		return []string{"o1", "o2"}, nil
	}, func(v []string) int { return len(v) })
	if err != nil {
		t.Fatalf("Run() error = %v", err)
	}
	if len(got) != 2 {
		t.Errorf("Run() = %v, want the producer result", got)
	}
	if !inner.IsValid() {
		t.Error("span context not propagated to the wrapped function")
	}

	ended := rec.spans.Ended()
	if len(ended) != 1 || ended[0].Name() != "fhirstore.search.search" {
		t.Fatalf("spans = %v", ended)
	}
	if ended[0].Status().Code != codes.Ok {
		t.Errorf("status = %v, want Ok", ended[0].Status().Code)
	}

	entries := rec.logs.FilterMessage("operation completed").All()
	if len(entries) != 1 {
		t.Fatalf("expected 1 completion log, got %d", len(entries))
	}
	fields := entries[0].ContextMap()
	if fields["matches"] != int64(2) || fields["resource_type"] != "Observation" {
		t.Errorf("log fields = %v", fields)
	}
}

func TestMiddleware_ErrorPath(t *testing.T) {
	rec := newRecordingMiddleware(t)
	errBoom := errors.New("boom")

	err := rec.mw.Do(context.Background(), OpMeta{Operation: "read"}, func(context.Context) (int, error) {
		return -1, errBoom
	})
	if !errors.Is(err, errBoom) {
		t.Fatalf("Do() error = %v, want errBoom unchanged", err)
	}

	span := rec.spans.Ended()[0]
	if span.Name() != "fhirstore.read" || span.Status().Code != codes.Error {
		t.Errorf("span %s status %v", span.Name(), span.Status().Code)
	}
	if len(span.Events()) == 0 {
		t.Error("error not recorded on span")
	}

	entries := rec.logs.FilterMessage("operation failed").All()
	if len(entries) != 1 || entries[0].Level != zapcore.WarnLevel {
		t.Fatalf("failure logs = %v", entries)
	}
	if _, ok := entries[0].ContextMap()["matches"]; ok {
		t.Error("matches should be omitted for -1")
	}
}

func TestMiddleware_NilAndNop(t *testing.T) {
	var nilMW *Middleware
	calls := 0
	fn := func(context.Context) (int, error) { calls++; return 1, nil }

	if err := nilMW.Do(context.Background(), OpMeta{Operation: "x"}, fn); err != nil {
		t.Fatalf("nil Do() error = %v", err)
	}
	if err := NopMiddleware().Do(context.Background(), OpMeta{Operation: "x"}, fn); err != nil {
		t.Fatalf("nop Do() error = %v", err)
	}
	if calls != 2 {
		t.Errorf("fn called %d times, want 2", calls)
	}
	if nilMW.Logger() == nil || nilMW.Metrics() == nil {
		t.Error("nil middleware should hand out no-op parts")
	}
}

func TestMiddlewareFromObserver(t *testing.T) {
	mw, err := MiddlewareFromObserver(NewNopObserver())
	if err != nil {
		t.Fatalf("MiddlewareFromObserver() error = %v", err)
	}
	v, err := Run(context.Background(), mw, OpMeta{Operation: "read"}, func(context.Context) (string, error) {
		return "p1", nil
	}, nil)
	if err != nil || v != "p1" {
		t.Errorf("Run() = %q, %v", v, err)
	}
}
