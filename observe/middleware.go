package observe

import (
	"context"
	"time"
)

// Middleware wraps core operations with tracing, metrics and logging.
//
// Contract:
//   - Concurrency: safe for concurrent use.
//   - Context: the span context is propagated to the wrapped function.
//   - Errors: errors from the wrapped function are recorded and propagated unchanged.
type Middleware struct {
	tracer  Tracer
	metrics Metrics
	logger  Logger
}

// NewMiddleware creates a Middleware from its parts. Nil parts are replaced by no-ops.
func NewMiddleware(tracer Tracer, metrics Metrics, logger Logger) *Middleware {
	if tracer == nil {
		tracer = newNoopTracer()
	}
	if metrics == nil {
		metrics = NewNopMetrics()
	}
	if logger == nil {
		logger = NewNopLogger()
	}
	return &Middleware{tracer: tracer, metrics: metrics, logger: logger}
}

// MiddlewareFromObserver creates a Middleware backed by an Observer's providers.
func MiddlewareFromObserver(obs Observer) (*Middleware, error) {
	metrics, err := NewMetrics(obs.Meter())
	if err != nil {
		return nil, err
	}
	return NewMiddleware(NewTracer(obs.Tracer()), metrics, obs.Logger()), nil
}

// NopMiddleware returns a Middleware that only calls through.
func NopMiddleware() *Middleware {
	return NewMiddleware(nil, nil, nil)
}

// Metrics returns the metrics sink used by the middleware.
func (m *Middleware) Metrics() Metrics {
	if m == nil {
		return NewNopMetrics()
	}
	return m.metrics
}

// Logger returns the logger used by the middleware.
func (m *Middleware) Logger() Logger {
	if m == nil {
		return NewNopLogger()
	}
	return m.logger
}

// Do runs fn inside a span. fn reports how many resources it produced, or -1 when
// the count is meaningless for the operation.
func (m *Middleware) Do(ctx context.Context, meta OpMeta, fn func(context.Context) (int, error)) error {
	if m == nil {
		_, err := fn(ctx)
		return err
	}

	ctx, span := m.tracer.StartSpan(ctx, meta)
	start := time.Now()

	matches, err := fn(ctx)

	duration := time.Since(start)
	m.tracer.EndSpan(span, err)
	m.metrics.RecordOperation(ctx, meta, duration, matches, err)

	fields := append(meta.fields(), Field{Key: "duration_ms", Value: float64(duration.Microseconds()) / 1000})
	if matches >= 0 {
		fields = append(fields, Field{Key: "matches", Value: matches})
	}
	if err != nil {
		fields = append(fields, Err(err))
		m.logger.Warn(ctx, "operation failed", fields...)
	} else {
		m.logger.Debug(ctx, "operation completed", fields...)
	}

	return err
}

// Run is the typed form of Do. size may be nil when the result has no natural count.
func Run[T any](ctx context.Context, m *Middleware, meta OpMeta, fn func(context.Context) (T, error), size func(T) int) (T, error) {
	var out T
	err := m.Do(ctx, meta, func(ctx context.Context) (int, error) {
		v, err := fn(ctx)
		out = v
		if err != nil || size == nil {
			return -1, err
		}
		return size(v), nil
	})
	return out, err
}
