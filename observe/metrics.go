package observe

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric instrument names.
const (
	MetricOpTotal      = "fhirstore.op.total"
	MetricOpErrors     = "fhirstore.op.errors"
	MetricOpDuration   = "fhirstore.op.duration_ms"
	MetricOpMatches    = "fhirstore.op.matches"
	MetricCacheLookups = "fhirstore.cache.lookups"
)

// Metrics records operation and cache metrics.
//
// Contract:
// - Concurrency: implementations must be safe for concurrent use.
// - Errors: implementations must not panic.
type Metrics interface {
	// RecordOperation records one operation with its duration, match count and error status.
	RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, matches int, err error)

	// RecordCacheLookup records a hit or miss against the named cache.
	RecordCacheLookup(ctx context.Context, cache string, hit bool)
}

type metricsImpl struct {
	totalCount   metric.Int64Counter
	errorCount   metric.Int64Counter
	durationHist metric.Float64Histogram
	matchHist    metric.Int64Histogram
	lookups      metric.Int64Counter
}

// NewMetrics creates a Metrics instance with instruments registered on meter.
func NewMetrics(meter metric.Meter) (Metrics, error) {
	totalCount, err := meter.Int64Counter(MetricOpTotal,
		metric.WithDescription("Total number of core operations"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, err
	}

	errorCount, err := meter.Int64Counter(MetricOpErrors,
		metric.WithDescription("Total number of failed core operations"),
		metric.WithUnit("{error}"),
	)
	if err != nil {
		return nil, err
	}

	durationHist, err := meter.Float64Histogram(MetricOpDuration,
		metric.WithDescription("Core operation duration in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	matchHist, err := meter.Int64Histogram(MetricOpMatches,
		metric.WithDescription("Resources returned per operation"),
		metric.WithUnit("{resource}"),
	)
	if err != nil {
		return nil, err
	}

	lookups, err := meter.Int64Counter(MetricCacheLookups,
		metric.WithDescription("Cache lookups by result"),
		metric.WithUnit("{lookup}"),
	)
	if err != nil {
		return nil, err
	}

	return &metricsImpl{
		totalCount:   totalCount,
		errorCount:   errorCount,
		durationHist: durationHist,
		matchHist:    matchHist,
		lookups:      lookups,
	}, nil
}

func (m *metricsImpl) RecordOperation(ctx context.Context, meta OpMeta, duration time.Duration, matches int, err error) {
	opt := metric.WithAttributes(meta.attributes()...)

	m.totalCount.Add(ctx, 1, opt)
	if err != nil {
		m.errorCount.Add(ctx, 1, opt)
	}
	m.durationHist.Record(ctx, float64(duration.Microseconds())/1000, opt)
	if matches >= 0 {
		m.matchHist.Record(ctx, int64(matches), opt)
	}
}

func (m *metricsImpl) RecordCacheLookup(ctx context.Context, cache string, hit bool) {
	result := "miss"
	if hit {
		result = "hit"
	}
	m.lookups.Add(ctx, 1, metric.WithAttributes(
		attribute.String("cache", cache),
		attribute.String("result", result),
	))
}

// NewNopMetrics returns a Metrics that records nothing.
func NewNopMetrics() Metrics {
	return noopMetrics{}
}

type noopMetrics struct{}

func (noopMetrics) RecordOperation(context.Context, OpMeta, time.Duration, int, error) {}

func (noopMetrics) RecordCacheLookup(context.Context, string, bool) {}
