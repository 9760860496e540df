package observe

import (
	"context"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	tracenoop "go.opentelemetry.io/otel/trace/noop"
)

// OpMeta describes one core operation for telemetry purposes.
type OpMeta struct {
	Component    string // store, search, cache (optional)
	Operation    string // query, read, search (required)
	ResourceType string // FHIR resource type (optional)
	Mode         string // streaming|preloaded (optional)
}

// SpanName returns the deterministic span name for this operation.
// Format: fhirstore.<component>.<operation> or fhirstore.<operation>
func (m OpMeta) SpanName() string {
	if m.Component != "" {
		return "fhirstore." + m.Component + "." + m.Operation
	}
	return "fhirstore." + m.Operation
}

// Validate reports whether the metadata is usable.
func (m OpMeta) Validate() error {
	if m.Operation == "" {
		return ErrMissingOperation
	}
	return nil
}

func (m OpMeta) attributes() []attribute.KeyValue {
	attrs := []attribute.KeyValue{attribute.String("op.name", m.Operation)}
	if m.Component != "" {
		attrs = append(attrs, attribute.String("op.component", m.Component))
	}
	if m.ResourceType != "" {
		attrs = append(attrs, attribute.String("fhir.resource_type", m.ResourceType))
	}
	if m.Mode != "" {
		attrs = append(attrs, attribute.String("store.mode", m.Mode))
	}
	return attrs
}

func (m OpMeta) fields() []Field {
	fields := []Field{{Key: "op", Value: m.Operation}}
	if m.Component != "" {
		fields = append(fields, Field{Key: "component", Value: m.Component})
	}
	if m.ResourceType != "" {
		fields = append(fields, Field{Key: "resource_type", Value: m.ResourceType})
	}
	if m.Mode != "" {
		fields = append(fields, Field{Key: "mode", Value: m.Mode})
	}
	return fields
}

// Tracer wraps OpenTelemetry tracing with per-operation span management.
type Tracer interface {
	StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span)
	EndSpan(span trace.Span, err error)
}

type tracerImpl struct {
	tracer trace.Tracer
}

// NewTracer creates a Tracer wrapping the given OpenTelemetry tracer.
func NewTracer(t trace.Tracer) Tracer {
	if t == nil {
		return newNoopTracer()
	}
	return &tracerImpl{tracer: t}
}

func (t *tracerImpl) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	attrs := append(meta.attributes(), attribute.Bool("op.error", false))
	return t.tracer.Start(ctx, meta.SpanName(),
		trace.WithAttributes(attrs...),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (t *tracerImpl) EndSpan(span trace.Span, err error) {
	if err != nil {
		span.SetStatus(codes.Error, err.Error())
		span.SetAttributes(attribute.Bool("op.error", true))
		span.RecordError(err)
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

type noopTracer struct {
	noop trace.Tracer
}

func newNoopTracer() Tracer {
	return &noopTracer{noop: tracenoop.NewTracerProvider().Tracer("noop")}
}

func (t *noopTracer) StartSpan(ctx context.Context, meta OpMeta) (context.Context, trace.Span) {
	return t.noop.Start(ctx, meta.SpanName())
}

func (t *noopTracer) EndSpan(span trace.Span, _ error) {
	span.End()
}
