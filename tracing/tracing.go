// Package tracing provides OpenTelemetry spans around wrapped operations.
// It is entirely optional: spans are only created when a [TracingConfig] is
// wired into the resilience chain via the WithTracing option.
package tracing

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/Keksclan/goSquirrelShield/contextx"
)

// TracingConfig holds the OpenTelemetry configuration used when wrapping
// operations in spans.
type TracingConfig struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider
}

// tracer returns a configured [trace.Tracer].
func (c *TracingConfig) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/Keksclan/goSquirrelShield/tracing")
}

// Span runs fn inside a span named after the operation. The span records the
// operation identity, the call ID when present, and the error outcome. If
// cfg is nil, fn runs without instrumentation.
func Span(ctx context.Context, cfg *TracingConfig, op string, fn func(context.Context) (any, error)) (any, error) {
	if cfg == nil {
		return fn(ctx)
	}

	ctx, span := cfg.tracer().Start(ctx, op, trace.WithSpanKind(trace.SpanKindInternal))
	defer span.End()

	attrs := []attribute.KeyValue{
		attribute.String("shield.operation", op),
	}
	if id := contextx.CallIDFromContext(ctx); id != "" {
		attrs = append(attrs, attribute.String("shield.call_id", id))
	}
	span.SetAttributes(attrs...)

	result, err := fn(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	return result, err
}
