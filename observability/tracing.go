package observability

import (
	"context"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
)

var tracer = otel.Tracer("singleton")

// SpanManager handles trace span lifecycle around construction.
// Use NewSpanManager() for OTel tracing or NoopSpanManager{} when disabled.
type SpanManager interface {
	// StartCreateSpan starts a span covering one traits constructor call.
	StartCreateSpan(ctx context.Context, slot string) (context.Context, trace.Span)

	// EndSpan completes a span, tagging it with the created instance ID.
	EndSpan(span trace.Span, instanceID string, err error)
}

type otelSpanManager struct{}

// NewSpanManager returns a SpanManager that uses the global OTel tracer
// provider. Configure the provider before the first construction:
//
//	otel.SetTracerProvider(yourProvider)
func NewSpanManager() SpanManager {
	return &otelSpanManager{}
}

func (m *otelSpanManager) StartCreateSpan(ctx context.Context, slot string) (context.Context, trace.Span) {
	return tracer.Start(
		ctx, "singleton.create",
		trace.WithAttributes(attribute.String("slot", slot)),
		trace.WithSpanKind(trace.SpanKindInternal),
	)
}

func (m *otelSpanManager) EndSpan(span trace.Span, instanceID string, err error) {
	if span == nil {
		return
	}
	if instanceID != "" {
		span.SetAttributes(attribute.String("instance.id", instanceID))
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}
