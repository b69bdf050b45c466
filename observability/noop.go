package observability

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/trace"
	"go.opentelemetry.io/otel/trace/noop"
)

type NoopMetrics struct{}

func (NoopMetrics) RecordCreate(context.Context, string, time.Duration)    {}
func (NoopMetrics) RecordWait(context.Context, string, time.Duration, int) {}
func (NoopMetrics) RecordDestroy(context.Context, string)                  {}

var noopSpan = noop.Span{}

type NoopSpanManager struct{}

func (NoopSpanManager) StartCreateSpan(ctx context.Context, _ string) (context.Context, trace.Span) {
	return ctx, noopSpan
}

func (NoopSpanManager) EndSpan(trace.Span, string, error) {}

var (
	_ MetricsRecorder = NoopMetrics{}
	_ SpanManager     = NoopSpanManager{}
)
