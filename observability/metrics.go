package observability

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// MetricsRecorder records slot metrics.
// Use NewMetricsRecorder() for OTel metrics or NoopMetrics{} when disabled.
type MetricsRecorder interface {
	// RecordCreate records a completed construction and how long it took.
	RecordCreate(ctx context.Context, slot string, duration time.Duration)

	// RecordWait records a goroutine that lost the creation race and waited.
	RecordWait(ctx context.Context, slot string, duration time.Duration, iterations int)

	// RecordDestroy records an exit-time teardown.
	RecordDestroy(ctx context.Context, slot string)
}

type otelMetrics struct {
	creations      metric.Int64Counter
	createLatency  metric.Float64Histogram
	waits          metric.Int64Counter
	waitLatency    metric.Float64Histogram
	waitIterations metric.Int64Histogram
	destroys       metric.Int64Counter
}

var (
	defaultMetrics     *otelMetrics
	defaultMetricsOnce sync.Once
	defaultMetricsErr  error
)

func getDefaultMetrics() (*otelMetrics, error) {
	defaultMetricsOnce.Do(
		func() {
			defaultMetrics, defaultMetricsErr = newOtelMetrics()
		},
	)
	return defaultMetrics, defaultMetricsErr
}

func newOtelMetrics() (*otelMetrics, error) {
	meter := otel.Meter("singleton")

	creations, err := meter.Int64Counter(
		"singleton.creations",
		metric.WithDescription("Number of singleton instances constructed"),
	)
	if err != nil {
		return nil, err
	}

	createLatency, err := meter.Float64Histogram(
		"singleton.create.latency_ms",
		metric.WithDescription("Time spent in the traits constructor in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	waits, err := meter.Int64Counter(
		"singleton.waits",
		metric.WithDescription("Number of callers that blocked on a concurrent construction"),
	)
	if err != nil {
		return nil, err
	}

	waitLatency, err := meter.Float64Histogram(
		"singleton.wait.latency_ms",
		metric.WithDescription("Time callers spent blocked on a concurrent construction in milliseconds"),
		metric.WithUnit("ms"),
	)
	if err != nil {
		return nil, err
	}

	waitIterations, err := meter.Int64Histogram(
		"singleton.wait.iterations",
		metric.WithDescription("Backoff iterations per blocked caller"),
	)
	if err != nil {
		return nil, err
	}

	destroys, err := meter.Int64Counter(
		"singleton.destroys",
		metric.WithDescription("Number of singleton instances destroyed at exit"),
	)
	if err != nil {
		return nil, err
	}

	return &otelMetrics{
		creations:      creations,
		createLatency:  createLatency,
		waits:          waits,
		waitLatency:    waitLatency,
		waitIterations: waitIterations,
		destroys:       destroys,
	}, nil
}

// NewMetricsRecorder returns a MetricsRecorder that uses OpenTelemetry.
// If metrics initialization fails, returns a no-op recorder.
//
// The recorder uses the global OTel meter provider. Configure the provider
// before calling this function:
//
//	otel.SetMeterProvider(yourProvider)
func NewMetricsRecorder() MetricsRecorder {
	m, err := getDefaultMetrics()
	if err != nil {
		slog.Warn(
			"metrics initialization failed, using no-op recorder",
			slog.String("error", err.Error()),
		)
		return NoopMetrics{}
	}
	return m
}

func (m *otelMetrics) RecordCreate(ctx context.Context, slot string, duration time.Duration) {
	attrs := metric.WithAttributes(attribute.String("slot", slot))
	m.creations.Add(ctx, 1, attrs)
	m.createLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
}

func (m *otelMetrics) RecordWait(ctx context.Context, slot string, duration time.Duration, iterations int) {
	attrs := metric.WithAttributes(attribute.String("slot", slot))
	m.waits.Add(ctx, 1, attrs)
	m.waitLatency.Record(ctx, float64(duration.Microseconds())/1000, attrs)
	m.waitIterations.Record(ctx, int64(iterations), attrs)
}

func (m *otelMetrics) RecordDestroy(ctx context.Context, slot string) {
	m.destroys.Add(ctx, 1, metric.WithAttributes(attribute.String("slot", slot)))
}
