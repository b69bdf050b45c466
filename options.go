package singleton

import (
	"log/slog"

	"github.com/danpasecinic/singleton/observability"
)

type Option func(*slotConfig)

type slotConfig struct {
	name      string
	logger    *slog.Logger
	exit      ExitRegistry
	policy    WaitPolicy
	metrics   observability.MetricsRecorder
	spans     observability.SpanManager
	onCreate  []CreateHook
	onWait    []WaitHook
	onDestroy []DestroyHook
}

func defaultSlotConfig() *slotConfig {
	return &slotConfig{
		logger:  slog.Default(),
		policy:  DefaultWaitPolicy(),
		metrics: observability.NoopMetrics{},
		spans:   observability.NoopSpanManager{},
	}
}

// WithName sets the name used in logs, metrics and spans. It defaults to the
// instance type.
func WithName(name string) Option {
	return func(cfg *slotConfig) {
		cfg.name = name
	}
}

func WithLogger(logger *slog.Logger) Option {
	return func(cfg *slotConfig) {
		cfg.logger = logger
	}
}

// WithExitRegistry overrides where the exit callback is registered. By
// default it goes to atexit.Default() at the time the instance is created.
func WithExitRegistry(r ExitRegistry) Option {
	return func(cfg *slotConfig) {
		cfg.exit = r
	}
}

func WithWaitPolicy(p WaitPolicy) Option {
	return func(cfg *slotConfig) {
		cfg.policy = p
	}
}

func WithMetrics(m observability.MetricsRecorder) Option {
	return func(cfg *slotConfig) {
		cfg.metrics = m
	}
}

func WithSpans(s observability.SpanManager) Option {
	return func(cfg *slotConfig) {
		cfg.spans = s
	}
}

// WithOpenTelemetry records metrics and spans through the global OTel
// providers.
func WithOpenTelemetry() Option {
	return func(cfg *slotConfig) {
		cfg.metrics = observability.NewMetricsRecorder()
		cfg.spans = observability.NewSpanManager()
	}
}

func WithCreateObserver(hook CreateHook) Option {
	return func(cfg *slotConfig) {
		cfg.onCreate = append(cfg.onCreate, hook)
	}
}

func WithWaitObserver(hook WaitHook) Option {
	return func(cfg *slotConfig) {
		cfg.onWait = append(cfg.onWait, hook)
	}
}

func WithDestroyObserver(hook DestroyHook) Option {
	return func(cfg *slotConfig) {
		cfg.onDestroy = append(cfg.onDestroy, hook)
	}
}
