// Package observability provides logging, metrics and tracing for singleton
// slots: structured logging via slog, metrics and spans via OpenTelemetry.
//
// All features are opt-in and have no-op implementations when disabled. None
// of them is ever invoked on the fast path of an already created slot.
package observability

import (
	"log/slog"
	"time"
)

// LogCreated logs a completed construction.
func LogCreated(logger *slog.Logger, slot, instanceID string, duration time.Duration) {
	if logger == nil {
		return
	}
	logger.Debug(
		"singleton created",
		slog.String("slot", slot),
		slog.String("instance_id", instanceID),
		slog.Duration("duration", duration),
	)
}

// LogWaited logs a caller that blocked on a concurrent construction.
func LogWaited(logger *slog.Logger, slot string, duration time.Duration, iterations int) {
	if logger == nil {
		return
	}
	logger.Debug(
		"waited for concurrent construction",
		slog.String("slot", slot),
		slog.Duration("duration", duration),
		slog.Int("iterations", iterations),
	)
}

func LogDestroyed(logger *slog.Logger, slot, instanceID string) {
	if logger == nil {
		return
	}
	logger.Debug(
		"singleton destroyed",
		slog.String("slot", slot),
		slog.String("instance_id", instanceID),
	)
}

// LogConstructorPanic logs a constructor that panicked. The slot it was
// building stays in the being-created state for the rest of the process.
func LogConstructorPanic(logger *slog.Logger, slot string, recovered any) {
	if logger == nil {
		return
	}
	logger.Error(
		"singleton constructor panicked; slot is permanently stuck",
		slog.String("slot", slot),
		slog.Any("panic", recovered),
	)
}
