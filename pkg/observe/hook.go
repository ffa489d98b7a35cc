// Package observe defines the observability hook every use-case calls
// through, per the platform's deliberate choice to specify a capability
// interface rather than depend on a specific telemetry exporter.
package observe

import (
	"context"
	"log/slog"
)

// Hook receives a named event with free-form attributes. Implementations
// decide what, if anything, to do with it: export a span, emit a log line,
// or nothing at all.
type Hook interface {
	OnEvent(ctx context.Context, name string, attrs map[string]any)
}

// Noop discards every event. It is the default when no hook is configured.
type Noop struct{}

func (Noop) OnEvent(context.Context, string, map[string]any) {}

// SlogHook emits each event as a structured log line at debug level.
type SlogHook struct {
	Logger *slog.Logger
}

func NewSlogHook(logger *slog.Logger) *SlogHook {
	return &SlogHook{Logger: logger}
}

func (h *SlogHook) OnEvent(ctx context.Context, name string, attrs map[string]any) {
	logger := h.Logger
	if logger == nil {
		logger = slog.Default()
	}
	args := make([]any, 0, len(attrs)*2)
	for k, v := range attrs {
		args = append(args, k, v)
	}
	logger.DebugContext(ctx, name, args...)
}
