package common

import (
	"log/slog"
	"os"
)

// SetupLogging installs a process-wide JSON slog handler tagged with the
// service name, mirroring the structured logging every service edge and
// use-case relies on for correlation-id propagation.
func SetupLogging(service string, level slog.Level) {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	logger := slog.New(handler).With("service", service)
	slog.SetDefault(logger)
}
