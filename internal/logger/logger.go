// Package logger provides structured logging using Go 1.21's log/slog.
// It sets up a JSON handler with service-level context and derives the
// trace ID that lets every decision for a candle be followed end to end.
package logger

import (
	"fmt"
	"log/slog"
	"os"
	"time"
)

// Init creates and returns a structured logger for the given service.
// The logger outputs JSON to stdout with the service name embedded.
func Init(service string, level slog.Level) *slog.Logger {
	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: level,
	})

	logger := slog.New(handler).With(
		slog.String("service", service),
	)

	// Set as default so log/slog.Info() etc. also use structured output
	slog.SetDefault(logger)

	return logger
}

// DecisionTraceID creates a trace ID from a symbol and candle time.
// Format: "{symbol}-{unixNano}".
func DecisionTraceID(symbol string, ts time.Time) string {
	return fmt.Sprintf("%s-%d", symbol, ts.UnixNano())
}
