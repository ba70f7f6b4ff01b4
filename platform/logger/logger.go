// Package logger provides structured logging infrastructure for the application.
// This is part of the platform layer and contains no business logic.
package logger

import (
	"context"
	"io"
	"log/slog"
	"os"
	"strings"
)

// Context key types for storing values in context
type contextKey string

const (
	// RequestIDKey is the context key for request ID
	RequestIDKey contextKey = "request_id"
	// MachineIDKey is the context key for the machine being quoted
	MachineIDKey contextKey = "machine_id"
)

// Logger wraps slog.Logger for structured logging
type Logger struct {
	*slog.Logger
}

// New creates a new logger based on environment
func New(env string) *Logger {
	return NewWithWriter(env, os.Stdout)
}

// NewWithWriter creates a logger that writes to w.
func NewWithWriter(env string, w io.Writer) *Logger {
	var handler slog.Handler

	opts := &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}

	if strings.EqualFold(env, "development") {
		opts.Level = slog.LevelDebug
		handler = slog.NewTextHandler(w, opts)
	} else {
		handler = slog.NewJSONHandler(w, opts)
	}

	return &Logger{
		Logger: slog.New(handler),
	}
}

// Discard returns a logger that drops everything. Used by tests.
func Discard() *Logger {
	return &Logger{Logger: slog.New(slog.NewTextHandler(io.Discard, nil))}
}

// WithContext returns a logger with context values extracted.
func (l *Logger) WithContext(ctx context.Context) *Logger {
	if ctx == nil {
		return l
	}

	newLogger := l

	if requestID, ok := ctx.Value(RequestIDKey).(string); ok && requestID != "" {
		newLogger = newLogger.WithRequestID(requestID)
	}

	if machineID, ok := ctx.Value(MachineIDKey).(string); ok && machineID != "" {
		newLogger = &Logger{
			Logger: newLogger.With(slog.String("machine_id", machineID)),
		}
	}

	return newLogger
}

// WithRequestID returns a logger with request ID
func (l *Logger) WithRequestID(requestID string) *Logger {
	return &Logger{
		Logger: l.With(slog.String("request_id", requestID)),
	}
}

// HTTPRequest logs an HTTP request
func (l *Logger) HTTPRequest(method, path string, status int, latencyMs float64, clientIP string) {
	l.Info("http_request",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("latency_ms", latencyMs),
		slog.String("client_ip", clientIP),
	)
}

// HTTPError logs an HTTP error
func (l *Logger) HTTPError(method, path string, status int, err error, clientIP string) {
	l.Error("http_error",
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.String("error", err.Error()),
		slog.String("client_ip", clientIP),
	)
}

// AuthEvent logs access checks on protected endpoints
func (l *Logger) AuthEvent(event, clientIP string, success bool, reason string) {
	if success {
		l.Info("auth_event",
			slog.String("event", event),
			slog.String("client_ip", clientIP),
			slog.Bool("success", success),
		)
	} else {
		l.Warn("auth_event",
			slog.String("event", event),
			slog.String("client_ip", clientIP),
			slog.Bool("success", success),
			slog.String("reason", reason),
		)
	}
}

// CatalogSync logs the outcome of a catalog synchronization attempt.
func (l *Logger) CatalogSync(ok bool, source, mode string, items, skipped int, cached bool, reason string) {
	attrs := []any{
		slog.Bool("ok", ok),
		slog.String("source", source),
		slog.String("mode", mode),
		slog.Int("items", items),
		slog.Int("skipped", skipped),
		slog.Bool("cached", cached),
	}
	if ok {
		l.Info("catalog_sync", attrs...)
		return
	}
	l.Warn("catalog_sync", append(attrs, slog.String("reason", reason))...)
}

// QuoteGenerated logs a finished quotation.
func (l *Logger) QuoteGenerated(machineID, fileName string, totalCents int64, warnings int, bytes int) {
	l.Info("quote_generated",
		slog.String("machine_id", machineID),
		slog.String("file_name", fileName),
		slog.Int64("total_cents", totalCents),
		slog.Int("warnings", warnings),
		slog.Int("bytes", bytes),
	)
}

// RateLimitExceeded logs rate limit events
func (l *Logger) RateLimitExceeded(clientIP, path string) {
	l.Warn("rate_limit_exceeded",
		slog.String("client_ip", clientIP),
		slog.String("path", path),
	)
}
