// Package logging provides structured logging configuration using log/slog.
//
// This package integrates with chi's RequestID middleware to propagate
// request IDs through structured log entries, enabling request tracing
// across the entire request lifecycle. When a log file is configured, entries
// are fanned out to both stdout and the file.
package logging

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"

	"github.com/go-chi/chi/v5/middleware"
	slogmulti "github.com/samber/slog-multi"
)

// Setup configures the global slog logger based on level, format and file.
//
// Level values: "debug", "info", "warn", "error" (default: "info")
// Format values: "text", "json" (default: "text")
//
// When file is non-empty, JSON entries are also appended to that file. The
// returned cleanup function closes the file and is safe to call when no file
// was opened.
func Setup(level, format, file string) (func() error, error) {
	opts := &slog.HandlerOptions{
		Level: parseLevel(level),
	}

	handler := newHandler(os.Stdout, format, opts)

	if file == "" {
		slog.SetDefault(slog.New(handler))
		return func() error { return nil }, nil
	}

	f, err := os.OpenFile(file, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		slog.SetDefault(slog.New(handler))
		return func() error { return nil }, fmt.Errorf("open log file %s: %w", file, err)
	}

	fileHandler := slog.NewJSONHandler(f, opts)
	slog.SetDefault(slog.New(slogmulti.Fanout(handler, fileHandler)))

	return f.Close, nil
}

// NewWithWriters builds a fan-out logger over arbitrary writers (for tests and the CLI).
func NewWithWriters(console io.Writer, format string, file io.Writer, level string) *slog.Logger {
	opts := &slog.HandlerOptions{Level: parseLevel(level)}
	consoleHandler := newHandler(console, format, opts)
	if file == nil {
		return slog.New(consoleHandler)
	}
	return slog.New(slogmulti.Fanout(consoleHandler, slog.NewJSONHandler(file, opts)))
}

func newHandler(w io.Writer, format string, opts *slog.HandlerOptions) slog.Handler {
	if strings.ToLower(format) == "json" {
		return slog.NewJSONHandler(w, opts)
	}
	return slog.NewTextHandler(w, opts)
}

// parseLevel converts a string log level to slog.Level.
func parseLevel(level string) slog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// FromContext returns a logger enriched with request context.
//
// When called with a request context that contains a chi RequestID,
// the returned logger automatically includes request_id in all log entries.
//
// Usage:
//
//	func handlePreview(w http.ResponseWriter, r *http.Request) {
//	    logger := logging.FromContext(r.Context())
//	    logger.Info("preview requested", "handle", handle)
//	}
func FromContext(ctx context.Context) *slog.Logger {
	logger := slog.Default()

	// Chi's RequestID middleware stores the ID in context
	if reqID := middleware.GetReqID(ctx); reqID != "" {
		logger = logger.With("request_id", reqID)
	}

	return logger
}

// WithFields returns a logger with additional structured fields.
//
// Usage:
//
//	log := logging.WithFields(ctx,
//	    "handle", handle,
//	    "entity_type", entityType,
//	)
//	log.Info("import started")
//	// ... later ...
//	log.Info("import completed", "succeeded", result.SuccessCount)
func WithFields(ctx context.Context, args ...any) *slog.Logger {
	return FromContext(ctx).With(args...)
}
