// Package logging contains small helpers around log/slog so that every
// component logs operations and errors with the same shape.
package logging

import (
	"context"
	"database/sql"
	"errors"
	"io"
	"log/slog"
	"os"
)

type loggerKey struct{}

// NewLogger returns a JSON logger for production and a text logger otherwise.
func NewLogger(w io.Writer, json bool, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	opts := &slog.HandlerOptions{Level: level}
	if json {
		return slog.New(slog.NewJSONHandler(w, opts))
	}
	return slog.New(slog.NewTextHandler(w, opts))
}

// LogOperation records that a named operation happened.
func LogOperation(logger *slog.Logger, operation string, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	logger.LogAttrs(context.Background(), slog.LevelInfo, operation,
		append([]slog.Attr{slog.String("operation", operation)}, attrs...)...)
}

// LogError logs err with a human readable message.
func LogError(logger *slog.Logger, message string, err error, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	all := make([]slog.Attr, 0, len(attrs)+1)
	if err != nil {
		all = append(all, slog.String("error", err.Error()))
	}
	all = append(all, attrs...)
	logger.LogAttrs(context.Background(), slog.LevelError, message, all...)
}

func LogHTTPRequest(logger *slog.Logger, method, path string, status int, durationMs float64, attrs ...slog.Attr) {
	if logger == nil {
		logger = slog.Default()
	}
	level := slog.LevelInfo
	if status >= 500 {
		level = slog.LevelError
	} else if status >= 400 {
		level = slog.LevelWarn
	}
	all := append([]slog.Attr{
		slog.String("method", method),
		slog.String("path", path),
		slog.Int("status", status),
		slog.Float64("duration_ms", durationMs),
	}, attrs...)
	logger.LogAttrs(context.Background(), level, "http_request", all...)
}

// WithLogger stores logger in ctx.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, or slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx != nil {
		if logger, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok && logger != nil {
			return logger
		}
	}
	return slog.Default()
}

// SafeCloseWithLogging closes c and logs a failure instead of returning it.
// Meant for defer statements.
func SafeCloseWithLogging(c io.Closer, logger *slog.Logger, resource string) {
	if c == nil {
		return
	}
	if err := c.Close(); err != nil {
		LogError(logger, "failed to close resource", err, slog.String("resource", resource))
	}
}

// SafeRollbackWithLogging rolls tx back unless it was already committed.
func SafeRollbackWithLogging(tx *sql.Tx, logger *slog.Logger, operation string) {
	if tx == nil {
		return
	}
	if err := tx.Rollback(); err != nil && !errors.Is(err, sql.ErrTxDone) {
		LogError(logger, "failed to rollback transaction", err, slog.String("operation", operation))
	}
}
