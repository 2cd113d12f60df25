package events

import (
	"context"
	"os"
	"sync"
)

type contextKey int

const loggerKey contextKey = iota

// FromContext extracts logger from context.
func FromContext(ctx context.Context) *Logger {
	if l, ok := LoggerFrom(ctx); ok {
		return l
	}
	return defaultLogger
}

// LoggerFrom returns the logger attached to ctx, if any.
func LoggerFrom(ctx context.Context) (*Logger, bool) {
	l, ok := ctx.Value(loggerKey).(*Logger)
	return l, ok && l != nil
}

// WithLogger adds logger to context.
func WithLogger(ctx context.Context, logger *Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// WithDatabase tags the context logger with the database path.
func WithDatabase(ctx context.Context, path string) context.Context {
	return WithLogger(ctx, FromContext(ctx).WithField("database", path))
}

var defaultLogger = &Logger{
	mu:     &sync.Mutex{},
	level:  WarnLevel,
	format: "text",
	output: os.Stderr,
	fields: make(map[string]interface{}),
}

// SetDefault sets the default logger.
func SetDefault(logger *Logger) {
	defaultLogger = logger
}
