package slogx

import (
	"context"
	"log/slog"
)

// loggerKey is the private context key for the request-scoped logger.
type loggerKey struct{}

// WithContext stores logger in ctx. Handlers and services down the call
// chain retrieve it with FromContext.
func WithContext(ctx context.Context, logger *slog.Logger) context.Context {
	return context.WithValue(ctx, loggerKey{}, logger)
}

// FromContext returns the logger stored in ctx, falling back to the
// process default when none was attached.
func FromContext(ctx context.Context) *slog.Logger {
	if l, ok := ctx.Value(loggerKey{}).(*slog.Logger); ok {
		return l
	}
	return slog.Default()
}
