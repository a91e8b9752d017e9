package logging

import (
	"context"
	"log/slog"
)

// ctxKey is an unexported type for context keys defined in this package.
type ctxKey string

const (
	loggerKey    ctxKey = "logger"
	requestIDKey ctxKey = "requestID"
	traceIDKey   ctxKey = "traceID"
	spanIDKey    ctxKey = "spanID"
)

// WithLogger stores the provided logger on the context.
func WithLogger(ctx context.Context, logger *slog.Logger) context.Context {
	if ctx == nil || logger == nil {
		return ctx
	}
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the request-scoped logger or falls back to slog.Default().
func FromContext(ctx context.Context) *slog.Logger {
	if ctx == nil {
		return slog.Default()
	}
	if logger, ok := ctx.Value(loggerKey).(*slog.Logger); ok && logger != nil {
		return logger
	}
	return slog.Default()
}

// WithRequestID stores a request identifier on the context.
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return withString(ctx, requestIDKey, requestID)
}

// RequestIDFromContext retrieves a previously stored request identifier.
func RequestIDFromContext(ctx context.Context) string {
	return stringValue(ctx, requestIDKey)
}

// WithTraceID stores a trace identifier on the context. Upstream calls reuse
// the request ID as trace ID so remote logs can be correlated.
func WithTraceID(ctx context.Context, traceID string) context.Context {
	return withString(ctx, traceIDKey, traceID)
}

// TraceIDFromContext retrieves the trace identifier from the context.
func TraceIDFromContext(ctx context.Context) string {
	return stringValue(ctx, traceIDKey)
}

// WithSpanID stores the current span identifier on the context.
func WithSpanID(ctx context.Context, spanID string) context.Context {
	return withString(ctx, spanIDKey, spanID)
}

// SpanIDFromContext retrieves the span identifier from the context.
func SpanIDFromContext(ctx context.Context) string {
	return stringValue(ctx, spanIDKey)
}

func withString(ctx context.Context, key ctxKey, value string) context.Context {
	if ctx == nil || value == "" {
		return ctx
	}
	return context.WithValue(ctx, key, value)
}

func stringValue(ctx context.Context, key ctxKey) string {
	if ctx == nil {
		return ""
	}
	if value, ok := ctx.Value(key).(string); ok {
		return value
	}
	return ""
}
