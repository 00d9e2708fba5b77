package logger

import (
	"context"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type contextKey string

const (
	loggerKey    contextKey = "logger"
	requestIDKey contextKey = "request_id"
	userIDKey    contextKey = "user_id"
	roleKey      contextKey = "role"
	batchIDKey   contextKey = "batch_id"
	operationKey contextKey = "operation"
)

// WithContext attaches the logger used by L
func WithContext(ctx context.Context, logger *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, logger)
}

// FromContext returns the attached logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if logger, ok := ctx.Value(loggerKey).(*zap.Logger); ok {
		return logger
	}
	return zap.NewNop()
}

// WithRequestID records the HTTP request id
func WithRequestID(ctx context.Context, requestID string) context.Context {
	return context.WithValue(ctx, requestIDKey, requestID)
}

// WithActor records the authenticated user and the role carried by the token
func WithActor(ctx context.Context, userID, role string) context.Context {
	ctx = context.WithValue(ctx, userIDKey, userID)
	return context.WithValue(ctx, roleKey, role)
}

// WithBatch records the batch run being executed and its operation (intake, reconciliation, ...)
func WithBatch(ctx context.Context, batchID, operation string) context.Context {
	ctx = context.WithValue(ctx, batchIDKey, batchID)
	return context.WithValue(ctx, operationKey, operation)
}

func stringValue(ctx context.Context, key contextKey) string {
	v, _ := ctx.Value(key).(string)
	return v
}

// GetRequestID returns the request id, or ""
func GetRequestID(ctx context.Context) string { return stringValue(ctx, requestIDKey) }

// GetUserID returns the authenticated user id, or ""
func GetUserID(ctx context.Context) string { return stringValue(ctx, userIDKey) }

// GetRole returns the token role, or ""
func GetRole(ctx context.Context) string { return stringValue(ctx, roleKey) }

// GetBatchID returns the id of the running batch, or ""
func GetBatchID(ctx context.Context) string { return stringValue(ctx, batchIDKey) }

// GetTraceID returns the trace id of the active span, or ""
func GetTraceID(ctx context.Context) string {
	spanCtx := trace.SpanFromContext(ctx).SpanContext()
	if !spanCtx.IsValid() {
		return ""
	}
	return spanCtx.TraceID().String()
}

// Fields returns the correlation fields present in ctx
func Fields(ctx context.Context) []zap.Field {
	fields := make([]zap.Field, 0, 7)
	add := func(name, value string) {
		if value != "" {
			fields = append(fields, zap.String(name, value))
		}
	}
	add("request_id", GetRequestID(ctx))
	add("user_id", GetUserID(ctx))
	add("role", GetRole(ctx))
	add("batch_id", GetBatchID(ctx))
	add("operation", stringValue(ctx, operationKey))

	if spanCtx := trace.SpanFromContext(ctx).SpanContext(); spanCtx.IsValid() {
		fields = append(fields,
			zap.String("trace_id", spanCtx.TraceID().String()),
			zap.String("span_id", spanCtx.SpanID().String()),
		)
	}
	return fields
}

// For returns base with the correlation fields of ctx. A nil base falls back to
// the logger attached to ctx.
func For(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = FromContext(ctx)
	}
	return base.With(Fields(ctx)...)
}

// L returns the logger attached to ctx with its correlation fields
func L(ctx context.Context) *zap.Logger {
	return For(ctx, FromContext(ctx))
}
