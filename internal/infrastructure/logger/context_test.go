package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func spanContext(t *testing.T) trace.SpanContext {
	t.Helper()
	traceID, err := trace.TraceIDFromHex("4bf92f3577b34da6a3ce929d0e0e4736")
	require.NoError(t, err)
	spanID, err := trace.SpanIDFromHex("00f067aa0ba902b7")
	require.NoError(t, err)
	return trace.NewSpanContext(trace.SpanContextConfig{
		TraceID:    traceID,
		SpanID:     spanID,
		TraceFlags: trace.FlagsSampled,
	})
}

func TestFromContext(t *testing.T) {
	assert.NotNil(t, FromContext(context.Background()), "missing logger is a no-op logger")

	l := zap.NewExample()
	assert.Same(t, l, FromContext(WithContext(context.Background(), l)))
}

func TestContextValues(t *testing.T) {
	ctx := WithRequestID(context.Background(), "req-123")
	ctx = WithActor(ctx, "30", "Vendedor")
	ctx = WithBatch(ctx, "b7e1", "intake")

	assert.Equal(t, "req-123", GetRequestID(ctx))
	assert.Equal(t, "30", GetUserID(ctx))
	assert.Equal(t, "Vendedor", GetRole(ctx))
	assert.Equal(t, "b7e1", GetBatchID(ctx))

	empty := context.Background()
	assert.Empty(t, GetRequestID(empty))
	assert.Empty(t, GetUserID(empty))
	assert.Empty(t, GetRole(empty))
	assert.Empty(t, GetBatchID(empty))
}

func TestGetTraceID(t *testing.T) {
	assert.Empty(t, GetTraceID(context.Background()))

	ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
	assert.Equal(t, "4bf92f3577b34da6a3ce929d0e0e4736", GetTraceID(ctx))
}

func TestFields(t *testing.T) {
	t.Run("only present values", func(t *testing.T) {
		ctx := WithRequestID(context.Background(), "req-1")
		fields := Fields(ctx)
		require.Len(t, fields, 1)
		assert.Equal(t, "request_id", fields[0].Key)
	})

	t.Run("actor, batch and trace", func(t *testing.T) {
		ctx := trace.ContextWithSpanContext(context.Background(), spanContext(t))
		ctx = WithActor(ctx, "1", "Master")
		ctx = WithBatch(ctx, "b1", "cancellation")

		enc := zapcore.NewMapObjectEncoder()
		for _, f := range Fields(ctx) {
			f.AddTo(enc)
		}
		assert.Equal(t, map[string]any{
			"user_id":   "1",
			"role":      "Master",
			"batch_id":  "b1",
			"operation": "cancellation",
			"trace_id":  "4bf92f3577b34da6a3ce929d0e0e4736",
			"span_id":   "00f067aa0ba902b7",
		}, enc.Fields)
	})
}

func TestFor(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithBatch(WithActor(context.Background(), "20", "Supervisor"), "b2", "reconciliation")

	For(ctx, zap.New(core)).Info("Statement matched", zap.Int("rows", 4))

	require.Equal(t, 1, recorded.Len())
	fields := recorded.All()[0].ContextMap()
	assert.Equal(t, "20", fields["user_id"])
	assert.Equal(t, "b2", fields["batch_id"])
	assert.EqualValues(t, 4, fields["rows"])
}

func TestL(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithRequestID(WithContext(context.Background(), zap.New(core)), "req-9")

	L(ctx).Info("Upload received")
	L(context.Background()).Info("dropped")

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "req-9", recorded.All()[0].ContextMap()["request_id"])
}
