package logger

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestLogBatch(t *testing.T) {
	tests := []struct {
		name      string
		operation string
		out       BatchOutcome
		err       error
		level     zapcore.Level
		message   string
	}{
		{"clean batch", "intake", BatchOutcome{Processed: 3, Succeeded: 3}, nil, zapcore.InfoLevel, "Batch finished"},
		{"batch with error lines", "reconciliation", BatchOutcome{Processed: 3, Succeeded: 2, Failed: 1}, nil, zapcore.WarnLevel, "Batch finished with errors"},
		{"rolled back", "delete", BatchOutcome{Processed: 2}, errors.New("connection reset"), zapcore.ErrorLevel, "Batch rolled back"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			core, recorded := observer.New(zapcore.DebugLevel)
			ctx := WithActor(context.Background(), "20", "Supervisor")
			ctx = WithBatch(ctx, "5f1c", tt.operation)
			tt.out.Duration = 15 * time.Millisecond

			LogBatch(ctx, zap.New(core), tt.out, tt.err)

			logs := recorded.All()
			require.Len(t, logs, 1)
			assert.Equal(t, tt.level, logs[0].Level)
			assert.Equal(t, tt.message, logs[0].Message)
			fields := logs[0].ContextMap()
			assert.Equal(t, tt.operation, fields["operation"])
			assert.Equal(t, "5f1c", fields["batch_id"])
			assert.Equal(t, "20", fields["user_id"])
			assert.EqualValues(t, tt.out.Processed, fields["processed"])
			assert.EqualValues(t, tt.out.Succeeded, fields["succeeded"])
		})
	}
}

func TestLogBatch_UsesContextLoggerWithoutBase(t *testing.T) {
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := WithBatch(WithContext(context.Background(), zap.New(core)), "9a", "cancellation")

	LogBatch(ctx, nil, BatchOutcome{Processed: 1, Succeeded: 1}, nil)

	require.Equal(t, 1, recorded.Len())
	assert.Equal(t, "cancellation", recorded.All()[0].ContextMap()["operation"])
}
