package logger

import (
	"context"
	"time"

	"go.uber.org/zap"
)

// BatchOutcome holds the counters of a finished batch operation
type BatchOutcome struct {
	Processed int
	Succeeded int
	Failed    int // Error lines of the log
	Duration  time.Duration
}

// LogBatch writes the one summary line every batch operation emits. The batch id
// and operation come from ctx (see WithBatch). A batch with error lines is logged
// at warn level.
func LogBatch(ctx context.Context, base *zap.Logger, out BatchOutcome, err error) {
	log := For(ctx, base)
	fields := []zap.Field{
		zap.Int("processed", out.Processed),
		zap.Int("succeeded", out.Succeeded),
		zap.Int("failed", out.Failed),
		zap.Duration("duration", out.Duration),
	}
	switch {
	case err != nil:
		log.Error("Batch rolled back", append(fields, zap.Error(err))...)
	case out.Failed > 0:
		log.Warn("Batch finished with errors", fields...)
	default:
		log.Info("Batch finished", fields...)
	}
}
