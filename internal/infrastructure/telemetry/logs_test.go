package telemetry

import (
	"context"
	"sync"
	"testing"

	"github.com/consorcio/backend/internal/infrastructure/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdklog "go.opentelemetry.io/otel/sdk/log"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

type memoryLogExporter struct {
	mu      sync.Mutex
	records []sdklog.Record
}

func (e *memoryLogExporter) Export(_ context.Context, records []sdklog.Record) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	for _, r := range records {
		e.records = append(e.records, r.Clone())
	}
	return nil
}

func (e *memoryLogExporter) Shutdown(context.Context) error   { return nil }
func (e *memoryLogExporter) ForceFlush(context.Context) error { return nil }

func (e *memoryLogExporter) bodies() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	out := make([]string, 0, len(e.records))
	for _, r := range e.records {
		out = append(out, r.Body().AsString())
	}
	return out
}

func TestLoggerProvider_Disabled(t *testing.T) {
	lp, err := NewLoggerProvider(context.Background(), config.TelemetryConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.False(t, lp.IsEnabled())

	base := zap.NewNop()
	assert.Same(t, base, lp.Bridge(base, zapcore.InfoLevel))
	assert.NoError(t, lp.Shutdown(context.Background()))
}

func TestLoggerProvider_BridgeTeesAboveLevel(t *testing.T) {
	exporter := &memoryLogExporter{}
	lp, err := NewLoggerProviderWithExporter("test", exporter, zap.NewNop())
	require.NoError(t, err)
	defer lp.Shutdown(context.Background())

	core, logs := observer.New(zapcore.DebugLevel)
	log := lp.Bridge(zap.New(core), zapcore.InfoLevel)

	log.Debug("row parsed")
	log.Info("Batch finished", zap.String("operation", "intake"))
	log.With(zap.String("request_id", "r1")).Warn("Batch finished with errors")
	require.NoError(t, lp.ForceFlush(context.Background()))

	assert.Equal(t, 3, logs.Len(), "the base core keeps every record")
	assert.Equal(t, []string{"Batch finished", "Batch finished with errors"}, exporter.bodies())
}
