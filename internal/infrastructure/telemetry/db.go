package telemetry

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// DBConfig selects the database instrumentation
type DBConfig struct {
	Tracing            bool
	DBSystem           string // "postgresql" or "sqlite"
	SlowQueryThreshold time.Duration
}

// DBInstrumentation is a GORM plugin recording query metrics, marking slow and
// failed queries on the active span, and observing connection pool stats.
type DBInstrumentation struct {
	cfg    DBConfig
	logger *zap.Logger

	queries  *Counter
	slow     *Counter
	duration *Histogram
	poolReg  metric.Registration
	meter    metric.Meter
}

type dbStartKey struct{}

// NewDBInstrumentation creates the query instruments on meter
func NewDBInstrumentation(meter metric.Meter, cfg DBConfig, logger *zap.Logger) (*DBInstrumentation, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if cfg.SlowQueryThreshold <= 0 {
		cfg.SlowQueryThreshold = 200 * time.Millisecond
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	queries, err := NewCounter(meter, "db_query_total", "Database queries by operation", "{query}")
	if err != nil {
		return nil, err
	}
	slow, err := NewCounter(meter, "db_slow_query_total", "Queries slower than the threshold", "{query}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "db_query_duration_seconds",
		Description: "Database query latency",
		Unit:        "s",
		Boundaries:  DBDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &DBInstrumentation{cfg: cfg, logger: logger, queries: queries, slow: slow, duration: duration, meter: meter}, nil
}

// Name implements gorm.Plugin
func (p *DBInstrumentation) Name() string {
	return "consorcio:db_instrumentation"
}

// Initialize implements gorm.Plugin
func (p *DBInstrumentation) Initialize(db *gorm.DB) error {
	if p.cfg.Tracing {
		if err := db.Use(otelgorm.NewPlugin(
			otelgorm.WithDBName(p.cfg.DBSystem),
			otelgorm.WithoutQueryVariables(),
		)); err != nil {
			return err
		}
	}

	cb := db.Callback()
	hooks := []struct {
		op     string
		before func(string, func(*gorm.DB)) error
		after  func(string, func(*gorm.DB)) error
	}{
		{"INSERT", cb.Create().Before("gorm:create").Register, cb.Create().After("gorm:create").Register},
		{"SELECT", cb.Query().Before("gorm:query").Register, cb.Query().After("gorm:query").Register},
		{"UPDATE", cb.Update().Before("gorm:update").Register, cb.Update().After("gorm:update").Register},
		{"DELETE", cb.Delete().Before("gorm:delete").Register, cb.Delete().After("gorm:delete").Register},
		{"ROW", cb.Row().Before("gorm:row").Register, cb.Row().After("gorm:row").Register},
		{"RAW", cb.Raw().Before("gorm:raw").Register, cb.Raw().After("gorm:raw").Register},
	}
	for _, h := range hooks {
		op := h.op
		if err := h.before("telemetry:before_"+op, p.before); err != nil {
			return err
		}
		if err := h.after("telemetry:after_"+op, func(tx *gorm.DB) { p.after(tx, op) }); err != nil {
			return err
		}
	}

	if sqlDB, err := db.DB(); err == nil {
		if err := p.observePool(sqlDB); err != nil {
			return err
		}
	}
	p.logger.Info("Database instrumentation enabled",
		zap.Bool("tracing", p.cfg.Tracing),
		zap.Duration("slow_query_threshold", p.cfg.SlowQueryThreshold),
	)
	return nil
}

func (p *DBInstrumentation) before(tx *gorm.DB) {
	ctx := tx.Statement.Context
	if ctx == nil {
		ctx = context.Background()
	}
	tx.Statement.Context = context.WithValue(ctx, dbStartKey{}, time.Now())
}

func (p *DBInstrumentation) after(tx *gorm.DB, op string) {
	ctx := tx.Statement.Context
	if ctx == nil {
		return
	}
	start, ok := ctx.Value(dbStartKey{}).(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(start)
	table := tx.Statement.Table
	if table == "" {
		table = "unknown"
	}

	opAttr := AttrDBOperation.String(op)
	p.queries.Inc(ctx, opAttr)
	p.duration.RecordDuration(ctx, elapsed, opAttr)
	isSlow := elapsed > p.cfg.SlowQueryThreshold
	if isSlow {
		p.slow.Inc(ctx, AttrDBTable.String(table))
	}

	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	span.SetAttributes(attribute.String("db.sql.table", table), attribute.Int64("db.rows_affected", tx.Statement.RowsAffected))
	if tx.Error != nil && !errors.Is(tx.Error, gorm.ErrRecordNotFound) {
		span.SetStatus(codes.Error, tx.Error.Error())
		span.RecordError(tx.Error)
	}
	if isSlow {
		span.SetAttributes(attribute.Bool("db.slow_query", true))
		span.AddEvent("slow_query", trace.WithAttributes(
			attribute.Int64("duration_ms", elapsed.Milliseconds()),
			attribute.Int64("threshold_ms", p.cfg.SlowQueryThreshold.Milliseconds()),
		))
	}
}

func (p *DBInstrumentation) observePool(sqlDB *sql.DB) error {
	conns, err := p.meter.Int64ObservableGauge("db_pool_connections", metric.WithDescription("Connections in the pool by state"))
	if err != nil {
		return err
	}
	maxConns, err := p.meter.Int64ObservableGauge("db_pool_connections_max", metric.WithDescription("Maximum open connections"))
	if err != nil {
		return err
	}
	p.poolReg, err = p.meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := sqlDB.Stats()
		o.ObserveInt64(maxConns, int64(s.MaxOpenConnections))
		o.ObserveInt64(conns, int64(s.Idle), metric.WithAttributes(AttrDBState.String("idle")))
		o.ObserveInt64(conns, int64(s.InUse), metric.WithAttributes(AttrDBState.String("in_use")))
		o.ObserveInt64(conns, int64(s.OpenConnections), metric.WithAttributes(AttrDBState.String("open")))
		return nil
	}, conns, maxConns)
	return err
}

// Close unregisters the pool gauges
func (p *DBInstrumentation) Close() error {
	if p.poolReg == nil {
		return nil
	}
	return p.poolReg.Unregister()
}

var _ gorm.Plugin = (*DBInstrumentation)(nil)
