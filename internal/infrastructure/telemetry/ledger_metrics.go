package telemetry

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// ErrMeterNil is returned when a metrics constructor receives no meter
var ErrMeterNil = errors.New("meter cannot be nil")

// BatchMetrics counts batch runs and the log lines they produce
type BatchMetrics struct {
	runs     *Counter
	rows     *Counter
	logLines *Counter
	duration *Histogram
}

// NewBatchMetrics creates the batch instruments on meter
func NewBatchMetrics(meter metric.Meter) (*BatchMetrics, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	runs, err := NewCounter(meter, "batch_runs_total", "Batch operations by outcome", "{run}")
	if err != nil {
		return nil, err
	}
	rows, err := NewCounter(meter, "batch_rows_total", "Rows processed by batch operations", "{row}")
	if err != nil {
		return nil, err
	}
	logLines, err := NewCounter(meter, "batch_log_lines_total", "Batch log lines by status", "{line}")
	if err != nil {
		return nil, err
	}
	duration, err := NewHistogram(meter, HistogramOpts{
		Name:        "batch_duration_seconds",
		Description: "Duration of batch operations",
		Unit:        "s",
		Boundaries:  BatchDurationBuckets,
	})
	if err != nil {
		return nil, err
	}
	return &BatchMetrics{runs: runs, rows: rows, logLines: logLines, duration: duration}, nil
}

// RecordBatch records one finished batch. statusCounts maps log status to line count.
// A nil receiver records nothing.
func (m *BatchMetrics) RecordBatch(ctx context.Context, operation string, rolledBack bool, processed int, statusCounts map[string]int, d time.Duration) {
	if m == nil {
		return
	}
	outcome := "committed"
	if rolledBack {
		outcome = "rolled_back"
	}
	op := AttrOperation.String(operation)
	m.runs.Inc(ctx, op, AttrOutcome.String(outcome))
	m.rows.Add(ctx, int64(processed), op)
	for status, n := range statusCounts {
		if n > 0 {
			m.logLines.Add(ctx, int64(n), op, AttrLogStatus.String(status))
		}
	}
	m.duration.RecordDuration(ctx, d, op, AttrOutcome.String(outcome))
}

// LedgerSnapshot is the point-in-time state of the installment book
type LedgerSnapshot struct {
	Installments      int64
	PendingReceipts   int64
	OverdueReceipts   int64
	Cancelled         int64
	PendingPayouts    map[string]int64 // party -> pending payout count
	PendingReceivable float64
}

// LedgerSnapshotProvider computes a LedgerSnapshot, usually from the database
type LedgerSnapshotProvider interface {
	Snapshot(ctx context.Context, today time.Time) (LedgerSnapshot, error)
}

// LedgerGauges refreshes a LedgerSnapshot on an interval and reports it through
// observable gauges, so scrapes never hit the database.
type LedgerGauges struct {
	provider LedgerSnapshotProvider
	interval time.Duration
	logger   *zap.Logger
	now      func() time.Time

	latest atomic.Pointer[LedgerSnapshot]
	reg    metric.Registration

	stopCh   chan struct{}
	stopOnce sync.Once
	wg       sync.WaitGroup
}

// NewLedgerGauges registers the ledger gauges on meter
func NewLedgerGauges(meter metric.Meter, provider LedgerSnapshotProvider, interval time.Duration, logger *zap.Logger) (*LedgerGauges, error) {
	if meter == nil {
		return nil, ErrMeterNil
	}
	if interval <= 0 {
		interval = time.Minute
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	g := &LedgerGauges{
		provider: provider,
		interval: interval,
		logger:   logger,
		now:      time.Now,
		stopCh:   make(chan struct{}),
	}

	installments, err := meter.Int64ObservableGauge("ledger_installments", metric.WithDescription("Installments in the book"))
	if err != nil {
		return nil, err
	}
	pending, err := meter.Int64ObservableGauge("ledger_pending_receipts", metric.WithDescription("Installments awaiting payment by the administrator"))
	if err != nil {
		return nil, err
	}
	overdue, err := meter.Int64ObservableGauge("ledger_overdue_receipts", metric.WithDescription("Pending receipts past their due date"))
	if err != nil {
		return nil, err
	}
	cancelled, err := meter.Int64ObservableGauge("ledger_cancelled_installments", metric.WithDescription("Cancelled installments"))
	if err != nil {
		return nil, err
	}
	payouts, err := meter.Int64ObservableGauge("ledger_pending_payouts", metric.WithDescription("Commission payouts still pending by party"))
	if err != nil {
		return nil, err
	}
	receivable, err := meter.Float64ObservableGauge("ledger_pending_receivable", metric.WithDescription("Receivable amount not yet received"), metric.WithUnit("BRL"))
	if err != nil {
		return nil, err
	}

	g.reg, err = meter.RegisterCallback(func(_ context.Context, o metric.Observer) error {
		s := g.latest.Load()
		if s == nil {
			return nil
		}
		o.ObserveInt64(installments, s.Installments)
		o.ObserveInt64(pending, s.PendingReceipts)
		o.ObserveInt64(overdue, s.OverdueReceipts)
		o.ObserveInt64(cancelled, s.Cancelled)
		for party, n := range s.PendingPayouts {
			o.ObserveInt64(payouts, n, metric.WithAttributes(AttrParty.String(party)))
		}
		o.ObserveFloat64(receivable, s.PendingReceivable)
		return nil
	}, installments, pending, overdue, cancelled, payouts, receivable)
	if err != nil {
		return nil, err
	}
	return g, nil
}

// Refresh takes a new snapshot now
func (g *LedgerGauges) Refresh(ctx context.Context) error {
	s, err := g.provider.Snapshot(ctx, g.now())
	if err != nil {
		return err
	}
	g.latest.Store(&s)
	return nil
}

// Start refreshes the snapshot until Stop is called or ctx ends
func (g *LedgerGauges) Start(ctx context.Context) {
	g.wg.Add(1)
	go func() {
		defer g.wg.Done()
		ticker := time.NewTicker(g.interval)
		defer ticker.Stop()
		for {
			if err := g.Refresh(ctx); err != nil && ctx.Err() == nil {
				g.logger.Warn("Ledger metrics refresh failed", zap.Error(err))
			}
			select {
			case <-ticker.C:
			case <-g.stopCh:
				return
			case <-ctx.Done():
				return
			}
		}
	}()
}

// Stop ends the refresh loop and unregisters the gauges. Safe to call twice.
func (g *LedgerGauges) Stop() {
	g.stopOnce.Do(func() {
		close(g.stopCh)
		g.wg.Wait()
		if g.reg != nil {
			_ = g.reg.Unregister()
		}
	})
}
