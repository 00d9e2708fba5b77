package telemetry

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
)

const ledgerTable = "financeiro_mestre"

// GormLedgerSnapshotProvider aggregates the installment table with plain SQL
type GormLedgerSnapshotProvider struct {
	db *gorm.DB
}

// NewGormLedgerSnapshotProvider creates a provider over db
func NewGormLedgerSnapshotProvider(db *gorm.DB) *GormLedgerSnapshotProvider {
	return &GormLedgerSnapshotProvider{db: db}
}

type ledgerTotals struct {
	Installments      int64
	PendingReceipts   int64
	OverdueReceipts   int64
	Cancelled         int64
	PendingReceivable float64
	PendingVendedor   int64
	PendingSupervisor int64
	PendingGerente    int64
}

// Snapshot runs one aggregate query over the installment table
func (p *GormLedgerSnapshotProvider) Snapshot(ctx context.Context, today time.Time) (LedgerSnapshot, error) {
	var t ledgerTotals
	err := p.db.WithContext(ctx).Table(ledgerTable).Select(`
		COUNT(*) AS installments,
		COALESCE(SUM(CASE WHEN status_recebimento = 'Pendente' THEN 1 ELSE 0 END), 0) AS pending_receipts,
		COALESCE(SUM(CASE WHEN status_recebimento = 'Pendente' AND data_previsao < ? THEN 1 ELSE 0 END), 0) AS overdue_receipts,
		COALESCE(SUM(CASE WHEN status_recebimento = 'Cancelado' THEN 1 ELSE 0 END), 0) AS cancelled,
		COALESCE(SUM(CASE WHEN status_recebimento = 'Pendente' THEN receber_administradora ELSE 0 END), 0) AS pending_receivable,
		COALESCE(SUM(CASE WHEN status_pgto_vendedor = 'Pendente' THEN 1 ELSE 0 END), 0) AS pending_vendedor,
		COALESCE(SUM(CASE WHEN status_pgto_supervisor = 'Pendente' THEN 1 ELSE 0 END), 0) AS pending_supervisor,
		COALESCE(SUM(CASE WHEN status_pgto_gerente = 'Pendente' THEN 1 ELSE 0 END), 0) AS pending_gerente`,
		today.Format("2006-01-02"),
	).Scan(&t).Error
	if err != nil {
		return LedgerSnapshot{}, fmt.Errorf("failed to aggregate ledger: %w", err)
	}
	return LedgerSnapshot{
		Installments:      t.Installments,
		PendingReceipts:   t.PendingReceipts,
		OverdueReceipts:   t.OverdueReceipts,
		Cancelled:         t.Cancelled,
		PendingReceivable: t.PendingReceivable,
		PendingPayouts: map[string]int64{
			"Vendedor":   t.PendingVendedor,
			"Supervisor": t.PendingSupervisor,
			"Gerente":    t.PendingGerente,
		},
	}, nil
}
