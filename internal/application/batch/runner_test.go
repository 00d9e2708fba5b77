package batch_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/cache"
	"github.com/consorcio/backend/internal/infrastructure/logger"
	"github.com/consorcio/backend/internal/infrastructure/persistence"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/consorcio/backend/internal/infrastructure/storage"
	"github.com/consorcio/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func setupScope(t *testing.T) *persistence.GormTransactionScope {
	return persistence.NewGormTransactionScope(testutil.NewSQLiteDB(t))
}

func installment(id string) ledger.Installment {
	return ledger.Installment{
		ID:                id,
		SaleID:            "ADM_1_1",
		Administrator:     "ADM",
		Group:             "1",
		Quota:             "1",
		ProductType:       "Auto",
		Label:             ledger.Label(1),
		DueDate:           time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC),
		ClientID:          "1",
		ClientName:        "Maria",
		SalespersonID:     "3",
		Receivable:        decimal.NewFromInt(100),
		NetCash:           decimal.NewFromInt(100),
		ReceiptStatus:     ledger.StatusPending,
		ClientStatus:      ledger.StatusPending,
		SalespersonStatus: ledger.StatusPending,
		SupervisorStatus:  ledger.StatusExempt,
		ManagerStatus:     ledger.StatusExempt,
	}
}

func TestRunner_CommittedBatch(t *testing.T) {
	scope := setupScope(t)
	ctx := context.Background()
	c := cache.NewInMemoryCache()
	defer c.Close()
	require.NoError(t, c.Set(ctx, shared.CacheKeyLedgerStat, "stale", time.Minute))
	archive := storage.NewMemoryArchiveStore()

	runner := batch.NewRunner(scope, batch.WithCache(c), batch.WithArchive(archive, time.Minute))
	res, err := runner.Execute(ctx, batch.Job{
		Operation:  bulk.OperationIntake,
		RunBy:      "1",
		Upload:     &batch.Upload{FileName: "vendas.csv", Data: []byte("a,b\n1,2\n")},
		Rows:       1,
		Invalidate: []string{shared.CacheKeyLedgerStat},
		Run: func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			if err := repos.Installments().CreateBatch(ctx, []ledger.Installment{installment("ADM_1_1_P1")}); err != nil {
				return ledger.BatchReport{}, err
			}
			return ledger.BatchReport{
				Processed: 1,
				Succeeded: 1,
				Log: []ledger.LogEntry{
					{Ref: "row 2", Status: ledger.LogSuccess, Detail: "created"},
					{Ref: "row 2", Status: ledger.LogWarning, Detail: "credit above rule bound"},
				},
			}, nil
		},
	})
	require.NoError(t, err)
	assert.False(t, res.RolledBack())
	assert.Equal(t, "intake", res.Report.Operation)
	assert.Equal(t, bulk.RunStatusCompleted, res.Run.Status)
	assert.Equal(t, 1, res.Run.Warnings)

	var cached string
	hit, err := c.Get(ctx, shared.CacheKeyLedgerStat, &cached)
	require.NoError(t, err)
	assert.False(t, hit)

	stored, err := scope.Repositories().BatchRuns().FindByID(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.RunStatusCompleted, stored.Status)
	assert.Len(t, stored.Log, 2)
	assert.NotEmpty(t, stored.UploadKey)
	assert.NotEmpty(t, stored.LogKey)

	obj, ok := archive.Get(stored.LogKey)
	require.True(t, ok)
	assert.Equal(t, spreadsheet.ContentTypeXLSX, obj.ContentType)
	upload, ok := archive.Get(stored.UploadKey)
	require.True(t, ok)
	assert.Equal(t, spreadsheet.ContentTypeCSV, upload.ContentType)
	assert.NotEmpty(t, res.LogURL)
	require.NotNil(t, res.LogURLExpiresAt)
}

func TestRunner_RollsBackOnHardFailure(t *testing.T) {
	scope := setupScope(t)
	ctx := context.Background()
	runner := batch.NewRunner(scope)

	res, err := runner.Execute(ctx, batch.Job{
		Operation: bulk.OperationDelete,
		RunBy:     "1",
		Rows:      3,
		Run: func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			if err := repos.Installments().CreateBatch(ctx, []ledger.Installment{installment("ADM_1_1_P2")}); err != nil {
				return ledger.BatchReport{}, err
			}
			return ledger.BatchReport{}, errors.New("connection reset")
		},
	})
	require.NoError(t, err)
	assert.True(t, res.RolledBack())
	assert.Equal(t, 3, res.Report.Processed)
	assert.Zero(t, res.Report.Succeeded)
	require.Len(t, res.Report.Log, 1)
	assert.Equal(t, ledger.LogError, res.Report.Log[0].Status)
	assert.Contains(t, res.Report.Log[0].Detail, "connection reset")
	assert.Empty(t, res.LogURL)

	repos := scope.Repositories()
	_, err = repos.Installments().FindByID(ctx, "ADM_1_1_P2")
	assert.ErrorIs(t, err, shared.ErrNotFound)

	stored, err := repos.BatchRuns().FindByID(ctx, res.Run.ID)
	require.NoError(t, err)
	assert.Equal(t, bulk.RunStatusRolledBack, stored.Status)
	assert.Equal(t, 1, stored.Errors)
}

func TestRunner_LogsSummaryWithBatchID(t *testing.T) {
	scope := setupScope(t)
	core, recorded := observer.New(zapcore.InfoLevel)
	ctx := logger.WithActor(context.Background(), "1", "Master")
	runner := batch.NewRunner(scope, batch.WithLogger(zap.New(core)))

	res, err := runner.Execute(ctx, batch.Job{
		Operation: bulk.OperationIntake,
		RunBy:     "1",
		Rows:      2,
		Run: func(ctx context.Context, _ transaction.Repositories) (ledger.BatchReport, error) {
			assert.NotEmpty(t, logger.GetBatchID(ctx), "job runs with the batch in its context")
			return ledger.BatchReport{Processed: 2, Succeeded: 2}, nil
		},
	})
	require.NoError(t, err)

	lines := recorded.FilterMessage("Batch finished").All()
	require.Len(t, lines, 1)
	fields := lines[0].ContextMap()
	assert.Equal(t, res.Run.ID.String(), fields["batch_id"])
	assert.Equal(t, string(bulk.OperationIntake), fields["operation"])
	assert.Equal(t, "1", fields["user_id"])
	assert.EqualValues(t, 2, fields["succeeded"])
}

func TestRunner_InvalidJob(t *testing.T) {
	scope := setupScope(t)
	runner := batch.NewRunner(scope)
	_, err := runner.Execute(context.Background(), batch.Job{Operation: "bogus", RunBy: "1"})
	assert.Error(t, err)
	_, err = runner.Execute(context.Background(), batch.Job{Operation: bulk.OperationEdit})
	assert.Error(t, err)
}

func TestHistoryService(t *testing.T) {
	scope := setupScope(t)
	ctx := context.Background()
	archive := storage.NewMemoryArchiveStore()
	runner := batch.NewRunner(scope, batch.WithArchive(archive, time.Minute))
	ok := func(ctx context.Context, _ transaction.Repositories) (ledger.BatchReport, error) {
		return ledger.BatchReport{Processed: 1, Succeeded: 1}, nil
	}

	first, err := runner.Execute(ctx, batch.Job{Operation: bulk.OperationEdit, RunBy: "1", Rows: 1, Run: ok})
	require.NoError(t, err)
	_, err = runner.Execute(ctx, batch.Job{Operation: bulk.OperationDelete, RunBy: "2", Rows: 1, Run: ok})
	require.NoError(t, err)

	history := batch.NewHistoryService(scope.Repositories().BatchRuns(), archive, time.Minute)
	page, err := history.List(ctx, batch.RunQuery{Filter: shared.DefaultFilter(), Operation: "edit"})
	require.NoError(t, err)
	assert.EqualValues(t, 1, page.Total)
	assert.Equal(t, first.Run.ID, page.Items[0].ID)
	assert.Empty(t, page.Items[0].Log)

	_, err = history.List(ctx, batch.RunQuery{Filter: shared.DefaultFilter(), Operation: "nope"})
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	link, err := history.LogDownload(ctx, first.Run.ID)
	require.NoError(t, err)
	assert.NotEmpty(t, link.URL)

	// JSON batches have no upload to download
	_, err = history.UploadDownload(ctx, first.Run.ID)
	assert.ErrorIs(t, err, shared.ErrNotFound)

	_, err = history.Get(ctx, uuid.New())
	assert.ErrorIs(t, err, shared.ErrNotFound)
}

func TestArchiveKeys(t *testing.T) {
	id := uuid.MustParse("6f1c7e1e-8a59-4f6b-9d0d-2f4b1d9b6a10")
	started := time.Date(2026, 5, 2, 10, 0, 0, 0, time.UTC)
	upload, log := batch.ArchiveKeys(bulk.OperationReconciliation, id, started, "Extrato.XLSX")
	assert.Equal(t, "batches/reconciliation/2026/05/"+id.String()+"/upload.xlsx", upload)
	assert.Equal(t, "batches/reconciliation/2026/05/"+id.String()+"/log.xlsx", log)

	upload, _ = batch.ArchiveKeys(bulk.OperationEdit, id, started, "")
	assert.Equal(t, "batches/edit/2026/05/"+id.String()+"/upload.bin", upload)
}

func TestRenderLog(t *testing.T) {
	report := ledger.BatchReport{
		Operation: "delete",
		Processed: 2,
		Succeeded: 1,
		Log: []ledger.LogEntry{
			{Ref: "X_P1", Status: ledger.LogSuccess, Detail: "deleted"},
			{Ref: "X_P2", Status: ledger.LogBlocked, Detail: "has paid amounts"},
		},
	}
	tables := batch.LogTable(report)
	require.Len(t, tables, 2)
	assert.Equal(t, batch.LogColumns, tables[0].Headers)
	assert.Equal(t, []string{"2", "X_P2", "Blocked", "has paid amounts"}, tables[0].Rows[1])
	assert.Equal(t, "1", tables[1].Rows[0][3])

	data, err := batch.RenderLog(report, spreadsheet.FormatCSV)
	require.NoError(t, err)
	assert.Contains(t, string(data), "X_P2")
}
