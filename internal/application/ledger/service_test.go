package ledger

import (
	"bytes"
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/cache"
	"github.com/consorcio/backend/internal/infrastructure/persistence"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/consorcio/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const saleID = "Porto_1020_55"

var (
	admin       = identity.Actor{UserID: "1", Role: identity.RoleMaster}
	salesperson = identity.Actor{UserID: "30", Role: identity.RoleSalesperson}
	outsider    = identity.Actor{UserID: "31", Role: identity.RoleSalesperson}
)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

type fixture struct {
	svc   *Service
	cache shared.Cache
	scope *persistence.GormTransactionScope
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	scope := persistence.NewGormTransactionScope(testutil.NewSQLiteDB(t))
	repos := scope.Repositories()

	require.NoError(t, repos.Rules().Upsert(ctx, &catalog.RuleSet{
		ProductType:         "Imovel 150k",
		Administrator:       "Porto",
		TableCode:           "T100",
		Percentages:         []decimal.Decimal{dec("1.5"), dec("1"), dec("1")},
		Credit:              catalog.Range{Min: dec("50000"), Max: dec("500000")},
		TermMonths:          catalog.Range{Min: dec("60"), Max: dec("200")},
		AdminFee:            catalog.Range{Min: dec("10"), Max: dec("18")},
		ChargebackPct:       dec("1"),
		ChargebackThreshold: 3,
	}))
	users := []identity.User{
		{ID: "1", Username: "master", Name: "Master", Role: identity.RoleMaster, Rates: identity.DefaultRates()},
		{ID: "10", Username: "ana", Name: "Ana Gerente", Role: identity.RoleManager, Rates: identity.Rates{
			Salesperson: dec("0.2"), Supervisor: dec("0.1"), Manager: dec("0.1"),
		}},
		{ID: "20", Username: "bruno", Name: "Bruno Supervisor", Role: identity.RoleSupervisor, ManagerID: "10", Rates: identity.Rates{
			Salesperson: dec("0.2"), Supervisor: dec("0.05"), Manager: dec("0.1"),
		}},
		{ID: "30", Username: "carla", Name: "Carla Vendas", Role: identity.RoleSalesperson, SupervisorID: "20", ManagerID: "10", Rates: identity.Rates{
			Salesperson: dec("0.2"), Supervisor: dec("0.1"), Manager: dec("0.1"),
		}},
		{ID: "31", Username: "davi", Name: "Davi Solo", Role: identity.RoleSalesperson, Rates: identity.DefaultRates()},
	}
	for i := range users {
		users[i].PasswordHash = "x"
		require.NoError(t, repos.Users().Create(ctx, &users[i]))
	}
	require.NoError(t, repos.Clients().Save(ctx, &client.Client{ID: "1", Name: "José Almeida"}))

	c := cache.NewInMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	runner := batch.NewRunner(scope, batch.WithCache(c))
	svc := NewService(runner, repos, c, Config{ReconcileTolerance: dec("1")}, zap.NewNop())
	svc.now = func() time.Time { return time.Date(2024, time.June, 1, 12, 0, 0, 0, time.Local) }
	return &fixture{svc: svc, cache: c, scope: scope}
}

func sale() ledger.SaleInput {
	fee := dec("15")
	return ledger.SaleInput{
		Ref:           "row 2",
		ClientName:    "José Almeida",
		SalespersonID: "30",
		ProductType:   "Imovel 150k",
		Group:         "1020",
		Quota:         "55",
		Credit:        dec("150000"),
		SaleDate:      time.Date(2024, time.March, 10, 0, 0, 0, 0, time.UTC),
		DueDay:        15,
		Term:          180,
		AdminFee:      &fee,
	}
}

func (f *fixture) intake(t *testing.T) *batch.Result {
	t.Helper()
	res, err := f.svc.Intake(context.Background(), admin, BatchInput[ledger.SaleInput]{Rows: []ledger.SaleInput{sale()}})
	require.NoError(t, err)
	return res
}

func (f *fixture) installment(t *testing.T, id string) *ledger.Installment {
	t.Helper()
	inst, err := f.scope.Repositories().Installments().FindByID(context.Background(), id)
	require.NoError(t, err)
	return inst
}

func TestService_Intake(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	res := f.intake(t)
	assert.False(t, res.RolledBack())
	assert.Equal(t, 1, res.Report.Succeeded)
	assert.Equal(t, "2250.00", f.installment(t, saleID+"_P1").Receivable.StringFixed(2))

	t.Run("re-upload inserts nothing", func(t *testing.T) {
		again, err := f.svc.Intake(ctx, admin, BatchInput[ledger.SaleInput]{Rows: []ledger.SaleInput{sale()}})
		require.NoError(t, err)
		assert.Equal(t, 1, again.Report.Count(ledger.LogIgnored))
		page, err := f.svc.List(ctx, admin, ListQuery{SaleID: saleID})
		require.NoError(t, err)
		assert.Equal(t, int64(ledger.InstallmentCount), page.Total)
	})

	t.Run("parse rejects are logged first", func(t *testing.T) {
		again, err := f.svc.Intake(ctx, admin, BatchInput[ledger.SaleInput]{
			Rows:     []ledger.SaleInput{sale()},
			Rejected: []ledger.LogEntry{{Ref: "row 3", Status: ledger.LogError, Detail: "invalid credit"}},
		})
		require.NoError(t, err)
		assert.Equal(t, 2, again.Report.Processed)
		require.NotEmpty(t, again.Report.Log)
		assert.Equal(t, "row 3", again.Report.Log[0].Ref)
	})

	t.Run("field roles cannot upload", func(t *testing.T) {
		_, err := f.svc.Intake(ctx, salesperson, BatchInput[ledger.SaleInput]{Rows: []ledger.SaleInput{sale()}})
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestService_ReconcileAndSummary(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.intake(t)

	before, err := f.svc.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, ledger.InstallmentCount, before.Installments)
	var cached ledger.Summary
	ok, err := f.cache.Get(ctx, shared.CacheKeyLedgerStat, &cached)
	require.NoError(t, err)
	assert.True(t, ok)

	res, err := f.svc.Reconcile(ctx, admin, BatchInput[ledger.StatementRow]{Rows: []ledger.StatementRow{
		{Ref: "row 2", Group: "1020", Quota: "55", Amount: dec("2250"), InstallmentNumber: 1},
		{Ref: "row 3", Group: "9999", Quota: "1", Amount: dec("10"), InstallmentNumber: 1},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Succeeded)
	assert.Equal(t, 1, res.Report.Count(ledger.LogError))

	ok, err = f.cache.Get(ctx, shared.CacheKeyLedgerStat, &cached)
	require.NoError(t, err)
	assert.False(t, ok)

	inst := f.installment(t, saleID+"_P1")
	assert.Equal(t, ledger.StatusPaid, inst.ReceiptStatus)
	after, err := f.svc.Summary(ctx, admin)
	require.NoError(t, err)
	assert.Equal(t, "2250.00", after.Received.StringFixed(2))

	scoped, err := f.svc.Summary(ctx, outsider)
	require.NoError(t, err)
	assert.Zero(t, scoped.Installments)
}

func TestService_Cancel(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.intake(t)

	res, err := f.svc.Cancel(ctx, admin, BatchInput[ledger.CancelRequest]{Rows: []ledger.CancelRequest{
		{Ref: "row 2", SaleID: saleID, Cutoff: 2},
		{Ref: "row 3", SaleID: saleID, Cutoff: 2},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Succeeded)
	assert.Equal(t, 1, res.Report.Count(ledger.LogIgnored))

	est := f.installment(t, ledger.ChargebackID(saleID))
	assert.Equal(t, "-1500.00", est.Receivable.StringFixed(2))
	assert.Equal(t, ledger.StatusChargeback, est.ReceiptStatus)
	assert.Equal(t, ledger.StatusCancelled, f.installment(t, saleID+"_P3").ReceiptStatus)
	assert.Equal(t, ledger.StatusPending, f.installment(t, saleID+"_P2").ReceiptStatus)
}

func TestService_EditAndDelete(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.intake(t)

	res, err := f.svc.Edit(ctx, admin, BatchInput[ledger.EditRow]{Rows: []ledger.EditRow{
		{Ref: "row 2", ID: saleID + "_P1", Values: []ledger.FieldValue{
			{Column: ledger.ColReceivable, Value: "1000"},
			{Column: ledger.ColAdministrator, Value: "Outra"},
		}},
	}})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Succeeded)
	assert.Equal(t, 1, res.Report.Count(ledger.LogBlocked))
	inst := f.installment(t, saleID+"_P1")
	assert.Equal(t, "1000.00", inst.Receivable.StringFixed(2))
	assert.Equal(t, "Porto", inst.Administrator)

	del, err := f.svc.Delete(ctx, admin, BatchInput[string]{Rows: []string{saleID + "_P4", "missing"}})
	require.NoError(t, err)
	assert.Equal(t, 1, del.Report.Succeeded)
	_, err = f.scope.Repositories().Installments().FindByID(ctx, saleID+"_P4")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestService_Settlement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.intake(t)

	res, err := f.svc.SetClientStatus(ctx, admin, []string{saleID + "_P2"}, ledger.StatusPaid)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Succeeded)
	assert.Equal(t, ledger.StatusPaid, f.installment(t, saleID+"_P2").ClientStatus)

	res, err = f.svc.SettlePayouts(ctx, admin, []ledger.PayoutUpdate{
		{ID: saleID + "_P1", Party: ledger.PartySalesperson, Status: ledger.StatusPaid},
	})
	require.NoError(t, err)
	assert.Equal(t, 1, res.Report.Succeeded)
	assert.Equal(t, ledger.StatusPaid, f.installment(t, saleID+"_P1").SalespersonStatus)

	_, err = f.svc.SettlePayouts(ctx, salesperson, nil)
	assert.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestService_Queries(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	f.intake(t)

	t.Run("list is scoped for field roles", func(t *testing.T) {
		page, err := f.svc.List(ctx, salesperson, ListQuery{})
		require.NoError(t, err)
		assert.Equal(t, int64(ledger.InstallmentCount), page.Total)
		assert.Equal(t, 1, page.Items[0].Number)

		page, err = f.svc.List(ctx, outsider, ListQuery{})
		require.NoError(t, err)
		assert.Zero(t, page.Total)
	})

	t.Run("due month filter", func(t *testing.T) {
		page, err := f.svc.List(ctx, admin, ListQuery{DueMonth: "2024-04"})
		require.NoError(t, err)
		require.Len(t, page.Items, 1)
		assert.Equal(t, saleID+"_P2", page.Items[0].ID)

		_, err = f.svc.List(ctx, admin, ListQuery{DueMonth: "abril"})
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))
	})

	t.Run("get hides other sales", func(t *testing.T) {
		v, err := f.svc.Get(ctx, salesperson, saleID+"_P2")
		require.NoError(t, err)
		require.NotNil(t, v.Alert)
		assert.Equal(t, ledger.AlertOverdue, v.Alert.Level)

		_, err = f.svc.Get(ctx, outsider, saleID+"_P2")
		assert.True(t, errors.Is(err, shared.ErrNotFound))
	})

	t.Run("alerts", func(t *testing.T) {
		alerts, err := f.svc.Alerts(ctx, admin)
		require.NoError(t, err)
		// P2 and P3 are overdue on June 1st, P1 is paid by the client at intake
		require.Len(t, alerts, 2)
		for _, a := range alerts {
			assert.Equal(t, ledger.AlertOverdue, a.Alert.Level)
		}
	})

	t.Run("commissions", func(t *testing.T) {
		own, err := f.svc.Commissions(ctx, salesperson, CommissionQuery{Party: ledger.PartyManager, UserID: "10"})
		require.NoError(t, err)
		assert.Len(t, own, ledger.InstallmentCount)
		for _, c := range own {
			assert.Equal(t, "30", c.UserID)
			assert.Equal(t, ledger.PartySalesperson, c.Party)
		}

		managers, err := f.svc.Commissions(ctx, admin, CommissionQuery{Party: ledger.PartyManager, UserID: "10"})
		require.NoError(t, err)
		assert.Len(t, managers, ledger.InstallmentCount)
	})

	t.Run("export", func(t *testing.T) {
		var buf bytes.Buffer
		require.NoError(t, f.svc.Export(ctx, admin, ListQuery{SaleID: saleID}, spreadsheet.FormatCSV, &buf))
		lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
		assert.Len(t, lines, ledger.InstallmentCount+1)
		assert.Contains(t, lines[0], ledger.ColID)
	})
}
