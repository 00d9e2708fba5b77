package importapp

import (
	"context"
	"testing"

	"github.com/consorcio/backend/internal/application/batch"
	ledgerapp "github.com/consorcio/backend/internal/application/ledger"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockLedger is a mock implementation of LedgerBatches
type MockLedger struct {
	mock.Mock
}

func (m *MockLedger) result(args mock.Arguments) (*batch.Result, error) {
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Result), args.Error(1)
}

func (m *MockLedger) Intake(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[ledger.SaleInput]) (*batch.Result, error) {
	return m.result(m.Called(ctx, actor, in))
}

func (m *MockLedger) Reconcile(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[ledger.StatementRow]) (*batch.Result, error) {
	return m.result(m.Called(ctx, actor, in))
}

func (m *MockLedger) Cancel(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[ledger.CancelRequest]) (*batch.Result, error) {
	return m.result(m.Called(ctx, actor, in))
}

func (m *MockLedger) Edit(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[ledger.EditRow]) (*batch.Result, error) {
	return m.result(m.Called(ctx, actor, in))
}

func (m *MockLedger) Delete(ctx context.Context, actor identity.Actor, in ledgerapp.BatchInput[string]) (*batch.Result, error) {
	return m.result(m.Called(ctx, actor, in))
}

// MockRules is a mock implementation of RuleImporter
type MockRules struct {
	mock.Mock
}

func (m *MockRules) Import(ctx context.Context, actor identity.Actor, upload *batch.Upload, rules []catalog.RuleSet, rejected []ledger.LogEntry) (*batch.Result, error) {
	args := m.Called(ctx, actor, upload, rules, rejected)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*batch.Result), args.Error(1)
}

var admin = identity.Actor{UserID: "1", Role: identity.RoleMaster}

func TestService_Sales(t *testing.T) {
	ctx := context.Background()
	led := new(MockLedger)
	svc := NewService(led, new(MockRules), Config{DefaultDueDay: 10}, zap.NewNop())

	upload := &batch.Upload{
		FileName: "vendas.csv",
		Data:     []byte("cliente;id_vendedor;id_gerente;tipo_cota;grupo;cota;valor_credito;data_venda\nJosé;30;10;Imovel 150k;1020;55;150000;2024-03-10\n"),
	}
	want := &batch.Result{}
	led.On("Intake", ctx, admin, mock.MatchedBy(func(in ledgerapp.BatchInput[ledger.SaleInput]) bool {
		return in.Upload == upload && len(in.Rows) == 1 && in.Rows[0].DueDay == 10
	})).Return(want, nil)

	got, err := svc.Sales(ctx, admin, upload)
	require.NoError(t, err)
	assert.Same(t, want, got)
	led.AssertExpectations(t)
}

func TestService_RejectsBadFiles(t *testing.T) {
	ctx := context.Background()
	led := new(MockLedger)
	svc := NewService(led, new(MockRules), Config{MaxRows: 1}, zap.NewNop())

	tests := []struct {
		name   string
		upload *batch.Upload
	}{
		{"empty", &batch.Upload{FileName: "a.csv"}},
		{"unsupported extension", &batch.Upload{FileName: "a.pdf", Data: []byte("x")}},
		{"too many rows", &batch.Upload{FileName: "a.csv", Data: []byte("id_venda,parcela_cancelamento\nA,1\nB,2\n")}},
		{"missing columns", &batch.Upload{FileName: "a.csv", Data: []byte("id_venda\nA\n")}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.Cancellations(ctx, admin, tt.upload)
			assertInvalidFile(t, err)
		})
	}
	led.AssertNotCalled(t, "Cancel", mock.Anything, mock.Anything, mock.Anything)
}

func TestService_Rules(t *testing.T) {
	ctx := context.Background()
	rules := new(MockRules)
	svc := NewService(new(MockLedger), rules, Config{}, zap.NewNop())

	upload := &batch.Upload{FileName: "regras.csv", Data: []byte("tipo_cota,administradora,lista_percentuais\nAuto 80k,Porto,1.5 1 1\nMoto,Porto,\n")}
	rules.On("Import", ctx, admin, upload,
		mock.MatchedBy(func(r []catalog.RuleSet) bool { return len(r) == 1 && r[0].ProductType == "Auto 80k" }),
		mock.MatchedBy(func(l []ledger.LogEntry) bool { return len(l) == 1 && l[0].Ref == "row 3" }),
	).Return(&batch.Result{}, nil)

	_, err := svc.Rules(ctx, admin, upload)
	require.NoError(t, err)
	rules.AssertExpectations(t)
}
