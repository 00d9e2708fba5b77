package proposal_test

import (
	"context"
	"errors"
	"testing"

	"github.com/consorcio/backend/internal/application/batch"
	ledgerapp "github.com/consorcio/backend/internal/application/ledger"
	proposalapp "github.com/consorcio/backend/internal/application/proposal"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/proposal"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/persistence"
	"github.com/consorcio/backend/tests/testutil"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

// MockApprover is a mock implementation of proposalapp.Approver
type MockApprover struct {
	mock.Mock
}

func (m *MockApprover) ApproveProposal(ctx context.Context, actor identity.Actor, id uuid.UUID) (*batch.Result, *proposal.Proposal, error) {
	args := m.Called(ctx, actor, id)
	var res *batch.Result
	if r := args.Get(0); r != nil {
		res = r.(*batch.Result)
	}
	var p *proposal.Proposal
	if v := args.Get(1); v != nil {
		p = v.(*proposal.Proposal)
	}
	return res, p, args.Error(2)
}

var (
	admin  = identity.Actor{UserID: "1", Role: identity.RoleMaster}
	seller = identity.Actor{UserID: "30", Role: identity.RoleSalesperson}
	other  = identity.Actor{UserID: "31", Role: identity.RoleSalesperson}
)

func setup(t *testing.T) (*proposalapp.Service, *MockApprover) {
	t.Helper()
	scope := persistence.NewGormTransactionScope(testutil.NewSQLiteDB(t))
	approver := new(MockApprover)
	return proposalapp.NewService(scope, scope.Repositories(), approver, 15, zap.NewNop()), approver
}

func saleRequest() proposalapp.SaleRequest {
	return proposalapp.SaleRequest{
		ClientName:  "Maria Souza",
		ProductType: "Imovel 150k",
		Group:       "1020",
		Quota:       "77.0",
		Credit:      decimal.NewFromInt(100000),
		SaleDate:    "02/04/2024",
	}
}

func TestService_DraftLifecycle(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	p, err := svc.Create(ctx, seller, saleRequest())
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusDraft, p.Status)
	assert.Equal(t, "30", p.Sale.SalespersonID, "a salesperson sells as themselves")
	assert.Equal(t, "77", p.Sale.Quota)
	assert.Equal(t, 15, p.Sale.DueDay)

	t.Run("other field users do not see it", func(t *testing.T) {
		_, err := svc.Get(ctx, other, p.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		_, err = svc.Submit(ctx, other, p.ID)
		assert.True(t, errors.Is(err, shared.ErrNotFound))

		page, err := svc.List(ctx, other, proposalapp.ListQuery{})
		require.NoError(t, err)
		assert.Empty(t, page.Items)
	})

	req := saleRequest()
	req.Credit = decimal.NewFromInt(120000)
	updated, err := svc.Update(ctx, seller, p.ID, req)
	require.NoError(t, err)
	assert.True(t, updated.Sale.Credit.Equal(decimal.NewFromInt(120000)))
	assert.Equal(t, "30", updated.Sale.SalespersonID, "an edited draft still sells as the salesperson")

	submitted, err := svc.Submit(ctx, seller, p.ID)
	require.NoError(t, err)
	assert.Equal(t, proposal.StatusPending, submitted.Status)
	assert.NotNil(t, submitted.SubmittedAt)

	_, err = svc.Update(ctx, seller, p.ID, req)
	assert.True(t, errors.Is(err, shared.ErrInvalidState), "only drafts can be edited")

	page, err := svc.List(ctx, admin, proposalapp.ListQuery{Status: "pending"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)

	t.Run("reject needs a reviewer and a reason", func(t *testing.T) {
		_, err := svc.Reject(ctx, seller, p.ID, "duplicada")
		assert.True(t, errors.Is(err, shared.ErrForbidden))
		_, err = svc.Reject(ctx, admin, p.ID, " ")
		assert.True(t, errors.Is(err, shared.ErrInvalidInput))

		rejected, err := svc.Reject(ctx, admin, p.ID, "cota duplicada")
		require.NoError(t, err)
		assert.Equal(t, proposal.StatusRejected, rejected.Status)
		assert.Equal(t, "cota duplicada", rejected.RejectionReason)
	})
}

func TestService_CreateValidation(t *testing.T) {
	svc, _ := setup(t)
	ctx := context.Background()

	req := saleRequest()
	req.SaleDate = "ontem"
	_, err := svc.Create(ctx, seller, req)
	assert.True(t, errors.Is(err, shared.ErrInvalidInput))

	_, err = svc.Create(ctx, identity.Actor{UserID: "5", Role: identity.RoleFinancial}, saleRequest())
	assert.True(t, errors.Is(err, shared.ErrForbidden))
}

func TestService_Approve(t *testing.T) {
	svc, approver := setup(t)
	ctx := context.Background()
	id := uuid.New()

	t.Run("approved", func(t *testing.T) {
		p := &proposal.Proposal{ID: id, Status: proposal.StatusApproved}
		approver.On("ApproveProposal", ctx, admin, id).Return(&batch.Result{Report: ledger.BatchReport{Processed: 1, Succeeded: 1}}, p, nil).Once()

		resp, err := svc.Approve(ctx, admin, id)
		require.NoError(t, err)
		assert.Equal(t, proposal.StatusApproved, resp.Proposal.Status)
		assert.Equal(t, 1, resp.Report.Succeeded)
	})

	t.Run("generation error returns the log", func(t *testing.T) {
		p := &proposal.Proposal{ID: id, Status: proposal.StatusPending}
		report := ledger.BatchReport{Processed: 1, Log: []ledger.LogEntry{{Status: ledger.LogError, Detail: "product not found"}}}
		approver.On("ApproveProposal", ctx, admin, id).Return(&batch.Result{Report: report}, p, ledgerapp.ErrProposalNotApproved).Once()

		resp, err := svc.Approve(ctx, admin, id)
		assert.True(t, errors.Is(err, shared.ErrConflict))
		require.NotNil(t, resp)
		assert.Equal(t, proposal.StatusPending, resp.Proposal.Status)
		assert.Len(t, resp.Report.Log, 1)
	})

	t.Run("sellers cannot approve", func(t *testing.T) {
		_, err := svc.Approve(ctx, seller, id)
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
	approver.AssertExpectations(t)
}
