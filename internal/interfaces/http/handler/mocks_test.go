package handler

import (
	"context"
	"io"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/catalog"
	appclient "github.com/consorcio/backend/internal/application/client"
	appidentity "github.com/consorcio/backend/internal/application/identity"
	ledgerapp "github.com/consorcio/backend/internal/application/ledger"
	proposalapp "github.com/consorcio/backend/internal/application/proposal"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/proposal"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/auth"
	"github.com/consorcio/backend/internal/infrastructure/spreadsheet"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// getOr returns the first mock return value, or the zero value when it is nil
func getOr[T any](args mock.Arguments) T {
	var zero T
	if v := args.Get(0); v != nil {
		return v.(T)
	}
	return zero
}

type MockAuthService struct {
	mock.Mock
}

func (m *MockAuthService) Login(ctx context.Context, input appidentity.LoginInput) (*appidentity.LoginResult, error) {
	args := m.Called(ctx, input)
	return getOr[*appidentity.LoginResult](args), args.Error(1)
}

func (m *MockAuthService) RefreshToken(ctx context.Context, input appidentity.RefreshTokenInput) (*appidentity.RefreshTokenResult, error) {
	args := m.Called(ctx, input)
	return getOr[*appidentity.RefreshTokenResult](args), args.Error(1)
}

func (m *MockAuthService) Logout(ctx context.Context, input appidentity.LogoutInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *MockAuthService) GetCurrentUser(ctx context.Context, userID string) (*appidentity.UserInfo, error) {
	args := m.Called(ctx, userID)
	return getOr[*appidentity.UserInfo](args), args.Error(1)
}

func (m *MockAuthService) ChangePassword(ctx context.Context, input appidentity.ChangePasswordInput) error {
	return m.Called(ctx, input).Error(0)
}

func (m *MockAuthService) ValidateAccessToken(ctx context.Context, token string) (*auth.Claims, error) {
	args := m.Called(ctx, token)
	return getOr[*auth.Claims](args), args.Error(1)
}

type MockUserService struct {
	mock.Mock
}

func (m *MockUserService) List(ctx context.Context) ([]appidentity.UserResponse, error) {
	args := m.Called(ctx)
	return getOr[[]appidentity.UserResponse](args), args.Error(1)
}

func (m *MockUserService) Get(ctx context.Context, id string) (*appidentity.UserResponse, error) {
	args := m.Called(ctx, id)
	return getOr[*appidentity.UserResponse](args), args.Error(1)
}

func (m *MockUserService) Create(ctx context.Context, actor identity.Actor, req appidentity.CreateUserRequest) (*appidentity.UserResponse, error) {
	args := m.Called(ctx, actor, req)
	return getOr[*appidentity.UserResponse](args), args.Error(1)
}

func (m *MockUserService) Update(ctx context.Context, actor identity.Actor, id string, req appidentity.UpdateUserRequest) (*appidentity.UserResponse, error) {
	args := m.Called(ctx, actor, id, req)
	return getOr[*appidentity.UserResponse](args), args.Error(1)
}

func (m *MockUserService) ResetPassword(ctx context.Context, actor identity.Actor, id, password string) error {
	return m.Called(ctx, actor, id, password).Error(0)
}

func (m *MockUserService) Delete(ctx context.Context, actor identity.Actor, id string) error {
	return m.Called(ctx, actor, id).Error(0)
}

type MockClientService struct {
	mock.Mock
}

func (m *MockClientService) Search(ctx context.Context, actor identity.Actor, filter shared.Filter) (*shared.Paginated[client.Client], error) {
	args := m.Called(ctx, actor, filter)
	return getOr[*shared.Paginated[client.Client]](args), args.Error(1)
}

func (m *MockClientService) Get(ctx context.Context, actor identity.Actor, id string) (*client.Client, error) {
	args := m.Called(ctx, actor, id)
	return getOr[*client.Client](args), args.Error(1)
}

func (m *MockClientService) Upsert(ctx context.Context, actor identity.Actor, req appclient.UpsertClientRequest) (*client.Client, error) {
	args := m.Called(ctx, actor, req)
	return getOr[*client.Client](args), args.Error(1)
}

func (m *MockClientService) Statement(ctx context.Context, actor identity.Actor, id string) (*appclient.Statement, error) {
	args := m.Called(ctx, actor, id)
	return getOr[*appclient.Statement](args), args.Error(1)
}

type MockRuleService struct {
	mock.Mock
}

func (m *MockRuleService) List(ctx context.Context) ([]catalog.RuleSetResponse, error) {
	args := m.Called(ctx)
	return getOr[[]catalog.RuleSetResponse](args), args.Error(1)
}

func (m *MockRuleService) Get(ctx context.Context, productType string) (*catalog.RuleSetResponse, error) {
	args := m.Called(ctx, productType)
	return getOr[*catalog.RuleSetResponse](args), args.Error(1)
}

func (m *MockRuleService) Upsert(ctx context.Context, actor identity.Actor, req catalog.UpsertRuleRequest) (*catalog.RuleSetResponse, error) {
	args := m.Called(ctx, actor, req)
	return getOr[*catalog.RuleSetResponse](args), args.Error(1)
}

func (m *MockRuleService) Delete(ctx context.Context, actor identity.Actor, productType string) error {
	return m.Called(ctx, actor, productType).Error(0)
}

type MockImportService struct {
	mock.Mock
}

func (m *MockImportService) call(name string, ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	args := m.MethodCalled(name, ctx, actor, upload)
	return getOr[*batch.Result](args), args.Error(1)
}

func (m *MockImportService) Sales(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	return m.call("Sales", ctx, actor, upload)
}

func (m *MockImportService) Statement(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	return m.call("Statement", ctx, actor, upload)
}

func (m *MockImportService) Cancellations(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	return m.call("Cancellations", ctx, actor, upload)
}

func (m *MockImportService) Edits(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	return m.call("Edits", ctx, actor, upload)
}

func (m *MockImportService) Deletes(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	return m.call("Deletes", ctx, actor, upload)
}

func (m *MockImportService) Rules(ctx context.Context, actor identity.Actor, upload *batch.Upload) (*batch.Result, error) {
	return m.call("Rules", ctx, actor, upload)
}

type MockLedgerService struct {
	mock.Mock
}

func (m *MockLedgerService) List(ctx context.Context, actor identity.Actor, q ledgerapp.ListQuery) (*shared.Paginated[ledgerapp.InstallmentView], error) {
	args := m.Called(ctx, actor, q)
	return getOr[*shared.Paginated[ledgerapp.InstallmentView]](args), args.Error(1)
}

func (m *MockLedgerService) Get(ctx context.Context, actor identity.Actor, id string) (*ledgerapp.InstallmentView, error) {
	args := m.Called(ctx, actor, id)
	return getOr[*ledgerapp.InstallmentView](args), args.Error(1)
}

func (m *MockLedgerService) Summary(ctx context.Context, actor identity.Actor) (ledger.Summary, error) {
	args := m.Called(ctx, actor)
	return getOr[ledger.Summary](args), args.Error(1)
}

func (m *MockLedgerService) Alerts(ctx context.Context, actor identity.Actor) ([]ledgerapp.InstallmentView, error) {
	args := m.Called(ctx, actor)
	return getOr[[]ledgerapp.InstallmentView](args), args.Error(1)
}

func (m *MockLedgerService) Commissions(ctx context.Context, actor identity.Actor, q ledgerapp.CommissionQuery) ([]ledger.Commission, error) {
	args := m.Called(ctx, actor, q)
	return getOr[[]ledger.Commission](args), args.Error(1)
}

func (m *MockLedgerService) Export(ctx context.Context, actor identity.Actor, q ledgerapp.ListQuery, format spreadsheet.Format, w io.Writer) error {
	return m.Called(ctx, actor, q, format, w).Error(0)
}

func (m *MockLedgerService) SetClientStatus(ctx context.Context, actor identity.Actor, ids []string, status ledger.Status) (*batch.Result, error) {
	args := m.Called(ctx, actor, ids, status)
	return getOr[*batch.Result](args), args.Error(1)
}

func (m *MockLedgerService) SettlePayouts(ctx context.Context, actor identity.Actor, updates []ledger.PayoutUpdate) (*batch.Result, error) {
	args := m.Called(ctx, actor, updates)
	return getOr[*batch.Result](args), args.Error(1)
}

type MockProposalService struct {
	mock.Mock
}

func (m *MockProposalService) List(ctx context.Context, actor identity.Actor, q proposalapp.ListQuery) (*shared.Paginated[proposal.Proposal], error) {
	args := m.Called(ctx, actor, q)
	return getOr[*shared.Paginated[proposal.Proposal]](args), args.Error(1)
}

func (m *MockProposalService) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*proposal.Proposal, error) {
	args := m.Called(ctx, actor, id)
	return getOr[*proposal.Proposal](args), args.Error(1)
}

func (m *MockProposalService) Create(ctx context.Context, actor identity.Actor, req proposalapp.SaleRequest) (*proposal.Proposal, error) {
	args := m.Called(ctx, actor, req)
	return getOr[*proposal.Proposal](args), args.Error(1)
}

func (m *MockProposalService) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req proposalapp.SaleRequest) (*proposal.Proposal, error) {
	args := m.Called(ctx, actor, id, req)
	return getOr[*proposal.Proposal](args), args.Error(1)
}

func (m *MockProposalService) Submit(ctx context.Context, actor identity.Actor, id uuid.UUID) (*proposal.Proposal, error) {
	args := m.Called(ctx, actor, id)
	return getOr[*proposal.Proposal](args), args.Error(1)
}

func (m *MockProposalService) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, reason string) (*proposal.Proposal, error) {
	args := m.Called(ctx, actor, id, reason)
	return getOr[*proposal.Proposal](args), args.Error(1)
}

func (m *MockProposalService) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID) (*proposalapp.ReviewResponse, error) {
	args := m.Called(ctx, actor, id)
	return getOr[*proposalapp.ReviewResponse](args), args.Error(1)
}

type MockHistoryService struct {
	mock.Mock
}

func (m *MockHistoryService) List(ctx context.Context, q batch.RunQuery) (shared.Paginated[bulk.BatchRun], error) {
	args := m.Called(ctx, q)
	return getOr[shared.Paginated[bulk.BatchRun]](args), args.Error(1)
}

func (m *MockHistoryService) Get(ctx context.Context, id uuid.UUID) (*bulk.BatchRun, error) {
	args := m.Called(ctx, id)
	return getOr[*bulk.BatchRun](args), args.Error(1)
}

func (m *MockHistoryService) LogDownload(ctx context.Context, id uuid.UUID) (*batch.DownloadLink, error) {
	args := m.Called(ctx, id)
	return getOr[*batch.DownloadLink](args), args.Error(1)
}

func (m *MockHistoryService) UploadDownload(ctx context.Context, id uuid.UUID) (*batch.DownloadLink, error) {
	args := m.Called(ctx, id)
	return getOr[*batch.DownloadLink](args), args.Error(1)
}
