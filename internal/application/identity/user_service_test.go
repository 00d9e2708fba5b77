package identity

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/auth"
	"github.com/consorcio/backend/internal/infrastructure/cache"
	"github.com/consorcio/backend/internal/infrastructure/persistence"
	"github.com/consorcio/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var master = identity.Actor{UserID: identity.MasterUserID, Role: identity.RoleMaster}

type userFixture struct {
	svc       *UserService
	scope     *persistence.GormTransactionScope
	blacklist *auth.InMemoryTokenBlacklist
}

func setupUsers(t *testing.T) *userFixture {
	t.Helper()
	ctx := context.Background()
	scope := persistence.NewGormTransactionScope(testutil.NewSQLiteDB(t))
	c := cache.NewInMemoryCache()
	t.Cleanup(func() { _ = c.Close() })
	blacklist := auth.NewInMemoryTokenBlacklist()
	svc := NewUserService(scope, scope.Repositories(), c, blacklist, UserServiceConfig{}, zap.NewNop())

	seed := []identity.User{
		{ID: "1", Username: "master", Name: "Master", Role: identity.RoleMaster},
		{ID: "10", Username: "ana", Name: "Ana Gerente", Role: identity.RoleManager},
		{ID: "11", Username: "otavio", Name: "Otavio Gerente", Role: identity.RoleManager},
		{ID: "20", Username: "bruno", Name: "Bruno Supervisor", Role: identity.RoleSupervisor, ManagerID: "10"},
	}
	for i := range seed {
		seed[i].PasswordHash = "x"
		seed[i].Rates = identity.DefaultRates()
		require.NoError(t, scope.Repositories().Users().Create(ctx, &seed[i]))
	}
	return &userFixture{svc: svc, scope: scope, blacklist: blacklist}
}

func createRequest(id, username string) CreateUserRequest {
	return CreateUserRequest{
		ID:       id,
		Username: username,
		Password: "senha-forte-1",
		Name:     "Carla Vendas",
		Role:     "Vendedor",
	}
}

func TestUserService_Create(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	req := createRequest("30", "carla")
	req.SupervisorID = "20"
	req.Rates = &RatesRequest{Salesperson: decimal.RequireFromString("0.25")}
	resp, err := f.svc.Create(ctx, master, req)
	require.NoError(t, err)
	assert.Equal(t, "20", resp.SupervisorID)
	assert.Equal(t, "10", resp.ManagerID, "manager is inherited from the supervisor")
	assert.Equal(t, "0.25", resp.Rates.Salesperson.String())

	t.Run("duplicate id or username", func(t *testing.T) {
		_, err := f.svc.Create(ctx, master, createRequest("30", "other"))
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
		_, err = f.svc.Create(ctx, master, createRequest("31", "carla"))
		assert.True(t, errors.Is(err, shared.ErrAlreadyExists))
	})

	t.Run("unknown supervisor", func(t *testing.T) {
		req := createRequest("32", "davi")
		req.SupervisorID = "999"
		_, err := f.svc.Create(ctx, master, req)
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_REPORTING_LINK", de.Code)
	})

	t.Run("listing resolves link names", func(t *testing.T) {
		users, err := f.svc.List(ctx)
		require.NoError(t, err)
		require.Len(t, users, 5)
		for _, u := range users {
			if u.ID == "30" {
				assert.Equal(t, "Bruno Supervisor", u.SupervisorName)
				assert.Equal(t, "Ana Gerente", u.ManagerName)
			}
		}
	})

	t.Run("field roles cannot manage users", func(t *testing.T) {
		_, err := f.svc.Create(ctx, identity.Actor{UserID: "30", Role: identity.RoleSalesperson}, createRequest("40", "eva"))
		assert.True(t, errors.Is(err, shared.ErrForbidden))
	})
}

func TestUserService_UpdateCascadesManager(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()
	req := createRequest("30", "carla")
	req.SupervisorID = "20"
	_, err := f.svc.Create(ctx, master, req)
	require.NoError(t, err)

	newManager := "11"
	resp, err := f.svc.Update(ctx, master, "20", UpdateUserRequest{ManagerID: &newManager})
	require.NoError(t, err)
	assert.Equal(t, "11", resp.ManagerID)

	sub, err := f.scope.Repositories().Users().FindByID(ctx, "30")
	require.NoError(t, err)
	assert.Equal(t, "11", sub.ManagerID)

	t.Run("role change revokes tokens", func(t *testing.T) {
		role := "Supervisor"
		_, err := f.svc.Update(ctx, master, "30", UpdateUserRequest{Role: &role})
		require.NoError(t, err)
		revoked, err := f.blacklist.IsUserTokenInvalidated(ctx, "30", time.Now().Add(-time.Minute))
		require.NoError(t, err)
		assert.True(t, revoked)
	})

	t.Run("self supervision is rejected", func(t *testing.T) {
		self := "30"
		_, err := f.svc.Update(ctx, master, "30", UpdateUserRequest{SupervisorID: &self})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_REPORTING_LINK", de.Code)
	})
}

func TestUserService_Delete(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	var de *shared.DomainError
	err := f.svc.Delete(ctx, master, identity.MasterUserID)
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "MASTER_USER_PROTECTED", de.Code)

	require.NoError(t, f.scope.Repositories().Installments().CreateBatch(ctx, []ledger.Installment{{
		ID:            "Porto_1_1_P1",
		SaleID:        "Porto_1_1",
		Label:         ledger.Label(1),
		SupervisorID:  "20",
		DueDate:       time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		ReceiptStatus: ledger.StatusPending,
		ClientStatus:  ledger.StatusPending,
	}}))
	assert.True(t, errors.Is(f.svc.Delete(ctx, master, "20"), shared.ErrConflict))

	// a manager with no installments can go; links pointing to them are cleared
	require.NoError(t, f.svc.Delete(ctx, master, "10"))
	sup, err := f.scope.Repositories().Users().FindByID(ctx, "20")
	require.NoError(t, err)
	assert.Empty(t, sup.ManagerID)

	assert.True(t, errors.Is(f.svc.Delete(ctx, master, "10"), shared.ErrNotFound))
}

func TestUserService_ResetPassword(t *testing.T) {
	f := setupUsers(t)
	ctx := context.Background()

	require.NoError(t, f.svc.ResetPassword(ctx, master, "20", "trocada-123"))
	u, err := f.scope.Repositories().Users().FindByID(ctx, "20")
	require.NoError(t, err)
	ok, _ := u.VerifyPassword("trocada-123")
	assert.True(t, ok)

	err = f.svc.ResetPassword(ctx, master, "20", "curta")
	var de *shared.DomainError
	require.True(t, errors.As(err, &de))
	assert.Equal(t, "INVALID_PASSWORD", de.Code)
}
