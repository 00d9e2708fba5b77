package client_test

import (
	"context"
	"errors"
	"testing"
	"time"

	clientapp "github.com/consorcio/backend/internal/application/client"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/cache"
	"github.com/consorcio/backend/internal/infrastructure/persistence"
	"github.com/consorcio/backend/tests/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

var (
	admin  = identity.Actor{UserID: "1", Role: identity.RoleMaster}
	seller = identity.Actor{UserID: "30", Role: identity.RoleSalesperson}
)

type fixture struct {
	svc   *clientapp.Service
	scope *persistence.GormTransactionScope
	cache shared.Cache
}

func setup(t *testing.T) *fixture {
	t.Helper()
	ctx := context.Background()
	scope := persistence.NewGormTransactionScope(testutil.NewSQLiteDB(t))
	c := cache.NewInMemoryCache()
	t.Cleanup(func() { _ = c.Close() })

	repos := scope.Repositories()
	require.NoError(t, repos.Clients().CreateBatch(ctx, []*client.Client{
		{ID: "1", Name: "José Almeida"},
		{ID: "2", Name: "Maria Souza", Email: "maria@example.com"},
		{ID: "7", Name: "Pedro Lima"},
	}))

	due := time.Date(2024, 3, 10, 0, 0, 0, 0, time.UTC)
	inst := func(n int, status ledger.Status, amount string) ledger.Installment {
		return ledger.Installment{
			ID:            "Porto_1020_55_P" + string(rune('0'+n)),
			SaleID:        "Porto_1020_55",
			Label:         ledger.Label(n),
			ClientID:      "2",
			SalespersonID: "30",
			DueDate:       due.AddDate(0, n-1, 0),
			ClientAmount:  decimal.RequireFromString(amount),
			ReceiptStatus: ledger.StatusPending,
			ClientStatus:  status,
		}
	}
	chargeback := inst(1, ledger.StatusPending, "-1500")
	chargeback.ID = "Porto_1020_55_EST"
	chargeback.Label = ledger.ChargebackLabel
	require.NoError(t, repos.Installments().CreateBatch(ctx, []ledger.Installment{
		inst(1, ledger.StatusPaid, "1000"),
		inst(2, ledger.StatusPending, "1000"),
		inst(3, ledger.StatusCancelled, "0"),
		chargeback,
	}))

	return &fixture{
		svc:   clientapp.NewService(scope, repos, c, time.Minute, zap.NewNop()),
		scope: scope,
		cache: c,
	}
}

func TestService_Search(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	page, err := f.svc.Search(ctx, admin, shared.Filter{Search: "souza"})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, "2", page.Items[0].ID)

	page, err = f.svc.Search(ctx, seller, shared.Filter{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1, "field users only see clients of their own sales")
	assert.Equal(t, "Maria Souza", page.Items[0].Name)

	page, err = f.svc.Search(ctx, identity.Actor{UserID: "31", Role: identity.RoleSalesperson}, shared.Filter{})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, int64(0), page.Total)
}

func TestService_Get(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	c, err := f.svc.Get(ctx, seller, "2")
	require.NoError(t, err)
	assert.Equal(t, "maria@example.com", c.Email)

	_, err = f.svc.Get(ctx, seller, "1")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
	_, err = f.svc.Get(ctx, admin, "99")
	assert.True(t, errors.Is(err, shared.ErrNotFound))
}

func TestService_Upsert(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	all, err := f.svc.All(ctx, admin)
	require.NoError(t, err)
	require.Len(t, all, 3)
	var cached []client.Client
	found, err := f.cache.Get(ctx, shared.CacheKeyClients, &cached)
	require.NoError(t, err)
	require.True(t, found)

	t.Run("new client takes the next sequential id", func(t *testing.T) {
		c, err := f.svc.Upsert(ctx, admin, clientapp.UpsertClientRequest{Name: " Rita Campos ", Phone: "11 99999-0000"})
		require.NoError(t, err)
		assert.Equal(t, "8", c.ID)
		assert.Equal(t, "Rita Campos", c.Name)

		found, err := f.cache.Get(ctx, shared.CacheKeyClients, &cached)
		require.NoError(t, err)
		assert.False(t, found, "cache is invalidated by writes")
	})

	t.Run("existing client keeps its id", func(t *testing.T) {
		c, err := f.svc.Upsert(ctx, admin, clientapp.UpsertClientRequest{ID: "1", Name: "José Almeida", Email: "jose@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "1", c.ID)

		stored, err := f.scope.Repositories().Clients().FindByID(ctx, "1")
		require.NoError(t, err)
		assert.Equal(t, "jose@example.com", stored.Email)
	})

	t.Run("unknown id is created as given", func(t *testing.T) {
		c, err := f.svc.Upsert(ctx, admin, clientapp.UpsertClientRequest{ID: "50", Name: "Nova Cliente"})
		require.NoError(t, err)
		assert.Equal(t, "50", c.ID)
	})

	t.Run("field users only edit their own clients", func(t *testing.T) {
		_, err := f.svc.Upsert(ctx, seller, clientapp.UpsertClientRequest{ID: "1", Name: "José"})
		assert.True(t, errors.Is(err, shared.ErrNotFound))
		_, err = f.svc.Upsert(ctx, seller, clientapp.UpsertClientRequest{ID: "2", Name: "Maria Souza", Phone: "11 3333-4444"})
		assert.NoError(t, err)
	})

	t.Run("field user edit runs on the transaction connection", func(t *testing.T) {
		tctx, cancel := testutil.ContextWithTimeout(t, 5*time.Second)
		defer cancel()

		c, err := f.svc.Upsert(tctx, seller, clientapp.UpsertClientRequest{ID: "2", Email: "maria.souza@example.com"})
		require.NoError(t, err)
		assert.Equal(t, "Maria Souza", c.Name)

		stored, err := f.scope.Repositories().Clients().FindByID(ctx, "2")
		require.NoError(t, err)
		assert.Equal(t, "maria.souza@example.com", stored.Email)
	})

	t.Run("name is required", func(t *testing.T) {
		_, err := f.svc.Upsert(ctx, admin, clientapp.UpsertClientRequest{ID: "60", Name: "  "})
		var de *shared.DomainError
		require.True(t, errors.As(err, &de))
		assert.Equal(t, "INVALID_CLIENT_NAME", de.Code)
	})
}

func TestService_Statement(t *testing.T) {
	f := setup(t)
	ctx := context.Background()
	financial := identity.Actor{UserID: "5", Role: identity.RoleFinancial}

	st, err := f.svc.Statement(ctx, financial, "2")
	require.NoError(t, err)
	assert.Len(t, st.Installments, 4)
	assert.True(t, st.Paid.Equal(decimal.NewFromInt(1000)))
	assert.True(t, st.Pending.Equal(decimal.NewFromInt(1000)))
	assert.True(t, st.Total.Equal(decimal.NewFromInt(2000)), "chargeback and cancelled rows are not summed")

	_, err = f.svc.Statement(ctx, seller, "2")
	assert.True(t, errors.Is(err, shared.ErrForbidden))
}
