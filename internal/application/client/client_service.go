// Package client manages the client directory and client statements.
package client

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// Service handles client directory operations
type Service struct {
	scope    transaction.Scope
	repos    transaction.Repositories
	cache    shared.Cache
	cacheTTL time.Duration
	logger   *zap.Logger
}

// NewService creates a new client service
func NewService(scope transaction.Scope, repos transaction.Repositories, c shared.Cache, cacheTTL time.Duration, logger *zap.Logger) *Service {
	if cacheTTL <= 0 {
		cacheTTL = 10 * time.Minute
	}
	return &Service{scope: scope, repos: repos, cache: c, cacheTTL: cacheTTL, logger: logger}
}

// visibleIDs returns the clients a field user may see, or nil for unrestricted actors
func visibleIDs(ctx context.Context, repos transaction.Repositories, actor identity.Actor) ([]string, error) {
	if !actor.Restricted() {
		return nil, nil
	}
	ids, err := repos.Installments().ClientIDsForUser(ctx, actor.UserID)
	if err != nil {
		return nil, fmt.Errorf("failed to load client scope: %w", err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// All returns the whole directory for unrestricted actors, cached until a client is written
func (s *Service) All(ctx context.Context, actor identity.Actor) ([]client.Client, error) {
	if actor.Restricted() {
		page, err := s.Search(ctx, actor, shared.Filter{Page: 1, PageSize: maxPageSize})
		if err != nil {
			return nil, err
		}
		return page.Items, nil
	}
	return shared.ReadThrough(ctx, s.cache, shared.CacheKeyClients, s.cacheTTL, s.repos.Clients().FindAll)
}

const maxPageSize = 500

// Search returns a page of clients matching the filter
func (s *Service) Search(ctx context.Context, actor identity.Actor, filter shared.Filter) (*shared.Paginated[client.Client], error) {
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 || filter.PageSize > maxPageSize {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	ids, err := visibleIDs(ctx, s.repos, actor)
	if err != nil {
		return nil, err
	}
	items, total, err := s.repos.Clients().Search(ctx, filter, ids)
	if err != nil {
		return nil, fmt.Errorf("failed to search clients: %w", err)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Get returns one client. Clients outside a field user's sales are reported as missing.
func (s *Service) Get(ctx context.Context, actor identity.Actor, id string) (*client.Client, error) {
	id = strings.TrimSpace(id)
	if err := checkVisible(ctx, s.repos, actor, id); err != nil {
		return nil, err
	}
	return s.repos.Clients().FindByID(ctx, id)
}

// checkVisible must be given the transaction's repositories when called inside Execute
func checkVisible(ctx context.Context, repos transaction.Repositories, actor identity.Actor, id string) error {
	ids, err := visibleIDs(ctx, repos, actor)
	if err != nil || ids == nil {
		return err
	}
	for _, v := range ids {
		if v == id {
			return nil
		}
	}
	return shared.ErrNotFound
}

// Upsert updates a client's contact data or creates the client with the next sequential id
func (s *Service) Upsert(ctx context.Context, actor identity.Actor, req UpsertClientRequest) (*client.Client, error) {
	if !actor.Can(identity.PermClients) {
		return nil, shared.ErrForbidden
	}
	var saved *client.Client
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		id := strings.TrimSpace(req.ID)
		if id != "" {
			existing, err := repos.Clients().FindByID(ctx, id)
			if err == nil {
				if err := checkVisible(ctx, repos, actor, id); err != nil {
					return err
				}
				if name := strings.TrimSpace(req.Name); name != "" {
					existing.Name = name
				}
				existing.UpdateContact(req.Email, req.Phone, req.Notes)
				saved = existing
				return repos.Clients().Save(ctx, existing)
			}
			if !errors.Is(err, shared.ErrNotFound) {
				return err
			}
		} else {
			ids, err := repos.Clients().FindIDs(ctx)
			if err != nil {
				return fmt.Errorf("failed to allocate client id: %w", err)
			}
			id = client.NextID(ids)
		}

		c, err := client.NewClient(id, req.Name)
		if err != nil {
			return err
		}
		c.UpdateContact(req.Email, req.Phone, req.Notes)
		saved = c
		return repos.Clients().Save(ctx, c)
	})
	if err != nil {
		return nil, err
	}
	if err := shared.Invalidate(ctx, s.cache, shared.CacheKeyClients); err != nil {
		s.logger.Warn("failed to invalidate clients cache", zap.Error(err))
	}
	s.logger.Info("Client saved", zap.String("client_id", saved.ID), zap.String("user_id", actor.UserID))
	return saved, nil
}

// Statement returns the client's installments in due order with paid and pending sums
// of the amounts the client owes. Chargeback and cancelled rows are listed but not summed.
func (s *Service) Statement(ctx context.Context, actor identity.Actor, id string) (*Statement, error) {
	if !actor.Can(identity.PermClientInstallments) {
		return nil, shared.ErrForbidden
	}
	c, err := s.Get(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	filter := ledger.ListFilter{ClientID: c.ID}
	if actor.Restricted() {
		filter.Scope = ledger.Scope{UserID: actor.UserID}
	}
	items, err := s.repos.Installments().FindAll(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}

	st := &Statement{Client: *c, Installments: items}
	for i := range items {
		inst := &items[i]
		if inst.IsChargeback() {
			continue
		}
		switch inst.ClientStatus {
		case ledger.StatusPaid:
			st.Paid = st.Paid.Add(inst.ClientAmount)
		case ledger.StatusPending:
			st.Pending = st.Pending.Add(inst.ClientAmount)
		}
	}
	st.Total = st.Paid.Add(st.Pending)
	return st, nil
}
