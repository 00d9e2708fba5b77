// Package proposal manages draft sales from the field team and their review.
package proposal

import (
	"context"
	"fmt"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/proposal"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Approver generates and approves a pending proposal
type Approver interface {
	ApproveProposal(ctx context.Context, actor identity.Actor, id uuid.UUID) (*batch.Result, *proposal.Proposal, error)
}

// Service handles proposal drafting and review
type Service struct {
	scope         transaction.Scope
	repos         transaction.Repositories
	approver      Approver
	defaultDueDay int
	logger        *zap.Logger
}

// NewService creates a proposal service
func NewService(scope transaction.Scope, repos transaction.Repositories, approver Approver, defaultDueDay int, logger *zap.Logger) *Service {
	if defaultDueDay <= 0 {
		defaultDueDay = 15
	}
	return &Service{scope: scope, repos: repos, approver: approver, defaultDueDay: defaultDueDay, logger: logger}
}

func canReview(actor identity.Actor) bool {
	return actor.Can(identity.PermProposalReview)
}

// List returns reviewers every proposal and everyone else their own
func (s *Service) List(ctx context.Context, actor identity.Actor, q ListQuery) (*shared.Paginated[proposal.Proposal], error) {
	filter := proposal.Filter{Filter: q.Filter}
	if q.Status != "" {
		status, err := proposal.ParseStatus(q.Status)
		if err != nil {
			return nil, err
		}
		filter.Status = status
	}
	if !canReview(actor) {
		filter.CreatedBy = actor.UserID
	}
	if filter.Page < 1 {
		filter.Page = 1
	}
	if filter.PageSize <= 0 {
		filter.PageSize = shared.DefaultFilter().PageSize
	}
	items, total, err := s.repos.Proposals().Find(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("failed to list proposals: %w", err)
	}
	page := shared.NewPaginated(items, total, filter.Page, filter.PageSize)
	return &page, nil
}

// Get returns one proposal visible to the actor
func (s *Service) Get(ctx context.Context, actor identity.Actor, id uuid.UUID) (*proposal.Proposal, error) {
	p, err := s.repos.Proposals().FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canReview(actor) && p.CreatedBy != actor.UserID {
		return nil, shared.ErrNotFound
	}
	return p, nil
}

// saleFor converts the request. A salesperson who names no seller sells as themselves.
func (s *Service) saleFor(actor identity.Actor, req SaleRequest) (proposal.Sale, error) {
	sale, err := req.toDomain(s.defaultDueDay)
	if err != nil {
		return sale, err
	}
	if sale.SalespersonID == "" && actor.Role == identity.RoleSalesperson {
		sale.SalespersonID = actor.UserID
	}
	return sale, nil
}

// Create stores a draft. A salesperson drafting without naming a seller sells as themselves.
func (s *Service) Create(ctx context.Context, actor identity.Actor, req SaleRequest) (*proposal.Proposal, error) {
	if !actor.Can(identity.PermProposalSubmit) {
		return nil, shared.ErrForbidden
	}
	sale, err := s.saleFor(actor, req)
	if err != nil {
		return nil, err
	}
	p, err := proposal.NewProposal(actor.UserID, sale)
	if err != nil {
		return nil, err
	}
	if err := s.repos.Proposals().Create(ctx, p); err != nil {
		return nil, fmt.Errorf("failed to create proposal: %w", err)
	}
	s.logger.Info("Proposal created", zap.String("proposal_id", p.ID.String()), zap.String("created_by", actor.UserID))
	return p, nil
}

// Update replaces the sale of a draft
func (s *Service) Update(ctx context.Context, actor identity.Actor, id uuid.UUID, req SaleRequest) (*proposal.Proposal, error) {
	if !actor.Can(identity.PermProposalSubmit) {
		return nil, shared.ErrForbidden
	}
	sale, err := s.saleFor(actor, req)
	if err != nil {
		return nil, err
	}
	return s.mutate(ctx, actor, id, func(p *proposal.Proposal) error {
		return p.Update(sale)
	})
}

// Submit sends a draft for review
func (s *Service) Submit(ctx context.Context, actor identity.Actor, id uuid.UUID) (*proposal.Proposal, error) {
	if !actor.Can(identity.PermProposalSubmit) {
		return nil, shared.ErrForbidden
	}
	p, err := s.mutate(ctx, actor, id, func(p *proposal.Proposal) error {
		return p.Submit()
	})
	if err == nil {
		s.logger.Info("Proposal submitted", zap.String("proposal_id", id.String()), zap.String("user_id", actor.UserID))
	}
	return p, err
}

// Reject closes a pending proposal
func (s *Service) Reject(ctx context.Context, actor identity.Actor, id uuid.UUID, reason string) (*proposal.Proposal, error) {
	if !canReview(actor) {
		return nil, shared.ErrForbidden
	}
	p, err := s.mutate(ctx, actor, id, func(p *proposal.Proposal) error {
		return p.Reject(actor.UserID, reason)
	})
	if err == nil {
		s.logger.Info("Proposal rejected", zap.String("proposal_id", id.String()), zap.String("reviewed_by", actor.UserID))
	}
	return p, err
}

// Approve generates the proposal's installments. When generation logs an Error the
// proposal stays pending and the response carries the log with a conflict error.
func (s *Service) Approve(ctx context.Context, actor identity.Actor, id uuid.UUID) (*ReviewResponse, error) {
	if !canReview(actor) {
		return nil, shared.ErrForbidden
	}
	res, p, err := s.approver.ApproveProposal(ctx, actor, id)
	if res == nil {
		return nil, err
	}
	resp := &ReviewResponse{Proposal: p, Report: res.Report, LogURL: res.LogURL}
	switch {
	case err != nil:
		s.logger.Warn("Proposal approval blocked", zap.String("proposal_id", id.String()), zap.Error(err))
	case res.RolledBack():
		err = shared.NewDomainError("CONFLICT", "proposal approval was rolled back")
	default:
		s.logger.Info("Proposal approved", zap.String("proposal_id", id.String()), zap.String("reviewed_by", actor.UserID))
	}
	return resp, err
}

// mutate loads a proposal owned by the actor (or any proposal for reviewers),
// applies fn and saves it in one transaction
func (s *Service) mutate(ctx context.Context, actor identity.Actor, id uuid.UUID, fn func(*proposal.Proposal) error) (*proposal.Proposal, error) {
	var out *proposal.Proposal
	err := s.scope.Execute(ctx, func(repos transaction.Repositories) error {
		p, err := repos.Proposals().FindByIDForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if !canReview(actor) && p.CreatedBy != actor.UserID {
			return shared.ErrNotFound
		}
		if err := fn(p); err != nil {
			return err
		}
		if err := repos.Proposals().Save(ctx, p); err != nil {
			return fmt.Errorf("failed to save proposal: %w", err)
		}
		out = p
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}
