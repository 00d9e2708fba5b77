package ledger

import (
	"context"
	"errors"
	"fmt"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/proposal"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// ErrProposalNotApproved is returned when the generator logged an Error for the proposal.
// The proposal stays pending and carries the log.
var ErrProposalNotApproved = shared.NewDomainError("CONFLICT", "proposal could not be generated")

// ApproveProposal generates the installments of a pending proposal and approves it in
// the same transaction.
func (s *Service) ApproveProposal(ctx context.Context, actor identity.Actor, id uuid.UUID) (*batch.Result, *proposal.Proposal, error) {
	if err := requireStaff(actor, identity.PermProposalReview); err != nil {
		return nil, nil, err
	}
	current, err := s.repos.Proposals().FindByID(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if current.Status != proposal.StatusPending {
		return nil, current, shared.NewDomainError("INVALID_STATE", "only pending proposals can be approved")
	}

	var reviewed *proposal.Proposal
	res, err := s.run(ctx, actor, bulk.OperationProposal, nil, 1,
		func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			p, err := repos.Proposals().FindByIDForUpdate(ctx, id)
			if err != nil {
				return ledger.BatchReport{}, err
			}
			gen, err := s.generate(ctx, repos, []ledger.SaleInput{p.SaleInput()})
			if err != nil {
				return ledger.BatchReport{}, err
			}
			report := gen.Report(1)
			report.Operation = string(bulk.OperationProposal)
			if err := p.Approve(actor.UserID, report.Log); err != nil && !errors.Is(err, shared.ErrConflict) {
				return ledger.BatchReport{}, err
			}
			if err := repos.Proposals().Save(ctx, p); err != nil {
				return ledger.BatchReport{}, fmt.Errorf("failed to save proposal: %w", err)
			}
			reviewed = p
			return report, nil
		},
		shared.CacheKeyClients,
	)
	if err != nil {
		return nil, nil, err
	}
	if res.RolledBack() || reviewed == nil {
		return res, current, nil
	}
	if reviewed.Status != proposal.StatusApproved {
		return res, reviewed, ErrProposalNotApproved
	}
	return res, reviewed, nil
}
