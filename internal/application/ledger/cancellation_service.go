package ledger

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
)

// Cancel zeroes the installments after each request's cutoff and books the
// chargeback row when the product rule calls for one. Requests are applied in
// order, so a sale listed twice is cancelled once.
func (s *Service) Cancel(ctx context.Context, actor identity.Actor, in BatchInput[ledger.CancelRequest]) (*batch.Result, error) {
	if err := requireStaff(actor, identity.PermCancellation); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bulk.OperationCancellation, in.Upload, in.processed(),
		func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			report := ledger.BatchReport{Operation: string(bulk.OperationCancellation), Processed: len(in.Rows)}
			rules := make(map[string]*catalog.RuleSet)
			for _, req := range in.Rows {
				req.SaleID = strings.TrimSpace(req.SaleID)
				res, err := s.cancelSale(ctx, repos, req, rules)
				if err != nil {
					return ledger.BatchReport{}, err
				}
				if res.Applied {
					report.Succeeded++
				}
				report.Log = append(report.Log, res.Entries...)
			}
			return withRejected(report, in.Rejected), nil
		},
	)
}

func (s *Service) cancelSale(ctx context.Context, repos transaction.Repositories, req ledger.CancelRequest, rules map[string]*catalog.RuleSet) (ledger.CancelResult, error) {
	items, err := repos.Installments().FindBySale(ctx, req.SaleID)
	if err != nil {
		return ledger.CancelResult{}, fmt.Errorf("failed to load sale %s: %w", req.SaleID, err)
	}
	var rule *catalog.RuleSet
	if len(items) > 0 {
		if rule, err = s.ruleFor(ctx, repos, items[0].ProductType, rules); err != nil {
			return ledger.CancelResult{}, err
		}
	}

	res := s.canceller.Cancel(req, items, rule, s.today())
	if len(res.Cancelled) > 0 {
		if err := repos.Installments().SaveAll(ctx, res.Cancelled); err != nil {
			return res, fmt.Errorf("failed to save cancelled installments: %w", err)
		}
	}
	if res.Chargeback != nil {
		if err := repos.Installments().CreateBatch(ctx, []ledger.Installment{*res.Chargeback}); err != nil {
			return res, fmt.Errorf("failed to insert chargeback: %w", err)
		}
	}
	return res, nil
}

// ruleFor loads a rule once per batch. A product removed from the catalog yields nil.
func (s *Service) ruleFor(ctx context.Context, repos transaction.Repositories, productType string, cache map[string]*catalog.RuleSet) (*catalog.RuleSet, error) {
	if r, ok := cache[productType]; ok {
		return r, nil
	}
	r, err := repos.Rules().FindByProductType(ctx, productType)
	if errors.Is(err, shared.ErrNotFound) {
		r, err = nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load rule %s: %w", productType, err)
	}
	cache[productType] = r
	return r, nil
}
