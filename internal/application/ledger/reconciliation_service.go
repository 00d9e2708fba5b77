package ledger

import (
	"context"
	"fmt"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
)

// Reconcile settles installments against the rows of an administrator statement
func (s *Service) Reconcile(ctx context.Context, actor identity.Actor, in BatchInput[ledger.StatementRow]) (*batch.Result, error) {
	if err := requireStaff(actor, identity.PermReconciliation); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bulk.OperationReconciliation, in.Upload, in.processed(),
		func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			items, err := repos.Installments().FindByQuotas(ctx, quotaPairs(in.Rows))
			if err != nil {
				return ledger.BatchReport{}, fmt.Errorf("failed to load installments: %w", err)
			}
			book := ledger.NewBook(items)
			res := s.matcher.Reconcile(in.Rows, book, s.today())
			if err := saveDirty(ctx, repos, book); err != nil {
				return ledger.BatchReport{}, err
			}
			return withRejected(ledger.BatchReport{
				Operation: string(bulk.OperationReconciliation),
				Processed: len(in.Rows),
				Succeeded: res.Matched,
				Log:       res.Log,
			}, in.Rejected), nil
		},
	)
}

// quotaPairs lists the distinct group/quota pairs of the rows
func quotaPairs(rows []ledger.StatementRow) [][2]string {
	seen := make(map[[2]string]struct{}, len(rows))
	pairs := make([][2]string, 0, len(rows))
	for _, r := range rows {
		p := [2]string{ledger.NormalizeCode(r.Group), ledger.NormalizeCode(r.Quota)}
		if p[0] == "" || p[1] == "" {
			continue
		}
		if _, ok := seen[p]; ok {
			continue
		}
		seen[p] = struct{}{}
		pairs = append(pairs, p)
	}
	return pairs
}
