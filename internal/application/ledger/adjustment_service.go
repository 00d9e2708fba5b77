package ledger

import (
	"context"
	"fmt"
	"strings"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
)

// Edit applies sparse field updates. Succeeded counts changed fields, not rows.
func (s *Service) Edit(ctx context.Context, actor identity.Actor, in BatchInput[ledger.EditRow]) (*batch.Result, error) {
	if err := requireStaff(actor, identity.PermAdjustments); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bulk.OperationEdit, in.Upload, in.processed(),
		func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			ids := make([]string, 0, len(in.Rows))
			for _, r := range in.Rows {
				if id := strings.TrimSpace(r.ID); id != "" {
					ids = append(ids, id)
				}
			}
			book, err := loadBook(ctx, repos, ids)
			if err != nil {
				return ledger.BatchReport{}, err
			}
			snap, err := loadSnapshot(ctx, repos)
			if err != nil {
				return ledger.BatchReport{}, err
			}

			res := s.editor.Apply(in.Rows, book, ledger.Directories{Users: snap.users, Clients: snap.clients})
			if err := saveDirty(ctx, repos, book); err != nil {
				return ledger.BatchReport{}, err
			}
			return withRejected(ledger.BatchReport{
				Operation: string(bulk.OperationEdit),
				Processed: len(in.Rows),
				Succeeded: res.Changed,
				Log:       res.Log,
			}, in.Rejected), nil
		},
	)
}

// Delete removes installments with no paid flow
func (s *Service) Delete(ctx context.Context, actor identity.Actor, in BatchInput[string]) (*batch.Result, error) {
	if err := requireStaff(actor, identity.PermAdjustments); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bulk.OperationDelete, in.Upload, in.processed(),
		func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			book, err := loadBook(ctx, repos, in.Rows)
			if err != nil {
				return ledger.BatchReport{}, err
			}
			plan := s.deleter.Plan(in.Rows, book)
			var deleted int64
			if len(plan.IDs) > 0 {
				if deleted, err = repos.Installments().DeleteByIDs(ctx, plan.IDs); err != nil {
					return ledger.BatchReport{}, fmt.Errorf("failed to delete installments: %w", err)
				}
			}
			return withRejected(ledger.BatchReport{
				Operation: string(bulk.OperationDelete),
				Processed: len(in.Rows),
				Succeeded: int(deleted),
				Log:       plan.Log,
			}, in.Rejected), nil
		},
	)
}

func loadBook(ctx context.Context, repos transaction.Repositories, ids []string) (*ledger.Book, error) {
	clean := make([]string, 0, len(ids))
	for _, id := range ids {
		if id = strings.TrimSpace(id); id != "" {
			clean = append(clean, id)
		}
	}
	items, err := repos.Installments().FindByIDs(ctx, clean)
	if err != nil {
		return nil, fmt.Errorf("failed to load installments: %w", err)
	}
	return ledger.NewBook(items), nil
}
