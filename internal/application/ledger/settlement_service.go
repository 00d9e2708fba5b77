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

// SetClientStatus toggles the client payment status of the selected installments
func (s *Service) SetClientStatus(ctx context.Context, actor identity.Actor, ids []string, status ledger.Status) (*batch.Result, error) {
	if err := requireStaff(actor, identity.PermClientInstallments); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bulk.OperationClientStatus, nil, len(ids),
		func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			book, err := loadBook(ctx, repos, ids)
			if err != nil {
				return ledger.BatchReport{}, err
			}
			changed, log := ledger.SetClientStatus(ids, status, book)
			if err := saveDirty(ctx, repos, book); err != nil {
				return ledger.BatchReport{}, err
			}
			return ledger.BatchReport{
				Operation: string(bulk.OperationClientStatus),
				Processed: len(ids),
				Succeeded: changed,
				Log:       log,
			}, nil
		},
	)
}

// SettlePayouts applies commission payout statuses
func (s *Service) SettlePayouts(ctx context.Context, actor identity.Actor, updates []ledger.PayoutUpdate) (*batch.Result, error) {
	if err := requireStaff(actor, identity.PermCommissions); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bulk.OperationPayouts, nil, len(updates),
		func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			ids := make([]string, len(updates))
			for i, u := range updates {
				ids[i] = u.ID
			}
			book, err := loadBook(ctx, repos, ids)
			if err != nil {
				return ledger.BatchReport{}, err
			}
			changed, log := ledger.SettlePayouts(updates, book)
			if err := saveDirty(ctx, repos, book); err != nil {
				return ledger.BatchReport{}, err
			}
			return ledger.BatchReport{
				Operation: string(bulk.OperationPayouts),
				Processed: len(updates),
				Succeeded: changed,
				Log:       log,
			}, nil
		},
	)
}

func saveDirty(ctx context.Context, repos transaction.Repositories, book *ledger.Book) error {
	dirty := book.Dirty()
	if len(dirty) == 0 {
		return nil
	}
	if err := repos.Installments().SaveAll(ctx, dirty); err != nil {
		return fmt.Errorf("failed to save installments: %w", err)
	}
	return nil
}
