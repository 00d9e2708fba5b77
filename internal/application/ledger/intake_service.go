package ledger

import (
	"context"
	"fmt"

	"github.com/consorcio/backend/internal/application/batch"
	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/shared"
)

// Intake expands sale rows into installments. Re-uploading a sale only inserts the
// installments still missing; synthesized clients are created in the same transaction.
func (s *Service) Intake(ctx context.Context, actor identity.Actor, in BatchInput[ledger.SaleInput]) (*batch.Result, error) {
	if err := requireStaff(actor, identity.PermIntake); err != nil {
		return nil, err
	}
	return s.run(ctx, actor, bulk.OperationIntake, in.Upload, in.processed(),
		func(ctx context.Context, repos transaction.Repositories) (ledger.BatchReport, error) {
			res, err := s.generate(ctx, repos, in.Rows)
			if err != nil {
				return ledger.BatchReport{}, err
			}
			return withRejected(res.Report(len(in.Rows)), in.Rejected), nil
		},
		shared.CacheKeyClients,
	)
}

// generate runs the generator against the transaction's data and persists its output
func (s *Service) generate(ctx context.Context, repos transaction.Repositories, sales []ledger.SaleInput) (ledger.GenerateResult, error) {
	snap, err := loadSnapshot(ctx, repos)
	if err != nil {
		return ledger.GenerateResult{}, err
	}
	existing, err := repos.Installments().ExistingIDs(ctx, ledger.CandidateIDs(sales, snap.catalog))
	if err != nil {
		return ledger.GenerateResult{}, fmt.Errorf("failed to load existing installments: %w", err)
	}

	res := s.generator.Generate(ledger.GenerateInput{
		Sales:    sales,
		Catalog:  snap.catalog,
		Users:    snap.users,
		Clients:  snap.clients,
		Existing: ledger.NewIDSet(existing...),
	})

	if len(res.NewClients) > 0 {
		created := make([]*client.Client, len(res.NewClients))
		for i := range res.NewClients {
			created[i] = &res.NewClients[i]
		}
		if err := repos.Clients().CreateBatch(ctx, created); err != nil {
			return res, fmt.Errorf("failed to create clients: %w", err)
		}
	}
	if len(res.Installments) > 0 {
		if err := repos.Installments().CreateBatch(ctx, res.Installments); err != nil {
			return res, fmt.Errorf("failed to insert installments: %w", err)
		}
	}
	return res, nil
}
