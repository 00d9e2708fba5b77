package persistence

import (
	"context"

	"github.com/consorcio/backend/internal/application/transaction"
	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/proposal"
	"gorm.io/gorm"
)

// GormTransactionScope implements transaction.Scope using GORM transactions
type GormTransactionScope struct {
	db *gorm.DB
}

// NewGormTransactionScope creates a new GormTransactionScope
func NewGormTransactionScope(db *gorm.DB) *GormTransactionScope {
	return &GormTransactionScope{db: db}
}

// Execute runs fn inside one database transaction.
// Every repository handed to fn shares the transaction; an error from fn rolls it back.
func (s *GormTransactionScope) Execute(ctx context.Context, fn func(repos transaction.Repositories) error) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return fn(&gormTransactionalRepositories{tx: tx})
	})
}

// Repositories returns repositories bound to the scope's connection, outside any transaction
func (s *GormTransactionScope) Repositories() transaction.Repositories {
	return &gormTransactionalRepositories{tx: s.db}
}

// gormTransactionalRepositories hands out repositories bound to one *gorm.DB
type gormTransactionalRepositories struct {
	tx *gorm.DB
}

func (r *gormTransactionalRepositories) Users() identity.UserRepository {
	return NewGormUserRepository(r.tx)
}

func (r *gormTransactionalRepositories) Clients() client.Repository {
	return NewGormClientRepository(r.tx)
}

func (r *gormTransactionalRepositories) Rules() catalog.RuleSetRepository {
	return NewGormRuleSetRepository(r.tx)
}

func (r *gormTransactionalRepositories) Installments() ledger.InstallmentRepository {
	return NewGormInstallmentRepository(r.tx)
}

func (r *gormTransactionalRepositories) Proposals() proposal.Repository {
	return NewGormProposalRepository(r.tx)
}

func (r *gormTransactionalRepositories) BatchRuns() bulk.BatchRunRepository {
	return NewGormBatchRunRepository(r.tx)
}

var _ transaction.Scope = (*GormTransactionScope)(nil)
var _ transaction.Repositories = (*gormTransactionalRepositories)(nil)
