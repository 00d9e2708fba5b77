// Package transaction defines the unit of work every batch runs in.
package transaction

import (
	"context"

	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/identity"
	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/domain/proposal"
)

// Scope provides transactional access to the repositories.
// When a function is executed within a scope, all repository operations are part of
// the same database transaction and are committed or rolled back atomically.
type Scope interface {
	// Execute runs the given function within a database transaction.
	// If the function returns an error, the transaction is rolled back.
	Execute(ctx context.Context, fn func(repos Repositories) error) error
}

// Repositories provides access to all repositories within a transaction.
// All repositories returned share the same underlying database transaction.
type Repositories interface {
	Users() identity.UserRepository
	Clients() client.Repository
	Rules() catalog.RuleSetRepository
	Installments() ledger.InstallmentRepository
	Proposals() proposal.Repository
	BatchRuns() bulk.BatchRunRepository
}

// Static is a Repositories implementation over fixed repositories
type Static struct {
	UserRepo        identity.UserRepository
	ClientRepo      client.Repository
	RuleRepo        catalog.RuleSetRepository
	InstallmentRepo ledger.InstallmentRepository
	ProposalRepo    proposal.Repository
	BatchRunRepo    bulk.BatchRunRepository
}

func (s *Static) Users() identity.UserRepository             { return s.UserRepo }
func (s *Static) Clients() client.Repository                 { return s.ClientRepo }
func (s *Static) Rules() catalog.RuleSetRepository           { return s.RuleRepo }
func (s *Static) Installments() ledger.InstallmentRepository { return s.InstallmentRepo }
func (s *Static) Proposals() proposal.Repository             { return s.ProposalRepo }
func (s *Static) BatchRuns() bulk.BatchRunRepository         { return s.BatchRunRepo }

// NoOpScope runs functions without a real transaction, against fixed repositories.
// This is useful for testing or when transaction support is not required.
type NoOpScope struct {
	repos Repositories
}

// NewNoOpScope creates a NoOpScope with the given repositories.
func NewNoOpScope(repos Repositories) *NoOpScope {
	return &NoOpScope{repos: repos}
}

// Execute runs the function without a real transaction.
func (s *NoOpScope) Execute(_ context.Context, fn func(repos Repositories) error) error {
	return fn(s.repos)
}

var _ Scope = (*NoOpScope)(nil)
var _ Repositories = (*Static)(nil)
