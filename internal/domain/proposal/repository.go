package proposal

import (
	"context"

	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// Filter narrows proposal listings
type Filter struct {
	shared.Filter
	Status    Status
	CreatedBy string // Restricts to one owner; empty lists every proposal
}

// Repository defines the interface for proposal persistence
type Repository interface {
	// FindByID finds a proposal by id
	FindByID(ctx context.Context, id uuid.UUID) (*Proposal, error)

	// FindByIDForUpdate finds a proposal by id and locks it
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*Proposal, error)

	// Find returns a page of proposals, newest first
	Find(ctx context.Context, filter Filter) ([]Proposal, int64, error)

	// Create inserts a proposal
	Create(ctx context.Context, p *Proposal) error

	// Save updates a proposal
	Save(ctx context.Context, p *Proposal) error
}
