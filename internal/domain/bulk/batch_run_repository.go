package bulk

import (
	"context"

	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/google/uuid"
)

// BatchRunFilter defines the filters for querying batch runs
type BatchRunFilter struct {
	shared.Filter
	Operation Operation // Filter by operation
	RunBy     string    // Filter by user who ran the batch
}

// BatchRunRepository defines the interface for batch run persistence
type BatchRunRepository interface {
	// FindByID finds a batch run by ID
	FindByID(ctx context.Context, id uuid.UUID) (*BatchRun, error)

	// Find returns a page of batch runs, newest first
	Find(ctx context.Context, filter BatchRunFilter) ([]BatchRun, int64, error)

	// Save creates or updates a batch run
	Save(ctx context.Context, run *BatchRun) error
}
