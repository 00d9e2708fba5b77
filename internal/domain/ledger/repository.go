package ledger

import (
	"context"
	"time"

	"github.com/consorcio/backend/internal/domain/shared"
)

// Scope restricts queries to the installments a field user takes part in
type Scope struct {
	UserID string // Salesperson, supervisor or manager id; empty means unrestricted
}

// ListFilter defines filtering options for installment queries
type ListFilter struct {
	shared.Filter
	Scope         Scope
	SaleID        string
	ClientID      string
	SalespersonID string
	ReceiptStatus Status
	ClientStatus  Status
	DueFrom       *time.Time // Filter by due date range start
	DueTo         *time.Time // Filter by due date range end
}

// InstallmentRepository defines the interface for installment persistence
type InstallmentRepository interface {
	// FindByID finds an installment by id
	FindByID(ctx context.Context, id string) (*Installment, error)

	// FindByIDs loads the installments that exist among ids, locking them for update
	FindByIDs(ctx context.Context, ids []string) ([]Installment, error)

	// FindBySale loads every installment of a sale, chargeback row included, locking them for update
	FindBySale(ctx context.Context, saleID string) ([]Installment, error)

	// FindByQuotas loads the installments of the given group/quota pairs, locking them for update
	FindByQuotas(ctx context.Context, pairs [][2]string) ([]Installment, error)

	// ExistingIDs returns the subset of ids already stored
	ExistingIDs(ctx context.Context, ids []string) ([]string, error)

	// Find returns a page of installments ordered by due date
	Find(ctx context.Context, filter ListFilter) ([]Installment, int64, error)

	// FindAll returns every installment matching the filter without pagination
	FindAll(ctx context.Context, filter ListFilter) ([]Installment, error)

	// CreateBatch inserts new installments
	CreateBatch(ctx context.Context, items []Installment) error

	// SaveAll updates existing installments
	SaveAll(ctx context.Context, items []Installment) error

	// Upsert inserts or replaces one installment
	Upsert(ctx context.Context, item *Installment) error

	// DeleteByIDs removes installments
	DeleteByIDs(ctx context.Context, ids []string) (int64, error)

	// CountByUser counts installments referencing the user in any party
	CountByUser(ctx context.Context, userID string) (int64, error)

	// CountByProductType counts installments of a product type
	CountByProductType(ctx context.Context, productType string) (int64, error)

	// ClientIDsForUser lists the clients of the installments a user takes part in
	ClientIDsForUser(ctx context.Context, userID string) ([]string, error)
}
