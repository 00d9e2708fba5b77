package client

import (
	"context"

	"github.com/consorcio/backend/internal/domain/shared"
)

// Repository persists clients
type Repository interface {
	FindByID(ctx context.Context, id string) (*Client, error)
	FindAll(ctx context.Context) ([]Client, error)
	// Search returns a page of clients whose name contains filter.Search; when ids is not nil
	// only those ids are considered
	Search(ctx context.Context, filter shared.Filter, ids []string) ([]Client, int64, error)
	Save(ctx context.Context, c *Client) error
	CreateBatch(ctx context.Context, clients []*Client) error
	FindIDs(ctx context.Context) ([]string, error)
}
