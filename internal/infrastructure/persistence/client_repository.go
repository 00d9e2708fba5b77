package persistence

import (
	"context"
	"strings"

	"github.com/consorcio/backend/internal/domain/client"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormClientRepository implements client.Repository using GORM
type GormClientRepository struct {
	db *gorm.DB
}

// NewGormClientRepository creates a new GormClientRepository
func NewGormClientRepository(db *gorm.DB) *GormClientRepository {
	return &GormClientRepository{db: db}
}

// FindByID finds a client by ID
func (r *GormClientRepository) FindByID(ctx context.Context, id string) (*client.Client, error) {
	var model models.ClientModel
	if err := r.db.WithContext(ctx).First(&model, "id_cliente = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll returns every client
func (r *GormClientRepository) FindAll(ctx context.Context) ([]client.Client, error) {
	var rows []models.ClientModel
	if err := r.db.WithContext(ctx).Order("nome_completo").Find(&rows).Error; err != nil {
		return nil, err
	}
	return toClients(rows), nil
}

// Search returns a page of clients whose name contains filter.Search.
// When ids is not nil only those ids are considered.
func (r *GormClientRepository) Search(ctx context.Context, filter shared.Filter, ids []string) ([]client.Client, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ClientModel{})
	if ids != nil {
		if len(ids) == 0 {
			return []client.Client{}, 0, nil
		}
		query = query.Where("id_cliente IN ?", ids)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(nome_completo) LIKE ? OR LOWER(email) LIKE ? OR telefone LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := ValidateSortField(filter.OrderBy, ClientSortFields, "nome_completo")
	var rows []models.ClientModel
	if err := query.Order(sortBy + " " + ValidateSortOrder(filter.OrderDir)).
		Offset(filter.Offset()).Limit(filter.PageSize).
		Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toClients(rows), total, nil
}

// Save creates or updates a client
func (r *GormClientRepository) Save(ctx context.Context, c *client.Client) error {
	return r.db.WithContext(ctx).Save(models.ClientModelFromDomain(c)).Error
}

// CreateBatch inserts clients, skipping ids that already exist
func (r *GormClientRepository) CreateBatch(ctx context.Context, clients []*client.Client) error {
	if len(clients) == 0 {
		return nil
	}
	rows := make([]*models.ClientModel, len(clients))
	for i, c := range clients {
		rows[i] = models.ClientModelFromDomain(c)
	}
	return r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).CreateInBatches(rows, 200).Error
}

// FindIDs returns every client id
func (r *GormClientRepository) FindIDs(ctx context.Context) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.ClientModel{}).Pluck("id_cliente", &ids).Error
	return ids, err
}

func toClients(rows []models.ClientModel) []client.Client {
	out := make([]client.Client, len(rows))
	for i := range rows {
		out[i] = *rows[i].ToDomain()
	}
	return out
}

var _ client.Repository = (*GormClientRepository)(nil)
