package persistence

import (
	"context"

	"github.com/consorcio/backend/internal/domain/proposal"
	"github.com/consorcio/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormProposalRepository implements proposal.Repository using GORM
type GormProposalRepository struct {
	db *gorm.DB
}

// NewGormProposalRepository creates a new GormProposalRepository
func NewGormProposalRepository(db *gorm.DB) *GormProposalRepository {
	return &GormProposalRepository{db: db}
}

// FindByID finds a proposal by id
func (r *GormProposalRepository) FindByID(ctx context.Context, id uuid.UUID) (*proposal.Proposal, error) {
	return r.find(r.db.WithContext(ctx), id)
}

// FindByIDForUpdate finds a proposal by id and locks its row until the transaction ends
func (r *GormProposalRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*proposal.Proposal, error) {
	return r.find(forUpdate(r.db.WithContext(ctx)), id)
}

func (r *GormProposalRepository) find(db *gorm.DB, id uuid.UUID) (*proposal.Proposal, error) {
	var model models.ProposalModel
	if err := db.Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain()
}

// Find returns a page of proposals, newest first
func (r *GormProposalRepository) Find(ctx context.Context, filter proposal.Filter) ([]proposal.Proposal, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.ProposalModel{})
	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}
	if filter.CreatedBy != "" {
		query = query.Where("created_by = ?", filter.CreatedBy)
	}
	if filter.Search != "" {
		like := "%" + filter.Search + "%"
		query = query.Where("cliente LIKE ? OR grupo LIKE ? OR cota LIKE ?", like, like, like)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := ValidateSortField(filter.OrderBy, ProposalSortFields, "created_at")
	query = query.Order(sortBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	var rows []models.ProposalModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	out := make([]proposal.Proposal, 0, len(rows))
	for i := range rows {
		p, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *p)
	}
	return out, total, nil
}

// Create inserts a proposal
func (r *GormProposalRepository) Create(ctx context.Context, p *proposal.Proposal) error {
	model, err := models.ProposalModelFromDomain(p)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Create(model).Error
}

// Save updates a proposal
func (r *GormProposalRepository) Save(ctx context.Context, p *proposal.Proposal) error {
	model, err := models.ProposalModelFromDomain(p)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

var _ proposal.Repository = (*GormProposalRepository)(nil)
