package persistence

import (
	"context"

	"github.com/consorcio/backend/internal/domain/bulk"
	"github.com/consorcio/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormBatchRunRepository implements BatchRunRepository using GORM
type GormBatchRunRepository struct {
	db *gorm.DB
}

// NewGormBatchRunRepository creates a new GormBatchRunRepository
func NewGormBatchRunRepository(db *gorm.DB) *GormBatchRunRepository {
	return &GormBatchRunRepository{db: db}
}

// FindByID finds a batch run by ID
func (r *GormBatchRunRepository) FindByID(ctx context.Context, id uuid.UUID) (*bulk.BatchRun, error) {
	var model models.BatchRunModel
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain()
}

// Find returns a page of batch runs, newest first
func (r *GormBatchRunRepository) Find(ctx context.Context, filter bulk.BatchRunFilter) ([]bulk.BatchRun, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.BatchRunModel{})
	if filter.Operation != "" {
		query = query.Where("operation = ?", filter.Operation)
	}
	if filter.RunBy != "" {
		query = query.Where("run_by = ?", filter.RunBy)
	}

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sortBy := ValidateSortField(filter.OrderBy, BatchRunSortFields, "started_at")
	query = query.Order(sortBy + " " + ValidateSortOrder(filter.OrderDir))
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}

	// Log is loaded by FindByID only
	var rows []models.BatchRunModel
	if err := query.Omit("log").Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	runs := make([]bulk.BatchRun, 0, len(rows))
	for i := range rows {
		run, err := rows[i].ToDomain()
		if err != nil {
			return nil, 0, err
		}
		runs = append(runs, *run)
	}
	return runs, total, nil
}

// Save creates or updates a batch run
func (r *GormBatchRunRepository) Save(ctx context.Context, run *bulk.BatchRun) error {
	model, err := models.BatchRunModelFromDomain(run)
	if err != nil {
		return err
	}
	return r.db.WithContext(ctx).Save(model).Error
}

var _ bulk.BatchRunRepository = (*GormBatchRunRepository)(nil)
