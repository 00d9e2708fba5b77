package persistence

import (
	"context"

	"github.com/consorcio/backend/internal/domain/catalog"
	"github.com/consorcio/backend/internal/domain/shared"
	"github.com/consorcio/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormRuleSetRepository implements catalog.RuleSetRepository using GORM
type GormRuleSetRepository struct {
	db *gorm.DB
}

// NewGormRuleSetRepository creates a new GormRuleSetRepository
func NewGormRuleSetRepository(db *gorm.DB) *GormRuleSetRepository {
	return &GormRuleSetRepository{db: db}
}

// FindAll returns every rule set ordered by product type
func (r *GormRuleSetRepository) FindAll(ctx context.Context) ([]catalog.RuleSet, error) {
	var rows []models.RuleSetModel
	if err := r.db.WithContext(ctx).Order("tipo_cota").Find(&rows).Error; err != nil {
		return nil, err
	}
	out := make([]catalog.RuleSet, 0, len(rows))
	for i := range rows {
		rule, err := rows[i].ToDomain()
		if err != nil {
			return nil, err
		}
		out = append(out, *rule)
	}
	return out, nil
}

// FindByProductType finds one rule set
func (r *GormRuleSetRepository) FindByProductType(ctx context.Context, productType string) (*catalog.RuleSet, error) {
	var model models.RuleSetModel
	if err := r.db.WithContext(ctx).First(&model, "tipo_cota = ?", productType).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain()
}

// Upsert replaces the rule set stored under the same product type
func (r *GormRuleSetRepository) Upsert(ctx context.Context, rule *catalog.RuleSet) error {
	return r.db.WithContext(ctx).Save(models.RuleSetModelFromDomain(rule)).Error
}

// Delete removes a rule set
func (r *GormRuleSetRepository) Delete(ctx context.Context, productType string) error {
	result := r.db.WithContext(ctx).Delete(&models.RuleSetModel{}, "tipo_cota = ?", productType)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

var _ catalog.RuleSetRepository = (*GormRuleSetRepository)(nil)
