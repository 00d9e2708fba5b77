package persistence

import (
	"context"
	"strings"

	"github.com/consorcio/backend/internal/domain/ledger"
	"github.com/consorcio/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// GormInstallmentRepository implements ledger.InstallmentRepository using GORM
type GormInstallmentRepository struct {
	db *gorm.DB
}

// NewGormInstallmentRepository creates a new GormInstallmentRepository
func NewGormInstallmentRepository(db *gorm.DB) *GormInstallmentRepository {
	return &GormInstallmentRepository{db: db}
}

// FindByID finds an installment by id
func (r *GormInstallmentRepository) FindByID(ctx context.Context, id string) (*ledger.Installment, error) {
	var model models.InstallmentModel
	if err := r.db.WithContext(ctx).First(&model, "id_lancamento = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	inst := model.ToDomain()
	return &inst, nil
}

// FindByIDs loads the installments that exist among ids, locking them for update
func (r *GormInstallmentRepository) FindByIDs(ctx context.Context, ids []string) ([]ledger.Installment, error) {
	var out []ledger.Installment
	for _, part := range chunks(ids) {
		var rows []models.InstallmentModel
		if err := forUpdate(r.db.WithContext(ctx)).
			Where("id_lancamento IN ?", part).
			Order("id_lancamento").
			Find(&rows).Error; err != nil {
			return nil, err
		}
		out = append(out, toInstallments(rows)...)
	}
	return out, nil
}

// FindBySale loads every installment of a sale, chargeback row included
func (r *GormInstallmentRepository) FindBySale(ctx context.Context, saleID string) ([]ledger.Installment, error) {
	var rows []models.InstallmentModel
	if err := forUpdate(r.db.WithContext(ctx)).
		Where("id_venda = ?", saleID).
		Order("data_previsao, id_lancamento").
		Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInstallments(rows), nil
}

// FindByQuotas loads the installments of the given group/quota pairs
func (r *GormInstallmentRepository) FindByQuotas(ctx context.Context, pairs [][2]string) ([]ledger.Installment, error) {
	if len(pairs) == 0 {
		return nil, nil
	}
	// Group by group so each query is a single IN list on quota
	byGroup := make(map[string][]string)
	var groups []string
	for _, p := range pairs {
		if _, ok := byGroup[p[0]]; !ok {
			groups = append(groups, p[0])
		}
		byGroup[p[0]] = append(byGroup[p[0]], p[1])
	}

	var out []ledger.Installment
	for _, g := range groups {
		for _, part := range chunks(byGroup[g]) {
			var rows []models.InstallmentModel
			if err := forUpdate(r.db.WithContext(ctx)).
				Where("grupo = ? AND cota IN ?", g, part).
				Order("data_previsao, id_lancamento").
				Find(&rows).Error; err != nil {
				return nil, err
			}
			out = append(out, toInstallments(rows)...)
		}
	}
	return out, nil
}

// ExistingIDs returns the subset of ids already stored
func (r *GormInstallmentRepository) ExistingIDs(ctx context.Context, ids []string) ([]string, error) {
	var found []string
	for _, part := range chunks(ids) {
		var batch []string
		if err := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
			Where("id_lancamento IN ?", part).
			Pluck("id_lancamento", &batch).Error; err != nil {
			return nil, err
		}
		found = append(found, batch...)
	}
	return found, nil
}

// Find returns a page of installments
func (r *GormInstallmentRepository) Find(ctx context.Context, filter ledger.ListFilter) ([]ledger.Installment, int64, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InstallmentModel{}), filter)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	query = r.applyOrder(query, filter)
	if filter.PageSize > 0 {
		query = query.Offset(filter.Offset()).Limit(filter.PageSize)
	}
	var rows []models.InstallmentModel
	if err := query.Find(&rows).Error; err != nil {
		return nil, 0, err
	}
	return toInstallments(rows), total, nil
}

// FindAll returns every installment matching the filter without pagination
func (r *GormInstallmentRepository) FindAll(ctx context.Context, filter ledger.ListFilter) ([]ledger.Installment, error) {
	query := r.applyFilter(r.db.WithContext(ctx).Model(&models.InstallmentModel{}), filter)
	var rows []models.InstallmentModel
	if err := r.applyOrder(query, filter).Find(&rows).Error; err != nil {
		return nil, err
	}
	return toInstallments(rows), nil
}

// CreateBatch inserts new installments
func (r *GormInstallmentRepository) CreateBatch(ctx context.Context, items []ledger.Installment) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).CreateInBatches(models.InstallmentModelsFromDomain(items), 200).Error
}

// SaveAll updates existing installments
func (r *GormInstallmentRepository) SaveAll(ctx context.Context, items []ledger.Installment) error {
	db := r.db.WithContext(ctx)
	for _, m := range models.InstallmentModelsFromDomain(items) {
		if err := db.Save(m).Error; err != nil {
			return err
		}
	}
	return nil
}

// Upsert inserts or replaces one installment
func (r *GormInstallmentRepository) Upsert(ctx context.Context, item *ledger.Installment) error {
	return r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "id_lancamento"}},
			UpdateAll: true,
		}).
		Create(models.InstallmentModelFromDomain(item)).Error
}

// DeleteByIDs removes installments
func (r *GormInstallmentRepository) DeleteByIDs(ctx context.Context, ids []string) (int64, error) {
	var total int64
	for _, part := range chunks(ids) {
		result := r.db.WithContext(ctx).Where("id_lancamento IN ?", part).Delete(&models.InstallmentModel{})
		if result.Error != nil {
			return total, result.Error
		}
		total += result.RowsAffected
	}
	return total, nil
}

// CountByUser counts installments referencing the user in any party
func (r *GormInstallmentRepository) CountByUser(ctx context.Context, userID string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("id_vendedor = ? OR id_supervisor = ? OR id_gerente = ?", userID, userID, userID).
		Count(&count).Error
	return count, err
}

// CountByProductType counts installments of a product type
func (r *GormInstallmentRepository) CountByProductType(ctx context.Context, productType string) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("tipo_cota = ?", productType).
		Count(&count).Error
	return count, err
}

// ClientIDsForUser lists the clients of the installments a user takes part in
func (r *GormInstallmentRepository) ClientIDsForUser(ctx context.Context, userID string) ([]string, error) {
	var ids []string
	err := r.db.WithContext(ctx).Model(&models.InstallmentModel{}).
		Where("id_vendedor = ? OR id_supervisor = ? OR id_gerente = ?", userID, userID, userID).
		Distinct("id_cliente").
		Pluck("id_cliente", &ids).Error
	return ids, err
}

func (r *GormInstallmentRepository) applyFilter(query *gorm.DB, filter ledger.ListFilter) *gorm.DB {
	if uid := filter.Scope.UserID; uid != "" {
		query = query.Where("id_vendedor = ? OR id_supervisor = ? OR id_gerente = ?", uid, uid, uid)
	}
	if filter.SaleID != "" {
		query = query.Where("id_venda = ?", filter.SaleID)
	}
	if filter.ClientID != "" {
		query = query.Where("id_cliente = ?", filter.ClientID)
	}
	if filter.SalespersonID != "" {
		query = query.Where("id_vendedor = ?", filter.SalespersonID)
	}
	if filter.ReceiptStatus != "" {
		query = query.Where("status_recebimento = ?", filter.ReceiptStatus)
	}
	if filter.ClientStatus != "" {
		query = query.Where("status_pgto_cliente = ?", filter.ClientStatus)
	}
	if filter.DueFrom != nil {
		query = query.Where("data_previsao >= ?", *filter.DueFrom)
	}
	if filter.DueTo != nil {
		query = query.Where("data_previsao <= ?", *filter.DueTo)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where(
			"LOWER(cliente) LIKE ? OR LOWER(vendedor) LIKE ? OR id_venda LIKE ? OR grupo LIKE ?",
			like, like, like, like,
		)
	}
	return query
}

func (r *GormInstallmentRepository) applyOrder(query *gorm.DB, filter ledger.ListFilter) *gorm.DB {
	if filter.OrderBy == "" {
		return query.Order("data_previsao ASC, id_lancamento ASC")
	}
	sortBy := ValidateSortField(filter.OrderBy, InstallmentSortFields, "data_previsao")
	return query.Order(sortBy + " " + ValidateSortOrder(filter.OrderDir)).Order("id_lancamento ASC")
}

func toInstallments(rows []models.InstallmentModel) []ledger.Installment {
	out := make([]ledger.Installment, len(rows))
	for i := range rows {
		out[i] = rows[i].ToDomain()
	}
	return out
}

var _ ledger.InstallmentRepository = (*GormInstallmentRepository)(nil)
