package persistence

import (
	"context"
	"strings"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormCostCenterRepository implements CostCenterRepository using GORM
type GormCostCenterRepository struct {
	db *gorm.DB
}

// NewGormCostCenterRepository creates a new GormCostCenterRepository
func NewGormCostCenterRepository(db *gorm.DB) *GormCostCenterRepository {
	return &GormCostCenterRepository{db: db}
}

// FindByID finds a cost center by its ID
func (r *GormCostCenterRepository) FindByID(ctx context.Context, id uuid.UUID) (*costing.CostCenter, error) {
	var model models.CostCenterModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all cost centers matching the filter
func (r *GormCostCenterRepository) FindAll(ctx context.Context, filter shared.Filter) ([]costing.CostCenter, error) {
	var centerModels []models.CostCenterModel
	query := applyListFilter(r.db.WithContext(ctx).Model(&models.CostCenterModel{}), filter, CostCenterSortFields, "name")
	if err := query.Find(&centerModels).Error; err != nil {
		return nil, err
	}
	return costCentersToDomain(centerModels), nil
}

// Count counts cost centers matching the filter
func (r *GormCostCenterRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applySearch(r.db.WithContext(ctx).Model(&models.CostCenterModel{}), filter, "name")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindActive returns active centers ordered by creation time, then id
func (r *GormCostCenterRepository) FindActive(ctx context.Context) ([]costing.CostCenter, error) {
	var centerModels []models.CostCenterModel
	if err := r.db.WithContext(ctx).Model(&models.CostCenterModel{}).
		Where("is_active = ?", true).
		Order("created_at ASC, id ASC").
		Find(&centerModels).Error; err != nil {
		return nil, err
	}
	return costCentersToDomain(centerModels), nil
}

// ExistsByName checks whether the tenant already has a cost center called name
func (r *GormCostCenterRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CostCenterModel{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a cost center
func (r *GormCostCenterRepository) Save(ctx context.Context, center *costing.CostCenter) error {
	model := &models.CostCenterModel{}
	model.FromDomain(center)
	if err := saveTenantOwned(ctx, r.db, &models.CostCenterModel{}, model, center.ID); err != nil {
		return err
	}
	center.TenantID = model.TenantID
	return nil
}

func costCentersToDomain(centerModels []models.CostCenterModel) []costing.CostCenter {
	centers := make([]costing.CostCenter, len(centerModels))
	for i := range centerModels {
		centers[i] = *centerModels[i].ToDomain()
	}
	return centers
}

// GormCostItemRepository implements CostItemRepository using GORM
type GormCostItemRepository struct {
	db *gorm.DB
}

// NewGormCostItemRepository creates a new GormCostItemRepository
func NewGormCostItemRepository(db *gorm.DB) *GormCostItemRepository {
	return &GormCostItemRepository{db: db}
}

// FindByID finds a cost item by its ID
func (r *GormCostItemRepository) FindByID(ctx context.Context, id uuid.UUID) (*costing.CostItem, error) {
	var model models.CostItemModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all cost items matching the filter
func (r *GormCostItemRepository) FindAll(ctx context.Context, filter shared.Filter) ([]costing.CostItem, error) {
	var itemModels []models.CostItemModel
	query := applyListFilter(r.db.WithContext(ctx).Model(&models.CostItemModel{}), filter, CostItemSortFields, "name")
	if err := query.Find(&itemModels).Error; err != nil {
		return nil, err
	}
	items := make([]costing.CostItem, len(itemModels))
	for i := range itemModels {
		items[i] = *itemModels[i].ToDomain()
	}
	return items, nil
}

// Count counts cost items matching the filter
func (r *GormCostItemRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applySearch(r.db.WithContext(ctx).Model(&models.CostItemModel{}), filter, "name")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByName checks whether the tenant already has a cost item called name
func (r *GormCostItemRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.CostItemModel{}).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a cost item
func (r *GormCostItemRepository) Save(ctx context.Context, item *costing.CostItem) error {
	model := &models.CostItemModel{}
	model.FromDomain(item)
	if err := saveTenantOwned(ctx, r.db, &models.CostItemModel{}, model, item.ID); err != nil {
		return err
	}
	item.TenantID = model.TenantID
	return nil
}

// GormCostPostingRepository implements CostPostingRepository using GORM
type GormCostPostingRepository struct {
	db *gorm.DB
}

// NewGormCostPostingRepository creates a new GormCostPostingRepository
func NewGormCostPostingRepository(db *gorm.DB) *GormCostPostingRepository {
	return &GormCostPostingRepository{db: db}
}

// FindOverlapping returns postings whose own window shares at least one day with period.
// Bounds are inclusive on both sides.
func (r *GormCostPostingRepository) FindOverlapping(ctx context.Context, period valueobject.Period) ([]costing.CostPosting, error) {
	var postingModels []models.CostPostingModel
	if err := r.db.WithContext(ctx).Model(&models.CostPostingModel{}).
		Where("period_start <= ? AND period_end >= ?", period.End(), period.Start()).
		Order("period_start ASC, id ASC").
		Find(&postingModels).Error; err != nil {
		return nil, err
	}
	postings := make([]costing.CostPosting, len(postingModels))
	for i := range postingModels {
		postings[i] = *postingModels[i].ToDomain()
	}
	return postings, nil
}

// Save creates or updates a cost posting
func (r *GormCostPostingRepository) Save(ctx context.Context, posting *costing.CostPosting) error {
	model := &models.CostPostingModel{}
	model.FromDomain(posting)
	if err := saveTenantOwned(ctx, r.db, &models.CostPostingModel{}, model, posting.ID); err != nil {
		return err
	}
	posting.TenantID = model.TenantID
	return nil
}

// Ensure interfaces are implemented
var (
	_ costing.CostCenterRepository  = (*GormCostCenterRepository)(nil)
	_ costing.CostItemRepository    = (*GormCostItemRepository)(nil)
	_ costing.CostPostingRepository = (*GormCostPostingRepository)(nil)
)
