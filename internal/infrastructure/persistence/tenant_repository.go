package persistence

import (
	"context"
	"strings"

	"github.com/fleetcost/backend/internal/domain/tenancy"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/models"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantRepository implements TenantRepository using GORM.
// The tenant directory is read before any tenant is in scope (token
// resolution, the scheduler, the management command), so it runs unscoped.
type GormTenantRepository struct {
	db *gorm.DB
}

// NewGormTenantRepository creates a new GormTenantRepository
func NewGormTenantRepository(db *gorm.DB) *GormTenantRepository {
	return &GormTenantRepository{db: db}
}

func (r *GormTenantRepository) session(ctx context.Context) *gorm.DB {
	return tenant.Unscoped(r.db.WithContext(ctx))
}

// FindByID finds a tenant by its ID
func (r *GormTenantRepository) FindByID(ctx context.Context, id uuid.UUID) (*tenancy.Tenant, error) {
	var model models.TenantModel
	if err := r.session(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByCode finds a tenant by its unique code
func (r *GormTenantRepository) FindByCode(ctx context.Context, code string) (*tenancy.Tenant, error) {
	var model models.TenantModel
	if err := r.session(ctx).
		Where("code = ?", strings.ToUpper(strings.TrimSpace(code))).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindActive returns active tenants ordered by code
func (r *GormTenantRepository) FindActive(ctx context.Context) ([]tenancy.Tenant, error) {
	var tenantModels []models.TenantModel
	if err := r.session(ctx).
		Where("status = ?", tenancy.TenantStatusActive).
		Order("code ASC").
		Find(&tenantModels).Error; err != nil {
		return nil, err
	}
	return tenantsToDomain(tenantModels), nil
}

// FindAll returns every tenant ordered by code
func (r *GormTenantRepository) FindAll(ctx context.Context) ([]tenancy.Tenant, error) {
	var tenantModels []models.TenantModel
	if err := r.session(ctx).Order("code ASC").Find(&tenantModels).Error; err != nil {
		return nil, err
	}
	return tenantsToDomain(tenantModels), nil
}

// Save creates or updates a tenant
func (r *GormTenantRepository) Save(ctx context.Context, t *tenancy.Tenant) error {
	return r.session(ctx).Save(models.TenantModelFromDomain(t)).Error
}

func tenantsToDomain(tenantModels []models.TenantModel) []tenancy.Tenant {
	tenants := make([]tenancy.Tenant, len(tenantModels))
	for i := range tenantModels {
		tenants[i] = *tenantModels[i].ToDomain()
	}
	return tenants
}

var _ tenancy.TenantRepository = (*GormTenantRepository)(nil)
