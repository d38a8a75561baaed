package persistence

import (
	"context"
	"strings"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormVehicleRepository implements VehicleRepository using GORM
type GormVehicleRepository struct {
	db *gorm.DB
}

// NewGormVehicleRepository creates a new GormVehicleRepository
func NewGormVehicleRepository(db *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: db}
}

// WithTx returns a new repository instance with the given transaction
func (r *GormVehicleRepository) WithTx(tx *gorm.DB) *GormVehicleRepository {
	return &GormVehicleRepository{db: tx}
}

// SaveWithCostCenter creates vehicle and its cost center in one transaction
func (r *GormVehicleRepository) SaveWithCostCenter(ctx context.Context, vehicle *fleet.Vehicle, center *costing.CostCenter) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := r.WithTx(tx).Save(ctx, vehicle); err != nil {
			return err
		}
		return NewGormCostCenterRepository(tx).Save(ctx, center)
	})
}

// FindByID finds a vehicle by its ID
func (r *GormVehicleRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Vehicle, error) {
	var model models.VehicleModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all vehicles matching the filter
func (r *GormVehicleRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fleet.Vehicle, error) {
	var vehicleModels []models.VehicleModel
	query := applyListFilter(r.db.WithContext(ctx).Model(&models.VehicleModel{}), filter, VehicleSortFields, "plate", "make", "model")
	if err := query.Find(&vehicleModels).Error; err != nil {
		return nil, err
	}
	vehicles := make([]fleet.Vehicle, len(vehicleModels))
	for i := range vehicleModels {
		vehicles[i] = *vehicleModels[i].ToDomain()
	}
	return vehicles, nil
}

// Count counts vehicles matching the filter
func (r *GormVehicleRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applySearch(r.db.WithContext(ctx).Model(&models.VehicleModel{}), filter, "plate", "make", "model")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// ExistsByPlate checks whether the tenant already has a vehicle with plate
func (r *GormVehicleRepository) ExistsByPlate(ctx context.Context, plate string) (bool, error) {
	var count int64
	if err := r.db.WithContext(ctx).Model(&models.VehicleModel{}).
		Where("plate = ?", strings.ToUpper(strings.TrimSpace(plate))).
		Count(&count).Error; err != nil {
		return false, err
	}
	return count > 0, nil
}

// Save creates or updates a vehicle
func (r *GormVehicleRepository) Save(ctx context.Context, vehicle *fleet.Vehicle) error {
	model := &models.VehicleModel{}
	model.FromDomain(vehicle)
	if err := saveTenantOwned(ctx, r.db, &models.VehicleModel{}, model, vehicle.ID); err != nil {
		return err
	}
	vehicle.TenantID = model.TenantID
	return nil
}

// GormDriverRepository implements DriverRepository using GORM
type GormDriverRepository struct {
	db *gorm.DB
}

// NewGormDriverRepository creates a new GormDriverRepository
func NewGormDriverRepository(db *gorm.DB) *GormDriverRepository {
	return &GormDriverRepository{db: db}
}

// FindByID finds a driver by its ID
func (r *GormDriverRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.Driver, error) {
	var model models.DriverModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindAll finds all drivers matching the filter
func (r *GormDriverRepository) FindAll(ctx context.Context, filter shared.Filter) ([]fleet.Driver, error) {
	var driverModels []models.DriverModel
	query := applyListFilter(r.db.WithContext(ctx).Model(&models.DriverModel{}), filter, DriverSortFields, "full_name")
	if err := query.Find(&driverModels).Error; err != nil {
		return nil, err
	}
	drivers := make([]fleet.Driver, len(driverModels))
	for i := range driverModels {
		drivers[i] = *driverModels[i].ToDomain()
	}
	return drivers, nil
}

// Count counts drivers matching the filter
func (r *GormDriverRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	var count int64
	query := applySearch(r.db.WithContext(ctx).Model(&models.DriverModel{}), filter, "full_name")
	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// Save creates or updates a driver
func (r *GormDriverRepository) Save(ctx context.Context, driver *fleet.Driver) error {
	model := &models.DriverModel{}
	model.FromDomain(driver)
	if err := saveTenantOwned(ctx, r.db, &models.DriverModel{}, model, driver.ID); err != nil {
		return err
	}
	driver.TenantID = model.TenantID
	return nil
}

// Ensure interfaces are implemented
var (
	_ fleet.VehicleRepository = (*GormVehicleRepository)(nil)
	_ fleet.DriverRepository  = (*GormDriverRepository)(nil)
)
