package persistence

import (
	"context"

	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTransportOrderRepository implements TransportOrderRepository using GORM
type GormTransportOrderRepository struct {
	db *gorm.DB
}

// NewGormTransportOrderRepository creates a new GormTransportOrderRepository
func NewGormTransportOrderRepository(db *gorm.DB) *GormTransportOrderRepository {
	return &GormTransportOrderRepository{db: db}
}

// FindByID finds a transport order by its ID
func (r *GormTransportOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.TransportOrder, error) {
	var model models.TransportOrderModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindByIDs returns the orders among ids visible to the tenant
func (r *GormTransportOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]fleet.TransportOrder, error) {
	if len(ids) == 0 {
		return []fleet.TransportOrder{}, nil
	}
	var orderModels []models.TransportOrderModel
	if err := r.db.WithContext(ctx).Model(&models.TransportOrderModel{}).
		Where("id IN ?", ids).
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]fleet.TransportOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// FindForPeriod returns orders dated within period, oldest first
func (r *GormTransportOrderRepository) FindForPeriod(ctx context.Context, period valueobject.Period) ([]fleet.TransportOrder, error) {
	var orderModels []models.TransportOrderModel
	if err := r.db.WithContext(ctx).Model(&models.TransportOrderModel{}).
		Where("date >= ? AND date <= ?", period.Start(), period.End()).
		Order("date ASC, reference ASC, id ASC").
		Find(&orderModels).Error; err != nil {
		return nil, err
	}
	orders := make([]fleet.TransportOrder, len(orderModels))
	for i := range orderModels {
		orders[i] = *orderModels[i].ToDomain()
	}
	return orders, nil
}

// Save creates or updates a transport order
func (r *GormTransportOrderRepository) Save(ctx context.Context, order *fleet.TransportOrder) error {
	model := &models.TransportOrderModel{}
	model.FromDomain(order)
	if err := saveTenantOwned(ctx, r.db, &models.TransportOrderModel{}, model, order.ID); err != nil {
		return err
	}
	order.TenantID = model.TenantID
	return nil
}

var _ fleet.TransportOrderRepository = (*GormTransportOrderRepository)(nil)
