package fleet

import (
	"context"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// VehicleRepository persists vehicles of the ambient tenant
type VehicleRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Vehicle, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Vehicle, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	ExistsByPlate(ctx context.Context, plate string) (bool, error)
	Save(ctx context.Context, vehicle *Vehicle) error
}

// DriverRepository persists drivers of the ambient tenant
type DriverRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Driver, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]Driver, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	Save(ctx context.Context, driver *Driver) error
}

// TransportOrderRepository persists orders of the ambient tenant
type TransportOrderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*TransportOrder, error)
	// FindByIDs returns the orders among ids visible to the tenant, in no particular order
	FindByIDs(ctx context.Context, ids []uuid.UUID) ([]TransportOrder, error)
	// FindForPeriod returns orders dated within period, oldest first
	FindForPeriod(ctx context.Context, period valueobject.Period) ([]TransportOrder, error)
	Save(ctx context.Context, order *TransportOrder) error
}
