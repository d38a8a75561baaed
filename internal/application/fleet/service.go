// Package fleet holds the application services for vehicles, drivers and
// transport orders of the ambient tenant.
package fleet

import (
	"context"
	"errors"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// VehicleStore persists vehicles together with their cost center
type VehicleStore interface {
	fleet.VehicleRepository
	// SaveWithCostCenter stores both in one transaction
	SaveWithCostCenter(ctx context.Context, vehicle *fleet.Vehicle, center *costing.CostCenter) error
}

func toDomainFilter(f ListFilter) shared.Filter {
	filter := shared.DefaultFilter()
	if f.Page > 0 {
		filter.Page = f.Page
	}
	if f.PageSize > 0 {
		filter.PageSize = f.PageSize
	}
	if f.OrderBy != "" {
		filter.OrderBy = f.OrderBy
	}
	if f.OrderDir != "" {
		filter.OrderDir = f.OrderDir
	}
	filter.Search = f.Search
	return filter
}

// VehicleService handles vehicle operations
type VehicleService struct {
	vehicles VehicleStore
}

// NewVehicleService creates a new VehicleService
func NewVehicleService(vehicles VehicleStore) *VehicleService {
	return &VehicleService{vehicles: vehicles}
}

// Create registers a vehicle and its VEHICLE cost center
func (s *VehicleService) Create(ctx context.Context, req CreateVehicleRequest) (*VehicleResponse, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}

	vehicle, err := fleet.NewVehicle(req.Plate, req.Make, req.Model)
	if err != nil {
		return nil, err
	}
	exists, err := s.vehicles.ExistsByPlate(ctx, vehicle.Plate)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, shared.NewDomainError("ALREADY_EXISTS", "Vehicle with this plate already exists")
	}

	center, err := costing.NewVehicleCostCenter(vehicle.ID, vehicle.Plate)
	if err != nil {
		return nil, err
	}
	if err := s.vehicles.SaveWithCostCenter(ctx, vehicle, center); err != nil {
		return nil, err
	}

	logger.L(ctx).Info("Vehicle registered",
		zap.String("vehicle_id", vehicle.ID.String()),
		zap.String("plate", vehicle.Plate),
		zap.String("cost_center_id", center.ID.String()),
	)

	response := ToVehicleResponse(vehicle)
	response.CostCenterID = &center.ID
	return &response, nil
}

// Get returns one vehicle
func (s *VehicleService) Get(ctx context.Context, id uuid.UUID) (*VehicleResponse, error) {
	vehicle, err := s.vehicles.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	response := ToVehicleResponse(vehicle)
	return &response, nil
}

// List returns a page of vehicles and the total count
func (s *VehicleService) List(ctx context.Context, f ListFilter) ([]VehicleResponse, int64, error) {
	filter := toDomainFilter(f)
	vehicles, err := s.vehicles.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.vehicles.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]VehicleResponse, len(vehicles))
	for i := range vehicles {
		responses[i] = ToVehicleResponse(&vehicles[i])
	}
	return responses, total, nil
}

// DriverService handles driver operations
type DriverService struct {
	drivers fleet.DriverRepository
}

// NewDriverService creates a new DriverService
func NewDriverService(drivers fleet.DriverRepository) *DriverService {
	return &DriverService{drivers: drivers}
}

// Create registers a driver
func (s *DriverService) Create(ctx context.Context, req CreateDriverRequest) (*DriverResponse, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	driver, err := fleet.NewDriver(req.FullName)
	if err != nil {
		return nil, err
	}
	if err := s.drivers.Save(ctx, driver); err != nil {
		return nil, err
	}
	response := ToDriverResponse(driver)
	return &response, nil
}

// List returns a page of drivers and the total count
func (s *DriverService) List(ctx context.Context, f ListFilter) ([]DriverResponse, int64, error) {
	filter := toDomainFilter(f)
	drivers, err := s.drivers.FindAll(ctx, filter)
	if err != nil {
		return nil, 0, err
	}
	total, err := s.drivers.Count(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	responses := make([]DriverResponse, len(drivers))
	for i := range drivers {
		responses[i] = ToDriverResponse(&drivers[i])
	}
	return responses, total, nil
}

// TransportOrderService handles transport order operations
type TransportOrderService struct {
	orders   fleet.TransportOrderRepository
	vehicles fleet.VehicleRepository
	drivers  fleet.DriverRepository
}

// NewTransportOrderService creates a new TransportOrderService
func NewTransportOrderService(orders fleet.TransportOrderRepository, vehicles fleet.VehicleRepository, drivers fleet.DriverRepository) *TransportOrderService {
	return &TransportOrderService{orders: orders, vehicles: vehicles, drivers: drivers}
}

// Create records an order. An assigned vehicle or driver must exist in the
// ambient tenant; another tenant's id reads as not found.
func (s *TransportOrderService) Create(ctx context.Context, req CreateTransportOrderRequest) (*TransportOrderResponse, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}

	date, err := valueobject.ParseDate(req.Date)
	if err != nil {
		return nil, err
	}
	if req.AssignedVehicleID != nil {
		if _, err := s.vehicles.FindByID(ctx, *req.AssignedVehicleID); err != nil {
			return nil, referenceError(err, "Assigned vehicle not found")
		}
	}
	if req.AssignedDriverID != nil {
		if _, err := s.drivers.FindByID(ctx, *req.AssignedDriverID); err != nil {
			return nil, referenceError(err, "Assigned driver not found")
		}
	}

	order, err := fleet.NewTransportOrder(fleet.NewTransportOrderInput{
		Reference:         req.Reference,
		CustomerName:      req.CustomerName,
		Date:              date,
		Origin:            req.Origin,
		Destination:       req.Destination,
		DistanceKm:        req.DistanceKm,
		AgreedPrice:       req.AgreedPrice,
		AssignedVehicleID: req.AssignedVehicleID,
		AssignedDriverID:  req.AssignedDriverID,
		DurationHours:     req.DurationHours,
		TollsCost:         req.TollsCost,
		FerryCost:         req.FerryCost,
		Status:            fleet.OrderStatus(req.Status),
	})
	if err != nil {
		return nil, err
	}
	if err := s.orders.Save(ctx, order); err != nil {
		return nil, err
	}

	response := ToTransportOrderResponse(order)
	return &response, nil
}

// ListForPeriod returns the orders dated within period, oldest first
func (s *TransportOrderService) ListForPeriod(ctx context.Context, period valueobject.Period) ([]TransportOrderResponse, error) {
	orders, err := s.orders.FindForPeriod(ctx, period)
	if err != nil {
		return nil, err
	}
	responses := make([]TransportOrderResponse, len(orders))
	for i := range orders {
		responses[i] = ToTransportOrderResponse(&orders[i])
	}
	return responses, nil
}

func referenceError(err error, message string) error {
	if errors.Is(err, shared.ErrNotFound) {
		return shared.NewDomainError("NOT_FOUND", message)
	}
	return err
}
