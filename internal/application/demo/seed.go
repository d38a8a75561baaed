// Package demo seeds a repeatable allocation scenario for trying the cost engine.
package demo

import (
	"context"
	"errors"

	costingapp "github.com/fleetcost/backend/internal/application/costing"
	fleetapp "github.com/fleetcost/backend/internal/application/fleet"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// Fixed names of the seeded records
const (
	VehiclePlate     = "DEMO-001"
	OverheadName     = "Overhead-General"
	VehicleItemName  = "Vehicle Operating Cost"
	OverheadItemName = "General Overhead"
	OrderReference   = "DEMO-ORDER-001"
	CustomerName     = "Demo Customer"
)

// ErrAlreadySeeded is returned when the tenant already holds the demo vehicle
var ErrAlreadySeeded = shared.NewDomainError("ALREADY_EXISTS", "Demo data already exists for this tenant")

// Options sizes the scenario. Zero values take the defaults: January 2026,
// one 500 km order worth 2000, a vehicle cost of 1000 and an overhead of 300.
type Options struct {
	Period       valueobject.Period
	VehicleKm    decimal.Decimal
	OrderRevenue decimal.Decimal
	VehicleCost  decimal.Decimal
	OverheadCost decimal.Decimal
}

func (o Options) withDefaults() Options {
	if o.Period.IsZero() {
		o.Period = valueobject.MonthPeriod(2026, 1)
	}
	if o.VehicleKm.IsZero() {
		o.VehicleKm = decimal.NewFromInt(500)
	}
	if o.OrderRevenue.IsZero() {
		o.OrderRevenue = decimal.NewFromInt(2000)
	}
	if o.VehicleCost.IsZero() {
		o.VehicleCost = decimal.NewFromInt(1000)
	}
	if o.OverheadCost.IsZero() {
		o.OverheadCost = decimal.NewFromInt(300)
	}
	return o
}

// Result lists what was created
type Result struct {
	Period           valueobject.Period
	VehicleID        uuid.UUID
	VehicleCenterID  uuid.UUID
	OverheadCenterID uuid.UUID
	OrderID          uuid.UUID
	Postings         int
}

// Seeder writes the scenario through the regular application services
type Seeder struct {
	vehicles *fleetapp.VehicleService
	orders   *fleetapp.TransportOrderService
	centers  *costingapp.CostCenterService
	items    *costingapp.CostItemService
	postings *costingapp.CostPostingService
}

// NewSeeder creates a new Seeder
func NewSeeder(
	vehicles *fleetapp.VehicleService,
	orders *fleetapp.TransportOrderService,
	centers *costingapp.CostCenterService,
	items *costingapp.CostItemService,
	postings *costingapp.CostPostingService,
) *Seeder {
	return &Seeder{vehicles: vehicles, orders: orders, centers: centers, items: items, postings: postings}
}

// Seed creates the scenario for the ambient tenant
func (s *Seeder) Seed(ctx context.Context, opts Options) (*Result, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	opts = opts.withDefaults()

	vehicle, err := s.vehicles.Create(ctx, fleetapp.CreateVehicleRequest{Plate: VehiclePlate, Make: "Mercedes", Model: "Actros"})
	if err != nil {
		var de *shared.DomainError
		if errors.As(err, &de) && de.Code == shared.ErrAlreadyExists.Code {
			return nil, ErrAlreadySeeded
		}
		return nil, err
	}
	res := &Result{Period: opts.Period, VehicleID: vehicle.ID, VehicleCenterID: *vehicle.CostCenterID}

	overhead, err := s.centers.Create(ctx, costingapp.CreateCostCenterRequest{Name: OverheadName, Type: "OVERHEAD"})
	if err != nil {
		return nil, err
	}
	res.OverheadCenterID = overhead.ID

	vehicleItem, err := s.items.Create(ctx, costingapp.CreateCostItemRequest{Name: VehicleItemName, Category: "FIXED", Unit: "MONTH"})
	if err != nil {
		return nil, err
	}
	overheadItem, err := s.items.Create(ctx, costingapp.CreateCostItemRequest{Name: OverheadItemName, Category: "INDIRECT", Unit: "MONTH"})
	if err != nil {
		return nil, err
	}

	start := opts.Period.Start().Format(valueobject.DateLayout)
	end := opts.Period.End().Format(valueobject.DateLayout)
	for _, p := range []struct {
		item, center uuid.UUID
		amount       decimal.Decimal
		notes        string
	}{
		{vehicleItem.ID, res.VehicleCenterID, opts.VehicleCost, "Demo vehicle cost posting"},
		{overheadItem.ID, res.OverheadCenterID, opts.OverheadCost, "Demo overhead cost posting"},
	} {
		if _, err := s.postings.Create(ctx, costingapp.CreateCostPostingRequest{
			CostItemID:   p.item,
			CostCenterID: p.center,
			Amount:       p.amount,
			PeriodStart:  start,
			PeriodEnd:    end,
			Notes:        p.notes,
		}); err != nil {
			return nil, err
		}
		res.Postings++
	}

	order, err := s.orders.Create(ctx, fleetapp.CreateTransportOrderRequest{
		Reference:         OrderReference,
		CustomerName:      CustomerName,
		Date:              start,
		Origin:            "Athens",
		Destination:       "Thessaloniki",
		DistanceKm:        opts.VehicleKm,
		AgreedPrice:       opts.OrderRevenue,
		AssignedVehicleID: &res.VehicleID,
		Status:            "COMPLETED",
	})
	if err != nil {
		return nil, err
	}
	res.OrderID = order.ID

	logger.L(ctx).Info("Demo data seeded",
		zap.String("period", opts.Period.String()),
		zap.String("vehicle_id", res.VehicleID.String()),
		zap.String("order_id", res.OrderID.String()),
	)
	return res, nil
}
