package costengine

import (
	"context"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/mock"
)

// =============================================================================
// Mock Repositories
// =============================================================================

type MockCostCenterRepository struct {
	mock.Mock
}

func (m *MockCostCenterRepository) FindByID(ctx context.Context, id uuid.UUID) (*costing.CostCenter, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*costing.CostCenter), args.Error(1)
}

func (m *MockCostCenterRepository) FindAll(ctx context.Context, filter shared.Filter) ([]costing.CostCenter, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).([]costing.CostCenter), args.Error(1)
}

func (m *MockCostCenterRepository) Count(ctx context.Context, filter shared.Filter) (int64, error) {
	args := m.Called(ctx, filter)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockCostCenterRepository) FindActive(ctx context.Context) ([]costing.CostCenter, error) {
	args := m.Called(ctx)
	return args.Get(0).([]costing.CostCenter), args.Error(1)
}

func (m *MockCostCenterRepository) ExistsByName(ctx context.Context, name string) (bool, error) {
	args := m.Called(ctx, name)
	return args.Bool(0), args.Error(1)
}

func (m *MockCostCenterRepository) Save(ctx context.Context, center *costing.CostCenter) error {
	args := m.Called(ctx, center)
	return args.Error(0)
}

type MockCostPostingRepository struct {
	mock.Mock
}

func (m *MockCostPostingRepository) FindOverlapping(ctx context.Context, period valueobject.Period) ([]costing.CostPosting, error) {
	args := m.Called(ctx, period)
	return args.Get(0).([]costing.CostPosting), args.Error(1)
}

func (m *MockCostPostingRepository) Save(ctx context.Context, posting *costing.CostPosting) error {
	args := m.Called(ctx, posting)
	return args.Error(0)
}

type MockTransportOrderRepository struct {
	mock.Mock
}

func (m *MockTransportOrderRepository) FindByID(ctx context.Context, id uuid.UUID) (*fleet.TransportOrder, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*fleet.TransportOrder), args.Error(1)
}

func (m *MockTransportOrderRepository) FindByIDs(ctx context.Context, ids []uuid.UUID) ([]fleet.TransportOrder, error) {
	args := m.Called(ctx, ids)
	return args.Get(0).([]fleet.TransportOrder), args.Error(1)
}

func (m *MockTransportOrderRepository) FindForPeriod(ctx context.Context, period valueobject.Period) ([]fleet.TransportOrder, error) {
	args := m.Called(ctx, period)
	return args.Get(0).([]fleet.TransportOrder), args.Error(1)
}

func (m *MockTransportOrderRepository) Save(ctx context.Context, order *fleet.TransportOrder) error {
	args := m.Called(ctx, order)
	return args.Error(0)
}

// =============================================================================
// Fixtures
// =============================================================================

var january = valueobject.MonthPeriod(2026, time.January)

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func testCenter(name string, centerType costing.CostCenterType, vehicleID *uuid.UUID, createdAt time.Time) costing.CostCenter {
	c, err := costing.NewCostCenter(name, centerType, vehicleID, nil, "")
	if err != nil {
		panic(err)
	}
	c.CreatedAt = createdAt
	return *c
}

func testPosting(centerID uuid.UUID, amount string, period valueobject.Period) costing.CostPosting {
	p, err := costing.NewCostPosting(uuid.New(), centerID, dec(amount), period, "")
	if err != nil {
		panic(err)
	}
	return *p
}

func testOrder(ref string, km, price string, vehicleID *uuid.UUID) fleet.TransportOrder {
	o, err := fleet.NewTransportOrder(fleet.NewTransportOrderInput{
		Reference:         ref,
		CustomerName:      "ACME",
		Date:              time.Date(2026, 1, 15, 0, 0, 0, 0, time.UTC),
		DistanceKm:        dec(km),
		AgreedPrice:       dec(price),
		AssignedVehicleID: vehicleID,
	})
	if err != nil {
		panic(err)
	}
	return *o
}

func ptr[T any](v T) *T {
	return &v
}
