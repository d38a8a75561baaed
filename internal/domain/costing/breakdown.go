package costing

import (
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BreakdownStatus tells whether every needed rate was available
type BreakdownStatus string

const (
	BreakdownStatusOK          BreakdownStatus = "OK"
	BreakdownStatusMissingRate BreakdownStatus = "MISSING_RATE"
)

// BreakdownKey is the natural key of an order breakdown within a tenant
type BreakdownKey struct {
	Period           valueobject.Period
	TransportOrderID uuid.UUID
}

// OrderCostBreakdown is the allocated cost and profitability of one order for one period
type OrderCostBreakdown struct {
	shared.BaseEntity
	TenantID         uuid.UUID
	Period           valueobject.Period
	TransportOrderID uuid.UUID
	OrderReference   string
	VehicleAlloc     decimal.Decimal
	OverheadAlloc    decimal.Decimal
	DirectCost       decimal.Decimal
	DriverAlloc      decimal.Decimal
	TotalCost        decimal.Decimal
	Revenue          decimal.Decimal
	Profit           decimal.Decimal
	Margin           decimal.Decimal
	Status           BreakdownStatus
	EngineVersion    string
}

// Key returns the breakdown's natural key
func (b *OrderCostBreakdown) Key() BreakdownKey {
	return BreakdownKey{Period: b.Period, TransportOrderID: b.TransportOrderID}
}

// Settle derives total cost, profit and margin from the allocation slots.
// profit == revenue - total_cost holds exactly afterwards.
func (b *OrderCostBreakdown) Settle() {
	b.TotalCost = b.VehicleAlloc.Add(b.OverheadAlloc).Add(b.DirectCost).Add(b.DriverAlloc)
	b.Profit = b.Revenue.Sub(b.TotalCost)
	b.Margin = Margin(b.Profit, b.Revenue)
}
