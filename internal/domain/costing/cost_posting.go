package costing

import (
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostPosting is an actual cost amount booked against a center for a date window
type CostPosting struct {
	shared.TenantAggregateRoot
	CostItemID   uuid.UUID
	CostCenterID uuid.UUID
	Amount       decimal.Decimal
	Period       valueobject.Period
	Notes        string
}

// NewCostPosting creates a posting; the amount must be positive
func NewCostPosting(itemID, centerID uuid.UUID, amount decimal.Decimal, period valueobject.Period, notes string) (*CostPosting, error) {
	if itemID == uuid.Nil || centerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_INPUT", "Cost item and cost center are required")
	}
	if !amount.IsPositive() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Posting amount must be positive")
	}
	if period.IsZero() {
		return nil, shared.NewDomainError("INVALID_INPUT", "Posting period is required")
	}

	return &CostPosting{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(uuid.Nil),
		CostItemID:          itemID,
		CostCenterID:        centerID,
		Amount:              RoundMoney(amount),
		Period:              period,
		Notes:               notes,
	}, nil
}
