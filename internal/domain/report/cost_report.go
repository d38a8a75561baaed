package report

import (
	"context"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// CostReportFilter selects persisted snapshots for a report.
// Rows whose period overlaps Period are included.
type CostReportFilter struct {
	Period    valueobject.Period
	BasisUnit costing.BasisUnit // empty means every basis
}

// RateTotals is a read model aggregating snapshots
type RateTotals struct {
	TotalCost            decimal.Decimal
	TotalUnits           decimal.Decimal
	RateSum              decimal.Decimal
	SnapshotCount        int64
	OKCount              int64
	MissingActivityCount int64
}

// AverageRate is total cost over total units, or the plain mean of the
// snapshot rates when no units were recorded
func (t RateTotals) AverageRate() decimal.Decimal {
	if t.TotalUnits.IsPositive() {
		return costing.RoundRate(t.TotalCost.Div(t.TotalUnits))
	}
	if t.SnapshotCount == 0 {
		return decimal.Zero
	}
	return costing.RoundRate(t.RateSum.Div(decimal.NewFromInt(t.SnapshotCount)))
}

// CostCenterTotal is the summed cost of one cost center
type CostCenterTotal struct {
	CostCenterID   uuid.UUID
	CostCenterName string
	TotalCost      decimal.Decimal
}

// CostReportRepository runs aggregate queries over engine output of the ambient tenant
type CostReportRepository interface {
	// GetRateTotals aggregates every snapshot matching filter
	GetRateTotals(ctx context.Context, filter CostReportFilter) (*RateTotals, error)

	// GetCostByCenter sums total cost per cost center, largest first then by name
	GetCostByCenter(ctx context.Context, filter CostReportFilter) ([]CostCenterTotal, error)

	// CountBreakdowns counts breakdowns with status overlapping period
	CountBreakdowns(ctx context.Context, period valueobject.Period, status costing.BreakdownStatus) (int64, error)
}
