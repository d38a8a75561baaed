package costengine

import (
	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BasisFor returns the basis unit of a center: REVENUE for overhead, KM otherwise
func BasisFor(center *costing.CostCenter) costing.BasisUnit {
	if center.IsOverhead() {
		return costing.BasisUnitRevenue
	}
	return costing.BasisUnitKM
}

// UnitsFor returns how many basis units the center consumed in the period.
// Overhead uses total revenue. A vehicle center uses its vehicle's distance,
// any other center the tenant's total distance.
func UnitsFor(center *costing.CostCenter, activity Activity) decimal.Decimal {
	if center.IsOverhead() {
		return activity.TotalRevenue
	}
	if center.VehicleID != nil {
		return activity.DistanceFor(*center.VehicleID)
	}
	return activity.TotalDistance
}

// CalculateRate divides cost by units. Zero units is not an error: the rate
// is zero and the status MISSING_ACTIVITY, for every basis unit including REVENUE.
func CalculateRate(totalCost, totalUnits decimal.Decimal) (decimal.Decimal, costing.SnapshotStatus) {
	if totalUnits.IsZero() {
		return decimal.Zero, costing.SnapshotStatusMissingActivity
	}
	return costing.RoundRate(totalCost.Div(totalUnits)), costing.SnapshotStatusOK
}

// BuildSnapshots derives one snapshot per active center, in the order given
func BuildSnapshots(centers []costing.CostCenter, costByCenter map[uuid.UUID]decimal.Decimal, activity Activity, period valueobject.Period, engineVersion string) []costing.CostRateSnapshot {
	snapshots := make([]costing.CostRateSnapshot, 0, len(centers))
	for i := range centers {
		center := &centers[i]
		if !center.IsActive {
			continue
		}

		basis := BasisFor(center)
		totalCost := costing.RoundMoney(costByCenter[center.ID])
		units := costing.RoundMoney(UnitsFor(center, activity))
		rate, status := CalculateRate(totalCost, units)

		snapshots = append(snapshots, costing.CostRateSnapshot{
			BaseEntity:     shared.NewBaseEntity(),
			TenantID:       center.TenantID,
			Period:         period,
			CostCenterID:   center.ID,
			CostCenterName: center.Name,
			CostCenterType: center.Type,
			BasisUnit:      basis,
			TotalCost:      totalCost,
			TotalUnits:     units,
			Rate:           rate,
			Status:         status,
			EngineVersion:  engineVersion,
		})
	}
	return snapshots
}
