package costengine

import (
	"sort"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ErrAmbiguousOverhead is returned by the single policy when several overhead centers are active
var ErrAmbiguousOverhead = shared.NewDomainError("AMBIGUOUS_OVERHEAD", "More than one active overhead cost center")

// OverheadSelector picks the overhead center of a run
type OverheadSelector struct {
	Policy costing.OverheadPolicy
}

// Select returns the overhead center among centers, or nil when none is active
func (s OverheadSelector) Select(centers []costing.CostCenter) (*costing.CostCenter, error) {
	candidates := make([]*costing.CostCenter, 0, 1)
	for i := range centers {
		if centers[i].IsActive && centers[i].IsOverhead() {
			candidates = append(candidates, &centers[i])
		}
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	switch s.Policy {
	case costing.OverheadPolicySingle:
		if len(candidates) > 1 {
			return nil, ErrAmbiguousOverhead
		}
		return candidates[0], nil
	case costing.OverheadPolicyLowestID:
		sort.SliceStable(candidates, func(i, j int) bool {
			return idLess(candidates[i].ID, candidates[j].ID)
		})
	default:
		sort.SliceStable(candidates, func(i, j int) bool {
			return createdBefore(candidates[i], candidates[j])
		})
	}
	return candidates[0], nil
}

func idLess(a, b uuid.UUID) bool {
	return a.String() < b.String()
}

func createdBefore(a, b *costing.CostCenter) bool {
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return idLess(a.ID, b.ID)
}

// VehicleCenters maps each vehicle to its active VEHICLE center. When a vehicle
// has several, the earliest created wins.
func VehicleCenters(centers []costing.CostCenter) map[uuid.UUID]*costing.CostCenter {
	byVehicle := make(map[uuid.UUID]*costing.CostCenter)
	for i := range centers {
		c := &centers[i]
		if !c.IsActive || c.Type != costing.CostCenterTypeVehicle || c.VehicleID == nil {
			continue
		}
		if current, ok := byVehicle[*c.VehicleID]; ok && !createdBefore(c, current) {
			continue
		}
		byVehicle[*c.VehicleID] = c
	}
	return byVehicle
}

// BreakdownInput carries everything BuildBreakdowns needs
type BreakdownInput struct {
	Period         valueobject.Period
	Orders         []fleet.TransportOrder
	Snapshots      []costing.CostRateSnapshot
	VehicleCenters map[uuid.UUID]*costing.CostCenter
	Overhead       *costing.CostCenter
	EngineVersion  string
}

// BuildBreakdowns allocates vehicle and overhead cost to every order.
// vehicle_alloc is distance times the vehicle center's rate; overhead_alloc is
// revenue times the overhead rate. An order whose vehicle has no usable rate is
// flagged MISSING_RATE with a zero vehicle allocation.
func BuildBreakdowns(in BreakdownInput) []costing.OrderCostBreakdown {
	snapshotByCenter := make(map[uuid.UUID]*costing.CostRateSnapshot, len(in.Snapshots))
	for i := range in.Snapshots {
		snapshotByCenter[in.Snapshots[i].CostCenterID] = &in.Snapshots[i]
	}

	overheadRate := decimal.Zero
	if in.Overhead != nil {
		if snap, ok := snapshotByCenter[in.Overhead.ID]; ok {
			overheadRate = snap.Rate
		}
	}

	breakdowns := make([]costing.OrderCostBreakdown, 0, len(in.Orders))
	for i := range in.Orders {
		order := &in.Orders[i]
		b := costing.OrderCostBreakdown{
			BaseEntity:       shared.NewBaseEntity(),
			TenantID:         order.TenantID,
			Period:           in.Period,
			TransportOrderID: order.ID,
			OrderReference:   order.Reference,
			VehicleAlloc:     decimal.Zero,
			OverheadAlloc:    costing.RoundMoney(order.Revenue().Mul(overheadRate)),
			DirectCost:       decimal.Zero,
			DriverAlloc:      decimal.Zero,
			Revenue:          costing.RoundMoney(order.Revenue()),
			Status:           costing.BreakdownStatusOK,
			EngineVersion:    in.EngineVersion,
		}

		if order.AssignedVehicleID != nil {
			rate, ok := vehicleRate(*order.AssignedVehicleID, in.VehicleCenters, snapshotByCenter)
			if ok {
				b.VehicleAlloc = costing.RoundMoney(order.DistanceKm.Mul(rate))
			} else {
				b.Status = costing.BreakdownStatusMissingRate
			}
		}

		b.Settle()
		breakdowns = append(breakdowns, b)
	}
	return breakdowns
}

func vehicleRate(vehicleID uuid.UUID, centers map[uuid.UUID]*costing.CostCenter, snapshots map[uuid.UUID]*costing.CostRateSnapshot) (decimal.Decimal, bool) {
	center, ok := centers[vehicleID]
	if !ok {
		return decimal.Zero, false
	}
	snap, ok := snapshots[center.ID]
	if !ok || !snap.HasActivity() {
		return decimal.Zero, false
	}
	return snap.Rate, true
}
