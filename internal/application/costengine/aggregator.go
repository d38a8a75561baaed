// Package costengine turns cost postings and transport orders of one tenant into
// per-center rate snapshots and per-order cost breakdowns.
//
// A run moves through FETCH, AGGREGATE, RATE, BREAKDOWN and SUMMARIZE, and
// optionally PERSIST. Every stage except FETCH and PERSIST is a pure function.
package costengine

import (
	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Activity is the order activity of one period
type Activity struct {
	OrderCount         int
	TotalDistance      decimal.Decimal
	TotalRevenue       decimal.Decimal
	DistanceByVehicle  map[uuid.UUID]decimal.Decimal
	RevenueByVehicle   map[uuid.UUID]decimal.Decimal
	UnassignedDistance decimal.Decimal
	UnassignedRevenue  decimal.Decimal
}

// DistanceFor returns the distance driven by vehicleID, zero when it has no orders
func (a Activity) DistanceFor(vehicleID uuid.UUID) decimal.Decimal {
	if d, ok := a.DistanceByVehicle[vehicleID]; ok {
		return d
	}
	return decimal.Zero
}

// RevenueFor returns the revenue earned by vehicleID, zero when it has no orders
func (a Activity) RevenueFor(vehicleID uuid.UUID) decimal.Decimal {
	if r, ok := a.RevenueByVehicle[vehicleID]; ok {
		return r
	}
	return decimal.Zero
}

// AggregatePostings sums posting amounts per cost center. A posting counts
// when its own window shares at least one day with period.
func AggregatePostings(postings []costing.CostPosting, period valueobject.Period) map[uuid.UUID]decimal.Decimal {
	totals := make(map[uuid.UUID]decimal.Decimal)
	for i := range postings {
		p := &postings[i]
		if !p.Period.Overlaps(period) {
			continue
		}
		totals[p.CostCenterID] = totals[p.CostCenterID].Add(p.Amount)
	}
	return totals
}

// AggregateOrders reduces orders to their activity. Orders without a vehicle
// count towards the totals and the unassigned figures only.
func AggregateOrders(orders []fleet.TransportOrder) Activity {
	activity := Activity{
		OrderCount:        len(orders),
		DistanceByVehicle: make(map[uuid.UUID]decimal.Decimal),
		RevenueByVehicle:  make(map[uuid.UUID]decimal.Decimal),
	}

	for i := range orders {
		o := &orders[i]
		distance, revenue := o.DistanceKm, o.Revenue()
		activity.TotalDistance = activity.TotalDistance.Add(distance)
		activity.TotalRevenue = activity.TotalRevenue.Add(revenue)

		if o.AssignedVehicleID == nil {
			activity.UnassignedDistance = activity.UnassignedDistance.Add(distance)
			activity.UnassignedRevenue = activity.UnassignedRevenue.Add(revenue)
			continue
		}
		id := *o.AssignedVehicleID
		activity.DistanceByVehicle[id] = activity.DistanceByVehicle[id].Add(distance)
		activity.RevenueByVehicle[id] = activity.RevenueByVehicle[id].Add(revenue)
	}

	return activity
}
