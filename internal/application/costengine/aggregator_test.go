package costengine

import (
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAggregatePostings(t *testing.T) {
	centerA, centerB := uuid.New(), uuid.New()
	december := valueobject.MonthPeriod(2025, time.December)
	straddling := valueobject.MustNewPeriod(
		time.Date(2025, 12, 20, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
	)

	totals := AggregatePostings([]costing.CostPosting{
		testPosting(centerA, "1000", january),
		testPosting(centerA, "250.5", straddling),
		testPosting(centerB, "300", january),
		testPosting(centerB, "999", december),
	}, january)

	assert.Len(t, totals, 2)
	assert.True(t, dec("1250.5").Equal(totals[centerA]))
	assert.True(t, dec("300").Equal(totals[centerB]))
}

func TestAggregatePostings_Empty(t *testing.T) {
	totals := AggregatePostings(nil, january)
	assert.Empty(t, totals)
}

func TestAggregateOrders(t *testing.T) {
	v1, v2 := uuid.New(), uuid.New()

	activity := AggregateOrders([]fleet.TransportOrder{
		testOrder("A", "100", "500", &v1),
		testOrder("B", "50", "200", &v1),
		testOrder("C", "70", "300", &v2),
		testOrder("D", "30", "100", nil),
	})

	assert.Equal(t, 4, activity.OrderCount)
	assert.True(t, dec("250").Equal(activity.TotalDistance))
	assert.True(t, dec("1100").Equal(activity.TotalRevenue))
	assert.True(t, dec("150").Equal(activity.DistanceFor(v1)))
	assert.True(t, dec("700").Equal(activity.RevenueFor(v1)))
	assert.True(t, dec("70").Equal(activity.DistanceFor(v2)))
	assert.True(t, dec("30").Equal(activity.UnassignedDistance))
	assert.True(t, dec("100").Equal(activity.UnassignedRevenue))
	assert.True(t, activity.DistanceFor(uuid.New()).IsZero())
	assert.True(t, activity.RevenueFor(uuid.New()).IsZero())
}

func TestAggregateOrders_PerVehicleSumsToAssignedTotal(t *testing.T) {
	v1, v2 := uuid.New(), uuid.New()
	activity := AggregateOrders([]fleet.TransportOrder{
		testOrder("A", "12.5", "10", &v1),
		testOrder("B", "7.25", "20", &v2),
		testOrder("C", "1", "30", nil),
	})

	sum := activity.UnassignedDistance
	for _, d := range activity.DistanceByVehicle {
		sum = sum.Add(d)
	}
	assert.True(t, sum.Equal(activity.TotalDistance))
}
