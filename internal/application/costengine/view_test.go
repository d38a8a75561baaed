package costengine

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func viewResult() *Result {
	tenantID := uuid.New()
	idle := costing.CostRateSnapshot{
		CostCenterID: uuid.New(), CostCenterName: "Idle", BasisUnit: costing.BasisUnitKM,
		TotalCost: dec("0"), TotalUnits: dec("0"), Rate: dec("0"), Status: costing.SnapshotStatusMissingActivity, Period: january,
	}
	busy := costing.CostRateSnapshot{
		CostCenterID: uuid.New(), CostCenterName: "Truck", CostCenterType: costing.CostCenterTypeVehicle, BasisUnit: costing.BasisUnitKM,
		TotalCost: dec("2000"), TotalUnits: dec("400"), Rate: dec("5"), Status: costing.SnapshotStatusOK, Period: january,
	}
	breakdown := costing.OrderCostBreakdown{
		TransportOrderID: uuid.New(), OrderReference: "ORD-1", Period: january,
		VehicleAlloc: dec("2000"), Revenue: dec("2500"), Status: costing.BreakdownStatusOK,
	}
	breakdown.Settle()

	snapshots := []costing.CostRateSnapshot{idle, busy}
	breakdowns := []costing.OrderCostBreakdown{breakdown}
	return &Result{
		TenantID:      tenantID,
		Period:        january,
		EngineVersion: "1.0.0",
		GeneratedAt:   time.Date(2026, 2, 1, 3, 0, 0, 0, time.UTC),
		Snapshots:     snapshots,
		Breakdowns:    breakdowns,
		Summary:       Summarize(snapshots, breakdowns),
		Persisted:     true,
	}
}

func TestNewRunView_Meta(t *testing.T) {
	r := viewResult()
	view := NewRunView(r, ViewOptions{IncludeBreakdowns: true})

	assert.Equal(t, SchemaVersion, view.Meta.SchemaVersion)
	assert.Equal(t, "1.0.0", view.Meta.EngineVersion)
	assert.Equal(t, r.TenantID, view.Meta.TenantID)
	assert.Equal(t, "2026-01-01", view.Meta.PeriodStart)
	assert.Equal(t, "2026-01-31", view.Meta.PeriodEnd)
	assert.True(t, view.Meta.Persisted)
	assert.Len(t, view.Snapshots, 2)
	require.Len(t, view.Breakdowns, 1)
	assert.Equal(t, "ORD-1", view.Breakdowns[0].OrderRef)
	assert.True(t, dec("500").Equal(view.Breakdowns[0].Profit))
}

func TestNewRunView_Filters(t *testing.T) {
	r := viewResult()
	view := NewRunView(r, ViewOptions{OnlyNonZero: true})

	require.Len(t, view.Snapshots, 1)
	assert.Equal(t, "Truck", view.Snapshots[0].CostCenterName)
	assert.Equal(t, "VEHICLE", view.Snapshots[0].CostCenterType)
	assert.Empty(t, view.Breakdowns)
	assert.NotNil(t, view.Breakdowns)

	// the summary still covers every row
	assert.Equal(t, 2, view.Summary.TotalSnapshots)
	assert.Equal(t, 1, view.Summary.TotalBreakdowns)
}

func TestNewRunView_JSONShape(t *testing.T) {
	raw, err := json.Marshal(NewRunView(viewResult(), ViewOptions{IncludeBreakdowns: true}))
	require.NoError(t, err)

	var body map[string]any
	require.NoError(t, json.Unmarshal(raw, &body))
	meta := body["meta"].(map[string]any)
	assert.EqualValues(t, 1, meta["schema_version"])
	assert.Contains(t, meta, "generated_at")

	summary := body["summary"].(map[string]any)
	assert.Equal(t, "2000", summary["total_cost"])
	assert.Equal(t, "2500", summary["total_revenue"])
}
