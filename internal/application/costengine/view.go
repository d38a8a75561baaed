package costengine

import (
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ViewOptions filters a result before it is shown
type ViewOptions struct {
	// OnlyNonZero keeps snapshots with a positive total cost or rate
	OnlyNonZero bool
	// IncludeBreakdowns keeps the per-order breakdowns
	IncludeBreakdowns bool
}

// RunMeta describes a run result
type RunMeta struct {
	SchemaVersion int       `json:"schema_version"`
	EngineVersion string    `json:"engine_version"`
	TenantID      uuid.UUID `json:"tenant_id"`
	PeriodStart   string    `json:"period_start"`
	PeriodEnd     string    `json:"period_end"`
	GeneratedAt   time.Time `json:"generated_at"`
	Persisted     bool      `json:"persisted"`
}

// SnapshotView is one computed rate
type SnapshotView struct {
	CostCenterID   uuid.UUID       `json:"cost_center_id"`
	CostCenterName string          `json:"cost_center_name"`
	CostCenterType string          `json:"cost_center_type"`
	PeriodStart    string          `json:"period_start"`
	PeriodEnd      string          `json:"period_end"`
	BasisUnit      string          `json:"basis_unit"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	TotalUnits     decimal.Decimal `json:"total_units"`
	Rate           decimal.Decimal `json:"rate"`
	Status         string          `json:"status"`
}

// BreakdownView is the allocation of one order
type BreakdownView struct {
	OrderID       uuid.UUID       `json:"order_id"`
	OrderRef      string          `json:"order_ref"`
	DirectCost    decimal.Decimal `json:"direct_cost"`
	VehicleAlloc  decimal.Decimal `json:"vehicle_alloc"`
	DriverAlloc   decimal.Decimal `json:"driver_alloc"`
	OverheadAlloc decimal.Decimal `json:"overhead_alloc"`
	TotalCost     decimal.Decimal `json:"total_cost"`
	Revenue       decimal.Decimal `json:"revenue"`
	Profit        decimal.Decimal `json:"profit"`
	Margin        decimal.Decimal `json:"margin"`
	Status        string          `json:"status"`
}

// RunView is the payload of a run
type RunView struct {
	Meta       RunMeta         `json:"meta"`
	Snapshots  []SnapshotView  `json:"snapshots"`
	Breakdowns []BreakdownView `json:"breakdowns"`
	Summary    Summary         `json:"summary"`
}

// NewRunView shapes r for output. Filtering only affects the listed rows;
// the summary always covers the whole run.
func NewRunView(r *Result, opts ViewOptions) RunView {
	view := RunView{
		Meta: RunMeta{
			SchemaVersion: SchemaVersion,
			EngineVersion: r.EngineVersion,
			TenantID:      r.TenantID,
			PeriodStart:   r.Period.Start().Format(valueobject.DateLayout),
			PeriodEnd:     r.Period.End().Format(valueobject.DateLayout),
			GeneratedAt:   r.GeneratedAt,
			Persisted:     r.Persisted,
		},
		Snapshots:  make([]SnapshotView, 0, len(r.Snapshots)),
		Breakdowns: []BreakdownView{},
		Summary:    r.Summary,
	}

	for i := range r.Snapshots {
		s := &r.Snapshots[i]
		if opts.OnlyNonZero && !s.TotalCost.IsPositive() && !s.Rate.IsPositive() {
			continue
		}
		view.Snapshots = append(view.Snapshots, snapshotView(s))
	}

	if opts.IncludeBreakdowns {
		view.Breakdowns = make([]BreakdownView, len(r.Breakdowns))
		for i := range r.Breakdowns {
			view.Breakdowns[i] = breakdownView(&r.Breakdowns[i])
		}
	}
	return view
}

func snapshotView(s *costing.CostRateSnapshot) SnapshotView {
	return SnapshotView{
		CostCenterID:   s.CostCenterID,
		CostCenterName: s.CostCenterName,
		CostCenterType: string(s.CostCenterType),
		PeriodStart:    s.Period.Start().Format(valueobject.DateLayout),
		PeriodEnd:      s.Period.End().Format(valueobject.DateLayout),
		BasisUnit:      string(s.BasisUnit),
		TotalCost:      s.TotalCost,
		TotalUnits:     s.TotalUnits,
		Rate:           s.Rate,
		Status:         string(s.Status),
	}
}

func breakdownView(b *costing.OrderCostBreakdown) BreakdownView {
	return BreakdownView{
		OrderID:       b.TransportOrderID,
		OrderRef:      b.OrderReference,
		DirectCost:    b.DirectCost,
		VehicleAlloc:  b.VehicleAlloc,
		DriverAlloc:   b.DriverAlloc,
		OverheadAlloc: b.OverheadAlloc,
		TotalCost:     b.TotalCost,
		Revenue:       b.Revenue,
		Profit:        b.Profit,
		Margin:        b.Margin,
		Status:        string(b.Status),
	}
}
