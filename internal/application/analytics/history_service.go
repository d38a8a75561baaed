package analytics

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

const (
	// HistorySchema is the schema tag of history payloads
	HistorySchema = "v1.0"
	// DefaultHistoryLimit applies when no positive limit is given
	DefaultHistoryLimit = 500
	// MaxHistoryLimit caps every history query
	MaxHistoryLimit = 2000
)

// NormalizeLimit caps limit at MaxHistoryLimit; zero or negative means DefaultHistoryLimit
func NormalizeLimit(limit int) int {
	if limit <= 0 {
		return DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		return MaxHistoryLimit
	}
	return limit
}

// HistoryQuery filters persisted results
type HistoryQuery struct {
	Period            valueobject.Period
	CostCenterID      *uuid.UUID
	BasisUnit         costing.BasisUnit
	IncludeBreakdowns bool
	OnlyNonZero       bool
	Limit             int
}

// HistoryFilters echoes the effective filters
type HistoryFilters struct {
	CostCenterID      *uuid.UUID `json:"cost_center_id"`
	BasisUnit         *string    `json:"basis_unit"`
	IncludeBreakdowns bool       `json:"include_breakdowns"`
	OnlyNonZero       bool       `json:"only_nonzero"`
	Limit             int        `json:"limit"`
}

// HistoryMeta describes a history payload
type HistoryMeta struct {
	Schema      string         `json:"schema"`
	Source      string         `json:"source"`
	GeneratedAt time.Time      `json:"generated_at"`
	PeriodStart string         `json:"period_start"`
	PeriodEnd   string         `json:"period_end"`
	Filters     HistoryFilters `json:"filters"`
}

// SnapshotRow is one persisted snapshot
type SnapshotRow struct {
	PeriodStart    string          `json:"period_start"`
	PeriodEnd      string          `json:"period_end"`
	CostCenterID   uuid.UUID       `json:"cost_center_id"`
	CostCenterName string          `json:"cost_center_name"`
	BasisUnit      string          `json:"basis_unit"`
	TotalCost      decimal.Decimal `json:"total_cost"`
	TotalUnits     decimal.Decimal `json:"total_units"`
	Rate           decimal.Decimal `json:"rate"`
	Status         string          `json:"status"`
	EngineVersion  string          `json:"engine_version"`
}

// BreakdownRow is one persisted breakdown with the details of its order.
// Order fields are nil when the order no longer exists.
type BreakdownRow struct {
	OrderID        uuid.UUID        `json:"order_id"`
	OrderReference string           `json:"order_reference"`
	OrderDate      *string          `json:"order_date"`
	CustomerName   *string          `json:"customer_name"`
	Origin         *string          `json:"origin"`
	Destination    *string          `json:"destination"`
	DistanceKm     *decimal.Decimal `json:"distance_km"`
	PeriodStart    string           `json:"period_start"`
	PeriodEnd      string           `json:"period_end"`
	VehicleAlloc   decimal.Decimal  `json:"vehicle_alloc"`
	OverheadAlloc  decimal.Decimal  `json:"overhead_alloc"`
	DirectCost     decimal.Decimal  `json:"direct_cost"`
	TotalCost      decimal.Decimal  `json:"total_cost"`
	Revenue        decimal.Decimal  `json:"revenue"`
	Profit         decimal.Decimal  `json:"profit"`
	Margin         decimal.Decimal  `json:"margin"`
	Status         string           `json:"status"`
}

// HistorySummary totals the returned snapshots
type HistorySummary struct {
	TotalCostSum   decimal.Decimal `json:"total_cost_sum"`
	TotalUnitsSum  decimal.Decimal `json:"total_units_sum"`
	AvgRate        decimal.Decimal `json:"avg_rate"`
	SnapshotCount  int             `json:"snapshot_count"`
	BreakdownCount int             `json:"breakdown_count"`
}

// HistoryView is the history payload
type HistoryView struct {
	Meta       HistoryMeta    `json:"meta"`
	Snapshots  []SnapshotRow  `json:"snapshots"`
	Breakdowns []BreakdownRow `json:"breakdowns"`
	Summary    HistorySummary `json:"summary"`
}

// HistoryService reads persisted engine output of the ambient tenant
type HistoryService struct {
	snapshots costing.SnapshotRepository
	orders    fleet.TransportOrderRepository
	now       func() time.Time
}

// NewHistoryService creates a new HistoryService
func NewHistoryService(snapshots costing.SnapshotRepository, orders fleet.TransportOrderRepository) *HistoryService {
	return &HistoryService{snapshots: snapshots, orders: orders, now: time.Now}
}

// History returns snapshots overlapping the period, newest first, and the
// breakdowns when asked for
func (s *HistoryService) History(ctx context.Context, q HistoryQuery) (*HistoryView, error) {
	if _, err := tenant.Require(ctx); err != nil {
		return nil, err
	}
	q.Limit = NormalizeLimit(q.Limit)

	snapshots, err := s.snapshots.QuerySnapshots(ctx, costing.SnapshotQuery{
		Period:       q.Period,
		CostCenterID: q.CostCenterID,
		BasisUnit:    q.BasisUnit,
		OnlyNonZero:  q.OnlyNonZero,
		Limit:        q.Limit,
	})
	if err != nil {
		return nil, fmt.Errorf("query snapshots: %w", err)
	}

	breakdownRows := []BreakdownRow{}
	if q.IncludeBreakdowns {
		breakdowns, err := s.snapshots.QueryBreakdowns(ctx, costing.BreakdownQuery{Period: q.Period, Limit: q.Limit})
		if err != nil {
			return nil, fmt.Errorf("query breakdowns: %w", err)
		}
		breakdownRows, err = s.breakdownRows(ctx, breakdowns)
		if err != nil {
			return nil, err
		}
	}

	snapshotRows := make([]SnapshotRow, len(snapshots))
	for i := range snapshots {
		snapshotRows[i] = toSnapshotRow(&snapshots[i])
	}

	return &HistoryView{
		Meta: HistoryMeta{
			Schema:      HistorySchema,
			Source:      "persisted",
			GeneratedAt: s.now().UTC(),
			PeriodStart: q.Period.Start().Format(valueobject.DateLayout),
			PeriodEnd:   q.Period.End().Format(valueobject.DateLayout),
			Filters: HistoryFilters{
				CostCenterID:      q.CostCenterID,
				BasisUnit:         basisPtr(q.BasisUnit),
				IncludeBreakdowns: q.IncludeBreakdowns,
				OnlyNonZero:       q.OnlyNonZero,
				Limit:             q.Limit,
			},
		},
		Snapshots:  snapshotRows,
		Breakdowns: breakdownRows,
		Summary:    summarizeHistory(snapshots, len(breakdownRows)),
	}, nil
}

func (s *HistoryService) breakdownRows(ctx context.Context, breakdowns []costing.OrderCostBreakdown) ([]BreakdownRow, error) {
	ids := make([]uuid.UUID, 0, len(breakdowns))
	seen := make(map[uuid.UUID]struct{}, len(breakdowns))
	for i := range breakdowns {
		id := breakdowns[i].TransportOrderID
		if _, ok := seen[id]; !ok {
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	orders, err := s.orders.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("load transport orders: %w", err)
	}
	byID := make(map[uuid.UUID]*fleet.TransportOrder, len(orders))
	for i := range orders {
		byID[orders[i].ID] = &orders[i]
	}

	rows := make([]BreakdownRow, len(breakdowns))
	for i := range breakdowns {
		rows[i] = toBreakdownRow(&breakdowns[i], byID[breakdowns[i].TransportOrderID])
	}
	return rows, nil
}

// summarizeHistory totals the snapshots. avg_rate is the mean of the positive
// rates, zero when none is positive.
func summarizeHistory(snapshots []costing.CostRateSnapshot, breakdownCount int) HistorySummary {
	summary := HistorySummary{
		TotalCostSum:   decimal.Zero,
		TotalUnitsSum:  decimal.Zero,
		AvgRate:        decimal.Zero,
		SnapshotCount:  len(snapshots),
		BreakdownCount: breakdownCount,
	}
	rateSum := decimal.Zero
	positive := 0
	for i := range snapshots {
		summary.TotalCostSum = summary.TotalCostSum.Add(snapshots[i].TotalCost)
		summary.TotalUnitsSum = summary.TotalUnitsSum.Add(snapshots[i].TotalUnits)
		if snapshots[i].Rate.IsPositive() {
			rateSum = rateSum.Add(snapshots[i].Rate)
			positive++
		}
	}
	if positive > 0 {
		summary.AvgRate = costing.RoundRate(rateSum.Div(decimal.NewFromInt(int64(positive))))
	}
	return summary
}

func toSnapshotRow(s *costing.CostRateSnapshot) SnapshotRow {
	return SnapshotRow{
		PeriodStart:    s.Period.Start().Format(valueobject.DateLayout),
		PeriodEnd:      s.Period.End().Format(valueobject.DateLayout),
		CostCenterID:   s.CostCenterID,
		CostCenterName: s.CostCenterName,
		BasisUnit:      string(s.BasisUnit),
		TotalCost:      s.TotalCost,
		TotalUnits:     s.TotalUnits,
		Rate:           s.Rate,
		Status:         string(s.Status),
		EngineVersion:  s.EngineVersion,
	}
}

func toBreakdownRow(b *costing.OrderCostBreakdown, order *fleet.TransportOrder) BreakdownRow {
	row := BreakdownRow{
		OrderID:        b.TransportOrderID,
		OrderReference: b.OrderReference,
		PeriodStart:    b.Period.Start().Format(valueobject.DateLayout),
		PeriodEnd:      b.Period.End().Format(valueobject.DateLayout),
		VehicleAlloc:   b.VehicleAlloc,
		OverheadAlloc:  b.OverheadAlloc,
		DirectCost:     b.DirectCost,
		TotalCost:      b.TotalCost,
		Revenue:        b.Revenue,
		Profit:         b.Profit,
		Margin:         b.Margin,
		Status:         string(b.Status),
	}
	if order != nil {
		date := order.Date.Format(valueobject.DateLayout)
		distance := order.DistanceKm
		row.OrderDate = &date
		row.CustomerName = &order.CustomerName
		row.Origin = &order.Origin
		row.Destination = &order.Destination
		row.DistanceKm = &distance
	}
	return row
}
