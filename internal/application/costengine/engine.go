package costengine

import (
	"context"
	"fmt"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/fleetcost/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// SchemaVersion is the version of the run result layout
const SchemaVersion = 1

// Summary aggregates one run
type Summary struct {
	TotalSnapshots  int             `json:"total_snapshots"`
	TotalBreakdowns int             `json:"total_breakdowns"`
	TotalCost       decimal.Decimal `json:"total_cost"`
	TotalRevenue    decimal.Decimal `json:"total_revenue"`
	TotalProfit     decimal.Decimal `json:"total_profit"`
	AverageMargin   decimal.Decimal `json:"average_margin"`
}

// Result is the output of one calculation
type Result struct {
	TenantID      uuid.UUID
	Period        valueobject.Period
	EngineVersion string
	GeneratedAt   time.Time
	Snapshots     []costing.CostRateSnapshot
	Breakdowns    []costing.OrderCostBreakdown
	Summary       Summary
	Persisted     bool
}

// Summarize totals snapshot cost and breakdown revenue and profit. The
// average margin is the plain mean over breakdowns, zero when there are none.
func Summarize(snapshots []costing.CostRateSnapshot, breakdowns []costing.OrderCostBreakdown) Summary {
	summary := Summary{
		TotalSnapshots:  len(snapshots),
		TotalBreakdowns: len(breakdowns),
		TotalCost:       decimal.Zero,
		TotalRevenue:    decimal.Zero,
		TotalProfit:     decimal.Zero,
		AverageMargin:   decimal.Zero,
	}
	for i := range snapshots {
		summary.TotalCost = summary.TotalCost.Add(snapshots[i].TotalCost)
	}

	marginSum := decimal.Zero
	for i := range breakdowns {
		summary.TotalRevenue = summary.TotalRevenue.Add(breakdowns[i].Revenue)
		summary.TotalProfit = summary.TotalProfit.Add(breakdowns[i].Profit)
		marginSum = marginSum.Add(breakdowns[i].Margin)
	}
	if len(breakdowns) > 0 {
		summary.AverageMargin = marginSum.Div(decimal.NewFromInt(int64(len(breakdowns)))).Round(costing.MarginScale)
	}
	return summary
}

// EngineConfig configures an Engine
type EngineConfig struct {
	EngineVersion  string
	OverheadPolicy costing.OverheadPolicy
}

// Engine computes snapshots and breakdowns for the ambient tenant
type Engine struct {
	centers  costing.CostCenterRepository
	postings costing.CostPostingRepository
	orders   fleet.TransportOrderRepository
	selector OverheadSelector
	version  string
	now      func() time.Time
}

// NewEngine creates a new Engine
func NewEngine(
	centers costing.CostCenterRepository,
	postings costing.CostPostingRepository,
	orders fleet.TransportOrderRepository,
	cfg EngineConfig,
) *Engine {
	version := cfg.EngineVersion
	if version == "" {
		version = "dev"
	}
	policy := cfg.OverheadPolicy
	if policy == "" {
		policy = costing.OverheadPolicyEarliestCreated
	}
	return &Engine{
		centers:  centers,
		postings: postings,
		orders:   orders,
		selector: OverheadSelector{Policy: policy},
		version:  version,
		now:      time.Now,
	}
}

// Version returns the engine version stamped on results
func (e *Engine) Version() string {
	return e.version
}

// Calculate runs FETCH, AGGREGATE, RATE, BREAKDOWN and SUMMARIZE for period.
// It requires an ambient tenant. A tenant without centers or orders yields an
// empty, zero-valued result.
func (e *Engine) Calculate(ctx context.Context, period valueobject.Period) (*Result, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	log := logger.L(ctx).With(zap.String("period", period.String()))

	centers, postings, orders, err := e.fetch(ctx, period)
	if err != nil {
		return nil, err
	}

	overhead, err := e.selector.Select(centers)
	if err != nil {
		return nil, err
	}

	_, span := telemetry.StartStageSpan(ctx, "aggregate")
	costByCenter := AggregatePostings(postings, period)
	activity := AggregateOrders(orders)
	span.End()

	_, span = telemetry.StartStageSpan(ctx, "rate")
	snapshots := BuildSnapshots(centers, costByCenter, activity, period, e.version)
	telemetry.SetAttributes(span, telemetry.SpanAttrSnapshots, len(snapshots))
	span.End()

	_, span = telemetry.StartStageSpan(ctx, "breakdown")
	breakdowns := BuildBreakdowns(BreakdownInput{
		Period:         period,
		Orders:         orders,
		Snapshots:      snapshots,
		VehicleCenters: VehicleCenters(centers),
		Overhead:       overhead,
		EngineVersion:  e.version,
	})
	telemetry.SetAttributes(span, telemetry.SpanAttrBreakdowns, len(breakdowns))
	span.End()

	summary := Summarize(snapshots, breakdowns)

	log.Debug("Cost engine calculated",
		zap.Int("centers", len(centers)),
		zap.Int("postings", len(postings)),
		zap.Int("orders", activity.OrderCount),
		zap.Int("snapshots", len(snapshots)),
		zap.Int("breakdowns", len(breakdowns)),
	)

	return &Result{
		TenantID:      tenantID,
		Period:        period,
		EngineVersion: e.version,
		GeneratedAt:   e.now().UTC(),
		Snapshots:     snapshots,
		Breakdowns:    breakdowns,
		Summary:       summary,
	}, nil
}

// fetch loads the active centers, the postings overlapping period and the
// orders dated inside it.
func (e *Engine) fetch(ctx context.Context, period valueobject.Period) (centers []costing.CostCenter, postings []costing.CostPosting, orders []fleet.TransportOrder, err error) {
	ctx, span := telemetry.StartStageSpan(ctx, "fetch")
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
	}()

	if centers, err = e.centers.FindActive(ctx); err != nil {
		return nil, nil, nil, fmt.Errorf("fetch cost centers: %w", err)
	}
	if postings, err = e.postings.FindOverlapping(ctx, period); err != nil {
		return nil, nil, nil, fmt.Errorf("fetch cost postings: %w", err)
	}
	if orders, err = e.orders.FindForPeriod(ctx, period); err != nil {
		return nil, nil, nil, fmt.Errorf("fetch transport orders: %w", err)
	}
	return centers, postings, orders, nil
}
