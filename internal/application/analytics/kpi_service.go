package analytics

import (
	"context"
	"fmt"
	"strings"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/report"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/cache"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// KPISchema is the schema tag of every KPI payload
const KPISchema = "kpi-v1"

// GroupByCostCenter is the only supported structure grouping
const GroupByCostCenter = "cost_center"

// ErrInvalidGroupBy is returned for a grouping other than cost_center
var ErrInvalidGroupBy = shared.NewDomainError("INVALID_GROUP_BY", "group_by must be cost_center")

// ParseGroupBy parses a grouping; an empty value means cost_center
func ParseGroupBy(s string) (string, error) {
	switch g := strings.ToLower(strings.TrimSpace(s)); g {
	case "", GroupByCostCenter:
		return GroupByCostCenter, nil
	default:
		return "", ErrInvalidGroupBy
	}
}

// KPIMeta describes a KPI payload
type KPIMeta struct {
	Schema      string  `json:"schema"`
	PeriodStart string  `json:"period_start"`
	PeriodEnd   string  `json:"period_end"`
	Grain       string  `json:"grain"`
	BasisUnit   *string `json:"basis_unit"`
	GroupBy     string  `json:"group_by,omitempty"`
}

// SummaryKPIs are the headline figures of a period
type SummaryKPIs struct {
	TotalCost            decimal.Decimal `json:"total_cost"`
	TotalUnits           decimal.Decimal `json:"total_units"`
	AvgRate              decimal.Decimal `json:"avg_rate"`
	CostPerUnit          decimal.Decimal `json:"cost_per_unit"`
	SnapshotCount        int64           `json:"snapshot_count"`
	OKCount              int64           `json:"ok_count"`
	MissingActivityCount int64           `json:"missing_activity_count"`
	MissingRateCount     int64           `json:"missing_rate_count"`
}

// SummaryView is the summary payload
type SummaryView struct {
	Meta KPIMeta     `json:"meta"`
	KPIs SummaryKPIs `json:"kpis"`
}

// StructureItem is the cost share of one group
type StructureItem struct {
	GroupID   uuid.UUID       `json:"group_id"`
	GroupName string          `json:"group_name"`
	TotalCost decimal.Decimal `json:"total_cost"`
	SharePct  decimal.Decimal `json:"share_pct"`
}

// StructureTotals totals a structure payload
type StructureTotals struct {
	TotalCost decimal.Decimal `json:"total_cost"`
}

// StructureView is the cost structure payload
type StructureView struct {
	Meta   KPIMeta         `json:"meta"`
	Items  []StructureItem `json:"items"`
	Totals StructureTotals `json:"totals"`
}

// TrendPoint is one bucket of a trend series
type TrendPoint struct {
	PeriodStart string          `json:"period_start"`
	PeriodEnd   string          `json:"period_end"`
	TotalCost   decimal.Decimal `json:"total_cost"`
	TotalUnits  decimal.Decimal `json:"total_units"`
	AvgRate     decimal.Decimal `json:"avg_rate"`
}

// TrendView is the trend payload
type TrendView struct {
	Meta   KPIMeta      `json:"meta"`
	Series []TrendPoint `json:"series"`
}

// SummaryQuery selects a summary; an empty BasisUnit means KM
type SummaryQuery struct {
	Period    valueobject.Period
	BasisUnit costing.BasisUnit
}

// StructureQuery selects a cost structure; an empty BasisUnit means every basis
type StructureQuery struct {
	Period    valueobject.Period
	BasisUnit costing.BasisUnit
	GroupBy   string
}

// TrendQuery selects a trend; an empty BasisUnit means KM and an empty Grain month
type TrendQuery struct {
	Period    valueobject.Period
	BasisUnit costing.BasisUnit
	Grain     Grain
}

// KPIService computes KPI views over persisted snapshots of the ambient tenant
type KPIService struct {
	reports report.CostReportRepository
	cache   *cache.KPICache
}

// NewKPIService creates a new KPIService. A nil cache disables caching.
func NewKPIService(reports report.CostReportRepository, kpiCache *cache.KPICache) *KPIService {
	return &KPIService{reports: reports, cache: kpiCache}
}

// Summary returns totals, the average rate and status counts for the period
func (s *KPIService) Summary(ctx context.Context, q SummaryQuery) (*SummaryView, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if q.BasisUnit == "" {
		q.BasisUnit = costing.BasisUnitKM
	}

	key := cache.KPIKey("summary", tenantID, q.Period, string(q.BasisUnit))
	var view SummaryView
	if s.cache.Get(ctx, key, &view) {
		return &view, nil
	}

	totals, err := s.reports.GetRateTotals(ctx, report.CostReportFilter{Period: q.Period, BasisUnit: q.BasisUnit})
	if err != nil {
		return nil, fmt.Errorf("aggregate snapshots: %w", err)
	}
	missingRate, err := s.reports.CountBreakdowns(ctx, q.Period, costing.BreakdownStatusMissingRate)
	if err != nil {
		return nil, fmt.Errorf("count breakdowns: %w", err)
	}

	avg := totals.AverageRate()
	view = SummaryView{
		Meta: newMeta(q.Period, "period", basisPtr(q.BasisUnit)),
		KPIs: SummaryKPIs{
			TotalCost:            totals.TotalCost,
			TotalUnits:           totals.TotalUnits,
			AvgRate:              avg,
			CostPerUnit:          avg,
			SnapshotCount:        totals.SnapshotCount,
			OKCount:              totals.OKCount,
			MissingActivityCount: totals.MissingActivityCount,
			MissingRateCount:     missingRate,
		},
	}
	s.cache.Set(ctx, key, view)
	return &view, nil
}

// CostStructure returns each cost center's share of the period's total cost,
// largest first
func (s *KPIService) CostStructure(ctx context.Context, q StructureQuery) (*StructureView, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	groupBy, err := ParseGroupBy(q.GroupBy)
	if err != nil {
		return nil, err
	}

	key := cache.KPIKey("structure", tenantID, q.Period, groupBy+"|"+string(q.BasisUnit))
	var view StructureView
	if s.cache.Get(ctx, key, &view) {
		return &view, nil
	}

	centers, err := s.reports.GetCostByCenter(ctx, report.CostReportFilter{Period: q.Period, BasisUnit: q.BasisUnit})
	if err != nil {
		return nil, fmt.Errorf("aggregate cost by center: %w", err)
	}

	grand := decimal.Zero
	for _, c := range centers {
		grand = grand.Add(c.TotalCost)
	}

	items := make([]StructureItem, len(centers))
	for i, c := range centers {
		items[i] = StructureItem{
			GroupID:   c.CostCenterID,
			GroupName: c.CostCenterName,
			TotalCost: c.TotalCost,
			SharePct:  SharePct(c.TotalCost, grand),
		}
	}

	meta := newMeta(q.Period, "period", basisPtr(q.BasisUnit))
	meta.GroupBy = groupBy
	view = StructureView{
		Meta:   meta,
		Items:  items,
		Totals: StructureTotals{TotalCost: grand},
	}
	s.cache.Set(ctx, key, view)
	return &view, nil
}

// Trend returns one point per month or week of the period. Each point
// aggregates the snapshots overlapping its bucket.
func (s *KPIService) Trend(ctx context.Context, q TrendQuery) (*TrendView, error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if q.BasisUnit == "" {
		q.BasisUnit = costing.BasisUnitKM
	}
	grain, err := ParseGrain(string(q.Grain))
	if err != nil {
		return nil, err
	}

	key := cache.KPIKey("trend", tenantID, q.Period, string(grain)+"|"+string(q.BasisUnit))
	var view TrendView
	if s.cache.Get(ctx, key, &view) {
		return &view, nil
	}

	buckets := Buckets(q.Period, grain)
	series := make([]TrendPoint, 0, len(buckets))
	for _, bucket := range buckets {
		totals, err := s.reports.GetRateTotals(ctx, report.CostReportFilter{Period: bucket, BasisUnit: q.BasisUnit})
		if err != nil {
			return nil, fmt.Errorf("aggregate bucket %s: %w", bucket, err)
		}
		series = append(series, TrendPoint{
			PeriodStart: bucket.Start().Format(valueobject.DateLayout),
			PeriodEnd:   bucket.End().Format(valueobject.DateLayout),
			TotalCost:   totals.TotalCost,
			TotalUnits:  totals.TotalUnits,
			AvgRate:     totals.AverageRate(),
		})
	}

	logger.L(ctx).Debug("KPI trend computed",
		zap.String("grain", string(grain)),
		zap.Int("buckets", len(series)),
	)

	view = TrendView{
		Meta:   newMeta(q.Period, string(grain), basisPtr(q.BasisUnit)),
		Series: series,
	}
	s.cache.Set(ctx, key, view)
	return &view, nil
}

// SharePct is part over total as a percentage with two decimals, zero when total is zero
func SharePct(part, total decimal.Decimal) decimal.Decimal {
	if total.IsZero() {
		return decimal.Zero
	}
	return part.Div(total).Mul(decimal.NewFromInt(100)).Round(2)
}

func newMeta(period valueobject.Period, grain string, basis *string) KPIMeta {
	return KPIMeta{
		Schema:      KPISchema,
		PeriodStart: period.Start().Format(valueobject.DateLayout),
		PeriodEnd:   period.End().Format(valueobject.DateLayout),
		Grain:       grain,
		BasisUnit:   basis,
	}
}

func basisPtr(b costing.BasisUnit) *string {
	if b == "" {
		return nil
	}
	s := string(b)
	return &s
}
