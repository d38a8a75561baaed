package persistence

import (
	"context"
	"sort"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/report"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormCostReportRepository implements CostReportRepository using GORM.
// Every query starts from a tenant-owned Model so the guard applies.
type GormCostReportRepository struct {
	db *gorm.DB
}

// NewGormCostReportRepository creates a new GormCostReportRepository
func NewGormCostReportRepository(db *gorm.DB) *GormCostReportRepository {
	return &GormCostReportRepository{db: db}
}

func (r *GormCostReportRepository) snapshots(ctx context.Context, filter report.CostReportFilter) *gorm.DB {
	query := r.db.WithContext(ctx).Model(&models.CostRateSnapshotModel{}).
		Where("period_start <= ? AND period_end >= ?", filter.Period.End(), filter.Period.Start())
	if filter.BasisUnit != "" {
		query = query.Where("basis_unit = ?", filter.BasisUnit)
	}
	return query
}

// GetRateTotals aggregates every snapshot matching filter
func (r *GormCostReportRepository) GetRateTotals(ctx context.Context, filter report.CostReportFilter) (*report.RateTotals, error) {
	type totalsResult struct {
		TotalCost            decimal.Decimal
		TotalUnits           decimal.Decimal
		RateSum              decimal.Decimal
		SnapshotCount        int64
		OkCount              int64
		MissingActivityCount int64
	}

	var result totalsResult
	err := r.snapshots(ctx, filter).
		Select(`
			COALESCE(SUM(total_cost), 0) as total_cost,
			COALESCE(SUM(total_units), 0) as total_units,
			COALESCE(SUM(rate), 0) as rate_sum,
			COUNT(*) as snapshot_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as ok_count,
			COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0) as missing_activity_count
		`, costing.SnapshotStatusOK, costing.SnapshotStatusMissingActivity).
		Scan(&result).Error
	if err != nil {
		return nil, err
	}

	return &report.RateTotals{
		TotalCost:            costing.RoundMoney(result.TotalCost),
		TotalUnits:           costing.RoundMoney(result.TotalUnits),
		RateSum:              costing.RoundRate(result.RateSum),
		SnapshotCount:        result.SnapshotCount,
		OKCount:              result.OkCount,
		MissingActivityCount: result.MissingActivityCount,
	}, nil
}

// GetCostByCenter sums total cost per cost center, largest first then by name
func (r *GormCostReportRepository) GetCostByCenter(ctx context.Context, filter report.CostReportFilter) ([]report.CostCenterTotal, error) {
	type centerResult struct {
		CostCenterID   uuid.UUID
		CostCenterName string
		TotalCost      decimal.Decimal
	}

	var results []centerResult
	err := r.snapshots(ctx, filter).
		Select("cost_center_id, MAX(cost_center_name) as cost_center_name, COALESCE(SUM(total_cost), 0) as total_cost").
		Group("cost_center_id").
		Scan(&results).Error
	if err != nil {
		return nil, err
	}

	totals := make([]report.CostCenterTotal, len(results))
	for i, res := range results {
		totals[i] = report.CostCenterTotal{
			CostCenterID:   res.CostCenterID,
			CostCenterName: res.CostCenterName,
			TotalCost:      costing.RoundMoney(res.TotalCost),
		}
	}
	sort.SliceStable(totals, func(i, j int) bool {
		if c := totals[i].TotalCost.Cmp(totals[j].TotalCost); c != 0 {
			return c > 0
		}
		return totals[i].CostCenterName < totals[j].CostCenterName
	})
	return totals, nil
}

// CountBreakdowns counts breakdowns with status overlapping period
func (r *GormCostReportRepository) CountBreakdowns(ctx context.Context, period valueobject.Period, status costing.BreakdownStatus) (int64, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.OrderCostBreakdownModel{}).
		Where("period_start <= ? AND period_end >= ?", period.End(), period.Start()).
		Where("status = ?", status).
		Count(&count).Error
	if err != nil {
		return 0, err
	}
	return count, nil
}

var _ report.CostReportRepository = (*GormCostReportRepository)(nil)
