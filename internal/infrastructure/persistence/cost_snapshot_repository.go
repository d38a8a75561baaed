package persistence

import (
	"context"
	"fmt"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/models"
	"gorm.io/gorm"
)

// GormSnapshotRepository implements SnapshotRepository using GORM.
// Saves replace the row with the same natural key; the unique indexes on
// both tables reject anything that slips past the delete.
type GormSnapshotRepository struct {
	db *gorm.DB
}

// NewGormSnapshotRepository creates a new GormSnapshotRepository
func NewGormSnapshotRepository(db *gorm.DB) *GormSnapshotRepository {
	return &GormSnapshotRepository{db: db}
}

// SaveRun replaces the stored output of period with one run in a single
// transaction. Any failure rolls back the whole run.
func (r *GormSnapshotRepository) SaveRun(ctx context.Context, period valueobject.Period, snapshots []costing.CostRateSnapshot, breakdowns []costing.OrderCostBreakdown) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := clearPeriod(tx, period); err != nil {
			return err
		}
		for i := range snapshots {
			if err := insertSnapshot(tx, &snapshots[i]); err != nil {
				return err
			}
		}
		for i := range breakdowns {
			if err := insertBreakdown(tx, &breakdowns[i]); err != nil {
				return err
			}
		}
		return nil
	})
}

// clearPeriod drops the rows of the previous run of period, including keys
// the new run no longer produces (deactivated centers, orders that left the period)
func clearPeriod(tx *gorm.DB, period valueobject.Period) error {
	if err := tx.Where("period_start = ? AND period_end = ?", period.Start(), period.End()).
		Delete(&models.CostRateSnapshotModel{}).Error; err != nil {
		return fmt.Errorf("clear snapshots %s: %w", period.Key(), err)
	}
	if err := tx.Where("period_start = ? AND period_end = ?", period.Start(), period.End()).
		Delete(&models.OrderCostBreakdownModel{}).Error; err != nil {
		return fmt.Errorf("clear breakdowns %s: %w", period.Key(), err)
	}
	return nil
}

// SaveSnapshot replaces one snapshot
func (r *GormSnapshotRepository) SaveSnapshot(ctx context.Context, snapshot *costing.CostRateSnapshot) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceSnapshot(tx, snapshot)
	})
}

// SaveBreakdown replaces one breakdown
func (r *GormSnapshotRepository) SaveBreakdown(ctx context.Context, breakdown *costing.OrderCostBreakdown) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		return replaceBreakdown(tx, breakdown)
	})
}

func replaceSnapshot(tx *gorm.DB, snapshot *costing.CostRateSnapshot) error {
	key := snapshot.Key()
	if err := tx.Where("period_start = ? AND period_end = ? AND cost_center_id = ? AND basis_unit = ?",
		key.Period.Start(), key.Period.End(), key.CostCenterID, key.BasisUnit).
		Delete(&models.CostRateSnapshotModel{}).Error; err != nil {
		return fmt.Errorf("delete snapshot %s/%s: %w", key.CostCenterID, key.Period.Key(), err)
	}
	return insertSnapshot(tx, snapshot)
}

func insertSnapshot(tx *gorm.DB, snapshot *costing.CostRateSnapshot) error {
	key := snapshot.Key()
	model := &models.CostRateSnapshotModel{}
	model.FromDomain(snapshot)
	if err := tx.Create(model).Error; err != nil {
		return fmt.Errorf("insert snapshot %s/%s: %w", key.CostCenterID, key.Period.Key(), err)
	}
	snapshot.TenantID = model.TenantID
	return nil
}

func replaceBreakdown(tx *gorm.DB, breakdown *costing.OrderCostBreakdown) error {
	key := breakdown.Key()
	if err := tx.Where("transport_order_id = ? AND period_start = ? AND period_end = ?",
		key.TransportOrderID, key.Period.Start(), key.Period.End()).
		Delete(&models.OrderCostBreakdownModel{}).Error; err != nil {
		return fmt.Errorf("delete breakdown %s/%s: %w", key.TransportOrderID, key.Period.Key(), err)
	}
	return insertBreakdown(tx, breakdown)
}

func insertBreakdown(tx *gorm.DB, breakdown *costing.OrderCostBreakdown) error {
	key := breakdown.Key()
	model := &models.OrderCostBreakdownModel{}
	model.FromDomain(breakdown)
	if err := tx.Create(model).Error; err != nil {
		return fmt.Errorf("insert breakdown %s/%s: %w", key.TransportOrderID, key.Period.Key(), err)
	}
	breakdown.TenantID = model.TenantID
	return nil
}

// FindSnapshotByKey finds the snapshot stored under key
func (r *GormSnapshotRepository) FindSnapshotByKey(ctx context.Context, key costing.SnapshotKey) (*costing.CostRateSnapshot, error) {
	var model models.CostRateSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("period_start = ? AND period_end = ? AND cost_center_id = ? AND basis_unit = ?",
			key.Period.Start(), key.Period.End(), key.CostCenterID, key.BasisUnit).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// FindBreakdownByKey finds the breakdown stored under key
func (r *GormSnapshotRepository) FindBreakdownByKey(ctx context.Context, key costing.BreakdownKey) (*costing.OrderCostBreakdown, error) {
	var model models.OrderCostBreakdownModel
	if err := r.db.WithContext(ctx).
		Where("transport_order_id = ? AND period_start = ? AND period_end = ?",
			key.TransportOrderID, key.Period.Start(), key.Period.End()).
		First(&model).Error; err != nil {
		return nil, notFound(err)
	}
	return model.ToDomain(), nil
}

// ListSnapshotsForPeriod returns every snapshot stored for exactly this period
func (r *GormSnapshotRepository) ListSnapshotsForPeriod(ctx context.Context, period valueobject.Period) ([]costing.CostRateSnapshot, error) {
	var snapshotModels []models.CostRateSnapshotModel
	if err := r.db.WithContext(ctx).
		Where("period_start = ? AND period_end = ?", period.Start(), period.End()).
		Order("cost_center_name ASC, basis_unit ASC").
		Find(&snapshotModels).Error; err != nil {
		return nil, err
	}
	return snapshotsToDomain(snapshotModels), nil
}

// ListBreakdownsForPeriod returns every breakdown stored for exactly this period
func (r *GormSnapshotRepository) ListBreakdownsForPeriod(ctx context.Context, period valueobject.Period) ([]costing.OrderCostBreakdown, error) {
	var breakdownModels []models.OrderCostBreakdownModel
	if err := r.db.WithContext(ctx).
		Where("period_start = ? AND period_end = ?", period.Start(), period.End()).
		Order("order_reference ASC").
		Find(&breakdownModels).Error; err != nil {
		return nil, err
	}
	return breakdownsToDomain(breakdownModels), nil
}

// QuerySnapshots returns snapshots overlapping the query period, newest period first
func (r *GormSnapshotRepository) QuerySnapshots(ctx context.Context, q costing.SnapshotQuery) ([]costing.CostRateSnapshot, error) {
	query := r.db.WithContext(ctx).Model(&models.CostRateSnapshotModel{}).
		Where("period_start <= ? AND period_end >= ?", q.Period.End(), q.Period.Start())
	if q.CostCenterID != nil {
		query = query.Where("cost_center_id = ?", *q.CostCenterID)
	}
	if q.BasisUnit != "" {
		query = query.Where("basis_unit = ?", q.BasisUnit)
	}
	if q.OnlyNonZero {
		query = query.Where("total_cost <> 0 OR rate <> 0")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var snapshotModels []models.CostRateSnapshotModel
	if err := query.Order("period_start DESC, created_at DESC, cost_center_name ASC").Find(&snapshotModels).Error; err != nil {
		return nil, err
	}
	return snapshotsToDomain(snapshotModels), nil
}

// QueryBreakdowns returns breakdowns overlapping the query period, newest period first
func (r *GormSnapshotRepository) QueryBreakdowns(ctx context.Context, q costing.BreakdownQuery) ([]costing.OrderCostBreakdown, error) {
	query := r.db.WithContext(ctx).Model(&models.OrderCostBreakdownModel{}).
		Where("period_start <= ? AND period_end >= ?", q.Period.End(), q.Period.Start())
	if q.OnlyNonZero {
		query = query.Where("total_cost <> 0 OR revenue <> 0")
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	var breakdownModels []models.OrderCostBreakdownModel
	if err := query.Order("period_start DESC, created_at DESC, order_reference ASC").Find(&breakdownModels).Error; err != nil {
		return nil, err
	}
	return breakdownsToDomain(breakdownModels), nil
}

func snapshotsToDomain(snapshotModels []models.CostRateSnapshotModel) []costing.CostRateSnapshot {
	snapshots := make([]costing.CostRateSnapshot, len(snapshotModels))
	for i := range snapshotModels {
		snapshots[i] = *snapshotModels[i].ToDomain()
	}
	return snapshots
}

func breakdownsToDomain(breakdownModels []models.OrderCostBreakdownModel) []costing.OrderCostBreakdown {
	breakdowns := make([]costing.OrderCostBreakdown, len(breakdownModels))
	for i := range breakdownModels {
		breakdowns[i] = *breakdownModels[i].ToDomain()
	}
	return breakdowns
}

var _ costing.SnapshotRepository = (*GormSnapshotRepository)(nil)
