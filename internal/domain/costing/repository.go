package costing

import (
	"context"

	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/google/uuid"
)

// All repositories operate on the ambient tenant of ctx.

// CostCenterRepository persists cost centers
type CostCenterRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CostCenter, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]CostCenter, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	// FindActive returns active centers ordered by creation time, then id
	FindActive(ctx context.Context) ([]CostCenter, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, center *CostCenter) error
}

// CostItemRepository persists cost items
type CostItemRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*CostItem, error)
	FindAll(ctx context.Context, filter shared.Filter) ([]CostItem, error)
	Count(ctx context.Context, filter shared.Filter) (int64, error)
	ExistsByName(ctx context.Context, name string) (bool, error)
	Save(ctx context.Context, item *CostItem) error
}

// CostPostingRepository persists cost postings
type CostPostingRepository interface {
	// FindOverlapping returns postings whose own window shares at least one day with period
	FindOverlapping(ctx context.Context, period valueobject.Period) ([]CostPosting, error)
	Save(ctx context.Context, posting *CostPosting) error
}

// SnapshotQuery filters persisted snapshots
type SnapshotQuery struct {
	Period       valueobject.Period
	CostCenterID *uuid.UUID
	BasisUnit    BasisUnit
	OnlyNonZero  bool
	Limit        int
}

// BreakdownQuery filters persisted breakdowns
type BreakdownQuery struct {
	Period      valueobject.Period
	OnlyNonZero bool
	Limit       int
}

// SnapshotRepository stores engine output.
// Every save replaces rows with the same natural key instead of appending.
type SnapshotRepository interface {
	// SaveRun replaces everything stored for exactly period with the output of
	// one run, in a single transaction. Rows of the period whose key the run no
	// longer produces are removed.
	SaveRun(ctx context.Context, period valueobject.Period, snapshots []CostRateSnapshot, breakdowns []OrderCostBreakdown) error
	SaveSnapshot(ctx context.Context, snapshot *CostRateSnapshot) error
	SaveBreakdown(ctx context.Context, breakdown *OrderCostBreakdown) error
	FindSnapshotByKey(ctx context.Context, key SnapshotKey) (*CostRateSnapshot, error)
	FindBreakdownByKey(ctx context.Context, key BreakdownKey) (*OrderCostBreakdown, error)
	// ListSnapshotsForPeriod returns every snapshot stored for exactly this period
	ListSnapshotsForPeriod(ctx context.Context, period valueobject.Period) ([]CostRateSnapshot, error)
	// ListBreakdownsForPeriod returns every breakdown stored for exactly this period
	ListBreakdownsForPeriod(ctx context.Context, period valueobject.Period) ([]OrderCostBreakdown, error)
	// QuerySnapshots returns snapshots overlapping the query period
	QuerySnapshots(ctx context.Context, q SnapshotQuery) ([]CostRateSnapshot, error)
	// QueryBreakdowns returns breakdowns overlapping the query period
	QueryBreakdowns(ctx context.Context, q BreakdownQuery) ([]OrderCostBreakdown, error)
}
