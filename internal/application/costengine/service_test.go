package costengine

import (
	"context"
	"errors"
	"runtime/pprof"
	"sync"
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/fleet"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/lock"
	"github.com/fleetcost/backend/internal/infrastructure/persistence"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/fleetcost/backend/internal/infrastructure/telemetry"
	"github.com/fleetcost/backend/internal/testutil"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	"gorm.io/gorm"
)

type recordingInvalidator struct {
	mu      sync.Mutex
	tenants []uuid.UUID
}

func (r *recordingInvalidator) InvalidateTenant(_ context.Context, tenantID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tenants = append(r.tenants, tenantID)
}

type failingSnapshots struct {
	costing.SnapshotRepository
	err error
}

func (f failingSnapshots) SaveRun(context.Context, valueobject.Period, []costing.CostRateSnapshot, []costing.OrderCostBreakdown) error {
	return f.err
}

// labelledSnapshots records the pprof labels the save ran under
type labelledSnapshots struct {
	costing.SnapshotRepository
	labels map[string]string
}

func (l *labelledSnapshots) SaveRun(ctx context.Context, period valueobject.Period, snapshots []costing.CostRateSnapshot, breakdowns []costing.OrderCostBreakdown) error {
	pprof.ForLabels(ctx, func(key, value string) bool {
		l.labels[key] = value
		return true
	})
	return l.SnapshotRepository.SaveRun(ctx, period, snapshots, breakdowns)
}

type serviceFixture struct {
	db        *gorm.DB
	snapshots *persistence.GormSnapshotRepository
	postings  *persistence.GormCostPostingRepository
	engine    *Engine
}

func newServiceFixture(t *testing.T) *serviceFixture {
	db := testutil.NewSQLiteDB(t)
	f := &serviceFixture{
		db:        db,
		snapshots: persistence.NewGormSnapshotRepository(db),
		postings:  persistence.NewGormCostPostingRepository(db),
	}
	f.engine = NewEngine(
		persistence.NewGormCostCenterRepository(db),
		f.postings,
		persistence.NewGormTransportOrderRepository(db),
		EngineConfig{EngineVersion: "test"},
	)
	return f
}

// seedBasic stores the basic allocation scenario for the tenant of ctx and
// returns the vehicle cost center.
func (f *serviceFixture) seedBasic(t *testing.T, ctx context.Context) *costing.CostCenter {
	t.Helper()
	vehicle, err := fleet.NewVehicle("FC-100", "Volvo", "FH")
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormVehicleRepository(f.db).Save(ctx, vehicle))

	centers := persistence.NewGormCostCenterRepository(f.db)
	vehicleCenter, err := costing.NewVehicleCostCenter(vehicle.ID, vehicle.Plate)
	require.NoError(t, err)
	vehicleCenter.CreatedAt = time.Date(2025, 12, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, centers.Save(ctx, vehicleCenter))
	overhead, err := costing.NewCostCenter("Overhead", costing.CostCenterTypeOverhead, nil, nil, "")
	require.NoError(t, err)
	overhead.CreatedAt = time.Date(2025, 12, 2, 0, 0, 0, 0, time.UTC)
	require.NoError(t, centers.Save(ctx, overhead))

	item, err := costing.NewCostItem("Lease", costing.CostCategoryFixed, costing.CostUnitMonth)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormCostItemRepository(f.db).Save(ctx, item))

	f.post(t, ctx, item.ID, vehicleCenter.ID, "2000")
	f.post(t, ctx, item.ID, overhead.ID, "500")

	order, err := fleet.NewTransportOrder(fleet.NewTransportOrderInput{
		Reference:         "ORD-1",
		CustomerName:      "ACME",
		Date:              time.Date(2026, 1, 10, 0, 0, 0, 0, time.UTC),
		DistanceKm:        dec("400"),
		AgreedPrice:       dec("1700"),
		AssignedVehicleID: &vehicle.ID,
	})
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormTransportOrderRepository(f.db).Save(ctx, order))

	return vehicleCenter
}

func (f *serviceFixture) post(t *testing.T, ctx context.Context, itemID, centerID uuid.UUID, amount string) {
	t.Helper()
	p, err := costing.NewCostPosting(itemID, centerID, dec(amount), january, "")
	require.NoError(t, err)
	require.NoError(t, f.postings.Save(ctx, p))
}

func TestService_Run_PersistsResult(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())
	f.seedBasic(t, ctx)

	invalidator := &recordingInvalidator{}
	metrics, err := telemetry.NewCostEngineMetrics(telemetry.CostEngineMetricsConfig{Meter: noop.NewMeterProvider().Meter("test")})
	require.NoError(t, err)
	svc := NewService(f.engine, f.snapshots, WithKPIInvalidator(invalidator), WithMetrics(metrics))

	result, err := svc.Run(ctx, RunInput{Period: january})
	require.NoError(t, err)
	assert.True(t, result.Persisted)

	stored, err := f.snapshots.ListSnapshotsForPeriod(ctx, january)
	require.NoError(t, err)
	assert.Len(t, stored, 2)
	for _, s := range stored {
		assert.Equal(t, testutil.TestTenantID(), s.TenantID)
		assert.Equal(t, "test", s.EngineVersion)
	}

	breakdowns, err := f.snapshots.ListBreakdownsForPeriod(ctx, january)
	require.NoError(t, err)
	require.Len(t, breakdowns, 1)
	assert.True(t, dec("-47.0589").Equal(breakdowns[0].Margin))

	assert.Equal(t, []uuid.UUID{testutil.TestTenantID()}, invalidator.tenants)
}

func TestService_Run_IsIdempotent(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())
	vehicleCenter := f.seedBasic(t, ctx)
	svc := NewService(f.engine, f.snapshots)

	_, err := svc.Run(ctx, RunInput{Period: january})
	require.NoError(t, err)

	item, err := costing.NewCostItem("Fuel", costing.CostCategoryVariable, costing.CostUnitKM)
	require.NoError(t, err)
	require.NoError(t, persistence.NewGormCostItemRepository(f.db).Save(ctx, item))
	f.post(t, ctx, item.ID, vehicleCenter.ID, "400")

	_, err = svc.Run(ctx, RunInput{Period: january})
	require.NoError(t, err)

	stored, err := f.snapshots.ListSnapshotsForPeriod(ctx, january)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	snap, err := f.snapshots.FindSnapshotByKey(ctx, costing.SnapshotKey{
		Period:       january,
		CostCenterID: vehicleCenter.ID,
		BasisUnit:    costing.BasisUnitKM,
	})
	require.NoError(t, err)
	assert.True(t, dec("2400").Equal(snap.TotalCost))
	assert.True(t, dec("6").Equal(snap.Rate))

	breakdowns, err := f.snapshots.ListBreakdownsForPeriod(ctx, january)
	require.NoError(t, err)
	require.Len(t, breakdowns, 1)
	assert.True(t, dec("2400").Equal(breakdowns[0].VehicleAlloc))
}

func TestService_Run_RecomputeDropsDeactivatedCenter(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())
	vehicleCenter := f.seedBasic(t, ctx)
	svc := NewService(f.engine, f.snapshots)

	_, err := svc.Run(ctx, RunInput{Period: january})
	require.NoError(t, err)
	stored, err := f.snapshots.ListSnapshotsForPeriod(ctx, january)
	require.NoError(t, err)
	require.Len(t, stored, 2)

	centers := persistence.NewGormCostCenterRepository(f.db)
	for _, s := range stored {
		if s.CostCenterType != costing.CostCenterTypeOverhead {
			continue
		}
		center, err := centers.FindByID(ctx, s.CostCenterID)
		require.NoError(t, err)
		require.NoError(t, center.Deactivate())
		require.NoError(t, centers.Save(ctx, center))
	}

	second, err := svc.Run(ctx, RunInput{Period: january})
	require.NoError(t, err)
	require.Len(t, second.Snapshots, 1)

	stored, err = f.snapshots.ListSnapshotsForPeriod(ctx, january)
	require.NoError(t, err)
	require.Len(t, stored, 1, "stored rows match the latest run")
	assert.Equal(t, vehicleCenter.ID, stored[0].CostCenterID)

	breakdowns, err := f.snapshots.ListBreakdownsForPeriod(ctx, january)
	require.NoError(t, err)
	require.Len(t, breakdowns, 1)
	assert.True(t, breakdowns[0].OverheadAlloc.IsZero())
}

func TestService_Run_DryRunDoesNotPersist(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())
	f.seedBasic(t, ctx)
	invalidator := &recordingInvalidator{}
	svc := NewService(f.engine, f.snapshots, WithKPIInvalidator(invalidator))

	result, err := svc.Run(ctx, RunInput{Period: january, DryRun: true})
	require.NoError(t, err)
	assert.False(t, result.Persisted)
	assert.Len(t, result.Snapshots, 2)

	stored, err := f.snapshots.ListSnapshotsForPeriod(ctx, january)
	require.NoError(t, err)
	assert.Empty(t, stored)
	assert.Empty(t, invalidator.tenants)
}

func TestService_Run_OtherTenantSeesNothing(t *testing.T) {
	f := newServiceFixture(t)
	ctxA := testutil.EnterTenant(t, testutil.TestTenantID())
	f.seedBasic(t, ctxA)
	svc := NewService(f.engine, f.snapshots)

	_, err := svc.Run(ctxA, RunInput{Period: january})
	require.NoError(t, err)

	ctxB := testutil.EnterTenant(t, testutil.OtherTenantID())
	result, err := svc.Run(ctxB, RunInput{Period: january})
	require.NoError(t, err)
	assert.Empty(t, result.Snapshots)
	assert.Empty(t, result.Breakdowns)

	storedB, err := f.snapshots.ListSnapshotsForPeriod(ctxB, january)
	require.NoError(t, err)
	assert.Empty(t, storedB)

	storedA, err := f.snapshots.ListSnapshotsForPeriod(ctxA, january)
	require.NoError(t, err)
	assert.Len(t, storedA, 2)
}

func TestService_Run_RecomputeInProgress(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())
	locker := lock.NewLocalLocker(lock.Options{})
	svc := NewService(f.engine, f.snapshots, WithLocker(locker))

	held, err := locker.Obtain(ctx, RecomputeLockKey(testutil.TestTenantID(), january))
	require.NoError(t, err)

	_, err = svc.Run(ctx, RunInput{Period: january})
	assert.ErrorIs(t, err, ErrRecomputeInProgress)

	// dry runs never take the lock
	_, err = svc.Run(ctx, RunInput{Period: january, DryRun: true})
	assert.NoError(t, err)

	require.NoError(t, held.Release(ctx))
	_, err = svc.Run(ctx, RunInput{Period: january})
	assert.NoError(t, err)
}

// expiredLocker hands out locks whose TTL has already run out
type expiredLocker struct {
	lock.Locker
}

type expiredLock struct {
	lock.Lock
}

func (l expiredLocker) Obtain(ctx context.Context, key string) (lock.Lock, error) {
	held, err := l.Locker.Obtain(ctx, key)
	if err != nil {
		return nil, err
	}
	return expiredLock{held}, nil
}

func (expiredLock) Refresh(context.Context) error {
	return lock.ErrLockLost
}

func TestService_Run_LockLostBeforePersist(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())
	f.seedBasic(t, ctx)
	invalidator := &recordingInvalidator{}
	svc := NewService(f.engine, f.snapshots,
		WithLocker(expiredLocker{lock.NewLocalLocker(lock.Options{})}),
		WithKPIInvalidator(invalidator),
	)

	result, err := svc.Run(ctx, RunInput{Period: january})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrRecomputeInProgress)
	assert.ErrorIs(t, err, lock.ErrLockLost)
	assert.Empty(t, invalidator.tenants)

	stored, err := f.snapshots.ListSnapshotsForPeriod(ctx, january)
	require.NoError(t, err)
	assert.Empty(t, stored)
}

func TestService_Run_ProfilingLabels(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())
	f.seedBasic(t, ctx)
	recorded := &labelledSnapshots{SnapshotRepository: f.snapshots, labels: map[string]string{}}
	svc := NewService(f.engine, recorded)

	_, err := svc.Run(ctx, RunInput{Period: january, Trigger: telemetry.RunTriggerCommand})
	require.NoError(t, err)

	assert.Equal(t, map[string]string{
		telemetry.ProfilingLabelOperation: telemetry.OperationCostEngineRun,
		telemetry.ProfilingLabelTenantID:  testutil.TestTenantID().String(),
		telemetry.ProfilingLabelPeriod:    january.String(),
		telemetry.ProfilingLabelTrigger:   string(telemetry.RunTriggerCommand),
	}, recorded.labels)

	// the caller's context is left unlabelled
	_, labelled := pprof.Label(ctx, telemetry.ProfilingLabelTenantID)
	assert.False(t, labelled)
}

func TestService_Run_PersistenceFailure(t *testing.T) {
	f := newServiceFixture(t)
	ctx := testutil.EnterTenant(t, testutil.TestTenantID())
	f.seedBasic(t, ctx)
	diskFull := errors.New("disk full")
	invalidator := &recordingInvalidator{}
	svc := NewService(f.engine, failingSnapshots{SnapshotRepository: f.snapshots, err: diskFull}, WithKPIInvalidator(invalidator))

	result, err := svc.Run(ctx, RunInput{Period: january})
	require.Error(t, err)
	assert.Nil(t, result)
	assert.ErrorIs(t, err, ErrPersistence)
	assert.ErrorIs(t, err, diskFull)
	assert.Empty(t, invalidator.tenants)
}

func TestService_Run_RequiresTenant(t *testing.T) {
	f := newServiceFixture(t)
	svc := NewService(f.engine, f.snapshots)

	_, err := svc.Run(context.Background(), RunInput{Period: january})
	assert.ErrorIs(t, err, tenant.ErrNoTenant)
}

func TestRecomputeLockKey(t *testing.T) {
	id := uuid.MustParse("11111111-2222-3333-4444-555555555555")
	assert.Equal(t, "costengine:recompute:11111111-2222-3333-4444-555555555555:2026-01-01:2026-01-31",
		RecomputeLockKey(id, january))
}
