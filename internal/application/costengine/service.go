package costengine

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/domain/shared"
	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/lock"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/fleetcost/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	// ErrRecomputeInProgress is returned when another run holds the lock for the same tenant and period
	ErrRecomputeInProgress = shared.NewDomainError("RECOMPUTE_IN_PROGRESS", "A recompute for this tenant and period is already running")
	// ErrPersistence wraps any failure of the PERSIST stage; nothing of the run is kept
	ErrPersistence = shared.NewDomainError("PERSISTENCE", "Failed to persist cost engine results")
)

// KPIInvalidator drops cached analytics of a tenant after new results land
type KPIInvalidator interface {
	InvalidateTenant(ctx context.Context, tenantID uuid.UUID)
}

// RunInput describes one run
type RunInput struct {
	Period  valueobject.Period
	DryRun  bool
	Trigger telemetry.RunTrigger
}

// RecomputeLockKey is the lock key serializing persisted runs of one tenant and period
func RecomputeLockKey(tenantID uuid.UUID, period valueobject.Period) string {
	return fmt.Sprintf("costengine:recompute:%s:%s:%s", tenantID,
		period.Start().Format(valueobject.DateLayout), period.End().Format(valueobject.DateLayout))
}

// Service runs the engine and persists its output
type Service struct {
	engine    *Engine
	snapshots costing.SnapshotRepository
	locker    lock.Locker
	kpiCache  KPIInvalidator
	metrics   *telemetry.CostEngineMetrics
	logger    *zap.Logger
}

// ServiceOption configures a Service
type ServiceOption func(*Service)

// WithLocker sets the recompute locker; the default is an in-process locker
func WithLocker(l lock.Locker) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.locker = l
		}
	}
}

// WithKPIInvalidator sets the cache dropped after a persisted run
func WithKPIInvalidator(c KPIInvalidator) ServiceOption {
	return func(s *Service) {
		s.kpiCache = c
	}
}

// WithMetrics sets the run metrics
func WithMetrics(m *telemetry.CostEngineMetrics) ServiceOption {
	return func(s *Service) {
		s.metrics = m
	}
}

// WithLogger sets the fallback logger used when the context carries none
func WithLogger(l *zap.Logger) ServiceOption {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}

// NewService creates a new Service
func NewService(engine *Engine, snapshots costing.SnapshotRepository, opts ...ServiceOption) *Service {
	s := &Service{
		engine:    engine,
		snapshots: snapshots,
		locker:    lock.NewLocalLocker(lock.Options{}),
		logger:    zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Engine returns the underlying engine
func (s *Service) Engine() *Engine {
	return s.engine
}

// Run calculates the period for the ambient tenant. Unless DryRun is set the
// result replaces any stored result for the period, all or nothing, while
// holding the recompute lock from FETCH through PERSIST. The lock is refreshed
// to a full TTL before PERSIST; a run whose lock already expired persists nothing.
func (s *Service) Run(ctx context.Context, in RunInput) (result *Result, err error) {
	tenantID, err := tenant.Require(ctx)
	if err != nil {
		return nil, err
	}
	if in.Trigger == "" {
		in.Trigger = telemetry.RunTriggerAPI
	}

	// CPU samples of the run carry its tenant, period and trigger
	labels := telemetry.CostEngineRunLabels(tenantID.String(), in.Period.String(), in.Trigger)
	telemetry.WithProfilingLabels(ctx, labels, func(ctx context.Context) {
		result, err = s.run(ctx, tenantID, in)
	})
	return result, err
}

func (s *Service) run(ctx context.Context, tenantID uuid.UUID, in RunInput) (result *Result, err error) {
	base, ok := logger.Lookup(ctx)
	if !ok {
		base = s.logger
	}
	log := logger.WithLogger(ctx, base).With(
		zap.String("period", in.Period.String()),
		zap.Bool("dry_run", in.DryRun),
		zap.String("trigger", string(in.Trigger)),
	)

	ctx, span := telemetry.StartSpan(ctx, "costengine.run",
		telemetry.SpanAttrTenantID, tenantID.String(),
		telemetry.SpanAttrPeriod, in.Period.String(),
		telemetry.SpanAttrDryRun, in.DryRun,
		telemetry.SpanAttrTrigger, string(in.Trigger),
	)
	started := time.Now()
	defer func() {
		telemetry.RecordError(span, err)
		span.End()
		s.recordRun(ctx, tenantID, in, err, time.Since(started))
	}()

	if in.DryRun {
		return s.engine.Calculate(ctx, in.Period)
	}

	held, err := s.locker.Obtain(ctx, RecomputeLockKey(tenantID, in.Period))
	if errors.Is(err, lock.ErrNotObtained) {
		log.Warn("Recompute already running")
		return nil, ErrRecomputeInProgress
	}
	if err != nil {
		return nil, fmt.Errorf("obtain recompute lock: %w", err)
	}
	defer func() {
		if releaseErr := held.Release(context.WithoutCancel(ctx)); releaseErr != nil {
			log.Warn("Failed to release recompute lock", zap.Error(releaseErr))
		}
	}()

	result, err = s.engine.Calculate(ctx, in.Period)
	if err != nil {
		return nil, err
	}

	// a run that outlived its TTL may no longer be the only writer
	if err := held.Refresh(ctx); err != nil {
		if errors.Is(err, lock.ErrLockLost) {
			log.Warn("Recompute lock expired before persist")
			return nil, fmt.Errorf("%w: %w", ErrRecomputeInProgress, err)
		}
		return nil, fmt.Errorf("refresh recompute lock: %w", err)
	}

	persistCtx, persistSpan := telemetry.StartStageSpan(ctx, "persist")
	saveErr := s.snapshots.SaveRun(persistCtx, in.Period, result.Snapshots, result.Breakdowns)
	telemetry.RecordError(persistSpan, saveErr)
	persistSpan.End()
	if saveErr != nil {
		log.Error("Failed to persist cost engine results", zap.Error(saveErr))
		return nil, fmt.Errorf("%w: %w", ErrPersistence, saveErr)
	}
	result.Persisted = true

	if s.metrics != nil {
		s.metrics.RecordWritten(ctx, tenantID, len(result.Snapshots), len(result.Breakdowns))
	}
	if s.kpiCache != nil {
		s.kpiCache.InvalidateTenant(ctx, tenantID)
	}

	log.Info("Cost engine results persisted",
		zap.Int("snapshots", len(result.Snapshots)),
		zap.Int("breakdowns", len(result.Breakdowns)),
		zap.String("total_cost", result.Summary.TotalCost.String()),
		zap.Duration("elapsed", time.Since(started)),
	)
	return result, nil
}

func (s *Service) recordRun(ctx context.Context, tenantID uuid.UUID, in RunInput, err error, d time.Duration) {
	if s.metrics == nil {
		return
	}
	status := telemetry.RunStatusSuccess
	switch {
	case errors.Is(err, ErrRecomputeInProgress):
		status = telemetry.RunStatusBusy
	case err != nil:
		status = telemetry.RunStatusFailed
	}
	s.metrics.RecordRun(ctx, tenantID, in.Trigger, status, in.DryRun, d)
}
