package scheduler

import (
	"context"

	"github.com/fleetcost/backend/internal/application/costengine"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/fleetcost/backend/internal/infrastructure/telemetry"
	"go.uber.org/zap"
)

// Recomputer persists one cost engine run for the ambient tenant
type Recomputer interface {
	Run(ctx context.Context, in costengine.RunInput) (*costengine.Result, error)
}

// RecomputeExecutor runs each job inside its own tenant scope
type RecomputeExecutor struct {
	recomputer Recomputer
	logger     *zap.Logger
}

// NewRecomputeExecutor creates a new RecomputeExecutor
func NewRecomputeExecutor(recomputer Recomputer, logger *zap.Logger) *RecomputeExecutor {
	return &RecomputeExecutor{recomputer: recomputer, logger: logger}
}

// Execute implements JobExecutor
func (e *RecomputeExecutor) Execute(ctx context.Context, job *Job) error {
	ctx = logger.WithContext(ctx, e.logger.With(zap.String("job_id", job.ID.String())))
	return tenant.Run(ctx, job.TenantID, func(ctx context.Context) error {
		_, err := e.recomputer.Run(ctx, costengine.RunInput{
			Period:  job.Period,
			Trigger: telemetry.RunTriggerScheduler,
		})
		return err
	})
}
