package persistence

import (
	"context"
	"time"

	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/models"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/tenant"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormRecomputeJobRepository records scheduled recomputes. Jobs span tenants
// and are written by the scheduler outside any tenant scope.
type GormRecomputeJobRepository struct {
	db *gorm.DB
}

// NewGormRecomputeJobRepository creates a new GormRecomputeJobRepository
func NewGormRecomputeJobRepository(db *gorm.DB) *GormRecomputeJobRepository {
	return &GormRecomputeJobRepository{db: db}
}

func (r *GormRecomputeJobRepository) session(ctx context.Context) *gorm.DB {
	return tenant.Unscoped(r.db.WithContext(ctx))
}

// Start records a running job for tenantID and period
func (r *GormRecomputeJobRepository) Start(ctx context.Context, tenantID uuid.UUID, period valueobject.Period) (*models.RecomputeJobModel, error) {
	now := time.Now()
	job := &models.RecomputeJobModel{
		ID:          uuid.New(),
		TenantID:    &tenantID,
		PeriodStart: period.Start(),
		PeriodEnd:   period.End(),
		Status:      models.RecomputeJobRunning,
		Attempts:    1,
		StartedAt:   &now,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if err := r.session(ctx).Create(job).Error; err != nil {
		return nil, err
	}
	return job, nil
}

// Retry bumps the attempt counter of a job
func (r *GormRecomputeJobRepository) Retry(ctx context.Context, job *models.RecomputeJobModel) error {
	job.Attempts++
	job.UpdatedAt = time.Now()
	return r.session(ctx).Model(job).Updates(map[string]any{
		"attempts":   job.Attempts,
		"updated_at": job.UpdatedAt,
	}).Error
}

// Finish marks a job completed, or failed when runErr is not nil
func (r *GormRecomputeJobRepository) Finish(ctx context.Context, job *models.RecomputeJobModel, runErr error) error {
	now := time.Now()
	job.CompletedAt = &now
	job.UpdatedAt = now
	job.Status = models.RecomputeJobCompleted
	job.Error = ""
	if runErr != nil {
		job.Status = models.RecomputeJobFailed
		job.Error = runErr.Error()
	}
	return r.session(ctx).Model(job).Updates(map[string]any{
		"status":       job.Status,
		"error":        job.Error,
		"completed_at": job.CompletedAt,
		"updated_at":   job.UpdatedAt,
	}).Error
}

// FindRecent returns the latest jobs, newest first
func (r *GormRecomputeJobRepository) FindRecent(ctx context.Context, limit int) ([]models.RecomputeJobModel, error) {
	if limit <= 0 {
		limit = 50
	}
	var jobs []models.RecomputeJobModel
	if err := r.session(ctx).Order("created_at DESC").Limit(limit).Find(&jobs).Error; err != nil {
		return nil, err
	}
	return jobs, nil
}
