// Package scheduler runs cost engine recomputes in the background: a worker
// pool with per-job timeout and retry, fed daily by a cron loop.
package scheduler

import (
	"context"
	"sync"
	"time"

	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/infrastructure/persistence/models"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// JobStatus represents the status of a scheduled job
type JobStatus string

const (
	JobStatusPending JobStatus = "PENDING"
	JobStatusRunning JobStatus = "RUNNING"
	JobStatusSuccess JobStatus = "SUCCESS"
	JobStatusFailed  JobStatus = "FAILED"
)

// Job is one recompute of one tenant and period
type Job struct {
	ID          uuid.UUID
	TenantID    uuid.UUID
	Period      valueobject.Period
	Status      JobStatus
	Error       string
	StartedAt   *time.Time
	CompletedAt *time.Time
	RetryCount  int
	MaxRetries  int
	NextRetryAt *time.Time

	// record is the audit row, nil when auditing is off or failed
	record *models.RecomputeJobModel
}

// NewJob creates a new job instance
func NewJob(tenantID uuid.UUID, period valueobject.Period, maxRetries int) *Job {
	return &Job{
		ID:         uuid.New(),
		TenantID:   tenantID,
		Period:     period,
		Status:     JobStatusPending,
		MaxRetries: maxRetries,
	}
}

// Start marks the job as running
func (j *Job) Start() {
	now := time.Now()
	j.Status = JobStatusRunning
	j.StartedAt = &now
	j.Error = ""
}

// Complete marks the job as successful
func (j *Job) Complete() {
	now := time.Now()
	j.Status = JobStatusSuccess
	j.CompletedAt = &now
}

// Fail marks the job as failed
func (j *Job) Fail(err string) {
	now := time.Now()
	j.Status = JobStatusFailed
	j.CompletedAt = &now
	j.Error = err
}

// ShouldRetry returns true if the job should be retried
func (j *Job) ShouldRetry() bool {
	return j.Status == JobStatusFailed && j.RetryCount < j.MaxRetries
}

// ScheduleRetry schedules the job for retry
func (j *Job) ScheduleRetry(delay time.Duration) {
	j.RetryCount++
	j.Status = JobStatusPending
	nextRetry := time.Now().Add(delay)
	j.NextRetryAt = &nextRetry
	j.Error = ""
}

// JobExecutor is the interface for executing recompute jobs
type JobExecutor interface {
	Execute(ctx context.Context, job *Job) error
}

// JobAudit persists the lifecycle of jobs.
// persistence.GormRecomputeJobRepository implements it.
type JobAudit interface {
	Start(ctx context.Context, tenantID uuid.UUID, period valueobject.Period) (*models.RecomputeJobModel, error)
	Retry(ctx context.Context, job *models.RecomputeJobModel) error
	Finish(ctx context.Context, job *models.RecomputeJobModel, runErr error) error
}

// SchedulerConfig holds scheduler configuration
type SchedulerConfig struct {
	Enabled           bool
	MaxConcurrentJobs int
	JobTimeout        time.Duration
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultSchedulerConfig returns default scheduler configuration
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Enabled:           true,
		MaxConcurrentJobs: 3,
		JobTimeout:        30 * time.Minute,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
	}
}

// Scheduler manages queued recompute jobs
type Scheduler struct {
	config   SchedulerConfig
	executor JobExecutor
	audit    JobAudit
	logger   *zap.Logger

	jobs      chan *Job
	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool
}

// NewScheduler creates a new scheduler instance. audit may be nil.
func NewScheduler(config SchedulerConfig, executor JobExecutor, audit JobAudit, logger *zap.Logger) *Scheduler {
	if config.MaxConcurrentJobs <= 0 {
		config.MaxConcurrentJobs = 1
	}
	return &Scheduler{
		config:   config,
		executor: executor,
		audit:    audit,
		logger:   logger,
		jobs:     make(chan *Job, 100),
	}
}

// Start starts the scheduler
func (s *Scheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	for i := 0; i < s.config.MaxConcurrentJobs; i++ {
		s.wg.Add(1)
		go s.worker(ctx, i)
	}

	s.logger.Info("Recompute scheduler started",
		zap.Int("workers", s.config.MaxConcurrentJobs),
		zap.Duration("job_timeout", s.config.JobTimeout),
	)

	return nil
}

// Stop gracefully stops the scheduler
func (s *Scheduler) Stop(ctx context.Context) error {
	s.mu.Lock()
	if !s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = false
	s.mu.Unlock()

	if s.cancel != nil {
		s.cancel()
	}

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.logger.Info("Recompute scheduler stopped gracefully")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Recompute scheduler stop timed out")
		return ctx.Err()
	}
}

// IsRunning reports whether workers are accepting jobs
func (s *Scheduler) IsRunning() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// SubmitJob submits a job for execution
func (s *Scheduler) SubmitJob(ctx context.Context, job *Job) error {
	if !s.IsRunning() {
		return ErrSchedulerNotRunning
	}

	if s.audit != nil && job.record == nil {
		record, err := s.audit.Start(ctx, job.TenantID, job.Period)
		if err != nil {
			s.logger.Warn("Failed to record job start",
				zap.String("tenant_id", job.TenantID.String()),
				zap.Error(err),
			)
		}
		job.record = record
	}

	select {
	case s.jobs <- job:
		s.logger.Debug("Job submitted",
			zap.String("job_id", job.ID.String()),
			zap.String("tenant_id", job.TenantID.String()),
			zap.String("period", job.Period.String()),
		)
		return nil
	default:
		s.finishAudit(ctx, job, ErrJobQueueFull)
		return ErrJobQueueFull
	}
}

func (s *Scheduler) worker(ctx context.Context, workerID int) {
	defer s.wg.Done()

	for {
		select {
		case <-ctx.Done():
			return
		case job := <-s.jobs:
			s.processJob(ctx, job, workerID)
		}
	}
}

func (s *Scheduler) processJob(ctx context.Context, job *Job, workerID int) {
	if job.NextRetryAt != nil {
		wait := time.Until(*job.NextRetryAt)
		if wait > 0 {
			timer := time.NewTimer(wait)
			select {
			case <-ctx.Done():
				timer.Stop()
				s.finishAudit(context.WithoutCancel(ctx), job, ctx.Err())
				return
			case <-timer.C:
			}
		}
	}

	job.Start()
	log := s.logger.With(
		zap.Int("worker_id", workerID),
		zap.String("job_id", job.ID.String()),
		zap.String("tenant_id", job.TenantID.String()),
		zap.String("period", job.Period.String()),
	)
	log.Info("Processing job")

	jobCtx, cancel := context.WithTimeout(ctx, s.config.JobTimeout)
	defer cancel()

	err := s.executor.Execute(jobCtx, job)
	if err == nil {
		job.Complete()
		s.finishAudit(ctx, job, nil)
		log.Info("Job completed successfully")
		return
	}

	job.Fail(err.Error())
	log.Error("Job failed", zap.Error(err))

	if !job.ShouldRetry() || ctx.Err() != nil {
		s.finishAudit(context.WithoutCancel(ctx), job, err)
		return
	}

	job.ScheduleRetry(s.config.RetryDelay)
	if s.audit != nil && job.record != nil {
		if auditErr := s.audit.Retry(ctx, job.record); auditErr != nil {
			log.Warn("Failed to record job retry", zap.Error(auditErr))
		}
	}
	log.Info("Job scheduled for retry",
		zap.Int("retry_count", job.RetryCount),
		zap.Int("max_retries", job.MaxRetries),
	)

	select {
	case s.jobs <- job:
	default:
		log.Warn("Failed to re-queue job for retry")
		s.finishAudit(ctx, job, err)
	}
}

func (s *Scheduler) finishAudit(ctx context.Context, job *Job, runErr error) {
	if s.audit == nil || job.record == nil {
		return
	}
	if err := s.audit.Finish(ctx, job.record, runErr); err != nil {
		s.logger.Warn("Failed to record job completion",
			zap.String("job_id", job.ID.String()),
			zap.Error(err),
		)
	}
}

// ScheduleRecompute submits one job for tenantID and period
func (s *Scheduler) ScheduleRecompute(ctx context.Context, tenantID uuid.UUID, period valueobject.Period) error {
	return s.SubmitJob(ctx, NewJob(tenantID, period, s.config.RetryAttempts))
}
