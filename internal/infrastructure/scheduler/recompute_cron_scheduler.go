package scheduler

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/fleetcost/backend/internal/domain/shared/valueobject"
	"github.com/fleetcost/backend/internal/domain/tenancy"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// cronTickerInterval is the interval at which the cron scheduler checks for execution
const cronTickerInterval = 1 * time.Minute

// RecomputeCronSchedulerConfig holds configuration for the daily recompute
type RecomputeCronSchedulerConfig struct {
	Enabled bool
	// CronHour is the hour (0-23) to run the daily recompute
	CronHour int
	// CronMinute is the minute (0-59) to run the daily recompute
	CronMinute        int
	JobTimeout        time.Duration
	MaxConcurrentJobs int
	RetryAttempts     int
	RetryDelay        time.Duration
}

// DefaultRecomputeCronSchedulerConfig returns default cron scheduler configuration.
// Defaults to running at 2:00 AM daily, disabled.
func DefaultRecomputeCronSchedulerConfig() RecomputeCronSchedulerConfig {
	return RecomputeCronSchedulerConfig{
		Enabled:           false,
		CronHour:          2,
		CronMinute:        0,
		JobTimeout:        30 * time.Minute,
		MaxConcurrentJobs: 3,
		RetryAttempts:     3,
		RetryDelay:        5 * time.Minute,
	}
}

// ParseCronSchedule parses a cron expression "minute hour * * *" to extract hour and minute.
// Returns defaults (2:00) if the expression is empty.
func ParseCronSchedule(cronExpr string) (hour, minute int, err error) {
	hour = 2
	minute = 0

	parts := strings.Fields(cronExpr)
	if len(parts) < 2 {
		return hour, minute, nil
	}

	if parts[0] != "*" {
		if minute, err = parseCronField(parts[0]); err != nil {
			return 2, 0, err
		}
	}
	if parts[1] != "*" {
		if hour, err = parseCronField(parts[1]); err != nil {
			return 2, 0, err
		}
	}

	if minute < 0 || minute > 59 {
		return 2, 0, fmt.Errorf("minute must be 0-59, got %d", minute)
	}
	if hour < 0 || hour > 23 {
		return 2, 0, fmt.Errorf("hour must be 0-23, got %d", hour)
	}
	return hour, minute, nil
}

func parseCronField(s string) (int, error) {
	var val int
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: cron field %q", ErrInvalidConfig, s)
		}
		val = val*10 + int(c-'0')
	}
	return val, nil
}

// TenantLister lists the tenants taking part in scheduled work
type TenantLister interface {
	FindActive(ctx context.Context) ([]tenancy.Tenant, error)
}

// RecomputeCronScheduler recomputes the previous month for every active tenant once a day
type RecomputeCronScheduler struct {
	config    RecomputeCronSchedulerConfig
	tenants   TenantLister
	logger    *zap.Logger
	scheduler *Scheduler
	now       func() time.Time

	cancel    context.CancelFunc
	wg        sync.WaitGroup
	mu        sync.Mutex
	isRunning bool

	lastRunAt *time.Time
	nextRunAt *time.Time
}

// NewRecomputeCronScheduler creates a new cron-based recompute scheduler
func NewRecomputeCronScheduler(
	config RecomputeCronSchedulerConfig,
	executor JobExecutor,
	tenants TenantLister,
	audit JobAudit,
	logger *zap.Logger,
) *RecomputeCronScheduler {
	scheduler := NewScheduler(SchedulerConfig{
		Enabled:           config.Enabled,
		MaxConcurrentJobs: config.MaxConcurrentJobs,
		JobTimeout:        config.JobTimeout,
		RetryAttempts:     config.RetryAttempts,
		RetryDelay:        config.RetryDelay,
	}, executor, audit, logger)

	return &RecomputeCronScheduler{
		config:    config,
		tenants:   tenants,
		logger:    logger,
		scheduler: scheduler,
		now:       time.Now,
	}
}

// Start starts the cron scheduler
func (s *RecomputeCronScheduler) Start(ctx context.Context) error {
	s.mu.Lock()
	if s.isRunning {
		s.mu.Unlock()
		return nil
	}
	s.isRunning = true
	s.mu.Unlock()

	if err := s.scheduler.Start(ctx); err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel

	s.calculateNextRunTime()

	s.wg.Add(1)
	go s.cronLoop(ctx)

	s.logger.Info("Recompute cron scheduler started",
		zap.Int("cron_hour", s.config.CronHour),
		zap.Int("cron_minute", s.config.CronMinute),
		zap.Timep("next_run_at", s.GetNextRunAt()),
	)
	return nil
}

// Stop stops the cron scheduler
func (s *RecomputeCronScheduler) Stop(ctx context.Context) error {
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
		if err := s.scheduler.Stop(ctx); err != nil {
			s.logger.Warn("Error stopping underlying scheduler", zap.Error(err))
		}
		s.logger.Info("Recompute cron scheduler stopped")
		return nil
	case <-ctx.Done():
		s.logger.Warn("Recompute cron scheduler stop timed out")
		return ctx.Err()
	}
}

func (s *RecomputeCronScheduler) cronLoop(ctx context.Context) {
	defer s.wg.Done()

	ticker := time.NewTicker(cronTickerInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case now := <-ticker.C:
			if s.shouldRun(now) {
				s.runDailyRecompute(ctx)
				s.calculateNextRunTime()
			}
		}
	}
}

func (s *RecomputeCronScheduler) shouldRun(now time.Time) bool {
	return now.Hour() == s.config.CronHour && now.Minute() == s.config.CronMinute
}

func (s *RecomputeCronScheduler) calculateNextRunTime() {
	now := s.now()
	next := time.Date(now.Year(), now.Month(), now.Day(), s.config.CronHour, s.config.CronMinute, 0, 0, now.Location())
	if now.After(next) {
		next = next.AddDate(0, 0, 1)
	}

	s.mu.Lock()
	s.nextRunAt = &next
	s.mu.Unlock()
}

// runDailyRecompute submits one job per active tenant for the previous full month
func (s *RecomputeCronScheduler) runDailyRecompute(ctx context.Context) int {
	now := s.now()
	s.mu.Lock()
	s.lastRunAt = &now
	s.mu.Unlock()

	tenants, err := s.tenants.FindActive(ctx)
	if err != nil {
		s.logger.Error("Failed to fetch active tenants for recompute", zap.Error(err))
		return 0
	}

	period := valueobject.PreviousMonth(now)
	submitted := 0
	for i := range tenants {
		if err := s.scheduler.ScheduleRecompute(ctx, tenants[i].ID, period); err != nil {
			s.logger.Error("Failed to submit recompute job",
				zap.String("tenant_id", tenants[i].ID.String()),
				zap.Error(err),
			)
			continue
		}
		submitted++
	}

	s.logger.Info("Daily recompute jobs scheduled",
		zap.String("period", period.String()),
		zap.Int("tenant_count", len(tenants)),
		zap.Int("submitted", submitted),
	)
	return submitted
}

// TriggerManualRun runs the daily recompute now, detached from ctx cancellation
func (s *RecomputeCronScheduler) TriggerManualRun(ctx context.Context) error {
	if !s.running() {
		return ErrSchedulerNotRunning
	}
	go s.runDailyRecompute(context.WithoutCancel(ctx))
	return nil
}

// TriggerTenantRecompute submits one job for tenantID and period
func (s *RecomputeCronScheduler) TriggerTenantRecompute(ctx context.Context, tenantID uuid.UUID, period valueobject.Period) error {
	if !s.running() {
		return ErrSchedulerNotRunning
	}
	return s.scheduler.ScheduleRecompute(context.WithoutCancel(ctx), tenantID, period)
}

func (s *RecomputeCronScheduler) running() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.isRunning
}

// GetStatus returns the current status of the cron scheduler
func (s *RecomputeCronScheduler) GetStatus() map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()

	return map[string]any{
		"enabled":       s.config.Enabled,
		"is_running":    s.isRunning,
		"cron_hour":     s.config.CronHour,
		"cron_minute":   s.config.CronMinute,
		"cron_schedule": "Daily",
		"last_run_at":   s.lastRunAt,
		"next_run_at":   s.nextRunAt,
	}
}

// GetNextRunAt returns when the next scheduled run will occur
func (s *RecomputeCronScheduler) GetNextRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nextRunAt
}

// GetLastRunAt returns when the last run occurred
func (s *RecomputeCronScheduler) GetLastRunAt() *time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.lastRunAt
}
