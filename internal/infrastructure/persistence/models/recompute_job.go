package models

import (
	"time"

	"github.com/google/uuid"
)

// RecomputeJobStatus is the state of a scheduled recompute
type RecomputeJobStatus string

const (
	RecomputeJobPending   RecomputeJobStatus = "pending"
	RecomputeJobRunning   RecomputeJobStatus = "running"
	RecomputeJobCompleted RecomputeJobStatus = "completed"
	RecomputeJobFailed    RecomputeJobStatus = "failed"
)

// RecomputeJobModel audits one scheduled recompute. Rows span tenants and are
// written through the unscoped path.
type RecomputeJobModel struct {
	ID          uuid.UUID          `gorm:"type:uuid;primary_key"`
	TenantID    *uuid.UUID         `gorm:"type:uuid;index"`
	PeriodStart time.Time          `gorm:"type:date;not null"`
	PeriodEnd   time.Time          `gorm:"type:date;not null"`
	Status      RecomputeJobStatus `gorm:"type:varchar(20);not null;index"`
	Attempts    int                `gorm:"not null;default:0"`
	Error       string             `gorm:"type:text"`
	StartedAt   *time.Time
	CompletedAt *time.Time
	CreatedAt   time.Time `gorm:"not null"`
	UpdatedAt   time.Time `gorm:"not null"`
}

// TableName returns the table name for GORM
func (RecomputeJobModel) TableName() string {
	return "recompute_jobs"
}
