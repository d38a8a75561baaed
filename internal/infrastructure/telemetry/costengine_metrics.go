package telemetry

import (
	"context"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
	"go.uber.org/zap"
)

// CostEngineMetrics tracks cost engine runs and the rows they persist.
type CostEngineMetrics struct {
	meter  metric.Meter
	logger *zap.Logger

	runsTotal         *Counter
	runDuration       *Histogram
	snapshotsWritten  *Counter
	breakdownsWritten *Counter
}

// CostEngineMetricsConfig holds configuration for cost engine metrics.
type CostEngineMetricsConfig struct {
	Meter  metric.Meter
	Logger *zap.Logger
}

// RunStatus is the outcome of a cost engine run for metrics labeling.
type RunStatus string

const (
	RunStatusSuccess RunStatus = "success"
	RunStatusFailed  RunStatus = "failed"
	RunStatusBusy    RunStatus = "busy"
)

// RunTrigger tells what started a run.
type RunTrigger string

const (
	RunTriggerAPI       RunTrigger = "api"
	RunTriggerCommand   RunTrigger = "command"
	RunTriggerScheduler RunTrigger = "scheduler"
)

// RunDurationBuckets are bucket boundaries for full engine runs (seconds).
var RunDurationBuckets = []float64{0.01, 0.05, 0.1, 0.5, 1, 2.5, 5, 10, 30, 60}

// NewCostEngineMetrics creates a new CostEngineMetrics instance.
func NewCostEngineMetrics(cfg CostEngineMetricsConfig) (*CostEngineMetrics, error) {
	if cfg.Meter == nil {
		return nil, ErrMeterNil
	}

	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	m := &CostEngineMetrics{
		meter:  cfg.Meter,
		logger: logger,
	}

	var err error
	m.runsTotal, err = NewCounter(
		cfg.Meter,
		"costengine_runs_total",
		"Total number of cost engine runs",
		"{runs}",
	)
	if err != nil {
		return nil, err
	}

	m.runDuration, err = NewHistogram(cfg.Meter, HistogramOpts{
		Name:        "costengine_run_duration_seconds",
		Description: "Duration of cost engine runs",
		Unit:        "s",
		Boundaries:  RunDurationBuckets,
	})
	if err != nil {
		return nil, err
	}

	m.snapshotsWritten, err = NewCounter(
		cfg.Meter,
		"costengine_snapshots_written_total",
		"Total number of rate snapshots persisted",
		"{snapshots}",
	)
	if err != nil {
		return nil, err
	}

	m.breakdownsWritten, err = NewCounter(
		cfg.Meter,
		"costengine_breakdowns_written_total",
		"Total number of order breakdowns persisted",
		"{breakdowns}",
	)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// RecordRun records one finished run and its wall time.
func (m *CostEngineMetrics) RecordRun(ctx context.Context, tenantID uuid.UUID, trigger RunTrigger, status RunStatus, dryRun bool, d time.Duration) {
	attrs := []attribute.KeyValue{
		AttrTenantID.String(tenantID.String()),
		AttrRunTrigger.String(string(trigger)),
		AttrRunStatus.String(string(status)),
		AttrDryRun.Bool(dryRun),
	}
	m.runsTotal.Inc(ctx, attrs...)
	m.runDuration.RecordDuration(ctx, d, attrs...)
}

// RecordWritten records the rows persisted by a run.
func (m *CostEngineMetrics) RecordWritten(ctx context.Context, tenantID uuid.UUID, snapshots, breakdowns int) {
	m.snapshotsWritten.Add(ctx, int64(snapshots), AttrTenantID.String(tenantID.String()))
	m.breakdownsWritten.Add(ctx, int64(breakdowns), AttrTenantID.String(tenantID.String()))
}

// ErrMeterNil is returned when meter is nil.
var ErrMeterNil = &MetricsError{Op: "NewCostEngineMetrics", Err: "meter cannot be nil"}

// MetricsError represents a metrics-related error.
type MetricsError struct {
	Op  string
	Err string
}

func (e *MetricsError) Error() string {
	return e.Op + ": " + e.Err
}
