package telemetry_test

import (
	"context"
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/infrastructure/telemetry"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/metric/noop"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
)

func TestNewCostEngineMetrics(t *testing.T) {
	meter := noop.NewMeterProvider().Meter("test")

	m, err := telemetry.NewCostEngineMetrics(telemetry.CostEngineMetricsConfig{
		Meter:  meter,
		Logger: zap.NewNop(),
	})

	require.NoError(t, err)
	require.NotNil(t, m)
}

func TestNewCostEngineMetrics_NilMeter(t *testing.T) {
	m, err := telemetry.NewCostEngineMetrics(telemetry.CostEngineMetricsConfig{})

	require.Error(t, err)
	assert.Nil(t, m)
	assert.Equal(t, "NewCostEngineMetrics: meter cannot be nil", err.Error())
}

func TestCostEngineMetrics_Record(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	defer func() { _ = provider.Shutdown(context.Background()) }()

	m, err := telemetry.NewCostEngineMetrics(telemetry.CostEngineMetricsConfig{
		Meter: provider.Meter("costengine"),
	})
	require.NoError(t, err)

	ctx := context.Background()
	tenantID := uuid.New()
	m.RecordRun(ctx, tenantID, telemetry.RunTriggerAPI, telemetry.RunStatusSuccess, false, 120*time.Millisecond)
	m.RecordRun(ctx, tenantID, telemetry.RunTriggerScheduler, telemetry.RunStatusFailed, false, time.Second)
	m.RecordWritten(ctx, tenantID, 3, 5)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))

	sums := map[string]int64{}
	var histogramSeen bool
	for _, sm := range rm.ScopeMetrics {
		for _, metric := range sm.Metrics {
			switch data := metric.Data.(type) {
			case metricdata.Sum[int64]:
				for _, dp := range data.DataPoints {
					sums[metric.Name] += dp.Value
				}
			case metricdata.Histogram[float64]:
				if metric.Name == "costengine_run_duration_seconds" {
					histogramSeen = true
				}
			}
		}
	}

	assert.Equal(t, int64(2), sums["costengine_runs_total"])
	assert.Equal(t, int64(3), sums["costengine_snapshots_written_total"])
	assert.Equal(t, int64(5), sums["costengine_breakdowns_written_total"])
	assert.True(t, histogramSeen)
}
