package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

type sampleRow struct {
	ID   uint   `gorm:"primaryKey"`
	Name string `gorm:"size:100"`
}

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&sampleRow{}))
	return db
}

func TestDBMetrics_RecordsQueriesByOperationAndTable(t *testing.T) {
	provider, reader := newManualMeter(t)
	m, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)

	db := setupTestDB(t)
	require.NoError(t, db.Use(m))

	require.NoError(t, db.Create(&sampleRow{Name: "a"}).Error)
	var rows []sampleRow
	require.NoError(t, db.Find(&rows).Error)
	require.NoError(t, db.Model(&sampleRow{}).Where("id = ?", rows[0].ID).Update("name", "b").Error)

	metrics := collect(t, reader)
	sum, ok := metrics["db_query_total"].Data.(metricdata.Sum[int64])
	require.True(t, ok)

	byOp := map[string]int64{}
	for _, dp := range sum.DataPoints {
		op, _ := dp.Attributes.Value(AttrDBOperation)
		table, _ := dp.Attributes.Value(AttrDBTable)
		assert.Equal(t, "sample_rows", table.AsString())
		byOp[op.AsString()] += dp.Value
	}
	assert.Equal(t, int64(1), byOp["INSERT"])
	assert.Equal(t, int64(1), byOp["SELECT"])
	assert.Equal(t, int64(1), byOp["UPDATE"])
}

func TestDBMetrics_SlowQuery(t *testing.T) {
	provider, reader := newManualMeter(t)
	m, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{SlowQueryThreshold: time.Millisecond}, zap.NewNop())
	require.NoError(t, err)

	m.RecordQuery(context.Background(), "select", "cost_rate_snapshots", 5*time.Millisecond)
	m.RecordQuery(context.Background(), "", "", 0)

	metrics := collect(t, reader)
	slow := metrics["db_slow_query_total"].Data.(metricdata.Sum[int64])
	require.Len(t, slow.DataPoints, 1)
	table, _ := slow.DataPoints[0].Attributes.Value(AttrDBTable)
	assert.Equal(t, "cost_rate_snapshots", table.AsString())
}

func TestDBMetrics_PoolStats(t *testing.T) {
	provider, reader := newManualMeter(t)
	m, err := NewDBMetrics(provider.Meter("db.client"), DBMetricsConfig{PoolStatsInterval: time.Hour}, zap.NewNop())
	require.NoError(t, err)

	sqlDB, err := setupTestDB(t).DB()
	require.NoError(t, err)
	m.StartPoolStatsCollection(context.Background(), sqlDB)
	require.Eventually(t, func() bool {
		_, ok := collect(t, reader)["db_pool_connections"]
		return ok
	}, time.Second, 10*time.Millisecond)
	m.Stop()
	m.Stop()
}

func TestRegisterDBMetrics_Disabled(t *testing.T) {
	mp, err := NewMeterProvider(context.Background(), MetricsConfig{Enabled: false}, zap.NewNop())
	require.NoError(t, err)

	m, err := RegisterDBMetrics(context.Background(), setupTestDB(t), mp, DBMetricsConfig{Enabled: true}, zap.NewNop())
	require.NoError(t, err)
	assert.Nil(t, m)
}

func TestDetectOperationType(t *testing.T) {
	assert.Equal(t, "SELECT", detectOperationType("  select * from cost_centers"))
	assert.Equal(t, "DELETE", detectOperationType("DELETE FROM order_cost_breakdowns"))
	assert.Equal(t, "OTHER", detectOperationType("WITH x AS (SELECT 1) SELECT * FROM x"))
}
