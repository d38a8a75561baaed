package config

import (
	"testing"
	"time"

	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// clearEnv blanks every variable the tests touch; t.Setenv restores them afterwards
func clearEnv(t *testing.T) {
	for _, k := range []string{
		"FLEETCOST_APP_NAME", "FLEETCOST_APP_ENV", "FLEETCOST_APP_PORT",
		"FLEETCOST_DATABASE_HOST", "FLEETCOST_DATABASE_PORT", "FLEETCOST_DATABASE_USER", "FLEETCOST_DATABASE_PASSWORD",
		"FLEETCOST_DATABASE_DBNAME", "FLEETCOST_DATABASE_SSLMODE", "FLEETCOST_DATABASE_MAX_OPEN_CONNS", "FLEETCOST_DATABASE_MAX_IDLE_CONNS",
		"FLEETCOST_JWT_SECRET", "FLEETCOST_REDIS_ENABLED",
		"FLEETCOST_COSTENGINE_ENGINE_VERSION", "FLEETCOST_COSTENGINE_OVERHEAD_POLICY",
		"FLEETCOST_COSTENGINE_LOCK_TTL", "FLEETCOST_COSTENGINE_LOCK_WAIT", "FLEETCOST_CACHE_KPI_TTL",
		"FLEETCOST_TELEMETRY_PROFILING_ENABLED", "FLEETCOST_TELEMETRY_PROFILING_SERVER_ADDRESS",
		"FLEETCOST_TELEMETRY_PROFILING_APPLICATION_NAME",
	} {
		t.Setenv(k, "")
	}
}

func TestLoad(t *testing.T) {
	t.Run("loads default values when env vars not set", func(t *testing.T) {
		clearEnv(t)

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "fleetcost-backend", cfg.App.Name)
		assert.Equal(t, "development", cfg.App.Env)
		assert.Equal(t, "8080", cfg.App.Port)
		assert.Equal(t, "localhost", cfg.Database.Host)
		assert.Equal(t, 5432, cfg.Database.Port)
		assert.Equal(t, "fleetcost", cfg.Database.DBName)
		assert.Equal(t, 25, cfg.Database.MaxOpenConns)
		assert.False(t, cfg.Redis.Enabled)
		assert.Equal(t, "dev", cfg.CostEngine.EngineVersion)
		assert.Equal(t, string(costing.OverheadPolicyEarliestCreated), cfg.CostEngine.OverheadPolicy)
		assert.Equal(t, 5*time.Minute, cfg.Cache.KPITTL)
		assert.Equal(t, "0 2 * * *", cfg.Scheduler.DailyCronSchedule)
		assert.False(t, cfg.Scheduler.Enabled)
		assert.False(t, cfg.Telemetry.ProfilingEnabled)
		assert.Equal(t, cfg.Telemetry.ServiceName, cfg.Telemetry.ProfilingApplicationName)
	})

	t.Run("loads values from environment variables with FLEETCOST prefix", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FLEETCOST_APP_PORT", "9000")
		t.Setenv("FLEETCOST_DATABASE_HOST", "testdb.local")
		t.Setenv("FLEETCOST_DATABASE_PORT", "5433")
		t.Setenv("FLEETCOST_REDIS_ENABLED", "true")
		t.Setenv("FLEETCOST_COSTENGINE_ENGINE_VERSION", "1.4.2")
		t.Setenv("FLEETCOST_COSTENGINE_OVERHEAD_POLICY", "lowest_id")
		t.Setenv("FLEETCOST_CACHE_KPI_TTL", "90s")

		cfg, err := Load()
		require.NoError(t, err)

		assert.Equal(t, "9000", cfg.App.Port)
		assert.Equal(t, "testdb.local", cfg.Database.Host)
		assert.Equal(t, 5433, cfg.Database.Port)
		assert.True(t, cfg.Redis.Enabled)
		assert.Equal(t, "1.4.2", cfg.CostEngine.EngineVersion)
		assert.Equal(t, string(costing.OverheadPolicyLowestID), cfg.CostEngine.OverheadPolicy)
		assert.Equal(t, 90*time.Second, cfg.Cache.KPITTL)
	})

	t.Run("rejects unknown overhead policy", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FLEETCOST_COSTENGINE_OVERHEAD_POLICY", "first_found")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "costengine.overhead_policy")
	})

	t.Run("rejects lock ttl shorter than lock wait", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FLEETCOST_COSTENGINE_LOCK_TTL", "1s")
		t.Setenv("FLEETCOST_COSTENGINE_LOCK_WAIT", "10s")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "lock_ttl")
	})

	t.Run("requires a profiling server when profiling is enabled", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FLEETCOST_TELEMETRY_PROFILING_ENABLED", "true")
		t.Setenv("FLEETCOST_TELEMETRY_PROFILING_SERVER_ADDRESS", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "telemetry.profiling_server_address")

		t.Setenv("FLEETCOST_TELEMETRY_PROFILING_SERVER_ADDRESS", "http://pyroscope:4040")
		t.Setenv("FLEETCOST_TELEMETRY_PROFILING_APPLICATION_NAME", "fleetcost-eu")
		cfg, err := Load()
		require.NoError(t, err)
		assert.True(t, cfg.Telemetry.ProfilingEnabled)
		assert.Equal(t, "fleetcost-eu", cfg.Telemetry.ProfilingApplicationName)
	})

	t.Run("validates MaxIdleConns cannot exceed MaxOpenConns", func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FLEETCOST_DATABASE_MAX_OPEN_CONNS", "10")
		t.Setenv("FLEETCOST_DATABASE_MAX_IDLE_CONNS", "20")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "cannot exceed")
	})
}

func TestLoad_ProductionValidation(t *testing.T) {
	setValidProductionBase := func(t *testing.T) {
		clearEnv(t)
		t.Setenv("FLEETCOST_APP_ENV", "production")
		t.Setenv("FLEETCOST_JWT_SECRET", "this-is-a-very-secure-jwt-secret-key-32chars")
		t.Setenv("FLEETCOST_DATABASE_PASSWORD", "secure-password")
		t.Setenv("FLEETCOST_DATABASE_SSLMODE", "require")
		t.Setenv("FLEETCOST_COSTENGINE_ENGINE_VERSION", "2026.10.1")
	}

	t.Run("passes validation with valid production config", func(t *testing.T) {
		setValidProductionBase(t)

		cfg, err := Load()
		require.NoError(t, err)
		assert.Equal(t, "production", cfg.App.Env)
	})

	t.Run("requires jwt.secret in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FLEETCOST_JWT_SECRET", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "jwt.secret is required in production")
	})

	t.Run("requires SSL enabled in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FLEETCOST_DATABASE_SSLMODE", "disable")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "database.sslmode")
	})

	t.Run("requires a real engine version in production", func(t *testing.T) {
		setValidProductionBase(t)
		t.Setenv("FLEETCOST_COSTENGINE_ENGINE_VERSION", "")

		_, err := Load()
		require.Error(t, err)
		assert.Contains(t, err.Error(), "costengine.engine_version")
	})
}

func TestDatabaseConfig_DSN(t *testing.T) {
	cfg := DatabaseConfig{
		Host:     "localhost",
		Port:     5432,
		User:     "user",
		Password: "pass@word#123",
		DBName:   "db",
		SSLMode:  "disable",
	}

	dsn := cfg.DSN()
	assert.Contains(t, dsn, "localhost:5432")
	assert.Contains(t, dsn, "pass%40word%23123")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestRedisConfig_Addr(t *testing.T) {
	assert.Equal(t, "cache:6380", RedisConfig{Host: "cache", Port: 6380}.Addr())
}
