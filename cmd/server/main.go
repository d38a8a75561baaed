package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/fleetcost/backend/internal/application/analytics"
	"github.com/fleetcost/backend/internal/application/costengine"
	costingapp "github.com/fleetcost/backend/internal/application/costing"
	fleetapp "github.com/fleetcost/backend/internal/application/fleet"
	"github.com/fleetcost/backend/internal/domain/costing"
	"github.com/fleetcost/backend/internal/infrastructure/auth"
	"github.com/fleetcost/backend/internal/infrastructure/cache"
	"github.com/fleetcost/backend/internal/infrastructure/config"
	"github.com/fleetcost/backend/internal/infrastructure/lock"
	"github.com/fleetcost/backend/internal/infrastructure/logger"
	"github.com/fleetcost/backend/internal/infrastructure/migration"
	"github.com/fleetcost/backend/internal/infrastructure/persistence"
	"github.com/fleetcost/backend/internal/infrastructure/scheduler"
	"github.com/fleetcost/backend/internal/infrastructure/telemetry"
	"github.com/fleetcost/backend/internal/interfaces/http/handler"
	"github.com/fleetcost/backend/internal/interfaces/http/middleware"
	"github.com/fleetcost/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	// Initialize logger
	baseLog, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: "2006-01-02T15:04:05.000Z07:00",
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}

	ctx := context.Background()

	// OpenTelemetry: traces, metrics and the zap → OTLP logs bridge; Pyroscope profiles
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.CostEngine.EngineVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.CostEngine.EngineVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		ServiceVersion:    cfg.CostEngine.EngineVersion,
		Insecure:          cfg.Telemetry.Insecure,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServerAddress,
		ApplicationName: cfg.Telemetry.ProfilingApplicationName,
		EngineVersion:   cfg.CostEngine.EngineVersion,
	}, baseLog)
	if err != nil {
		baseLog.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() && cfg.Telemetry.ProfilingSpanProfiles {
		tracerProvider.EnableSpanProfiles()
	}
	log := loggerProvider.Bridge(baseLog, zapcore.InfoLevel)
	defer func() {
		_ = logger.Sync(log)
	}()

	log.Info("Starting fleet cost backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("engine_version", cfg.CostEngine.EngineVersion),
	)

	// Database with the zap-backed GORM logger; the tenant guard is installed on open
	gormLog := logger.NewGormLogger(log, logger.MapGormLogLevel(cfg.Database.LogLevel), cfg.Telemetry.DBSlowQueryThresh)
	db, err := persistence.NewDatabaseWithCustomLogger(&cfg.Database, gormLog)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	log.Info("Database connected successfully")

	if cfg.Database.MigrateOnStart {
		if err := migrateOnStart(db, log); err != nil {
			log.Fatal("Failed to apply migrations", zap.Error(err))
		}
	}

	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	dbMetrics, err := telemetry.RegisterDBMetrics(ctx, db.DB, meterProvider, telemetry.DBMetricsConfig{
		Enabled:            cfg.Telemetry.Enabled,
		SlowQueryThreshold: cfg.Telemetry.DBSlowQueryThresh,
	}, log)
	if err != nil {
		log.Fatal("Failed to register database metrics", zap.Error(err))
	}

	// Redis backs the KPI cache, recompute locks and rate limiting when enabled
	var rdb *redis.Client
	if cfg.Redis.Enabled {
		rdb, err = cache.NewRedisClient(cfg.Redis)
		if err != nil {
			log.Fatal("Failed to connect to redis", zap.Error(err))
		}
		defer func() {
			_ = rdb.Close()
		}()
		log.Info("Redis connected", zap.String("addr", cfg.Redis.Addr()))
	}

	lockOpts := lock.Options{TTL: cfg.CostEngine.LockTTL, Wait: cfg.CostEngine.LockWait}
	var locker lock.Locker = lock.NewLocalLocker(lockOpts)
	var kpiCache *cache.KPICache
	if rdb != nil {
		locker = lock.NewRedisLocker(rdb, lockOpts)
		kpiCache = cache.NewKPICache(rdb, cfg.Cache.KPITTL, log)
	}

	engineMetrics, err := telemetry.NewCostEngineMetrics(telemetry.CostEngineMetricsConfig{
		Meter:  meterProvider.Meter("fleetcost/costengine"),
		Logger: log,
	})
	if err != nil {
		log.Fatal("Failed to initialize cost engine metrics", zap.Error(err))
	}

	// Initialize repositories
	tenantRepo := persistence.NewGormTenantRepository(db.DB)
	vehicleRepo := persistence.NewGormVehicleRepository(db.DB)
	driverRepo := persistence.NewGormDriverRepository(db.DB)
	orderRepo := persistence.NewGormTransportOrderRepository(db.DB)
	centerRepo := persistence.NewGormCostCenterRepository(db.DB)
	itemRepo := persistence.NewGormCostItemRepository(db.DB)
	postingRepo := persistence.NewGormCostPostingRepository(db.DB)
	snapshotRepo := persistence.NewGormSnapshotRepository(db.DB)
	reportRepo := persistence.NewGormCostReportRepository(db.DB)
	jobRepo := persistence.NewGormRecomputeJobRepository(db.DB)

	// Initialize application services
	overheadPolicy, err := costing.ParseOverheadPolicy(cfg.CostEngine.OverheadPolicy)
	if err != nil {
		log.Fatal("Invalid overhead policy", zap.Error(err))
	}
	engine := costengine.NewEngine(centerRepo, postingRepo, orderRepo, costengine.EngineConfig{
		EngineVersion:  cfg.CostEngine.EngineVersion,
		OverheadPolicy: overheadPolicy,
	})
	costEngineService := costengine.NewService(engine, snapshotRepo,
		costengine.WithLocker(locker),
		costengine.WithKPIInvalidator(kpiCache),
		costengine.WithMetrics(engineMetrics),
		costengine.WithLogger(log),
	)
	historyService := analytics.NewHistoryService(snapshotRepo, orderRepo)
	kpiService := analytics.NewKPIService(reportRepo, kpiCache)

	vehicleService := fleetapp.NewVehicleService(vehicleRepo)
	driverService := fleetapp.NewDriverService(driverRepo)
	orderService := fleetapp.NewTransportOrderService(orderRepo, vehicleRepo, driverRepo)
	centerService := costingapp.NewCostCenterService(centerRepo, vehicleRepo, driverRepo)
	itemService := costingapp.NewCostItemService(itemRepo)
	postingService := costingapp.NewCostPostingService(postingRepo, centerRepo, itemRepo)

	// Daily recompute of the previous month for every active tenant
	hour, minute, err := scheduler.ParseCronSchedule(cfg.Scheduler.DailyCronSchedule)
	if err != nil {
		log.Fatal("Invalid scheduler cron schedule", zap.Error(err))
	}
	recomputeScheduler := scheduler.NewRecomputeCronScheduler(
		scheduler.RecomputeCronSchedulerConfig{
			Enabled:           cfg.Scheduler.Enabled,
			CronHour:          hour,
			CronMinute:        minute,
			JobTimeout:        cfg.Scheduler.JobTimeout,
			MaxConcurrentJobs: cfg.Scheduler.MaxConcurrentJobs,
			RetryAttempts:     cfg.Scheduler.RetryAttempts,
			RetryDelay:        cfg.Scheduler.RetryDelay,
		},
		scheduler.NewRecomputeExecutor(costEngineService, log),
		tenantRepo,
		jobRepo,
		log,
	)
	schedulerCtx, stopScheduler := context.WithCancel(ctx)
	defer stopScheduler()
	if err := recomputeScheduler.Start(schedulerCtx); err != nil {
		log.Fatal("Failed to start recompute scheduler", zap.Error(err))
	}

	// Initialize handlers
	healthChecks := map[string]handler.HealthCheck{
		"database": db.Ping,
	}
	if rdb != nil {
		healthChecks["redis"] = func(ctx context.Context) error {
			return rdb.Ping(ctx).Err()
		}
	}
	systemHandler := handler.NewSystemHandler(cfg.App.Name, cfg.CostEngine.EngineVersion, healthChecks)
	fleetHandler := handler.NewFleetHandler(vehicleService, driverService, orderService)
	costingHandler := handler.NewCostingHandler(centerService, itemService, postingService)
	costEngineHandler := handler.NewCostEngineHandler(costEngineService, historyService)
	kpiHandler := handler.NewKPIHandler(kpiService)

	// Setup Gin
	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	ginEngine := gin.New()
	if err := ginEngine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
		log.Fatal("Invalid trusted proxies", zap.Error(err))
	}

	corsCfg := middleware.DefaultCORSConfig()
	corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders

	ginEngine.Use(
		middleware.RequestID(),
		logger.GinMiddleware(log),
		logger.Recovery(log),
		middleware.Tracing(cfg.Telemetry.ServiceName, cfg.Telemetry.Enabled),
		middleware.HTTPMetrics(meterProvider.Meter("fleetcost/http")),
		middleware.CORSWithConfig(corsCfg),
		middleware.SecureHeaders(365*24*time.Hour),
		middleware.BodyLimit(cfg.HTTP.MaxBodySize),
		middleware.Timeout(cfg.HTTP.WriteTimeout),
	)

	// Tenant routes: authenticate, throttle, scope to the tenant, then tag the span
	scoped := []gin.HandlerFunc{
		middleware.JWTAuth(middleware.JWTConfig{Validator: auth.NewJWTService(cfg.JWT)}),
	}
	if cfg.HTTP.RateLimitEnabled {
		var limiter middleware.Limiter
		if rdb != nil {
			limiter = middleware.NewRedisLimiter(rdb, cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
		} else {
			local := middleware.NewLocalLimiter(cfg.HTTP.RateLimitRequests, cfg.HTTP.RateLimitWindow)
			defer local.Stop()
			limiter = local
		}
		scoped = append(scoped, middleware.RateLimit(limiter, middleware.RateLimitKey))
	}
	scoped = append(scoped, middleware.TenantScope(tenantRepo), middleware.SpanEnricher())
	if profiler.IsEnabled() {
		scoped = append(scoped, middleware.Profiling(middleware.DefaultProfilingConfig()))
	}

	router.NewRouter(ginEngine, router.WithAPIVersion("v1"), router.WithMiddleware(scoped...)).
		Public(router.SystemRoutes(systemHandler)).
		Register(router.FleetRoutes(fleetHandler)).
		Register(router.CostingRoutes(costingHandler)).
		Register(router.CostEngineRoutes(costEngineHandler)).
		Register(router.KPIRoutes(kpiHandler)).
		Setup()

	// Unversioned probe for load balancers
	ginEngine.GET("/health", systemHandler.Health)

	// Create HTTP server with config
	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        ginEngine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	// Start server in goroutine
	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := recomputeScheduler.Stop(shutdownCtx); err != nil {
		log.Warn("Recompute scheduler did not stop cleanly", zap.Error(err))
	}
	if dbMetrics != nil {
		dbMetrics.Stop()
	}
	if err := profiler.Stop(); err != nil {
		baseLog.Warn("Profiler did not stop cleanly", zap.Error(err))
	}
	for name, shutdown := range map[string]func(context.Context) error{
		"tracer": tracerProvider.Shutdown,
		"meter":  meterProvider.Shutdown,
		"logger": loggerProvider.Shutdown,
	} {
		if err := shutdown(shutdownCtx); err != nil {
			baseLog.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}

	log.Info("Server exited gracefully")
}

// migrateOnStart applies the embedded schema over the server's own connection
func migrateOnStart(db *persistence.Database, log *zap.Logger) error {
	sqlDB, err := db.DB.DB()
	if err != nil {
		return err
	}
	m, err := migration.New(sqlDB, migration.EmbeddedSource(), log)
	if err != nil {
		return err
	}
	return m.Up()
}
