package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	inventoryapp "github.com/supplychain/procurement/internal/application/inventory"
	tradeapp "github.com/supplychain/procurement/internal/application/trade"
	"github.com/supplychain/procurement/internal/infrastructure/cache"
	"github.com/supplychain/procurement/internal/infrastructure/config"
	"github.com/supplychain/procurement/internal/infrastructure/event"
	"github.com/supplychain/procurement/internal/infrastructure/logger"
	"github.com/supplychain/procurement/internal/infrastructure/migration"
	"github.com/supplychain/procurement/internal/infrastructure/persistence"
	"github.com/supplychain/procurement/internal/infrastructure/scheduler"
	"github.com/supplychain/procurement/internal/infrastructure/strategy"
	"github.com/supplychain/procurement/internal/infrastructure/telemetry"
	"github.com/supplychain/procurement/internal/interfaces/http/handler"
	"github.com/supplychain/procurement/internal/interfaces/http/middleware"
	"github.com/supplychain/procurement/internal/interfaces/http/router"
	"go.uber.org/zap"
)

// version is overridden at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		TimeFormat: logger.ISO8601Millis,
		Name:       cfg.App.Name,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting procurement service",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("version", version),
	)

	ctx := context.Background()
	collector := telemetry.Collector{
		Endpoint:       cfg.Telemetry.CollectorEndpoint,
		Insecure:       cfg.Telemetry.Insecure,
		ServiceName:    cfg.Telemetry.ServiceName,
		ServiceVersion: version,
	}

	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:       cfg.Telemetry.Enabled,
		Collector:     collector,
		SamplingRatio: cfg.Telemetry.SamplingRatio,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:        cfg.Telemetry.Enabled,
		Collector:      collector,
		ExportInterval: cfg.Telemetry.MetricsExportInterval,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}

	loggerProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:   cfg.Telemetry.LogsEnabled,
		Collector: collector,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	log = telemetry.BridgeLogger(log, loggerProvider, cfg.Telemetry.ServiceName, logger.ParseLevel(cfg.Log.Level))

	procurementMetrics, err := telemetry.NewProcurementMetrics(telemetry.ProcurementMetricsConfig{
		Meter: meterProvider.Meter("procurement"),
	})
	if err != nil {
		log.Fatal("Failed to create procurement metrics", zap.Error(err))
	}

	db, err := persistence.Open(&cfg.Database,
		persistence.WithLogger(log),
		persistence.WithLogLevel(logger.MapGormLogLevel(cfg.Log.Level)),
		persistence.WithSlowQuery(cfg.Telemetry.SlowQueryThreshold),
	)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:            cfg.Telemetry.DBTracing && tracerProvider.IsEnabled(),
		LogFullSQL:         cfg.App.Env == "development",
		SlowQueryThreshold: cfg.Telemetry.SlowQueryThreshold,
		DBName:             cfg.Database.Driver,
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	if cfg.Database.Driver == persistence.DriverPostgres {
		migrator, err := migration.Open(cfg.Database.DSN(), log)
		if err != nil {
			log.Fatal("Failed to create migrator", zap.Error(err))
		}
		if err := migrator.Up(); err != nil {
			log.Fatal("Failed to migrate gateway schema", zap.Error(err))
		}
		_ = migrator.Close()
	} else if err := db.AutoMigrate(); err != nil {
		log.Fatal("Failed to migrate gateway schema", zap.Error(err))
	}
	log.Info("Gateway database ready", zap.String("driver", cfg.Database.Driver))

	guard, err := cache.NewSubmissionGuardFactory(cfg.Redis, cfg.Workflow,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(cfg.App.Env != "production"),
	).CreateGuard()
	if err != nil {
		log.Fatal("Failed to create submission guard", zap.Error(err))
	}

	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(event.NewAuditHandler(log))
	eventBus.Subscribe(event.NewMetricsHandler(procurementMetrics))
	eventBus.Subscribe(inventoryapp.NewAllocationShortfallHandler(log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	policies, err := strategy.NewRegistryWithDefaults(strategy.Options{
		DefaultPolicy:     cfg.Allocation.DefaultPolicy,
		ProportionalScale: cfg.Allocation.ProportionalScale,
	})
	if err != nil {
		log.Fatal("Failed to register allocation policies", zap.Error(err))
	}

	orderGateway := persistence.NewGormOrderGateway(db.DB)
	batchGateway := persistence.NewGormBatchGateway(db.DB)

	allocationService := inventoryapp.NewAllocationService(
		batchGateway,
		policies,
		inventoryapp.MassBalanceConfigFromSettings(cfg.Allocation.ContributionTolerance, cfg.Allocation.DeviationBand),
		log,
	)
	allocationService.SetBatchFinder(batchGateway)
	allocationService.SetEventPublisher(eventBus)
	allocationService.SetProcurementMetrics(procurementMetrics)

	sessionSweeper := scheduler.NewSessionSweeper(scheduler.SessionSweeperConfig{
		Interval: cfg.Allocation.SessionSweepInterval,
		MaxIdle:  cfg.Allocation.SessionIdleTTL,
	}, allocationService, log)
	if err := sessionSweeper.Start(ctx); err != nil {
		log.Fatal("Failed to start session sweeper", zap.Error(err))
	}

	amendmentService := tradeapp.NewAmendmentService(orderGateway, guard, cache.NewOrderSnapshotCache(), log)
	amendmentService.SetOrderPlacer(orderGateway)
	amendmentService.SetAllocationTrigger(allocationService)
	amendmentService.SetEventPublisher(eventBus)
	amendmentService.SetProcurementMetrics(procurementMetrics)
	amendmentService.SetSubmissionTTL(cfg.Workflow.SubmissionTTL)

	middleware.SetupValidator()

	if cfg.App.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	engine := gin.New()
	engine.Use(middleware.RequestID())
	engine.Use(logger.Recovery(log))
	engine.Use(logger.AccessLog(log, "/health"))

	corsCfg := middleware.DefaultCORSConfig()
	if len(cfg.HTTP.CORSAllowOrigins) > 0 {
		corsCfg.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	}
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsCfg.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsCfg.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsCfg))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     tracerProvider.IsEnabled(),
	})...)
	engine.Use(middleware.HTTPMetrics(middleware.HTTPMetricsConfig{
		MeterProvider: meterProvider,
		Enabled:       meterProvider.IsEnabled(),
	}))

	systemHandler := handler.NewSystemHandler(cfg.App.Name, version, db)
	orderHandler := handler.NewOrderHandler(amendmentService)
	allocationHandler := handler.NewAllocationHandler(allocationService)

	engine.GET("/health", systemHandler.Health)
	engine.GET("/api/v1/ping", systemHandler.Ping)

	api := router.NewAPI("v1").
		Use(middleware.Viewer(middleware.ViewerConfig{SkipPaths: []string{"/api/v1/ping"}})).
		Mount(router.OrderResource(orderHandler)).
		Mount(router.AllocationResources(allocationHandler)...)
	if err := api.Install(engine); err != nil {
		log.Fatal("Failed to install routes", zap.Error(err))
	}

	srv := &http.Server{
		Addr:           ":" + cfg.App.Port,
		Handler:        engine,
		ReadTimeout:    cfg.HTTP.ReadTimeout,
		WriteTimeout:   cfg.HTTP.WriteTimeout,
		IdleTimeout:    cfg.HTTP.IdleTimeout,
		MaxHeaderBytes: cfg.HTTP.MaxHeaderBytes,
	}

	go func() {
		log.Info("Server starting", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal("Failed to start server", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	if err := sessionSweeper.Stop(shutdownCtx); err != nil {
		log.Warn("Session sweeper did not stop cleanly", zap.Error(err))
	}
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Warn("Event bus did not stop cleanly", zap.Error(err))
	}
	if err := guard.Close(); err != nil {
		log.Warn("Failed to close submission guard", zap.Error(err))
	}
	if stats, err := db.Stats(); err == nil {
		log.Info("Database pool at shutdown",
			zap.Int("open", stats.OpenConnections),
			zap.Int64("wait_count", stats.WaitCount),
			zap.Duration("wait_duration", stats.WaitDuration),
		)
	}
	if err := db.Close(); err != nil {
		log.Warn("Failed to close database", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush metrics", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush traces", zap.Error(err))
	}

	log.Info("Server exited gracefully")
	if err := loggerProvider.Shutdown(shutdownCtx); err != nil {
		log.Warn("Failed to flush logs", zap.Error(err))
	}
}
