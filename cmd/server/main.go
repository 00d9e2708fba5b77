package main

import (
	"context"
	"errors"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	batchapp "github.com/consorcio/backend/internal/application/batch"
	catalogapp "github.com/consorcio/backend/internal/application/catalog"
	clientapp "github.com/consorcio/backend/internal/application/client"
	identityapp "github.com/consorcio/backend/internal/application/identity"
	importapp "github.com/consorcio/backend/internal/application/import"
	ledgerapp "github.com/consorcio/backend/internal/application/ledger"
	proposalapp "github.com/consorcio/backend/internal/application/proposal"
	"github.com/consorcio/backend/internal/infrastructure/auth"
	"github.com/consorcio/backend/internal/infrastructure/cache"
	"github.com/consorcio/backend/internal/infrastructure/config"
	"github.com/consorcio/backend/internal/infrastructure/logger"
	"github.com/consorcio/backend/internal/infrastructure/persistence"
	"github.com/consorcio/backend/internal/infrastructure/storage"
	"github.com/consorcio/backend/internal/infrastructure/telemetry"
	"github.com/consorcio/backend/internal/interfaces/http/handler"
	"github.com/consorcio/backend/internal/interfaces/http/middleware"
	"github.com/consorcio/backend/internal/interfaces/http/router"
	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

//	@title			Consorcio Backend API
//	@version		1.0
//	@description	Sales intake, installment ledger and commission payouts of a consortium sales office

//	@BasePath	/api/v1

//	@securityDefinitions.apikey	BearerAuth
//	@in							header
//	@name						Authorization
//	@description				Bearer token authentication. Format: "Bearer {token}"

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:       cfg.Log.Level,
		Format:      cfg.Log.Format,
		Output:      cfg.Log.Output,
		TimeFormat:  "2006-01-02T15:04:05.000Z07:00",
		Service:     cfg.App.Name,
		Environment: cfg.App.Env,
	})
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = logger.Sync(log)
	}()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	log.Info("Starting Consorcio Backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	if cfg.Secrets.DatabaseSecretID != "" {
		secrets, err := config.NewSecretsClient(ctx, cfg.Secrets.Region)
		if err != nil {
			log.Fatal("Failed to create secrets client", zap.Error(err))
		}
		if err := config.ResolveDatabaseCredentials(ctx, cfg, secrets); err != nil {
			log.Fatal("Failed to resolve database credentials", zap.Error(err))
		}
	}

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}
	meterProvider, err := telemetry.NewMeterProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	logProvider, err := telemetry.NewLoggerProvider(ctx, cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to initialize logger provider", zap.Error(err))
	}
	if level, err := zapcore.ParseLevel(cfg.Log.Level); err == nil {
		log = logProvider.Bridge(log, level)
	}
	profiler, err := telemetry.NewProfiler(cfg.Telemetry, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}
	defer shutdownTelemetry(log, tracerProvider, meterProvider, logProvider, profiler)

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log, logger.MapGormLogLevel(cfg.Log.Level))
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	dbInstrumentation, err := telemetry.NewDBInstrumentation(meterProvider.Meter("consorcio/db"), telemetry.DBConfig{
		Tracing:            cfg.Telemetry.DBTraceEnabled,
		DBSystem:           "postgresql",
		SlowQueryThreshold: cfg.Database.SlowQuery,
	}, log)
	if err != nil {
		log.Fatal("Failed to create database instrumentation", zap.Error(err))
	}
	if err := db.DB.Use(dbInstrumentation); err != nil {
		log.Fatal("Failed to install database instrumentation", zap.Error(err))
	}
	defer func() {
		_ = dbInstrumentation.Close()
	}()
	log.Info("Database connected successfully")

	// Cache and token revocation
	readModels, err := cache.NewFactory(cfg.Redis, cfg.Cache, cache.WithLogger(log)).Create(ctx)
	if err != nil {
		log.Fatal("Failed to create cache", zap.Error(err))
	}
	defer func() {
		_ = readModels.Close()
	}()
	blacklist, closeBlacklist := newTokenBlacklist(cfg.Redis, log)
	defer closeBlacklist()

	// Batch archive
	var archive batchapp.ArchiveStore
	var archiveStore *storage.S3ArchiveStore
	if cfg.Storage.Enabled {
		archiveStore, err = storage.NewS3ArchiveStore(ctx, cfg.Storage, storage.WithLogger(log))
		if err != nil {
			log.Fatal("Failed to create archive store", zap.Error(err))
		}
		if err := archiveStore.EnsureBucket(ctx); err != nil {
			log.Fatal("Failed to prepare archive bucket", zap.Error(err))
		}
		archive = archiveStore
	}

	batchMetrics, err := telemetry.NewBatchMetrics(meterProvider.Meter("consorcio/batch"))
	if err != nil {
		log.Fatal("Failed to create batch metrics", zap.Error(err))
	}
	gauges, err := telemetry.NewLedgerGauges(meterProvider.Meter("consorcio/ledger"),
		telemetry.NewGormLedgerSnapshotProvider(db.DB), time.Minute, log)
	if err != nil {
		log.Fatal("Failed to create ledger gauges", zap.Error(err))
	}
	gauges.Start(ctx)
	defer gauges.Stop()

	// Application services
	scope := persistence.NewGormTransactionScope(db.DB)
	repos := scope.Repositories()
	runnerOpts := []batchapp.Option{
		batchapp.WithCache(readModels),
		batchapp.WithMetrics(batchMetrics),
		batchapp.WithLogger(log),
	}
	if archive != nil {
		runnerOpts = append(runnerOpts, batchapp.WithArchive(archive, cfg.Storage.PresignExpiry))
	}
	runner := batchapp.NewRunner(scope, runnerOpts...)

	jwtService := auth.NewJWTService(cfg.JWT)
	authService := identityapp.NewAuthService(repos.Users(), jwtService, blacklist, log)
	userService := identityapp.NewUserService(scope, repos, readModels, blacklist, identityapp.UserServiceConfig{
		CacheTTL: cfg.Cache.TTL,
		TokenTTL: cfg.JWT.RefreshTokenExpiration,
	}, log)
	clientService := clientapp.NewService(scope, repos, readModels, cfg.Cache.TTL, log)
	ruleService := catalogapp.NewRuleService(scope, repos, runner, readModels, cfg.Cache.TTL, log)
	ledgerService := ledgerapp.NewService(runner, repos, readModels, ledgerapp.Config{
		ReconcileTolerance: cfg.Ledger.ReconcileTolerance,
		CacheTTL:           cfg.Cache.TTL,
	}, log)
	importService := importapp.NewService(ledgerService, ruleService, importapp.Config{
		DefaultDueDay: cfg.Ledger.DefaultDueDay,
	}, log)
	proposalService := proposalapp.NewService(scope, repos, ledgerService, cfg.Ledger.DefaultDueDay, log)
	historyService := batchapp.NewHistoryService(repos.BatchRuns(), archive, cfg.Storage.PresignExpiry)

	// HTTP
	if err := middleware.SetupValidator(); err != nil {
		log.Fatal("Failed to register validators", zap.Error(err))
	}
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}

	checks := map[string]handler.ReadinessCheck{
		"database": func(context.Context) error { return db.Ping() },
		"cache":    readModels.Ping,
	}
	if archiveStore != nil {
		checks["storage"] = archiveStore.Ping
	}

	routerCfg := router.Config{
		Logger:         log,
		TokenValidator: authService,
		CORS:           corsConfig(cfg.HTTP),
		TrustedProxies: cfg.HTTP.TrustedProxies,
		MaxBodySize:    max(cfg.HTTP.MaxBodySize, cfg.HTTP.MaxUploadSize+1<<20),
		Tracing: middleware.TracingConfig{
			ServiceName: cfg.Telemetry.ServiceName,
			Enabled:     cfg.Telemetry.Enabled,
			SkipPaths:   middleware.DefaultTracingConfig().SkipPaths,
		},
		Profiling: profiler.IsEnabled(),
	}
	if reg := meterProvider.Registerer(); reg != nil {
		httpMetrics, err := telemetry.NewHTTPMetrics(reg)
		if err != nil {
			log.Fatal("Failed to register HTTP metrics", zap.Error(err))
		}
		routerCfg.HTTPMetrics = httpMetrics
		routerCfg.MetricsHandler = meterProvider.Handler()
	}
	if cfg.HTTP.AuthRateLimitEnabled {
		routerCfg.LoginLimiter = middleware.NewRateLimiter(cfg.HTTP.AuthRateLimitRequests, cfg.HTTP.AuthRateLimitWindow)
	}

	engine, err := router.New(routerCfg, router.Handlers{
		System:       handler.NewSystemHandler(cfg.App.Name, version, checks),
		Auth:         handler.NewAuthHandler(authService),
		Users:        handler.NewUserHandler(userService),
		Clients:      handler.NewClientHandler(clientService),
		Rules:        handler.NewRuleHandler(ruleService),
		Uploads:      handler.NewUploadHandler(importService, cfg.HTTP.MaxUploadSize),
		Installments: handler.NewInstallmentHandler(ledgerService),
		Proposals:    handler.NewProposalHandler(proposalService),
		History:      handler.NewHistoryHandler(historyService),
	})
	if err != nil {
		log.Fatal("Failed to build router", zap.Error(err))
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

	<-ctx.Done()
	log.Info("Shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error("Server forced to shutdown", zap.Error(err))
	}
	log.Info("Server exited gracefully")
}

// newTokenBlacklist keeps revoked tokens in Redis when it is enabled, so every
// instance rejects them
func newTokenBlacklist(cfg config.RedisConfig, log *zap.Logger) (auth.TokenBlacklist, func()) {
	if !cfg.Enabled {
		log.Warn("Redis disabled, token revocation is local to this instance")
		return auth.NewInMemoryTokenBlacklist(), func() {}
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr(),
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return auth.NewRedisTokenBlacklist(client, "consorcio"), func() {
		_ = client.Close()
	}
}

func corsConfig(cfg config.HTTPConfig) middleware.CORSConfig {
	cors := middleware.DefaultCORSConfig()
	cors.AllowOrigins = cfg.CORSAllowOrigins
	if len(cfg.CORSAllowMethods) > 0 {
		cors.AllowMethods = cfg.CORSAllowMethods
	}
	if len(cfg.CORSAllowHeaders) > 0 {
		cors.AllowHeaders = cfg.CORSAllowHeaders
	}
	return cors
}

type shutdowner interface {
	Shutdown(ctx context.Context) error
}

func shutdownTelemetry(log *zap.Logger, tp, mp, lp shutdowner, profiler *telemetry.Profiler) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	for name, p := range map[string]shutdowner{"tracer": tp, "meter": mp, "logger": lp} {
		if err := p.Shutdown(ctx); err != nil {
			log.Warn("Telemetry shutdown failed", zap.String("provider", name), zap.Error(err))
		}
	}
	if err := profiler.Stop(); err != nil {
		log.Warn("Profiler stop failed", zap.Error(err))
	}
}
