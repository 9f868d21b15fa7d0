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
	"go.uber.org/zap"

	"github.com/photolab/backend/internal/application/checkout"
	appfulfillment "github.com/photolab/backend/internal/application/fulfillment"
	domain "github.com/photolab/backend/internal/domain/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/auth"
	"github.com/photolab/backend/internal/infrastructure/cache"
	"github.com/photolab/backend/internal/infrastructure/config"
	"github.com/photolab/backend/internal/infrastructure/event"
	"github.com/photolab/backend/internal/infrastructure/fulfillment"
	"github.com/photolab/backend/internal/infrastructure/logger"
	"github.com/photolab/backend/internal/infrastructure/persistence"
	"github.com/photolab/backend/internal/infrastructure/roes"
	"github.com/photolab/backend/internal/infrastructure/secrets"
	"github.com/photolab/backend/internal/infrastructure/storage"
	"github.com/photolab/backend/internal/infrastructure/telemetry"
	"github.com/photolab/backend/internal/interfaces/http/handler"
	"github.com/photolab/backend/internal/interfaces/http/middleware"
	"github.com/photolab/backend/internal/interfaces/http/router"
)

// version is set at build time with -ldflags "-X main.version=..."
var version = "dev"

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("Failed to load configuration: " + err.Error())
	}

	ctx := context.Background()

	// The OTel log bridge must exist before the logger so it can be teed in.
	logProvider, err := telemetry.NewLoggerProvider(ctx, telemetry.LogsConfig{
		Enabled:           cfg.Telemetry.LogsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	})
	if err != nil {
		panic("Failed to initialize log exporter: " + err.Error())
	}

	log, err := logger.New(&logger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	}, logProvider.ZapCores(logger.ParseLevel(cfg.Log.Level))...)
	if err != nil {
		panic("Failed to initialize logger: " + err.Error())
	}
	defer func() {
		_ = log.Sync()
	}()

	log.Info("Starting photolab backend",
		zap.String("app", cfg.App.Name),
		zap.String("env", cfg.App.Env),
		zap.String("port", cfg.App.Port),
		zap.String("version", version),
	)

	// Telemetry
	tracerProvider, err := telemetry.NewTracerProvider(ctx, telemetry.Config{
		Enabled:           cfg.Telemetry.Enabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		SamplingRatio:     cfg.Telemetry.SamplingRatio,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize tracer provider", zap.Error(err))
	}

	meterProvider, err := telemetry.NewMeterProvider(ctx, telemetry.MetricsConfig{
		Enabled:           cfg.Telemetry.MetricsEnabled,
		CollectorEndpoint: cfg.Telemetry.CollectorEndpoint,
		ExportInterval:    cfg.Telemetry.MetricsExportInterval,
		ServiceName:       cfg.Telemetry.ServiceName,
		Insecure:          cfg.Telemetry.Insecure,
	}, log)
	if err != nil {
		log.Fatal("Failed to initialize meter provider", zap.Error(err))
	}
	meter := meterProvider.Meter("github.com/photolab/backend")

	fulfillmentMetrics, err := telemetry.NewFulfillmentMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create fulfillment metrics", zap.Error(err))
	}

	profiler, err := telemetry.NewProfiler(telemetry.ProfilerConfig{
		Enabled:         cfg.Telemetry.ProfilingEnabled,
		ServerAddress:   cfg.Telemetry.ProfilingServer,
		ApplicationName: cfg.Telemetry.ServiceName,
	}, log)
	if err != nil {
		log.Fatal("Failed to start profiler", zap.Error(err))
	}
	if profiler.IsEnabled() {
		tracerProvider.EnableSpanProfiles()
	}

	// Database
	db, err := persistence.NewDatabase(&cfg.Database, log, cfg.Log.Level, cfg.Telemetry.DBSlowQueryThresh)
	if err != nil {
		log.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error("Error closing database", zap.Error(err))
		}
	}()
	if err := telemetry.RegisterDBTracing(db.DB, telemetry.DBTracingConfig{
		Enabled:         cfg.Telemetry.Enabled && cfg.Telemetry.DBTraceEnabled,
		LogFullSQL:      cfg.Telemetry.DBLogFullSQL,
		SlowQueryThresh: cfg.Telemetry.DBSlowQueryThresh,
		DBSystem:        "postgresql",
	}, log); err != nil {
		log.Fatal("Failed to register database tracing", zap.Error(err))
	}
	log.Info("Database connected successfully")

	settingsRepo := persistence.NewGormProviderSettingsRepository(db.DB)
	orderRepo := persistence.NewGormOrderRepository(db.DB)
	submissionRepo := persistence.NewGormSubmissionRepository(db.DB)

	// Cache: WHCC tokens, revoked JWTs and event idempotency keys
	store, err := cache.NewFactory(cfg.Redis,
		cache.WithLogger(log),
		cache.WithInMemoryFallback(!cfg.App.IsProduction()),
	).CreateStore(ctx)
	if err != nil {
		log.Fatal("Failed to create cache store", zap.Error(err))
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.Error("Error closing cache store", zap.Error(err))
		}
	}()

	sealingKey, err := cfg.Secrets.Key()
	if err != nil {
		log.Fatal("Invalid credential sealing key", zap.Error(err))
	}
	sealer := secrets.NewSecretboxSealer(sealingKey)

	photos, err := storage.NewPhotoResolver(ctx, &cfg.Storage, log)
	if err != nil {
		log.Fatal("Failed to create photo resolver", zap.Error(err))
	}

	// Domain events: provider-tagged event log and the submission audit trail
	eventBus := event.NewInMemoryEventBus(log)
	eventBus.Subscribe(checkout.NewFulfillmentEventLogger(log))
	eventBus.Subscribe(event.NewIdempotentHandler("submission_recorder",
		checkout.NewSubmissionRecorder(submissionRepo), store, log))
	if err := eventBus.Start(ctx); err != nil {
		log.Fatal("Failed to start event bus", zap.Error(err))
	}

	// Labs
	roesBus := roes.NewBus(log, roes.WithPendingLimit(cfg.Providers.ROES.PendingLimit))
	registry, err := newProviderRegistry(cfg, store, photos, roesBus, orderRepo, fulfillmentMetrics, log)
	if err != nil {
		log.Fatal("Failed to create fulfillment providers", zap.Error(err))
	}
	log.Info("Fulfillment providers registered", zap.Stringers("providers", registry.Codes()))

	// Application services
	settingsService := appfulfillment.NewProviderSettingsService(settingsRepo, sealer, registry, log)
	checkoutService := checkout.NewService(settingsService, registry, eventBus, log,
		checkout.WithMetrics(fulfillmentMetrics),
		checkout.WithAddressDefaults(domain.AddressDefaults{
			Name:    cfg.Checkout.DefaultAddress.Name,
			Line1:   cfg.Checkout.DefaultAddress.Line1,
			City:    cfg.Checkout.DefaultAddress.City,
			State:   cfg.Checkout.DefaultAddress.State,
			Zip:     cfg.Checkout.DefaultAddress.Zip,
			Country: cfg.Checkout.DefaultAddress.Country,
			Phone:   cfg.Checkout.DefaultAddress.Phone,
		}),
		checkout.WithSubmitTimeout(cfg.Checkout.SubmitTimeout),
	)
	orderService := appfulfillment.NewOrderService(orderRepo, submissionRepo, log)

	jwtService := auth.NewJWTService(cfg.JWT)
	tokenBlacklist := auth.NewCacheTokenBlacklist(store)

	// HTTP
	if cfg.App.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	middleware.SetupValidator()

	engine := gin.New()
	if len(cfg.HTTP.TrustedProxies) > 0 {
		if err := engine.SetTrustedProxies(cfg.HTTP.TrustedProxies); err != nil {
			log.Warn("Failed to set trusted proxies", zap.Error(err))
		}
	}

	httpMetrics, err := middleware.HTTPMetrics(meter)
	if err != nil {
		log.Fatal("Failed to create HTTP metrics", zap.Error(err))
	}

	// Middleware order:
	// 1. RequestID - generate/propagate request ID
	// 2. Logger - request log + request-scoped logger
	// 3. Recovery - catch panics
	// 4. Tracing - server span, error status for 4xx/5xx
	// 5. Security headers, CORS, body limit
	// 6. Metrics
	engine.Use(middleware.RequestID())
	engine.Use(logger.GinMiddleware(log))
	engine.Use(logger.Recovery(log))
	engine.Use(middleware.TracingWithConfig(middleware.TracingConfig{
		ServiceName: cfg.Telemetry.ServiceName,
		Enabled:     cfg.Telemetry.Enabled,
	}))
	engine.Use(middleware.SpanErrorMarker())
	engine.Use(middleware.SecureWithConfig(middleware.DefaultSecurityConfig()))

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowOrigins = cfg.HTTP.CORSAllowOrigins
	if len(cfg.HTTP.CORSAllowMethods) > 0 {
		corsConfig.AllowMethods = cfg.HTTP.CORSAllowMethods
	}
	if len(cfg.HTTP.CORSAllowHeaders) > 0 {
		corsConfig.AllowHeaders = cfg.HTTP.CORSAllowHeaders
	}
	engine.Use(middleware.CORSWithConfig(corsConfig))
	engine.Use(middleware.BodyLimit(cfg.HTTP.MaxBodySize))
	engine.Use(httpMetrics)

	jwtConfig := middleware.DefaultJWTConfig(jwtService)
	jwtConfig.TokenBlacklist = tokenBlacklist
	jwtConfig.AllowStudioHeader = cfg.HTTP.AllowStudioHeader
	jwtConfig.Logger = log
	if cfg.HTTP.AllowStudioHeader {
		log.Warn("X-Studio-ID header authentication is enabled; do not use in production")
	}

	guards := router.Guards{
		Authenticate: middleware.JWTAuthMiddlewareWithConfig(jwtConfig),
		Authenticated: []gin.HandlerFunc{
			middleware.TracingAttributeInjector(),
			middleware.Profiling(profiler.IsEnabled()),
		},
	}
	if cfg.Checkout.RateLimit > 0 {
		limiter := middleware.NewRateLimiter(cfg.Checkout.RateLimit, cfg.Checkout.RateLimitWindow)
		defer limiter.Stop()
		guards.Checkout = append(guards.Checkout, middleware.RateLimit(limiter))
		log.Info("Checkout rate limiting enabled",
			zap.Int("requests", cfg.Checkout.RateLimit),
			zap.Duration("window", cfg.Checkout.RateLimitWindow),
		)
	}

	router.Mount(engine, router.Handlers{
		System: handler.NewSystemHandler(cfg.App.Name, version, map[string]handler.HealthCheck{
			"database": func(context.Context) error { return db.Ping() },
		}),
		Auth:      handler.NewAuthHandler(tokenBlacklist),
		Checkout:  handler.NewCheckoutHandler(checkoutService),
		Orders:    handler.NewOrderHandler(orderService),
		Providers: handler.NewProviderAdminHandler(settingsService),
		ROES:      handler.NewROESHandler(roesBus),
	}, guards, router.WithAPIVersion("v1"))

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
	if err := eventBus.Stop(shutdownCtx); err != nil {
		log.Error("Error stopping event bus", zap.Error(err))
	}
	if err := profiler.Stop(); err != nil {
		log.Error("Error stopping profiler", zap.Error(err))
	}
	if err := meterProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down meter provider", zap.Error(err))
	}
	if err := tracerProvider.Shutdown(shutdownCtx); err != nil {
		log.Error("Error shutting down tracer provider", zap.Error(err))
	}
	if err := logProvider.Shutdown(shutdownCtx, log); err != nil {
		log.Error("Error shutting down log provider", zap.Error(err))
	}

	log.Info("Server exited gracefully")
}

// newProviderRegistry builds one adapter per fulfillment path. Network labs
// share the breaker thresholds and report breaker transitions as metrics.
func newProviderRegistry(
	cfg *config.Config,
	store cache.TokenStore,
	photos domain.PhotoResolver,
	roesBus *roes.Bus,
	orders domain.OrderRepository,
	metrics *telemetry.FulfillmentMetrics,
	log *zap.Logger,
) (*fulfillment.Registry, error) {
	whcc, err := fulfillment.NewWHCCAdapter(fulfillment.NewWHCCConfig(cfg.Providers.WHCC), store, photos,
		fulfillment.WithHTTPClient(fulfillment.NewHTTPClient(cfg.Providers.WHCC.Timeout)),
		fulfillment.WithBreaker(cfg.Providers.Breaker),
		fulfillment.WithBreakerObserver(metrics),
		fulfillment.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	mpix, err := fulfillment.NewMpixAdapter(fulfillment.NewMpixConfig(cfg.Providers.Mpix), photos,
		fulfillment.WithHTTPClient(fulfillment.NewHTTPClient(cfg.Providers.Mpix.Timeout)),
		fulfillment.WithBreaker(cfg.Providers.Breaker),
		fulfillment.WithBreakerObserver(metrics),
		fulfillment.WithLogger(log),
	)
	if err != nil {
		return nil, err
	}

	return fulfillment.NewRegistry(
		whcc,
		mpix,
		fulfillment.NewROESAdapter(roesBus, photos, cfg.Providers.ROES.CaptureTimeout, log),
		fulfillment.NewStandardAdapter(orders, log),
	), nil
}
