package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus/promhttp"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/yourorg/clearscrub/internal/featureflags"
	"github.com/yourorg/clearscrub/internal/handler"
	"github.com/yourorg/clearscrub/internal/infrastructure/logger"
	"github.com/yourorg/clearscrub/internal/infrastructure/redis"
	"github.com/yourorg/clearscrub/internal/observability/metrics"
	"github.com/yourorg/clearscrub/internal/observability/tracing"
	"github.com/yourorg/clearscrub/internal/repository"
	"github.com/yourorg/clearscrub/internal/resolver"
	"github.com/yourorg/clearscrub/internal/security/audit"
	"github.com/yourorg/clearscrub/internal/security/middleware"
	"github.com/yourorg/clearscrub/internal/security/ratelimit"
	"github.com/yourorg/clearscrub/internal/security/webhookauth"
	"github.com/yourorg/clearscrub/internal/service"
	"github.com/yourorg/clearscrub/internal/worker"
	"github.com/yourorg/clearscrub/pkg/config"
	"github.com/yourorg/clearscrub/pkg/database"
)

func main() {
	// 1. Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	// 2. Initialize structured logger
	log := logger.NewLogger(cfg.LogLevel)
	log.Info("starting ClearScrub intake server", slog.String("environment", cfg.Environment))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// 3. Initialize tracing (no-op unless an exporter endpoint is configured)
	shutdownTracing, err := tracing.Init(ctx, log, "clearscrub-intake", cfg.Environment)
	if err != nil {
		log.Error("failed to initialize tracing", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// 4. Initialize Postgres
	pool, err := database.NewConnectionPool(ctx, &database.Config{
		Host:     cfg.DBHost,
		Port:     cfg.DBPort,
		User:     cfg.DBUser,
		Password: cfg.DBPassword,
		Database: cfg.DBName,
		SSLMode:  cfg.DBSSLMode,
	}, log)
	if err != nil {
		log.Error("failed to connect to Postgres", slog.String("error", err.Error()))
		os.Exit(1)
	}
	defer pool.Close()

	// 5. Initialize Redis (replay cache). The service degrades to
	// database-only idempotency checks without it.
	var redisClient *redis.Client
	redisClient, err = redis.NewClient(cfg.RedisURL)
	if err != nil {
		log.Warn("redis unavailable, replay fast path disabled", slog.String("error", err.Error()))
		redisClient = nil
	} else {
		defer redisClient.Close()
	}

	// 6. Initialize repositories
	db := pool.GetDB()
	companyRepo := repository.NewPostgresCompanyRepository(db, log)
	aliasRepo := repository.NewPostgresAliasRepository(db)
	accountRepo := repository.NewPostgresAccountRepository(db, log)
	documentRepo := repository.NewPostgresDocumentRepository(db, log)
	submissionRepo := repository.NewPostgresSubmissionRepository(db)
	applicationRepo := repository.NewPostgresApplicationRepository(db)
	rollupRepo := repository.NewPostgresRollupRepository(db, log)

	// 7. Initialize the rollup refresh worker
	refreshWorker := worker.NewRefreshWorker(rollupRepo, log, cfg.RollupQueueSize, cfg.RollupRefreshInterval)
	go refreshWorker.Start(ctx)

	// 8. Initialize services
	entityResolver := resolver.New(companyRepo, aliasRepo, accountRepo, log)
	uow := repository.NewSQLUnitOfWork(pool, log)

	var replayCache service.ReplayCache
	if redisClient != nil {
		replayCache = redisClient
	}
	ingestionService := service.NewIngestionService(
		documentRepo, submissionRepo, entityResolver, uow,
		replayCache, refreshWorker, log,
		cfg.MaxTransactionsPerStatement, cfg.ReplayCacheTTL,
	)
	applicationService := service.NewApplicationService(submissionRepo, applicationRepo, entityResolver, log)

	// 9. Initialize security components
	requireTimestamp := !featureflags.Enabled("relaxed_webhook_auth")
	verifier := webhookauth.NewVerifier(cfg.WebhookSecret, cfg.WebhookSkew, requireTimestamp)
	rateLimiter := ratelimit.NewLimiter(cfg.RateLimitPerMinute, time.Minute)
	auditLogger := audit.NewLogger(log)

	// 10. Initialize handlers
	statementHandler := handler.NewStatementIntakeHandler(
		ingestionService, verifier, rateLimiter, auditLogger, log, cfg.MaxBodyBytes)
	applicationHandler := handler.NewApplicationIntakeHandler(
		applicationService, verifier, rateLimiter, auditLogger, log, cfg.MaxBodyBytes)

	var redisPinger handler.Pinger
	if redisClient != nil {
		redisPinger = redisClient
	}
	healthHandler := handler.NewHealthHandler(handler.PingerFunc(pool.Health), redisPinger, log)

	// 11. Setup HTTP routes
	mux := http.NewServeMux()
	mux.Handle("POST /webhooks/statement-intake", statementHandler)
	mux.Handle("POST /webhooks/application-intake", applicationHandler)
	mux.HandleFunc("GET /healthz", healthHandler.Health)
	mux.HandleFunc("GET /readyz", healthHandler.Ready)
	mux.Handle("GET /metrics", promhttp.Handler())

	// Chain middleware: request ID -> content type -> tracing -> metrics
	rootHandler := middleware.RequestID(log)(
		middleware.JSONContentType(log)(
			otelhttp.NewHandler(metrics.HTTPMetricsMiddleware(mux), "http.server"),
		),
	)

	// 12. Start HTTP server
	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.ServerPort),
		Handler:      rootHandler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	log.Info("server starting",
		slog.Int("port", cfg.ServerPort),
		slog.String("auth", "webhook-secret"),
		slog.Bool("timestamp_required", requireTimestamp),
		slog.Int("rate_limit_per_minute", cfg.RateLimitPerMinute),
	)

	// Handle graceful shutdown
	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error("server error", slog.String("error", err.Error()))
		}
	}()

	// Wait for shutdown signal
	<-sigChan
	log.Info("shutdown signal received")

	// Graceful shutdown
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Error("shutdown error", slog.String("error", err.Error()))
	}

	cancel() // Stop refresh worker
	rateLimiter.Stop()
	if err := shutdownTracing(shutdownCtx); err != nil {
		log.Error("tracing shutdown error", slog.String("error", err.Error()))
	}
	log.Info("server stopped")
}
