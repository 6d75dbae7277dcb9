package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/wolfman30/wpchat-gateway/cmd/mainconfig"
	"github.com/wolfman30/wpchat-gateway/internal/api/router"
	"github.com/wolfman30/wpchat-gateway/internal/app/bootstrap"
	"github.com/wolfman30/wpchat-gateway/internal/audit"
	"github.com/wolfman30/wpchat-gateway/internal/booking"
	appconfig "github.com/wolfman30/wpchat-gateway/internal/config"
	"github.com/wolfman30/wpchat-gateway/internal/conversation"
	"github.com/wolfman30/wpchat-gateway/internal/events"
	httpmiddleware "github.com/wolfman30/wpchat-gateway/internal/http/middleware"
	"github.com/wolfman30/wpchat-gateway/internal/observability/metrics"
	"github.com/wolfman30/wpchat-gateway/internal/tenancy"
	"github.com/wolfman30/wpchat-gateway/internal/webhook"
	"github.com/wolfman30/wpchat-gateway/pkg/logging"
)

func main() {
	if err := godotenv.Load(); err == nil {
		fmt.Println("loaded .env")
	}
	cfg := appconfig.Load()
	logger := logging.NewWithFormat(cfg.LogLevel, cfg.LogFormat)
	logger.Info("starting wpchat gateway", "env", cfg.Env, "port", cfg.Port)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("gateway stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("server stopped")
}

func run(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) error {
	pool, err := bootstrap.BuildPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return err
	}
	defer pool.Close()

	bookingPool := pool
	if cfg.BookingDatabaseURL != "" && cfg.BookingDatabaseURL != cfg.DatabaseURL {
		if bookingPool, err = bootstrap.BuildPool(ctx, cfg.BookingDatabaseURL); err != nil {
			return err
		}
		defer bookingPool.Close()
	}

	redisClient := bootstrap.BuildRedisClient(ctx, cfg, logger, true)
	if redisClient != nil {
		defer func() { _ = redisClient.Close() }()
	}

	metricsHandler, gatewayMetrics := setupMetrics()

	var awsCfg *aws.Config
	if bootstrap.NeedsAWS(cfg) {
		loaded, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			return fmt.Errorf("load aws config: %w", err)
		}
		awsCfg = &loaded
	}

	orchestrator, tenantsHandler, auditHandler, err := buildGateway(ctx, cfg, pool, bookingPool, redisClient, awsCfg, gatewayMetrics, logger)
	if err != nil {
		return err
	}

	limiter := httpmiddleware.NewRateLimiter(cfg.WebhookRateLimit, cfg.WebhookRateBurst)
	go limiter.Run(ctx)

	handler := router.New(&router.Config{
		Logger:             logger,
		Webhook:            webhook.NewHandler(orchestrator, logger),
		Tenants:            tenantsHandler,
		Audit:              auditHandler,
		RateLimiter:        limiter,
		MetricsHandler:     metricsHandler,
		WebhookSecret:      cfg.WebhookSecret,
		AdminAuthSecret:    cfg.AdminJWTSecret,
		CORSAllowedOrigins: cfg.CORSAllowedOrigins,
	})
	if cfg.AdminJWTSecret == "" {
		logger.Warn("ADMIN_JWT_SECRET not set; admin api disabled")
	}

	// Turns can take two LLM calls plus delivery retries, so the write
	// timeout is well above the LLM timeout.
	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      2*cfg.LLMTimeout + 45*time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}

// buildGateway wires the webhook pipeline and the admin handlers.
func buildGateway(
	ctx context.Context,
	cfg *appconfig.Config,
	pool, bookingPool *pgxpool.Pool,
	redisClient *redis.Client,
	awsCfg *aws.Config,
	gatewayMetrics *metrics.GatewayMetrics,
	logger *logging.Logger,
) (*webhook.Orchestrator, *tenancy.Handler, *audit.Handler, error) {
	tenantStore := tenancy.NewPostgresStore(pool)
	var (
		resolver    tenancy.Resolver = tenantStore
		invalidator tenancy.Invalidator
	)
	if redisClient != nil {
		cached := tenancy.NewCachedResolver(tenantStore, redisClient, cfg.TenantCacheTTL, logger)
		resolver, invalidator = cached, cached
	}

	chat, err := bootstrap.BuildChatClient(cfg)
	if err != nil {
		return nil, nil, nil, err
	}
	summaryLLM, err := bootstrap.BuildSummarizerLLM(ctx, cfg, conversation.NewOpenAILLMClient(chat, cfg.LLMModel), awsCfg, logger)
	if err != nil {
		return nil, nil, nil, err
	}
	summarizer := conversation.NewSummarizer(summaryLLM, cfg.LLMModel, logger,
		conversation.WithSummarizerMetrics(gatewayMetrics),
		conversation.WithSummaryTimeout(cfg.LLMTimeout),
	)

	bookingRepo := booking.NewRepository(bookingPool)
	generator := conversation.NewGenerator(chat, cfg.LLMModel, logger,
		conversation.WithToolRouter(booking.NewRouter(bookingRepo, logger, booking.WithMetrics(gatewayMetrics))),
		conversation.WithKnowledgeSource(booking.NewKnowledge(bookingRepo, logger)),
		conversation.WithMaxTokens(cfg.MaxResponseTokens),
		conversation.WithCompletionTimeout(cfg.LLMTimeout),
		conversation.WithGeneratorMetrics(gatewayMetrics),
	)

	auditLog := audit.NewLog(stdlib.OpenDBFromPool(pool))
	opts := []webhook.OrchestratorOption{
		webhook.WithMessageThreshold(cfg.MessageThreshold),
		webhook.WithAudit(auditLog),
		webhook.WithMetrics(gatewayMetrics),
	}
	if redisClient != nil {
		opts = append(opts, webhook.WithLocker(webhook.NewRedisLocker(redisClient, 0)))
	}
	if cfg.WebhookDedup {
		opts = append(opts, webhook.WithDedup(events.NewProcessedStore(pool)))
	}
	if archiveStore := bootstrap.BuildArchiveStore(cfg, awsCfg, logger); archiveStore != nil {
		opts = append(opts, webhook.WithArchive(archiveStore))
	}

	orchestrator := webhook.NewOrchestrator(
		resolver,
		conversation.NewPostgresStore(pool),
		summarizer,
		generator,
		bootstrap.BuildDeliveryClient(cfg, gatewayMetrics, logger),
		logger,
		opts...,
	)
	return orchestrator,
		tenancy.NewHandler(tenantStore, invalidator, logger),
		audit.NewHandler(auditLog, logger),
		nil
}

// setupMetrics registers the gateway collectors on a dedicated registry
// alongside the Go runtime and process collectors.
func setupMetrics() (http.Handler, *metrics.GatewayMetrics) {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{}), metrics.NewGatewayMetrics(reg)
}
