package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/wolfman30/urbanhaven-leadbot/cmd/mainconfig"
	"github.com/wolfman30/urbanhaven-leadbot/internal/analytics"
	"github.com/wolfman30/urbanhaven-leadbot/internal/api/router"
	"github.com/wolfman30/urbanhaven-leadbot/internal/app/bootstrap"
	appconfig "github.com/wolfman30/urbanhaven-leadbot/internal/config"
	"github.com/wolfman30/urbanhaven-leadbot/internal/conversation"
	httpmiddleware "github.com/wolfman30/urbanhaven-leadbot/internal/http/middleware"
	"github.com/wolfman30/urbanhaven-leadbot/internal/leads"
	"github.com/wolfman30/urbanhaven-leadbot/internal/observability/metrics"
	"github.com/wolfman30/urbanhaven-leadbot/internal/webchat"
	"github.com/wolfman30/urbanhaven-leadbot/pkg/logging"
)

func main() {
	// .env is optional; real environment variables win
	_ = godotenv.Load()

	cfg := appconfig.Load()
	logger := logging.NewWithOptions(logging.Options{Level: cfg.LogLevel, Format: cfg.LogFormat})
	logger.Info("starting urbanhaven chatbot API server",
		"env", cfg.Env,
		"port", cfg.Port,
		"session_store", cfg.SessionStore,
		"lead_store", cfg.LeadStore,
		"responder", cfg.ResponderMode,
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	res, closeResources, err := openResources(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to open backing services", "error", err)
		os.Exit(1)
	}
	defer closeResources()

	handler, cleanup, err := buildHandler(ctx, cfg, res, prometheus.DefaultRegisterer, promhttp.Handler(), logger)
	if err != nil {
		logger.Error("failed to build server", "error", err)
		os.Exit(1)
	}
	defer cleanup()

	srv := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      handler,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		logger.Info("server listening", "addr", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}()

	<-ctx.Done()
	logger.Info("shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", "error", err)
		os.Exit(1)
	}

	logger.Info("server stopped")
	fmt.Println("Server exited gracefully")
}

// openResources connects only to the services the configured backends use.
func openResources(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) (bootstrap.Resources, func(), error) {
	var res bootstrap.Resources
	closers := []func(){}
	closeAll := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			closers[i]()
		}
	}

	if cfg.SessionStore == bootstrap.StoreRedis {
		res.Redis = bootstrap.BuildRedisClient(ctx, cfg, logger, true)
		if res.Redis != nil {
			client := res.Redis
			closers = append(closers, func() { _ = client.Close() })
		}
	}

	if usesPostgres(cfg) {
		pool := connectPostgresPool(ctx, cfg, logger)
		if pool != nil {
			res.Pool = pool
			closers = append(closers, pool.Close)
		}
	}

	if mainconfig.NeedsAWS(cfg) {
		awsCfg, err := mainconfig.LoadAWSConfig(ctx, cfg)
		if err != nil {
			closeAll()
			return res, func() {}, fmt.Errorf("load AWS config: %w", err)
		}
		res.AWS = &awsCfg
	}

	return res, closeAll, nil
}

func usesPostgres(cfg *appconfig.Config) bool {
	return cfg.SessionStore == bootstrap.StorePostgres || cfg.LeadStore == bootstrap.StorePostgres
}

func connectPostgresPool(ctx context.Context, cfg *appconfig.Config, logger *logging.Logger) *pgxpool.Pool {
	if strings.TrimSpace(cfg.DatabaseURL) == "" {
		return nil
	}
	pool, err := bootstrap.BuildPostgresPool(ctx, cfg)
	if err != nil {
		logger.Error("failed to connect to postgres", "error", err)
		return nil
	}
	logger.Info("connected to postgres")
	return pool
}

func setupMetrics(reg prometheus.Registerer) *metrics.ConversationMetrics {
	if reg == nil {
		return nil
	}
	if reg != prometheus.DefaultRegisterer {
		reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	}
	return metrics.NewConversationMetrics(reg)
}

// buildHandler wires stores, engine, lead intake and routes. The cleanup
// func stops background work and releases clients it created.
func buildHandler(ctx context.Context, cfg *appconfig.Config, res bootstrap.Resources, reg prometheus.Registerer, metricsHandler http.Handler, logger *logging.Logger) (http.Handler, func(), error) {
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("cleanup failed", "error", err)
			}
		}
	}
	fail := func(err error) (http.Handler, func(), error) {
		cleanup()
		return nil, func() {}, err
	}

	m := setupMetrics(reg)

	kb, err := bootstrap.LoadKnowledge(cfg, logger)
	if err != nil {
		return fail(err)
	}

	store, err := bootstrap.BuildSessionStore(cfg, res, logger)
	if err != nil {
		return fail(err)
	}

	responder, closeLLM, err := bootstrap.BuildResponder(ctx, cfg, kb, res.AWS, m, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeLLM)

	repo, closeRepo, err := bootstrap.BuildLeadRepository(cfg, res, logger)
	if err != nil {
		return fail(err)
	}
	closers = append(closers, closeRepo)

	sender, provider := bootstrap.BuildEmailSender(cfg, res.AWS, logger)
	intakeOpts := []leads.IntakeOption{leads.WithMetrics(m)}
	if notifier := bootstrap.BuildLeadNotifier(cfg, sender, logger); notifier != nil {
		logger.Info("lead notifications enabled", "provider", provider)
		intakeOpts = append(intakeOpts, leads.WithNotifier(notifier))
	} else {
		logger.Warn("lead notifications disabled; set ADMIN_EMAIL or EMAIL_FROM to enable")
	}
	intake := leads.NewIntake(repo, logger, intakeOpts...)

	engine := conversation.NewEngine(store, responder, logger,
		conversation.WithLeadSubmitter(bootstrap.NewLeadHandoff(intake)),
		conversation.WithHistoryWindow(cfg.HistoryWindow),
		conversation.WithMetrics(m),
	)

	var limiter *httpmiddleware.RateLimiter
	if cfg.ChatRateLimitRPS > 0 {
		limiter = httpmiddleware.NewRateLimiter(cfg.ChatRateLimitRPS, cfg.ChatRateLimitBurst)
		limiterCtx, stopLimiter := context.WithCancel(ctx)
		go limiter.Run(limiterCtx)
		closers = append(closers, func() error { stopLimiter(); return nil })
	}

	chatOpts := webchat.Options{AllowedOrigins: cfg.CORSAllowedOrigins}
	if limiter != nil {
		chatOpts.Limiter = limiter
	}

	handler := router.New(&router.Config{
		Logger:              logger,
		ConversationHandler: conversation.NewHandler(engine, logger),
		LeadsHandler:        leads.NewHandler(intake, logger),
		AnalyticsHandler:    analytics.NewHandler(store, logger),
		WebChatHandler:      webchat.NewHandler(engine, chatOpts, logger),
		Knowledge:           kb,
		MetricsHandler:      metricsHandler,
		CORSAllowedOrigins:  cfg.CORSAllowedOrigins,
		ChatLimiter:         limiter,
	})
	return handler, cleanup, nil
}
