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

	"github.com/boddenberg/financio-bfa-go/internal/aggregate"
	"github.com/boddenberg/financio-bfa-go/internal/config"
	"github.com/boddenberg/financio-bfa-go/internal/handler"
	"github.com/boddenberg/financio-bfa-go/internal/infra/cache"
	"github.com/boddenberg/financio-bfa-go/internal/infra/client"
	"github.com/boddenberg/financio-bfa-go/internal/infra/observability"
	"github.com/boddenberg/financio-bfa-go/internal/infra/realtime"
	"github.com/boddenberg/financio-bfa-go/internal/infra/resilience"
	"github.com/boddenberg/financio-bfa-go/internal/infra/sqlite"
	"github.com/boddenberg/financio-bfa-go/internal/infra/supabase"
	"github.com/boddenberg/financio-bfa-go/internal/port"
	"github.com/boddenberg/financio-bfa-go/internal/service"

	"go.uber.org/zap"
)

func main() {
	// --- Load .env file (for local development) ---
	if err := config.LoadDotEnv(".env"); err != nil {
		fmt.Fprintf(os.Stderr, "warning: %v\n", err)
	}

	// --- Config ---
	cfg := config.Load()

	// --- Logger ---
	logger := observability.NewLogger(cfg.LogLevel)
	defer logger.Sync()

	if err := cfg.Validate(); err != nil {
		logger.Fatal("invalid configuration", zap.Error(err))
	}
	loc, _ := cfg.Location()

	logger.Info("configuration loaded",
		zap.Int("port", cfg.Port),
		zap.String("log_level", cfg.LogLevel),
		zap.String("data_backend", cfg.DataBackend),
		zap.Duration("http_timeout", cfg.HTTPTimeout),
		zap.Duration("function_timeout", cfg.FunctionTimeout),
		zap.Duration("dashboard_cache_ttl", cfg.DashboardCacheTTL),
		zap.Int("max_retries", cfg.MaxRetries),
		zap.Duration("initial_backoff", cfg.InitialBackoff),
		zap.String("locale", cfg.Locale),
		zap.String("timezone", cfg.Timezone),
		zap.Bool("amqp", cfg.AMQPURL != ""),
		zap.Bool("dev_auth", cfg.DevAuth),
	)

	// --- Tracing ---
	if cfg.OTLPEndpoint != "" {
		shutdown, err := observability.InitTracer(cfg.OTLPEndpoint, "financio-bfa")
		if err != nil {
			logger.Fatal("failed to init tracer", zap.Error(err))
		}
		defer shutdown(context.Background())
	}

	// --- Metrics ---
	metrics := observability.NewMetrics()

	// --- Resilience ---
	resilienceCfg := resilience.Config{
		MaxRetries:     cfg.MaxRetries,
		InitialBackoff: cfg.InitialBackoff,
		MaxConcurrency: cfg.MaxConcurrency,
		Timeout:        cfg.HTTPTimeout,
	}
	httpClient := &http.Client{Timeout: cfg.HTTPTimeout}

	// --- Store ---
	var store port.Store
	switch cfg.DataBackend {
	case config.BackendSupabase:
		logger.Info("using Supabase as data backend", zap.String("supabase_url", cfg.SupabaseURL))
		store = supabase.NewClient(
			httpClient,
			cfg.SupabaseURL,
			cfg.SupabaseAnonKey,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("supabase"),
			resilienceCfg,
			logger,
		)
	case config.BackendSQLite:
		logger.Info("using sqlite as data backend", zap.String("path", cfg.SQLitePath))
		db, err := sqlite.Open(cfg.SQLitePath, logger)
		if err != nil {
			logger.Fatal("failed to open sqlite store", zap.Error(err))
		}
		defer db.Close()
		store = db
	}

	// --- Change events ---
	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	hub := realtime.NewHub(logger)
	var publisher port.EventPublisher = hub
	if cfg.AMQPURL != "" {
		bridge, err := realtime.NewBridge(cfg.AMQPURL, cfg.AMQPExchange, cfg.AMQPQueue, logger)
		if err != nil {
			logger.Fatal("failed to connect to broker", zap.Error(err))
		}
		defer bridge.Close()
		publisher = realtime.NewFanout(logger, hub, bridge)
		go func() {
			backoff := resilience.Config{MaxRetries: 5, InitialBackoff: time.Second}
			if err := bridge.RunForever(ctx, hub, backoff); err != nil && !errors.Is(err, context.Canceled) {
				logger.Error("realtime bridge stopped", zap.Error(err))
			}
		}()
	}

	// --- Services ---
	dashCache := cache.New[*service.LedgerSnapshot](cfg.DashboardCacheTTL)
	defer dashCache.Stop()

	ledger := service.NewLedger(store, store, publisher, cfg.DatabaseID, logger)
	dashboard := service.NewDashboard(store, store, dashCache, aggregate.NewLabeler(cfg.Locale, loc), metrics, logger)
	go dashboard.Watch(ctx, hub)

	var advisor *service.Advisor
	if cfg.FunctionURL != "" {
		fnCfg := resilienceCfg
		fnCfg.Timeout = cfg.FunctionTimeout
		executor := client.NewFunctionClient(
			&http.Client{Timeout: cfg.FunctionTimeout},
			cfg.FunctionURL,
			cfg.FunctionID,
			cfg.SupabaseServiceKey,
			resilience.NewCircuitBreaker("advisor-function"),
			fnCfg,
		)
		advisor = service.NewAdvisor(store, store, executor, dashboard, metrics, logger)
		logger.Info("advisor enabled", zap.String("function_id", cfg.FunctionID))
	} else {
		logger.Warn("advisor: FUNCTION_URL not configured, advisor routes unavailable")
	}

	// --- Router ---
	router := handler.NewRouter(handler.Services{
		Ledger:    ledger,
		Dashboard: dashboard,
		Advisor:   advisor,
		Events:    publisher,
		Store:     store,
	}, handler.AuthConfig{JWTSecret: []byte(cfg.JWTSecret), DevAuth: cfg.DevAuth}, metrics, logger)

	// --- Server ---
	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      router,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: cfg.FunctionTimeout + 10*time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// --- Graceful shutdown ---
	go func() {
		logger.Info("server starting", zap.Int("port", cfg.Port))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("server failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	logger.Info("server shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Fatal("server forced shutdown", zap.Error(err))
	}
	stop()

	logger.Info("server stopped")
}
