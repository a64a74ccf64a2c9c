package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"

	"github.com/deckoviz/vizzy/internal/config"
	"github.com/deckoviz/vizzy/internal/httpapi"
	"github.com/deckoviz/vizzy/internal/intent"
	"github.com/deckoviz/vizzy/internal/orchestrator"
	"github.com/deckoviz/vizzy/internal/provider"
	"github.com/deckoviz/vizzy/internal/ratelimit"
	"github.com/deckoviz/vizzy/internal/session"
	"github.com/deckoviz/vizzy/internal/telemetry"
	"github.com/deckoviz/vizzy/internal/upload"
)

var version = "dev"

func main() {
	configDir := flag.String("config", "configs", "path to configuration directory")
	envFile := flag.String("env", ".env", "path to env file with provider keys")
	flag.Parse()

	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{
		Level: slog.LevelInfo,
	}))
	slog.SetDefault(logger)

	// Provider keys usually arrive via a local env file in development;
	// absence is fine, real deployments set the environment directly.
	if err := godotenv.Load(*envFile); err != nil && !os.IsNotExist(err) {
		logger.Warn("could not load env file", "path", *envFile, "error", err)
	}

	loader := config.NewLoader(*configDir, logger)
	if err := loader.Load(); err != nil {
		logger.Error("failed to load configuration", "error", err)
		os.Exit(1)
	}
	if err := loader.Watch(); err != nil {
		logger.Warn("failed to start config watcher", "error", err)
	}
	cfg := loader.Config()

	// Redis backs the per-session request limiter; without it the
	// limiter fails open and the service still runs.
	var rdb *redis.Client
	if cfg.Redis.Addr != "" {
		rdb = redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
			PoolSize: cfg.Redis.PoolSize,
		})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Warn("redis not reachable (rate limiting disabled)", "error", err)
			rdb = nil
		} else {
			logger.Info("redis connected")
		}
	}

	metrics := telemetry.NewMetrics(prometheus.DefaultRegisterer)

	// Image chain with hot reload when providers.yaml changes.
	chain := provider.NewChain(
		provider.BuildImageChain(loader.Providers()),
		cfg.Routing.DefaultTimeout,
		cfg.Routing.OverallTimeout,
		logger,
	)
	chain.OnFailure(metrics.RecordProviderFailure)
	chain.OnFallthrough(metrics.RecordFallthrough)
	loader.OnReload(func() {
		chain.SetProviders(provider.BuildImageChain(loader.Providers()))
		logger.Info("image provider chain reloaded")
	})

	text := provider.BuildTextProvider(loader.Providers())
	classifier := intent.NewModelClassifier(text)

	sessions := session.NewStore(
		cfg.Sessions.MaxEntries,
		cfg.Sessions.TTL,
		cfg.Quota.HomeDailyLimit,
		cfg.Quota.EnterpriseDailyLimit,
	)

	orch := orchestrator.New(
		sessions,
		intent.NewRouter(classifier, logger),
		chain,
		text,
		text.Model(),
		metrics,
		logger,
	)

	uploads, err := upload.NewStore(cfg.Uploads.Dir)
	if err != nil {
		logger.Error("failed to prepare upload directory", "error", err)
		os.Exit(1)
	}

	handler := httpapi.NewHandler(
		orch,
		sessions,
		uploads,
		ratelimit.NewLimiter(rdb),
		cfg.Redis.RequestsPerMinute,
		metrics,
		logger,
	)

	r := handler.Routes()
	r.Handle("/metrics", promhttp.Handler())
	r.Handle("/uploads/*", http.StripPrefix("/uploads/", http.FileServer(http.Dir(uploads.Dir()))))

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("vizzy starting", "addr", addr, "version", version)
		errCh <- srv.ListenAndServe()
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-quit:
		logger.Info("received shutdown signal", "signal", sig)
	case err := <-errCh:
		if err != nil && err != http.ErrServerClosed {
			logger.Error("server error", "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithTimeout(context.Background(), cfg.Server.GracefulShutdown)
	defer cancel()

	if err := srv.Shutdown(ctx); err != nil {
		logger.Error("graceful shutdown failed", "error", err)
		os.Exit(1)
	}
	logger.Info("vizzy stopped")
}
