package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"

	"github.com/zsiec/smpte/internal/config"
	"github.com/zsiec/smpte/internal/health"
	"github.com/zsiec/smpte/internal/logger"
	"github.com/zsiec/smpte/internal/presets"
	"github.com/zsiec/smpte/internal/server"
	"github.com/zsiec/smpte/pkg/version"
)

func runServe(args []string, stderr io.Writer) error {
	fs := flag.NewFlagSet("serve", flag.ContinueOnError)
	fs.SetOutput(stderr)
	configPath := fs.String("config", "", "Path to configuration file (defaults and SMPTE_* env when empty)")
	if err := fs.Parse(args); err != nil {
		return errUsage
	}

	cfg, err := config.Load(*configPath)
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	log, err := logger.New(&cfg.Logging)
	if err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}

	log.WithField("version", version.GetInfo().Short()).Info("Starting smpte timecode server")
	log.WithField("config_path", *configPath).Debug("Configuration loaded")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, redisClient, err := openStore(ctx, cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			log.WithError(err).Error("Failed to close preset store")
		}
	}()

	if cfg.Timecode.SeedPresets {
		added, err := presets.Seed(ctx, store)
		if err != nil {
			return fmt.Errorf("failed to seed presets: %w", err)
		}
		log.WithField("added", added).Info("Standard presets seeded")
	}

	srv, err := server.New(cfg, log, store, redisClient)
	if err != nil {
		return err
	}

	switch {
	case cfg.MetricsShareServerPort():
		mountMetrics(srv, cfg.Metrics.Path)
		log.WithField("path", cfg.Metrics.Path).Info("Serving metrics on the API listener")
	case cfg.Metrics.Enabled:
		go startMetricsServer(ctx, cfg.Metrics, logger.NewLogrusAdapter(logger.WithComponent(log, "metrics")))
	}

	logStartupHealth(ctx, srv.HealthManager(), logger.WithComponent(log, "health"))

	if err := srv.Start(ctx); err != nil {
		return fmt.Errorf("server error: %w", err)
	}

	return nil
}

// openStore connects to Redis when it is enabled and falls back to an
// in-memory store otherwise.
func openStore(ctx context.Context, cfg *config.Config, log *logrus.Logger) (presets.Store, *redis.Client, error) {
	if !cfg.Redis.Enabled {
		log.Info("Redis disabled, keeping presets in memory")
		return presets.NewMemoryStore(), nil, nil
	}

	client := redis.NewClient(&redis.Options{
		Addr:         cfg.Redis.Addresses[0],
		Password:     cfg.Redis.Password,
		DB:           cfg.Redis.DB,
		MaxRetries:   cfg.Redis.MaxRetries,
		DialTimeout:  cfg.Redis.DialTimeout,
		ReadTimeout:  cfg.Redis.ReadTimeout,
		WriteTimeout: cfg.Redis.WriteTimeout,
		PoolSize:     cfg.Redis.PoolSize,
		MinIdleConns: cfg.Redis.MinIdleConns,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := client.Ping(pingCtx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}
	log.WithField("addr", cfg.Redis.Addresses[0]).Info("Connected to Redis successfully")

	return presets.NewRedisStore(client, log, ""), client, nil
}

// startMetricsServer serves Prometheus metrics until ctx is done.
func startMetricsServer(ctx context.Context, cfg config.MetricsConfig, log logger.Logger) {
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, promhttp.Handler())

	addr := fmt.Sprintf(":%d", cfg.Port)
	srv := &http.Server{Addr: addr, Handler: mux, ReadHeaderTimeout: 5 * time.Second}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.WithField("addr", addr).Info("Starting metrics server")
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.WithError(err).Error("Metrics server error")
	}
}

// mountMetrics serves Prometheus metrics from the API router.
func mountMetrics(srv *server.Server, path string) {
	srv.RegisterRoutes(func(r *mux.Router) {
		r.Handle(path, promhttp.Handler()).Methods(http.MethodGet)
	})
}

// logStartupHealth runs every checker once so failing dependencies show up
// in the log before the first probe.
func logStartupHealth(ctx context.Context, mgr *health.Manager, log *logrus.Entry) health.Status {
	for name, check := range mgr.RunChecks(ctx) {
		entry := log.WithFields(logrus.Fields{"checker": name, "status": check.Status})
		if check.Status != health.StatusOK {
			entry.WithField("message", check.Message).Warn("Health check not passing at startup")
			continue
		}
		entry.Debug("Health check passed")
	}

	status := mgr.GetOverallStatus()
	log.WithField("status", status).Info("Startup health checked")
	return status
}
