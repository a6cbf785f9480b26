// AngelaMos | 2026
// main.go

package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/carterperez-dev/templates/farm-backoffice/internal/config"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/core"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/devapi"
	"github.com/carterperez-dev/templates/farm-backoffice/internal/server"
)

const drainDelay = 5 * time.Second

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	if err := run(*configPath); err != nil {
		slog.Error("devapi stopped", "error", err)
		os.Exit(1)
	}
}

func run(configPath string) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}

	logger := core.NewLogger(cfg.Log)
	slog.SetDefault(logger)
	logger.Info("starting development api",
		"version", cfg.App.Version,
		"environment", cfg.App.Environment,
		"seed_users", len(cfg.DevAPI.Users),
	)
	if cfg.IsProduction() {
		logger.Warn("devapi serves fixture data and seeded accounts; do not expose it")
	}

	telemetry := startTelemetry(ctx, cfg, logger)

	rdb, closeRedis := connectRedis(ctx, cfg.DevAPI.RedisURL, logger)
	defer closeRedis()

	app, err := devapi.New(cfg, rdb, logger)
	if err != nil {
		return err
	}
	logger.Info("signing access tokens",
		"algorithm", "ES256",
		"key_id", app.JWT.KeyID(),
		"ephemeral", cfg.JWT.PrivateKeyPath == "",
	)

	srv := server.New(server.Config{
		ServerConfig:  cfg.DevAPI.Server,
		HealthHandler: app.Health,
		Logger:        logger,
	})
	app.Mount(srv.Router())

	serveErr := make(chan error, 1)
	go func() { serveErr <- srv.Start() }()

	select {
	case err := <-serveErr:
		return err
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		cfg.DevAPI.Server.ShutdownTimeout+drainDelay+5*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx, drainDelay); err != nil {
		logger.Error("server shutdown", "error", err)
	}
	if err := telemetry.Shutdown(shutdownCtx); err != nil {
		logger.Error("telemetry shutdown", "error", err)
	}

	logger.Info("devapi stopped")
	return nil
}

// startTelemetry never fails the process; a broken collector only costs
// traces.
func startTelemetry(ctx context.Context, cfg *config.Config, logger *slog.Logger) *core.Telemetry {
	tel, err := core.NewTelemetry(ctx, cfg.Otel, cfg.App)
	if err != nil {
		logger.Warn("tracing disabled", "error", err)
		return &core.Telemetry{Tracer: core.NoopTracer()}
	}
	if cfg.Otel.Enabled {
		logger.Info("tracing enabled", "endpoint", cfg.Otel.Endpoint)
	}
	return tel
}

// connectRedis returns a nil client when no URL is set or Redis is down;
// login throttling then stays in process.
func connectRedis(ctx context.Context, url string, logger *slog.Logger) (*redis.Client, func()) {
	if url == "" {
		return nil, func() {}
	}

	r, err := core.NewRedis(ctx, url)
	if err != nil {
		logger.Warn("redis unavailable, rate limiting in process", "error", err)
		return nil, func() {}
	}

	logger.Info("redis connected")
	return r.Client, func() {
		if err := r.Close(); err != nil {
			logger.Error("redis close", "error", err)
		}
	}
}
