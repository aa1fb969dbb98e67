package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodthrift/paysmallsmall/adapter/api"
	"github.com/foodthrift/paysmallsmall/adapter/cli"
	"github.com/foodthrift/paysmallsmall/internal/app"
	"github.com/foodthrift/paysmallsmall/pkg/config"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

const shutdownTimeout = 10 * time.Second

func main() {
	cfg, err := config.Load()
	if err != nil {
		observability.LoggerFromEnv().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	if cfg.IsDevelopment() {
		logCfg.Level = observability.LogLevelDebug
	} else {
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
	}
	logCfg.ServiceVersion = cli.Version
	logger := observability.NewLogger(logCfg).With("component", "api")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = cfg.APIAddr
	serverCfg.CORSOrigins = cfg.CORSOrigins
	serverCfg.RateLimit = cfg.APIRateLimit
	serverCfg.RateBurst = cfg.APIRateBurst

	deps := api.Dependencies{
		App:     cli.NewApp(container),
		Metrics: container.Metrics,
	}
	if container.Prometheus != nil {
		deps.MetricsHandler = container.Prometheus.Handler()
	}

	server, err := api.NewServer(serverCfg, deps, logger)
	if err != nil {
		logger.Error("failed to create API server", "error", err)
		os.Exit(1)
	}

	// Graceful shutdown
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer shutdownCancel()
		if err := server.Shutdown(shutdownCtx); err != nil && err != http.ErrServerClosed {
			logger.Warn("API server shutdown error", "error", err)
		}
		cancel()
	}()

	if err := server.Start(); err != nil {
		logger.Error("API server error", "error", err)
		os.Exit(1)
	}
	<-ctx.Done()
}
