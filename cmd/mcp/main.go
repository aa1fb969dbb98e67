package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	"github.com/foodthrift/paysmallsmall/internal/app"
	mcpinternal "github.com/foodthrift/paysmallsmall/internal/mcp"
	"github.com/foodthrift/paysmallsmall/pkg/config"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		observability.LoggerFromEnv().Error("failed to load config", "error", err)
		os.Exit(1)
	}

	logCfg := observability.DefaultLogConfig()
	logCfg.Output = os.Stdout
	if cfg.IsDevelopment() {
		logCfg.Level = observability.LogLevelDebug
	}
	logCfg.ServiceVersion = cli.Version
	logger := observability.NewLogger(logCfg).With("component", "mcp")

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	if err := mcpinternal.Serve(ctx, cfg, cli.NewApp(container), logger); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("mcp server error", "error", err)
		os.Exit(1)
	}
}
