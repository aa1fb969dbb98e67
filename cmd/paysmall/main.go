package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	cliAuth "github.com/foodthrift/paysmallsmall/adapter/cli/auth"
	"github.com/foodthrift/paysmallsmall/adapter/cli/mcp"
	"github.com/foodthrift/paysmallsmall/adapter/cli/plans"
	"github.com/foodthrift/paysmallsmall/adapter/cli/subs"
	"github.com/foodthrift/paysmallsmall/internal/app"
	"github.com/foodthrift/paysmallsmall/pkg/config"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

func main() {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	go func() {
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		slog.Warn("failed to load config, using development mode", "error", err)
		cfg = &config.Config{AppEnv: "development"}
	}

	logger := newLogger(cfg)
	cli.SetLogger(logger)

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		// Commands report ErrNotInitialized themselves.
		logger.Error("failed to initialize container", "error", err)
		cli.SetApp(nil)
	} else {
		defer container.Close()
		cli.SetApp(cli.NewApp(container))
	}

	cli.AddCommand(plans.Cmd)
	cli.AddCommand(subs.Cmd)
	cli.AddCommand(cliAuth.Cmd)
	cli.AddCommand(mcp.Cmd)

	cli.Execute(ctx)
}

// newLogger keeps the terminal quiet unless LOG_LEVEL asks otherwise.
func newLogger(cfg *config.Config) *slog.Logger {
	logCfg := observability.DefaultLogConfig()
	logCfg.Level = observability.LogLevelWarn
	if os.Getenv("LOG_LEVEL") != "" {
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
	}
	logCfg.ServiceVersion = cli.Version
	return observability.NewLogger(logCfg).With("component", "cli")
}
