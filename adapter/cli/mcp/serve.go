package mcp

import (
	"context"
	"errors"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	mcpinternal "github.com/foodthrift/paysmallsmall/internal/mcp"
	"github.com/foodthrift/paysmallsmall/pkg/config"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server",
	Long: `Start an MCP server over HTTP exposing plans, subscriptions, payments
and the ledger export. Set MCP_AUTH_TOKEN to require a bearer token.

Examples:
  paysmall mcp serve
  paysmall mcp serve --addr :8090`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := cli.RequireApp()
		if err != nil {
			return err
		}
		cfg, err := config.Load()
		if err != nil {
			return err
		}
		if serveAddr != "" {
			cfg.MCPAddr = serveAddr
		}

		logger := newServerLogger(cmd.ErrOrStderr(), cfg)
		err = mcpinternal.Serve(cmd.Context(), cfg, app, logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}

func newServerLogger(out io.Writer, cfg *config.Config) *slog.Logger {
	logCfg := observability.DefaultLogConfig()
	if cfg.IsProduction() {
		logCfg = observability.ProductionLogConfig()
	}
	if cfg.IsDevelopment() || cli.Verbose() {
		logCfg.Level = observability.LogLevelDebug
	} else if cfg.LogLevel != "" {
		logCfg.Level = observability.LogLevel(cfg.LogLevel)
	}
	logCfg.Output = out
	logCfg.ServiceVersion = cli.Version
	return observability.NewLogger(logCfg).With("component", "mcp")
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (default from MCP_ADDR)")
}
