package mcp

import (
	"errors"
	"log/slog"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
)

// ToolDependencies provides the services and logger for MCP tools.
type ToolDependencies struct {
	App    *cli.App
	Logger *slog.Logger
}

// RegisterCLITools registers MCP tools that mirror CLI functionality.
func RegisterCLITools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.App == nil {
		return errors.New("app is required")
	}
	t := newToolset(deps)

	registerCoreTools(srv, t)
	registerPlanTools(srv, t)
	registerSavingsTools(srv, t)
	registerPaymentTools(srv, t)
	registerSessionTools(srv, t)
	registerAdvisoryTools(srv, t)
	return nil
}
