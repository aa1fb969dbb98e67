package mcp

import (
	"context"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
)

func registerCoreTools(srv *mcp.Server, t *toolset) {
	srv.Tool("cli.health").
		Description("Check storage and broker connectivity").
		Handler(func(ctx context.Context, input struct{}) (map[string]any, error) {
			return t.health(ctx)
		})

	srv.Tool("cli.version").
		Description("Get CLI version information").
		Handler(func(ctx context.Context, input struct{}) (map[string]string, error) {
			return map[string]string{
				"version":   cli.Version,
				"commit":    cli.Commit,
				"buildDate": cli.BuildDate,
			}, nil
		})
}

func (t *toolset) health(ctx context.Context) (map[string]any, error) {
	if t.app == nil {
		return nil, errNotInitialized
	}
	if t.app.Health == nil {
		return map[string]any{"status": "ok"}, nil
	}
	report := t.app.Health.Check(ctx)
	checks := make(map[string]any, len(report.Checks))
	for name, r := range report.Checks {
		checks[name] = map[string]any{"status": r.Status, "message": r.Message}
	}
	return map[string]any{"status": report.Status, "checks": checks}, nil
}
