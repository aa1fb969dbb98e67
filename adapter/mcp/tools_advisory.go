package mcp

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	"github.com/foodthrift/paysmallsmall/internal/export"
)

type exportInput struct {
	Path string `json:"path,omitempty"`
}

func registerAdvisoryTools(srv *mcp.Server, t *toolset) {
	srv.Tool("advisory.advice").
		Description("A short savings tip for the current user").
		Handler(t.advice)

	srv.Tool("advisory.briefing").
		Description("Contribution trends across the catalog (administrator only)").
		Handler(t.briefing)

	srv.Tool("export.workbook").
		Description("Write the current user's ledger to an XLSX workbook").
		Handler(t.exportWorkbook)
}

func (t *toolset) advice(ctx context.Context, input struct{}) (map[string]string, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	user := t.app.CurrentUser(ctx)
	sum, err := t.app.Ledger.Summary(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	prompt := fmt.Sprintf("User %s has %s in total food savings across %d plans.",
		user.Name, cli.FormatAmount(sum.TotalSaved), sum.Active)
	return map[string]string{"advice": t.app.Advisory.FinancialAdvice(ctx, prompt)}, nil
}

func (t *toolset) briefing(ctx context.Context, input struct{}) (map[string]string, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	if _, err := t.app.RequireAdmin(ctx); err != nil {
		return nil, err
	}
	plans, err := t.app.Catalog.List(ctx)
	if err != nil {
		return nil, err
	}
	return map[string]string{"briefing": t.app.Advisory.PlanBriefing(ctx, plans)}, nil
}

func (t *toolset) exportWorkbook(ctx context.Context, input exportInput) (map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	user := t.app.CurrentUser(ctx)
	data, err := export.Collect(ctx, t.app.Ledger, t.app.Catalog, user.ID)
	if err != nil {
		return nil, err
	}
	path := input.Path
	if path == "" {
		path = export.FileName(user.ID, time.Now())
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o600)
	if err != nil {
		return nil, err
	}
	if err := export.Write(f, data); err != nil {
		_ = f.Close()
		return nil, err
	}
	if err := f.Close(); err != nil {
		return nil, err
	}
	return map[string]any{
		"path":          path,
		"subscriptions": len(data.Subscriptions),
		"transactions":  len(data.Transactions),
	}, nil
}
