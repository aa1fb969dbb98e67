package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources registers read-only views of the catalog and the
// current user's ledger.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}
	t := newToolset(deps)

	jsonResource(srv, "paysmall://plans", "Plans", "Active savings plans in the catalog",
		func(ctx context.Context) (any, error) {
			return t.listPlans(ctx, planListInput{})
		})

	jsonResource(srv, "paysmall://plans/archived", "Archived plans", "Plans retired from the catalog",
		func(ctx context.Context) (any, error) {
			return t.listPlans(ctx, planListInput{Archived: true})
		})

	jsonResource(srv, "paysmall://subscriptions", "Subscriptions", "All subscriptions of the current user",
		func(ctx context.Context) (any, error) {
			return t.listSubscriptions(ctx, subsListInput{All: true})
		})

	jsonResource(srv, "paysmall://transactions", "Transactions", "Ledger transactions of the current user, newest first",
		func(ctx context.Context) (any, error) {
			return t.transactions(ctx, historyInput{})
		})

	jsonResource(srv, "paysmall://summary", "Savings summary", "Total saved and targeted by the current user",
		func(ctx context.Context) (any, error) {
			return t.summary(ctx, struct{}{})
		})

	jsonResource(srv, "paysmall://status", "Payment countdown", "The subscription due first and the countdown to it",
		func(ctx context.Context) (any, error) {
			return t.dueStatus(ctx, struct{}{})
		})

	return nil
}

func jsonResource(srv *mcp.Server, uri, name, description string, load func(ctx context.Context) (any, error)) {
	srv.Resource(uri).
		Name(name).
		Description(description).
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			v, err := load(ctx)
			if err != nil {
				return nil, err
			}
			data, err := json.MarshalIndent(v, "", "  ")
			if err != nil {
				return nil, err
			}
			return &mcp.ResourceContent{
				URI:      uri,
				MimeType: "application/json",
				Text:     string(data),
			}, nil
		})
}
