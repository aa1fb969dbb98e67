package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"
)

type subsListInput struct {
	All bool `json:"all,omitempty"`
}

type subIDInput struct {
	ID string `json:"id" jsonschema:"required"`
}

type enrollInput struct {
	PlanID string `json:"plan_id" jsonschema:"required"`
}

type historyInput struct {
	Limit int `json:"limit,omitempty"`
}

func registerSavingsTools(srv *mcp.Server, t *toolset) {
	srv.Tool("subs.list").
		Description("List the current user's subscriptions with progress").
		Handler(t.listSubscriptions)

	srv.Tool("subs.enroll").
		Description("Enroll the current user in a plan; the first installment falls due in a week").
		Handler(t.enroll)

	srv.Tool("subs.cancel").
		Description("Cancel an active subscription").
		Handler(func(ctx context.Context, input subIDInput) (map[string]any, error) {
			return t.transition(ctx, input, false)
		})

	srv.Tool("subs.complete").
		Description("Mark an active subscription as completed").
		Handler(func(ctx context.Context, input subIDInput) (map[string]any, error) {
			return t.transition(ctx, input, true)
		})

	srv.Tool("subs.summary").
		Description("Total saved and targeted across all subscriptions").
		Handler(t.summary)

	srv.Tool("transactions.list").
		Description("List the current user's transactions, newest first").
		Handler(t.transactions)
}

func (t *toolset) listSubscriptions(ctx context.Context, input subsListInput) ([]map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	user := t.app.CurrentUser(ctx)
	subs, err := t.app.Ledger.ListActive(ctx, user.ID)
	if err != nil {
		return nil, err
	}
	out := make([]map[string]any, 0, len(subs))
	for _, s := range subs {
		if !input.All && !s.IsActive() {
			continue
		}
		out = append(out, subscriptionView(s, t.app.Catalog.Resolve(ctx, s.PlanID).Name))
	}
	return out, nil
}

func (t *toolset) enroll(ctx context.Context, input enrollInput) (map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	if input.PlanID == "" {
		return nil, errors.New("plan_id is required")
	}
	plan, err := t.app.Catalog.Lookup(ctx, input.PlanID)
	if err != nil {
		return nil, err
	}
	sub, err := t.app.Ledger.Enroll(ctx, t.app.CurrentUser(ctx).ID, plan)
	if err != nil {
		return nil, err
	}
	return subscriptionView(sub, plan.Name), nil
}

func (t *toolset) transition(ctx context.Context, input subIDInput, complete bool) (map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	if input.ID == "" {
		return nil, errors.New("id is required")
	}
	userID := t.app.CurrentUser(ctx).ID
	change := t.app.Ledger.Cancel
	if complete {
		change = t.app.Ledger.Complete
	}
	sub, err := change(ctx, userID, input.ID)
	if err != nil {
		return nil, err
	}
	return subscriptionView(sub, t.app.Catalog.Resolve(ctx, sub.PlanID).Name), nil
}

func (t *toolset) summary(ctx context.Context, input struct{}) (map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	sum, err := t.app.Ledger.Summary(ctx, t.app.CurrentUser(ctx).ID)
	if err != nil {
		return nil, err
	}
	return summaryView(sum), nil
}

func (t *toolset) transactions(ctx context.Context, input historyInput) ([]map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	txs, err := t.app.Ledger.Transactions(ctx, t.app.CurrentUser(ctx).ID)
	if err != nil {
		return nil, err
	}
	if input.Limit > 0 && len(txs) > input.Limit {
		txs = txs[:input.Limit]
	}
	out := make([]map[string]any, 0, len(txs))
	for _, tx := range txs {
		out = append(out, transactionView(tx))
	}
	return out, nil
}
