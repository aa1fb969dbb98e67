package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/settlement"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
)

type payInput struct {
	SubscriptionID string `json:"subscription_id,omitempty"`
	Provider       string `json:"provider,omitempty"`
}

func registerPaymentTools(srv *mcp.Server, t *toolset) {
	srv.Tool("payments.status").
		Description("Countdown to the subscription due first and whether it is due soon").
		Handler(t.dueStatus)

	srv.Tool("payments.pay").
		Description("Pay one installment through the simulated checkout. Without subscription_id the subscription due first is paid").
		Handler(t.pay)
}

func (t *toolset) dueStatus(ctx context.Context, input struct{}) (map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	snap, err := t.app.DueStatus(ctx, t.app.CurrentUser(ctx))
	if err != nil {
		return nil, err
	}
	if snap.Urgent == nil {
		return map[string]any{"due": false}, nil
	}
	plan := t.app.Catalog.Resolve(ctx, snap.Urgent.PlanID)
	return map[string]any{
		"due":          true,
		"subscription": subscriptionView(*snap.Urgent, plan.Name),
		"amount":       plan.Amount,
		"remaining":    snap.Remaining,
		"countdown":    cli.FormatRemaining(snap.Remaining),
		"imminent":     snap.Imminent,
	}, nil
}

func (t *toolset) pay(ctx context.Context, input payInput) (map[string]any, error) {
	if err := t.ready(); err != nil {
		return nil, err
	}
	provider := domain.ProviderPaystack
	if input.Provider != "" {
		p, err := domain.ParseProvider(input.Provider)
		if err != nil {
			return nil, err
		}
		provider = p
	}

	checkout, err := t.app.Pay(ctx, t.app.CurrentUser(ctx), input.SubscriptionID, provider, nil)
	if cli.IsNothingDue(err) {
		return map[string]any{"paid": false, "reason": "no active subscriptions"}, nil
	}
	if err != nil {
		return nil, err
	}
	if checkout.Step != settlement.StepSuccess {
		return nil, fmt.Errorf("payment failed: %s", checkout.Error)
	}
	t.logger.InfoContext(ctx, "installment paid", "subscription_id", checkout.Subscription.ID, "ref", checkout.Transaction.Ref)
	return map[string]any{
		"paid":        true,
		"plan":        checkout.Plan.Name,
		"transaction": transactionView(*checkout.Transaction),
	}, nil
}
