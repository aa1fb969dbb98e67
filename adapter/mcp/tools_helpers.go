package mcp

import (
	"errors"
	"log/slog"
	"time"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	savingsApp "github.com/foodthrift/paysmallsmall/internal/savings/application"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
)

const timestampLayout = time.RFC3339

var errNotInitialized = errors.New("app not initialized")

// toolset holds the handlers so they can be exercised without a transport.
type toolset struct {
	app    *cli.App
	logger *slog.Logger
}

func newToolset(deps ToolDependencies) *toolset {
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &toolset{app: deps.App, logger: logger.With("component", "mcp_tools")}
}

func (t *toolset) ready() error {
	if t.app == nil || t.app.Ledger == nil || t.app.Catalog == nil {
		return errNotInitialized
	}
	return nil
}

func subscriptionView(s domain.Subscription, planName string) map[string]any {
	return map[string]any{
		"id":                s.ID,
		"plan_id":           s.PlanID,
		"plan_name":         planName,
		"status":            s.Status,
		"start_date":        s.StartDate,
		"next_payment_date": s.NextPaymentDate.Format(timestampLayout),
		"total_paid":        s.TotalPaid,
		"total_target":      s.TotalTarget,
		"progress":          s.Progress(),
	}
}

func transactionView(tx domain.LedgerTransaction) map[string]any {
	return map[string]any{
		"id":              tx.ID,
		"date":            tx.Date.Format(timestampLayout),
		"amount":          tx.Amount,
		"status":          tx.Status,
		"ref":             tx.Ref,
		"type":            tx.Type,
		"provider":        tx.Provider,
		"plan_name":       tx.PlanName,
		"subscription_id": tx.SubscriptionID,
	}
}

func summaryView(s savingsApp.Summary) map[string]any {
	return map[string]any{
		"total_saved":   s.TotalSaved,
		"total_target":  s.TotalTarget,
		"subscriptions": s.Subscriptions,
		"active":        s.Active,
		"transactions":  s.Transactions,
	}
}
