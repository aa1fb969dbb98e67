package export

import (
	"context"
	"fmt"

	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
)

// LedgerReader reads one user's records.
type LedgerReader interface {
	ListActive(ctx context.Context, userID string) ([]domain.Subscription, error)
	Transactions(ctx context.Context, userID string) ([]domain.LedgerTransaction, error)
}

// PlanResolver resolves a plan id for display.
type PlanResolver interface {
	Resolve(ctx context.Context, planID string) catalogDomain.Plan
}

// Collect gathers the export data for userID.
func Collect(ctx context.Context, ledger LedgerReader, plans PlanResolver, userID string) (Ledger, error) {
	subs, err := ledger.ListActive(ctx, userID)
	if err != nil {
		return Ledger{}, fmt.Errorf("list subscriptions: %w", err)
	}
	txs, err := ledger.Transactions(ctx, userID)
	if err != nil {
		return Ledger{}, fmt.Errorf("list transactions: %w", err)
	}
	names := make(map[string]string, len(subs))
	for _, s := range subs {
		if _, ok := names[s.PlanID]; !ok {
			names[s.PlanID] = plans.Resolve(ctx, s.PlanID).Name
		}
	}
	return Ledger{UserID: userID, Subscriptions: subs, Transactions: txs, PlanNames: names}, nil
}
