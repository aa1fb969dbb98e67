package persistence

import (
	"context"
	"fmt"

	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	"github.com/foodthrift/paysmallsmall/internal/storage"
)

// StoreLedgerRepository keeps each user's subscriptions and transactions as
// JSON lists under the user's namespace.
type StoreLedgerRepository struct {
	store storage.Store
}

// NewStoreLedgerRepository creates a new repository.
func NewStoreLedgerRepository(store storage.Store) *StoreLedgerRepository {
	return &StoreLedgerRepository{store: store}
}

// Load reads both lists for userID.
func (r *StoreLedgerRepository) Load(ctx context.Context, userID string) (domain.Ledger, error) {
	ns := storage.UserNamespace(userID)

	subs, found, err := storage.GetJSON[[]domain.Subscription](ctx, r.store, ns, storage.KeySubscriptions)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("load subscriptions: %w", err)
	}
	txs, _, err := storage.GetJSON[[]domain.LedgerTransaction](ctx, r.store, ns, storage.KeyTransactions)
	if err != nil {
		return domain.Ledger{}, fmt.Errorf("load transactions: %w", err)
	}

	if subs == nil {
		subs = []domain.Subscription{}
	}
	if txs == nil {
		txs = []domain.LedgerTransaction{}
	}
	return domain.Ledger{Subscriptions: subs, Transactions: txs, Stored: found}, nil
}

// Commit writes both lists in one batch.
func (r *StoreLedgerRepository) Commit(ctx context.Context, userID string, subs []domain.Subscription, txs []domain.LedgerTransaction) error {
	if subs == nil {
		subs = []domain.Subscription{}
	}
	if txs == nil {
		txs = []domain.LedgerTransaction{}
	}
	subsEntry, err := storage.JSONEntry(storage.KeySubscriptions, subs)
	if err != nil {
		return err
	}
	txsEntry, err := storage.JSONEntry(storage.KeyTransactions, txs)
	if err != nil {
		return err
	}
	if err := r.store.PutAll(ctx, storage.UserNamespace(userID), subsEntry, txsEntry); err != nil {
		return fmt.Errorf("commit ledger for %s: %w", userID, err)
	}
	return nil
}
