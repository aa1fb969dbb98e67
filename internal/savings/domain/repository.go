package domain

import "context"

// Ledger is one user's persisted state.
type Ledger struct {
	Subscriptions []Subscription
	Transactions  []LedgerTransaction
	// Stored is false when the user has never had a ledger written.
	Stored bool
}

// Repository persists per-user ledgers.
type Repository interface {
	// Load reads the user's subscriptions and transactions.
	Load(ctx context.Context, userID string) (Ledger, error)

	// Commit replaces the user's subscriptions and transactions in one
	// atomic write.
	Commit(ctx context.Context, userID string, subs []Subscription, txs []LedgerTransaction) error
}
