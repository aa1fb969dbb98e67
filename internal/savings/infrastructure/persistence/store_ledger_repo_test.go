package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	"github.com/foodthrift/paysmallsmall/internal/storage"
)

func TestStoreLedgerRepository_Empty(t *testing.T) {
	repo := NewStoreLedgerRepository(storage.NewMemoryStore())

	ledger, err := repo.Load(context.Background(), "user_001")
	require.NoError(t, err)
	assert.False(t, ledger.Stored)
	assert.Empty(t, ledger.Subscriptions)
	assert.Empty(t, ledger.Transactions)
}

func TestStoreLedgerRepository_CommitAndLoad(t *testing.T) {
	ctx := context.Background()
	store, err := storage.Open(ctx, storage.Options{SQLitePath: filepath.Join(t.TempDir(), "ledger.db")})
	require.NoError(t, err)
	defer store.Close()

	repo := NewStoreLedgerRepository(store)
	due := time.Date(2024, 3, 1, 14, 0, 0, 0, time.UTC)
	subs := []domain.Subscription{{
		ID: "sub_1", UserID: "user_001", PlanID: "plan_1", StartDate: "2024-01-01",
		NextPaymentDate: due, TotalPaid: 50000, TotalTarget: 60000, Status: domain.StatusActive,
	}}
	txs := []domain.LedgerTransaction{{
		ID: "TXN-1", Date: due.Add(-time.Hour), Amount: 5000, Status: domain.TransactionSuccess,
		Ref: "PAY-1", Type: domain.TransactionContribution, Provider: domain.ProviderPaystack,
		PlanName: "Rice & Grains Bundle", SubscriptionID: "sub_1",
	}}

	require.NoError(t, repo.Commit(ctx, "user_001", subs, txs))

	ledger, err := repo.Load(ctx, "user_001")
	require.NoError(t, err)
	assert.True(t, ledger.Stored)
	require.Len(t, ledger.Subscriptions, 1)
	assert.True(t, due.Equal(ledger.Subscriptions[0].NextPaymentDate))
	assert.Equal(t, int64(50000), ledger.Subscriptions[0].TotalPaid)
	require.Len(t, ledger.Transactions, 1)
	assert.Equal(t, "PAY-1", ledger.Transactions[0].Ref)

	other, err := repo.Load(ctx, "admin_001")
	require.NoError(t, err)
	assert.False(t, other.Stored, "ledgers are partitioned per user")
}

func TestStoreLedgerRepository_ReadsBrowserShapedJSON(t *testing.T) {
	ctx := context.Background()
	store := storage.NewMemoryStore()
	ns := storage.UserNamespace("user_001")
	require.NoError(t, store.Put(ctx, ns, storage.KeySubscriptions, []byte(`[{
		"id":"sub_1","userId":"user_001","planId":"plan_1","startDate":"2024-01-01",
		"nextPaymentDate":"2024-03-01T13:00:00.000Z","totalPaid":45000,"totalTarget":60000,"status":"ACTIVE"}]`)))

	ledger, err := NewStoreLedgerRepository(store).Load(ctx, "user_001")
	require.NoError(t, err)
	require.Len(t, ledger.Subscriptions, 1)
	assert.Equal(t, time.Date(2024, 3, 1, 13, 0, 0, 0, time.UTC), ledger.Subscriptions[0].NextPaymentDate.UTC())
	assert.Empty(t, ledger.Transactions)
}
