package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogApplication "github.com/foodthrift/paysmallsmall/internal/catalog/application"
	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	catalogPersistence "github.com/foodthrift/paysmallsmall/internal/catalog/infrastructure/persistence"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	"github.com/foodthrift/paysmallsmall/internal/savings/infrastructure/persistence"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/eventbus/eventbustest"
	"github.com/foodthrift/paysmallsmall/internal/storage"
	"github.com/foodthrift/paysmallsmall/internal/storage/storagetest"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

const userID = "user_001"

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type fixture struct {
	ledger  *Ledger
	catalog *catalogApplication.Service
	store   *storagetest.FaultyStore
	repo    *persistence.StoreLedgerRepository
	events  *eventbustest.Recorder
	metrics *observability.InMemoryMetrics
	clock   *testClock
}

func newFixture() *fixture {
	store := storagetest.NewFaultyStore(storage.NewMemoryStore())
	clock := &testClock{now: time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)}
	logger := observability.DiscardLogger()

	catalog := catalogApplication.NewService(catalogPersistence.NewStoreCatalogRepository(store), catalogApplication.ServiceConfig{
		Logger: logger,
		Clock:  clock.Now,
	})
	repo := persistence.NewStoreLedgerRepository(store)
	events := eventbustest.NewRecorder()
	metrics := observability.NewInMemoryMetrics()
	ledger := NewLedger(repo, catalog, LedgerConfig{
		Publisher: events,
		Metrics:   metrics,
		Logger:    logger,
		Clock:     clock.Now,
	})
	return &fixture{ledger: ledger, catalog: catalog, store: store, repo: repo, events: events, metrics: metrics, clock: clock}
}

func TestLedger_ListActive_SeedsDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	subs, err := f.ledger.ListActive(ctx, userID)
	require.NoError(t, err)
	require.Len(t, subs, 1)

	sub := subs[0]
	assert.Equal(t, "sub_1", sub.ID)
	assert.Equal(t, "plan_1", sub.PlanID)
	assert.Equal(t, int64(45000), sub.TotalPaid)
	assert.Equal(t, int64(60000), sub.TotalTarget)
	assert.Equal(t, time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC), sub.NextPaymentDate)

	stored, err := f.repo.Load(ctx, userID)
	require.NoError(t, err)
	assert.True(t, stored.Stored, "default subscription is persisted")

	f.clock.Advance(24 * time.Hour)
	again, err := f.ledger.ListActive(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, subs, again, "seeding happens once")
}

func TestLedger_PeekActive_DoesNotSeed(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	subs, err := f.ledger.PeekActive(ctx, userID)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, "sub_1", subs[0].ID)
	assert.Equal(t, time.Date(2024, 3, 6, 14, 0, 0, 0, time.UTC), subs[0].NextPaymentDate)

	assert.Zero(t, f.store.Writes())
	stored, err := f.repo.Load(ctx, userID)
	require.NoError(t, err)
	assert.False(t, stored.Stored)

	// Once seeded, the stored ledger is returned as is.
	seeded, err := f.ledger.ListActive(ctx, userID)
	require.NoError(t, err)
	writes := f.store.Writes()
	f.clock.Advance(48 * time.Hour)
	peeked, err := f.ledger.PeekActive(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, seeded, peeked)
	assert.Equal(t, writes, f.store.Writes())
}

func TestLedger_ListActive_ReturnsStoredOrderAndStatuses(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	due := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	stored := []domain.Subscription{
		{ID: "sub_b", UserID: userID, PlanID: "plan_2", NextPaymentDate: due, TotalTarget: 100, Status: domain.StatusCancelled},
		{ID: "sub_a", UserID: userID, PlanID: "plan_1", NextPaymentDate: due, TotalTarget: 100, Status: domain.StatusActive},
	}
	require.NoError(t, f.repo.Commit(ctx, userID, stored, nil))

	subs, err := f.ledger.ListActive(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, stored, subs)
}

func TestLedger_ListActive_ReadFailure(t *testing.T) {
	f := newFixture()
	f.store.FailReads(storagetest.ErrInjected)

	_, err := f.ledger.ListActive(context.Background(), userID)
	assert.ErrorIs(t, err, storagetest.ErrInjected)
}

func TestLedger_RecordPayment(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	subs, err := f.ledger.ListActive(ctx, userID)
	require.NoError(t, err)
	due := subs[0].NextPaymentDate

	sub, tx, err := f.ledger.RecordPayment(ctx, RecordPaymentCommand{
		UserID:         userID,
		SubscriptionID: "sub_1",
		Provider:       domain.ProviderPaystack,
	})
	require.NoError(t, err)

	assert.Equal(t, int64(50000), sub.TotalPaid)
	assert.Equal(t, domain.NextDueDate(due), sub.NextPaymentDate)
	assert.Equal(t, int64(60000), sub.TotalTarget)

	assert.Equal(t, "TXN-1709542800000", tx.ID)
	assert.Equal(t, int64(5000), tx.Amount)
	assert.Equal(t, domain.TransactionSuccess, tx.Status)
	assert.Equal(t, domain.TransactionContribution, tx.Type)
	assert.Equal(t, domain.ProviderPaystack, tx.Provider)
	assert.Equal(t, "Rice & Grains Bundle", tx.PlanName)
	assert.Equal(t, "sub_1", tx.SubscriptionID)
	assert.Regexp(t, `^PAY-`, tx.Ref)

	txs, err := f.ledger.Transactions(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, []domain.LedgerTransaction{tx}, txs)

	stored, err := f.ledger.Subscription(ctx, userID, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, sub, stored)

	assert.Equal(t, []string{domain.RoutingKeyPaymentSettled}, f.events.RoutingKeys())
	env := f.events.Envelopes()[0]
	assert.Equal(t, userID, env.UserID)
	assert.NotEmpty(t, env.CorrelationID)
	assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricPaymentsSettled, observability.T("provider", "Paystack")))
}

func TestLedger_RecordPayment_Repeated(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	subs, err := f.ledger.ListActive(ctx, userID)
	require.NoError(t, err)
	start := subs[0]

	const n = 4
	for i := 0; i < n; i++ {
		provider := domain.Providers()[i%2]
		_, _, err := f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_1", Provider: provider})
		require.NoError(t, err)
	}

	sub, err := f.ledger.Subscription(ctx, userID, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, start.TotalPaid+n*5000, sub.TotalPaid)
	assert.Equal(t, start.NextPaymentDate.AddDate(0, 0, n*domain.PaymentIntervalDays), sub.NextPaymentDate)

	txs, err := f.ledger.Transactions(ctx, userID)
	require.NoError(t, err)
	require.Len(t, txs, n)

	ids := map[string]bool{}
	refs := map[string]bool{}
	for _, tx := range txs {
		assert.Equal(t, "Rice & Grains Bundle", tx.PlanName)
		ids[tx.ID] = true
		refs[tx.Ref] = true
	}
	assert.Len(t, ids, n, "transaction ids are unique even within one millisecond")
	assert.Len(t, refs, n)
	assert.Equal(t, domain.ProviderFlutterwave, txs[0].Provider, "most recent first")
	assert.Regexp(t, `^FLU-`, txs[0].Ref)
}

func TestLedger_RecordPayment_MonthlyPlanStillMovesSevenDays(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	cow := f.catalog.Resolve(ctx, "plan_2")
	require.Equal(t, catalogDomain.FrequencyMonthly, cow.Frequency)

	sub, err := f.ledger.Enroll(ctx, userID, cow)
	require.NoError(t, err)

	paid, tx, err := f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: sub.ID, Plan: cow, Provider: domain.ProviderFlutterwave})
	require.NoError(t, err)
	assert.Equal(t, domain.NextDueDate(sub.NextPaymentDate), paid.NextPaymentDate)
	assert.Equal(t, int64(25000), tx.Amount)
	assert.Equal(t, "Organic Cow Share", tx.PlanName)
}

func TestLedger_RecordPayment_UnknownPlanUsesDefault(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	due := time.Date(2024, 3, 10, 14, 0, 0, 0, time.UTC)
	require.NoError(t, f.repo.Commit(ctx, userID, []domain.Subscription{
		{ID: "sub_9", UserID: userID, PlanID: "plan_gone", NextPaymentDate: due, TotalTarget: 1000, Status: domain.StatusActive},
	}, nil))

	sub, tx, err := f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_9", Provider: domain.ProviderPaystack})
	require.NoError(t, err)
	assert.Equal(t, int64(5000), sub.TotalPaid)
	assert.Equal(t, "Rice & Grains Bundle", tx.PlanName)
}

func TestLedger_RecordPayment_Errors(t *testing.T) {
	ctx := context.Background()

	t.Run("unknown subscription", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_404", Provider: domain.ProviderPaystack})
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	})

	t.Run("other user's subscription", func(t *testing.T) {
		f := newFixture()
		_, err := f.ledger.ListActive(ctx, userID)
		require.NoError(t, err)
		require.NoError(t, f.repo.Commit(ctx, "admin_001", []domain.Subscription{}, nil))

		_, _, err = f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: "admin_001", SubscriptionID: "sub_1", Provider: domain.ProviderPaystack})
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)
	})

	t.Run("cancelled subscription", func(t *testing.T) {
		f := newFixture()
		_, err := f.ledger.Cancel(ctx, userID, "sub_1")
		require.NoError(t, err)

		_, _, err = f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_1", Provider: domain.ProviderPaystack})
		assert.ErrorIs(t, err, domain.ErrSubscriptionNotActive)
	})

	t.Run("unknown provider", func(t *testing.T) {
		f := newFixture()
		_, _, err := f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_1", Provider: "Stripe"})
		assert.Error(t, err)
	})

	t.Run("commit failure leaves ledger untouched", func(t *testing.T) {
		f := newFixture()
		before, err := f.ledger.ListActive(ctx, userID)
		require.NoError(t, err)

		f.store.FailWrites(storagetest.ErrInjected)
		_, _, err = f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_1", Provider: domain.ProviderPaystack})
		assert.ErrorIs(t, err, storagetest.ErrInjected)
		f.store.FailWrites(nil)

		after, err := f.ledger.ListActive(ctx, userID)
		require.NoError(t, err)
		assert.Equal(t, before, after)
		txs, err := f.ledger.Transactions(ctx, userID)
		require.NoError(t, err)
		assert.Empty(t, txs)
		assert.Empty(t, f.events.Envelopes())
	})
}

func TestLedger_RecordPayment_ConcurrentWritersSerialize(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, err := f.ledger.ListActive(ctx, userID)
	require.NoError(t, err)

	const n = 10
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_1", Provider: domain.ProviderPaystack})
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	sub, err := f.ledger.Subscription(ctx, userID, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, int64(45000+n*5000), sub.TotalPaid)
	txs, err := f.ledger.Transactions(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, txs, n)
}

func TestLedger_Enroll(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	chicken := f.catalog.Resolve(ctx, "plan_3")

	sub, err := f.ledger.Enroll(ctx, userID, chicken)
	require.NoError(t, err)

	assert.Equal(t, "plan_3", sub.PlanID)
	assert.Equal(t, "2024-03-04", sub.StartDate)
	assert.Equal(t, domain.NextDueDate(f.clock.Now()), sub.NextPaymentDate)
	assert.Equal(t, int64(35000), sub.TotalTarget)
	assert.Zero(t, sub.TotalPaid)
	assert.Equal(t, domain.StatusActive, sub.Status)

	subs, err := f.ledger.ListActive(ctx, userID)
	require.NoError(t, err)
	require.Len(t, subs, 2)
	assert.Equal(t, "sub_1", subs[0].ID)
	assert.Equal(t, sub.ID, subs[1].ID, "enrollments are appended")

	second, err := f.ledger.Enroll(ctx, userID, chicken)
	require.NoError(t, err)
	assert.NotEqual(t, sub.ID, second.ID)

	assert.Contains(t, f.events.RoutingKeys(), domain.RoutingKeySubscriptionEnrolled)

	_, err = f.ledger.Enroll(ctx, userID, catalogDomain.Plan{})
	assert.ErrorIs(t, err, catalogDomain.ErrInvalidPlan)
}

func TestLedger_CancelAndComplete(t *testing.T) {
	ctx := context.Background()
	f := newFixture()

	cancelled, err := f.ledger.Cancel(ctx, userID, "sub_1")
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCancelled, cancelled.Status)

	_, err = f.ledger.Cancel(ctx, userID, "sub_1")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotActive)
	_, err = f.ledger.Complete(ctx, userID, "sub_1")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotActive)

	_, err = f.ledger.Cancel(ctx, userID, "sub_x")
	assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

	sub, err := f.ledger.Enroll(ctx, userID, f.catalog.Resolve(ctx, "plan_4"))
	require.NoError(t, err)
	completed, err := f.ledger.Complete(ctx, userID, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusCompleted, completed.Status)

	keys := f.events.RoutingKeys()
	assert.Contains(t, keys, domain.RoutingKeySubscriptionCancelled)
	assert.Contains(t, keys, domain.RoutingKeySubscriptionCompleted)
	assert.Equal(t, int64(1), f.metrics.GetCounter(observability.MetricSubscriptionsCancelled))
}

func TestLedger_Summary(t *testing.T) {
	ctx := context.Background()
	f := newFixture()
	_, _, err := f.ledger.RecordPayment(ctx, RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_1", Provider: domain.ProviderPaystack})
	require.NoError(t, err)
	_, err = f.ledger.Enroll(ctx, userID, f.catalog.Resolve(ctx, "plan_3"))
	require.NoError(t, err)

	sum, err := f.ledger.Summary(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, Summary{TotalSaved: 50000, TotalTarget: 95000, Subscriptions: 2, Active: 2, Transactions: 1}, sum)
}

func TestLedger_PublishFailureDoesNotFailPayment(t *testing.T) {
	f := newFixture()
	f.events.FailWith(errors.New("broker down"))

	_, _, err := f.ledger.RecordPayment(context.Background(), RecordPaymentCommand{UserID: userID, SubscriptionID: "sub_1", Provider: domain.ProviderPaystack})
	assert.NoError(t, err)
}
