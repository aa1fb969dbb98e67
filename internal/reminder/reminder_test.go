package reminder_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/reminder"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/monitor"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

type fakePlans struct{}

func (fakePlans) Resolve(_ context.Context, planID string) catalogDomain.Plan {
	for _, p := range catalogDomain.DefaultPlans() {
		if p.ID == planID {
			return p
		}
	}
	return catalogDomain.DefaultPlan()
}

func snapshot(sub domain.Subscription, now time.Time, imminent bool) monitor.Snapshot {
	remaining, _ := domain.Decompose(sub.NextPaymentDate.Sub(now))
	return monitor.Snapshot{Urgent: &sub, Remaining: &remaining, Imminent: imminent, ScannedAt: now}
}

func newReminder(t *testing.T) (*reminder.Reminder, *[]reminder.Notice, *observability.InMemoryMetrics) {
	t.Helper()
	var sent []reminder.Notice
	metrics := observability.NewInMemoryMetrics()
	r := reminder.New(reminder.Config{
		UserID:  "user_001",
		Plans:   fakePlans{},
		Logger:  observability.DiscardLogger(),
		Metrics: metrics,
		Send: func(_ context.Context, n reminder.Notice) {
			sent = append(sent, n)
		},
	})
	return r, &sent, metrics
}

func TestObserve_SendsOncePerInstallment(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	sub := domain.DefaultSubscription("user_001", now)
	r, sent, metrics := newReminder(t)
	ctx := context.Background()

	assert.True(t, r.Observe(ctx, snapshot(sub, now, true)))
	assert.False(t, r.Observe(ctx, snapshot(sub, now.Add(time.Minute), true)))

	require.Len(t, *sent, 1)
	n := (*sent)[0]
	assert.Equal(t, "sub_1", n.SubscriptionID)
	assert.Equal(t, "Rice & Grains Bundle", n.PlanName)
	assert.Equal(t, int64(5000), n.Amount)
	assert.Equal(t, 2, n.Remaining.Days)
	assert.Equal(t, 5, n.Remaining.Hours)
	assert.Equal(t, int64(1), metrics.GetCounter(observability.MetricRemindersSent))

	// Settling moves the due date a week on; that installment is new.
	sub.NextPaymentDate = domain.NextDueDate(sub.NextPaymentDate)
	assert.True(t, r.Observe(ctx, snapshot(sub, now.Add(5*24*time.Hour), true)))

	stats := r.Stats()
	assert.Equal(t, int64(2), stats.Sent)
	require.NotNil(t, stats.LastNotice)
	assert.Equal(t, sub.NextPaymentDate, stats.LastNotice.DueAt)
}

func TestObserve_IgnoresQuietSnapshots(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	sub := domain.DefaultSubscription("user_001", now)
	r, sent, _ := newReminder(t)
	ctx := context.Background()

	assert.False(t, r.Observe(ctx, monitor.Snapshot{}))
	assert.False(t, r.Observe(ctx, snapshot(sub, now, false)))
	assert.False(t, r.Observe(ctx, monitor.Snapshot{Urgent: &sub, Imminent: true}))
	assert.Empty(t, *sent)
	assert.Zero(t, r.Stats().Sent)
}

func TestNew_DefaultsLogNotices(t *testing.T) {
	now := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)
	sub := domain.DefaultSubscription("user_001", now)
	r := reminder.New(reminder.Config{UserID: "user_001", Logger: observability.DiscardLogger()})

	assert.True(t, r.Observe(context.Background(), snapshot(sub, now, true)))
	assert.Empty(t, r.Stats().LastNotice.PlanName)
}
