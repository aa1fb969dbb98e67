// Package application implements the subscription ledger: enrollment,
// payment recording and the per-user read models.
package application

import (
	"context"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	sharedDomain "github.com/foodthrift/paysmallsmall/internal/shared/domain"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/eventbus"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

// PlanResolver finds the plan a subscription pays into. It never fails.
type PlanResolver interface {
	Resolve(ctx context.Context, planID string) catalogDomain.Plan
}

// LedgerConfig holds the optional collaborators of a Ledger.
type LedgerConfig struct {
	Publisher eventbus.Publisher
	Metrics   observability.Metrics
	Logger    *slog.Logger
	Clock     sharedApplication.Clock
}

// Ledger owns every read-modify-write of user ledgers in this process.
type Ledger struct {
	repo      domain.Repository
	plans     PlanResolver
	publisher eventbus.Publisher
	metrics   observability.Metrics
	logger    *slog.Logger
	clock     sharedApplication.Clock

	mu sync.Mutex
}

// NewLedger creates a new ledger service.
func NewLedger(repo domain.Repository, plans PlanResolver, cfg LedgerConfig) *Ledger {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	if cfg.Publisher == nil {
		cfg.Publisher = eventbus.NewNoopPublisher(cfg.Logger)
	}
	return &Ledger{
		repo:      repo,
		plans:     plans,
		publisher: cfg.Publisher,
		metrics:   cfg.Metrics,
		logger:    cfg.Logger,
		clock:     cfg.Clock,
	}
}

// ListActive returns the user's subscriptions exactly as stored, in
// insertion order. Callers filter by status. A user with no stored ledger
// gets the default subscription, which is persisted on first read.
func (l *Ledger) ListActive(ctx context.Context, userID string) ([]domain.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ledger, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ledger.Subscriptions, nil
}

// PeekActive is the read-only form of ListActive: it never writes. A user
// with no stored ledger sees the default subscription that ListActive would
// seed, without it being persisted.
func (l *Ledger) PeekActive(ctx context.Context, userID string) ([]domain.Subscription, error) {
	ledger, err := l.repo.Load(ctx, userID)
	if err != nil {
		return nil, err
	}
	if !ledger.Stored {
		return []domain.Subscription{domain.DefaultSubscription(userID, l.clock.Now())}, nil
	}
	return ledger.Subscriptions, nil
}

// Subscription returns one subscription from the user's ledger.
func (l *Ledger) Subscription(ctx context.Context, userID, subscriptionID string) (domain.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ledger, err := l.load(ctx, userID)
	if err != nil {
		return domain.Subscription{}, err
	}
	i := indexOf(ledger.Subscriptions, subscriptionID)
	if i < 0 {
		return domain.Subscription{}, fmt.Errorf("%w: %s", domain.ErrSubscriptionNotFound, subscriptionID)
	}
	return ledger.Subscriptions[i], nil
}

// Transactions returns the user's ledger entries, most recent first.
func (l *Ledger) Transactions(ctx context.Context, userID string) ([]domain.LedgerTransaction, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ledger, err := l.load(ctx, userID)
	if err != nil {
		return nil, err
	}
	return ledger.Transactions, nil
}

// RecordPaymentCommand contains the data needed to record a settled payment.
// A zero Plan is resolved from the subscription's plan id.
type RecordPaymentCommand struct {
	UserID         string
	SubscriptionID string
	Plan           catalogDomain.Plan
	Provider       domain.Provider
}

// RecordPayment credits the plan installment to the subscription, moves its
// due date forward with domain.NextDueDate and prepends a SUCCESS entry to
// the ledger. Both lists are written in one batch; on failure nothing is
// written.
func (l *Ledger) RecordPayment(ctx context.Context, cmd RecordPaymentCommand) (domain.Subscription, domain.LedgerTransaction, error) {
	if !cmd.Provider.IsValid() {
		return domain.Subscription{}, domain.LedgerTransaction{}, fmt.Errorf("unknown payment provider %q", cmd.Provider)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ledger, err := l.load(ctx, cmd.UserID)
	if err != nil {
		return domain.Subscription{}, domain.LedgerTransaction{}, err
	}
	i := indexOf(ledger.Subscriptions, cmd.SubscriptionID)
	if i < 0 {
		return domain.Subscription{}, domain.LedgerTransaction{}, fmt.Errorf("%w: %s", domain.ErrSubscriptionNotFound, cmd.SubscriptionID)
	}

	plan := cmd.Plan
	if plan.ID == "" {
		plan = l.plans.Resolve(ctx, ledger.Subscriptions[i].PlanID)
	}

	subs := append([]domain.Subscription(nil), ledger.Subscriptions...)
	sub := subs[i]
	if err := sub.ApplyPayment(plan.Amount); err != nil {
		return domain.Subscription{}, domain.LedgerTransaction{}, err
	}
	subs[i] = sub

	now := l.clock.Now()
	tx := domain.LedgerTransaction{
		ID:             nextTransactionID(ledger.Transactions, now.UnixMilli()),
		Date:           now,
		Amount:         plan.Amount,
		Status:         domain.TransactionSuccess,
		Ref:            uniqueReference(ledger.Transactions, cmd.Provider),
		Type:           domain.TransactionContribution,
		Provider:       cmd.Provider,
		PlanName:       plan.Name,
		SubscriptionID: sub.ID,
	}
	txs := append([]domain.LedgerTransaction{tx}, ledger.Transactions...)

	if err := l.repo.Commit(ctx, cmd.UserID, subs, txs); err != nil {
		return domain.Subscription{}, domain.LedgerTransaction{}, err
	}

	if sub.TotalPaid > sub.TotalTarget {
		l.logger.WarnContext(ctx, "subscription paid past its target",
			"subscription_id", sub.ID,
			"total_paid", sub.TotalPaid,
			"total_target", sub.TotalTarget,
		)
	}
	l.logger.InfoContext(ctx, "payment recorded",
		"user_id", cmd.UserID,
		"subscription_id", sub.ID,
		"transaction_id", tx.ID,
		"ref", tx.Ref,
		"amount", tx.Amount,
		"next_payment_date", sub.NextPaymentDate,
	)
	l.metrics.Counter(observability.MetricPaymentsSettled, 1, observability.T("provider", string(tx.Provider)))
	l.metrics.Histogram(observability.MetricPaymentAmount, float64(tx.Amount), observability.T("provider", string(tx.Provider)))
	l.publish(ctx, cmd.UserID, domain.NewPaymentSettled(sub, tx))

	return sub, tx, nil
}

// Enroll starts a new ACTIVE subscription to plan. The first payment is due
// one interval from now and the target covers every installment.
func (l *Ledger) Enroll(ctx context.Context, userID string, plan catalogDomain.Plan) (domain.Subscription, error) {
	if plan.ID == "" || plan.Amount <= 0 {
		return domain.Subscription{}, fmt.Errorf("%w: cannot enroll in %q", catalogDomain.ErrInvalidPlan, plan.ID)
	}

	l.mu.Lock()
	defer l.mu.Unlock()

	ledger, err := l.load(ctx, userID)
	if err != nil {
		return domain.Subscription{}, err
	}

	now := l.clock.Now()
	sub := domain.Subscription{
		ID:              nextSubscriptionID(ledger.Subscriptions, now.UnixMilli()),
		UserID:          userID,
		PlanID:          plan.ID,
		StartDate:       now.Format(domain.StartDateLayout),
		NextPaymentDate: domain.NextDueDate(now),
		TotalTarget:     plan.Target(),
		Status:          domain.StatusActive,
	}
	subs := append(append([]domain.Subscription(nil), ledger.Subscriptions...), sub)

	if err := l.repo.Commit(ctx, userID, subs, ledger.Transactions); err != nil {
		return domain.Subscription{}, err
	}

	l.logger.InfoContext(ctx, "subscription enrolled", "user_id", userID, "subscription_id", sub.ID, "plan_id", plan.ID)
	l.metrics.Counter(observability.MetricSubscriptionsEnrolled, 1)
	l.publish(ctx, userID, domain.NewSubscriptionEnrolled(sub, now))
	return sub, nil
}

// Cancel moves an ACTIVE subscription to CANCELLED.
func (l *Ledger) Cancel(ctx context.Context, userID, subscriptionID string) (domain.Subscription, error) {
	return l.transition(ctx, userID, subscriptionID, domain.StatusCancelled)
}

// Complete moves an ACTIVE subscription to COMPLETED.
func (l *Ledger) Complete(ctx context.Context, userID, subscriptionID string) (domain.Subscription, error) {
	return l.transition(ctx, userID, subscriptionID, domain.StatusCompleted)
}

func (l *Ledger) transition(ctx context.Context, userID, subscriptionID string, next domain.Status) (domain.Subscription, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ledger, err := l.load(ctx, userID)
	if err != nil {
		return domain.Subscription{}, err
	}
	i := indexOf(ledger.Subscriptions, subscriptionID)
	if i < 0 {
		return domain.Subscription{}, fmt.Errorf("%w: %s", domain.ErrSubscriptionNotFound, subscriptionID)
	}

	subs := append([]domain.Subscription(nil), ledger.Subscriptions...)
	sub := subs[i]
	if err := sub.TransitionTo(next); err != nil {
		return domain.Subscription{}, err
	}
	subs[i] = sub

	if err := l.repo.Commit(ctx, userID, subs, ledger.Transactions); err != nil {
		return domain.Subscription{}, err
	}

	l.logger.InfoContext(ctx, "subscription status changed", "user_id", userID, "subscription_id", sub.ID, "status", sub.Status)
	if next == domain.StatusCancelled {
		l.metrics.Counter(observability.MetricSubscriptionsCancelled, 1)
	}
	l.publish(ctx, userID, domain.NewSubscriptionStatusChanged(sub, l.clock.Now()))
	return sub, nil
}

// Summary aggregates a user's savings.
type Summary struct {
	TotalSaved    int64 `json:"totalSaved"`
	TotalTarget   int64 `json:"totalTarget"`
	Subscriptions int   `json:"subscriptions"`
	Active        int   `json:"active"`
	Transactions  int   `json:"transactions"`
}

// Summary totals the user's contributions across all subscriptions.
func (l *Ledger) Summary(ctx context.Context, userID string) (Summary, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	ledger, err := l.load(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	sum := Summary{Subscriptions: len(ledger.Subscriptions), Transactions: len(ledger.Transactions)}
	for _, s := range ledger.Subscriptions {
		sum.TotalSaved += s.TotalPaid
		sum.TotalTarget += s.TotalTarget
		if s.IsActive() {
			sum.Active++
		}
	}
	return sum, nil
}

// load reads the user's ledger, seeding and persisting the default
// subscription for a user that has none. Callers hold l.mu.
func (l *Ledger) load(ctx context.Context, userID string) (domain.Ledger, error) {
	ledger, err := l.repo.Load(ctx, userID)
	if err != nil {
		return domain.Ledger{}, err
	}
	if ledger.Stored {
		return ledger, nil
	}

	ledger.Subscriptions = []domain.Subscription{domain.DefaultSubscription(userID, l.clock.Now())}
	if err := l.repo.Commit(ctx, userID, ledger.Subscriptions, ledger.Transactions); err != nil {
		return domain.Ledger{}, fmt.Errorf("seed default subscription: %w", err)
	}
	ledger.Stored = true
	l.logger.InfoContext(ctx, "seeded default subscription", "user_id", userID)
	return ledger, nil
}

func (l *Ledger) publish(ctx context.Context, userID string, event sharedDomain.DomainEvent) {
	events := []sharedDomain.DomainEvent{event}
	sharedApplication.ApplyEventMetadata(events, sharedApplication.EventMetadataFromContext(ctx, userID))
	if err := eventbus.PublishEvents(ctx, l.publisher, events...); err != nil {
		l.logger.WarnContext(ctx, "failed to publish ledger event", "routing_key", event.RoutingKey(), "error", err)
		return
	}
	l.metrics.Counter(observability.MetricEventsPublished, 1, observability.T("routing_key", event.RoutingKey()))
}

func indexOf(subs []domain.Subscription, id string) int {
	for i, s := range subs {
		if s.ID == id {
			return i
		}
	}
	return -1
}

func nextTransactionID(txs []domain.LedgerTransaction, n int64) string {
	used := make(map[string]bool, len(txs))
	for _, tx := range txs {
		used[tx.ID] = true
	}
	for {
		id := "TXN-" + strconv.FormatInt(n, 10)
		if !used[id] {
			return id
		}
		n++
	}
}

func nextSubscriptionID(subs []domain.Subscription, n int64) string {
	for {
		id := "sub_" + strconv.FormatInt(n, 10)
		if indexOf(subs, id) < 0 {
			return id
		}
		n++
	}
}

func uniqueReference(txs []domain.LedgerTransaction, provider domain.Provider) string {
	for {
		ref := provider.NewReference()
		clash := false
		for _, tx := range txs {
			if tx.Ref == ref {
				clash = true
				break
			}
		}
		if !clash {
			return ref
		}
	}
}
