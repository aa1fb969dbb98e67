// Package reminder turns due-date monitor snapshots into one notice per
// installment that enters the urgency window.
package reminder

import (
	"context"
	"log/slog"
	"sync"
	"time"

	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/monitor"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

// PlanResolver names the plan behind a subscription.
type PlanResolver interface {
	Resolve(ctx context.Context, planID string) catalogDomain.Plan
}

// Notice is a single "payment due soon" reminder.
type Notice struct {
	UserID         string               `json:"userId"`
	SubscriptionID string               `json:"subscriptionId"`
	PlanName       string               `json:"planName"`
	Amount         int64                `json:"amount"`
	DueAt          time.Time            `json:"dueAt"`
	Remaining      domain.TimeRemaining `json:"remaining"`
}

// Stats describes what a Reminder has done so far.
type Stats struct {
	Sent       int64
	LastSentAt time.Time
	LastNotice *Notice
}

// Config configures a Reminder.
type Config struct {
	UserID  string
	Plans   PlanResolver
	Logger  *slog.Logger
	Metrics observability.Metrics
	// Send delivers a notice. The default logs it.
	Send func(ctx context.Context, n Notice)
}

// Reminder watches snapshots and sends a notice the first time each
// installment is imminent. A settled installment moves the due date, so
// the next one is reminded about afresh.
type Reminder struct {
	cfg Config

	mu    sync.Mutex
	sent  map[string]time.Time
	stats Stats
}

// New creates a Reminder.
func New(cfg Config) *Reminder {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	r := &Reminder{cfg: cfg, sent: make(map[string]time.Time)}
	if r.cfg.Send == nil {
		r.cfg.Send = r.logNotice
	}
	return r
}

// Observe handles one snapshot and reports whether a notice went out.
func (r *Reminder) Observe(ctx context.Context, snap monitor.Snapshot) bool {
	if !snap.Imminent || snap.Urgent == nil || snap.Remaining == nil {
		return false
	}
	sub := snap.Urgent

	r.mu.Lock()
	if due, ok := r.sent[sub.ID]; ok && due.Equal(sub.NextPaymentDate) {
		r.mu.Unlock()
		return false
	}
	r.sent[sub.ID] = sub.NextPaymentDate
	r.mu.Unlock()

	n := Notice{
		UserID:         r.cfg.UserID,
		SubscriptionID: sub.ID,
		DueAt:          sub.NextPaymentDate,
		Remaining:      *snap.Remaining,
	}
	if r.cfg.Plans != nil {
		plan := r.cfg.Plans.Resolve(ctx, sub.PlanID)
		n.PlanName = plan.Name
		n.Amount = plan.Amount
	}

	r.cfg.Send(ctx, n)
	r.cfg.Metrics.Counter(observability.MetricRemindersSent, 1)

	r.mu.Lock()
	r.stats.Sent++
	r.stats.LastSentAt = snap.ScannedAt
	r.stats.LastNotice = &n
	r.mu.Unlock()
	return true
}

// Stats returns a copy of the current counters.
func (r *Reminder) Stats() Stats {
	r.mu.Lock()
	defer r.mu.Unlock()
	s := r.stats
	if s.LastNotice != nil {
		n := *s.LastNotice
		s.LastNotice = &n
	}
	return s
}

func (r *Reminder) logNotice(_ context.Context, n Notice) {
	r.cfg.Logger.Info("payment due soon",
		"user_id", n.UserID,
		"subscription_id", n.SubscriptionID,
		"plan", n.PlanName,
		"amount", n.Amount,
		"due_at", n.DueAt,
		"days", n.Remaining.Days,
		"hours", n.Remaining.Hours,
	)
}
