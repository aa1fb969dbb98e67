// Package monitor tracks a user's most urgent subscription and counts down
// to its next payment.
package monitor

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"github.com/foodthrift/paysmallsmall/internal/notify"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	"github.com/foodthrift/paysmallsmall/internal/storage"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

const (
	// DefaultScanInterval is how often subscriptions are re-read.
	DefaultScanInterval = 5 * time.Second
	// DefaultTickInterval is how often the countdown is recomputed.
	DefaultTickInterval = time.Second
	// DefaultUrgencyWindowDays is the largest whole-day countdown that is
	// still imminent.
	DefaultUrgencyWindowDays = 3
)

// ErrNothingDue is returned by RequestPayment when no subscription is urgent.
var ErrNothingDue = errors.New("monitor: no active subscription due")

// SubscriptionSource lists a user's subscriptions in stored order without
// writing to the store.
type SubscriptionSource interface {
	PeekActive(ctx context.Context, userID string) ([]domain.Subscription, error)
}

// Config configures a Monitor.
type Config struct {
	UserID            string
	ScanInterval      time.Duration
	TickInterval      time.Duration
	UrgencyWindowDays int
}

// DefaultConfig returns the default configuration for userID.
func DefaultConfig(userID string) Config {
	return Config{
		UserID:            userID,
		ScanInterval:      DefaultScanInterval,
		TickInterval:      DefaultTickInterval,
		UrgencyWindowDays: DefaultUrgencyWindowDays,
	}
}

// Snapshot is the monitor state at one instant.
type Snapshot struct {
	Urgent    *domain.Subscription  `json:"urgent"`
	Remaining *domain.TimeRemaining `json:"remaining"`
	Imminent  bool                  `json:"imminent"`
	ScannedAt time.Time             `json:"scannedAt"`
}

// Listener receives every new snapshot on the monitor goroutine.
type Listener func(Snapshot)

// Monitor selects the ACTIVE subscription with the earliest due date and
// keeps a countdown to it. Scans run on a slow timer, the countdown on a
// fast one; both stop with Stop or when the Run context ends.
type Monitor struct {
	source   SubscriptionSource
	payments *notify.Bus[domain.Subscription]
	changes  storage.ChangeNotifier
	config   Config
	logger   *slog.Logger
	metrics  observability.Metrics
	clock    sharedApplication.Clock

	mu        sync.RWMutex
	state     Snapshot
	listeners map[uint64]Listener
	nextID    uint64

	running   atomic.Bool
	refreshCh chan struct{}
	stopCh    chan struct{}
	stopOnce  sync.Once
}

// Options holds the optional collaborators of a Monitor.
type Options struct {
	// Payments receives the urgent subscription on RequestPayment.
	Payments *notify.Bus[domain.Subscription]
	// Changes, when set, triggers a scan whenever the user's subscriptions
	// are written, including by other processes.
	Changes storage.ChangeNotifier
	Logger  *slog.Logger
	Metrics observability.Metrics
	Clock   sharedApplication.Clock
}

// New creates a monitor. Zero config fields take their defaults.
func New(source SubscriptionSource, config Config, opts Options) *Monitor {
	if config.ScanInterval <= 0 {
		config.ScanInterval = DefaultScanInterval
	}
	if config.TickInterval <= 0 {
		config.TickInterval = DefaultTickInterval
	}
	if config.UrgencyWindowDays <= 0 {
		config.UrgencyWindowDays = DefaultUrgencyWindowDays
	}
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Metrics == nil {
		opts.Metrics = observability.NoopMetrics{}
	}
	return &Monitor{
		source:    source,
		payments:  opts.Payments,
		changes:   opts.Changes,
		config:    config,
		logger:    opts.Logger.With("component", "due_date_monitor", "user_id", config.UserID),
		metrics:   opts.Metrics,
		clock:     opts.Clock,
		listeners: make(map[uint64]Listener),
		refreshCh: make(chan struct{}, 1),
		stopCh:    make(chan struct{}),
	}
}

// Run scans immediately and then keeps both timers going until ctx is
// cancelled or Stop is called.
func (m *Monitor) Run(ctx context.Context) error {
	if !m.running.CompareAndSwap(false, true) {
		return errors.New("monitor: already running")
	}
	defer m.running.Store(false)

	m.logger.Info("due-date monitor started",
		"scan_interval", m.config.ScanInterval,
		"tick_interval", m.config.TickInterval,
	)

	changes := m.watchChanges(ctx)

	m.Scan(ctx)

	scan := time.NewTicker(m.config.ScanInterval)
	defer scan.Stop()
	tick := time.NewTicker(m.config.TickInterval)
	defer tick.Stop()

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("due-date monitor stopped (context cancelled)")
			return ctx.Err()
		case <-m.stopCh:
			m.logger.Info("due-date monitor stopped (stop signal)")
			return nil
		case <-scan.C:
			m.Scan(ctx)
		case <-m.refreshCh:
			m.Scan(ctx)
		case key, ok := <-changes:
			if !ok {
				changes = nil
				continue
			}
			if key == storage.KeySubscriptions {
				m.Scan(ctx)
			}
		case <-tick.C:
			m.Tick()
		}
	}
}

// Stop ends Run. It is safe to call more than once.
func (m *Monitor) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// IsRunning returns true while Run is active.
func (m *Monitor) IsRunning() bool {
	return m.running.Load()
}

// Refresh asks the running monitor to scan as soon as possible.
func (m *Monitor) Refresh() {
	select {
	case m.refreshCh <- struct{}{}:
	default:
	}
}

// Scan re-reads the subscriptions, selects the urgent one and recomputes
// the countdown. A failed read is treated as having no active subscription.
func (m *Monitor) Scan(ctx context.Context) {
	subs, err := m.source.PeekActive(ctx, m.config.UserID)
	if err != nil {
		m.logger.Warn("subscription scan failed", "error", err)
		m.metrics.Counter(observability.MetricMonitorScanErrors, 1)
		subs = nil
	}
	m.metrics.Counter(observability.MetricMonitorScans, 1)

	urgent := SelectUrgent(subs)

	m.mu.Lock()
	m.state.Urgent = urgent
	m.state.ScannedAt = m.clock.Now()
	snap := m.recomputeLocked()
	m.mu.Unlock()

	m.notify(snap)
}

// Tick recomputes the countdown for the current urgent subscription.
func (m *Monitor) Tick() {
	m.mu.Lock()
	snap := m.recomputeLocked()
	m.mu.Unlock()

	m.notify(snap)
}

// Snapshot returns the current state.
func (m *Monitor) Snapshot() Snapshot {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return copySnapshot(m.state)
}

// Watch registers fn for every scan and tick and returns the function that
// removes it.
func (m *Monitor) Watch(fn Listener) (unwatch func()) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.listeners[id] = fn
	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		delete(m.listeners, id)
	}
}

// RequestPayment publishes the urgent subscription on the payments bus so
// the mounted checkout can open. delivered is false when no checkout is
// mounted.
func (m *Monitor) RequestPayment(ctx context.Context) (sub domain.Subscription, delivered bool, err error) {
	snap := m.Snapshot()
	if snap.Urgent == nil {
		return domain.Subscription{}, false, ErrNothingDue
	}
	sub = *snap.Urgent
	if m.payments == nil {
		return sub, false, nil
	}
	delivered = m.payments.Publish(sub)
	m.logger.InfoContext(ctx, "payment requested", "subscription_id", sub.ID, "delivered", delivered)
	return sub, delivered, nil
}

// SelectUrgent returns the ACTIVE subscription due first. Ties keep stored
// order. nil means nothing is active.
func SelectUrgent(subs []domain.Subscription) *domain.Subscription {
	active := make([]domain.Subscription, 0, len(subs))
	for _, s := range subs {
		if s.IsActive() {
			active = append(active, s)
		}
	}
	if len(active) == 0 {
		return nil
	}
	slices.SortStableFunc(active, func(a, b domain.Subscription) int {
		return a.NextPaymentDate.Compare(b.NextPaymentDate)
	})
	urgent := active[0]
	return &urgent
}

// IsImminent reports whether a countdown falls inside the urgency window.
func IsImminent(remaining *domain.TimeRemaining, windowDays int) bool {
	return remaining != nil && remaining.Days <= windowDays
}

func (m *Monitor) recomputeLocked() Snapshot {
	wasImminent := m.state.Imminent

	m.state.Remaining = nil
	if m.state.Urgent != nil {
		if tr, ok := domain.Until(m.state.Urgent.NextPaymentDate, m.clock.Now()); ok {
			m.state.Remaining = &tr
		}
	}
	m.state.Imminent = IsImminent(m.state.Remaining, m.config.UrgencyWindowDays)

	if m.state.Imminent != wasImminent {
		gauge := 0.0
		if m.state.Imminent {
			gauge = 1
			m.logger.Info("payment due soon", "subscription_id", m.state.Urgent.ID, "days", m.state.Remaining.Days)
		}
		m.metrics.Gauge(observability.MetricMonitorImminent, gauge, observability.T("user_id", m.config.UserID))
	}
	return copySnapshot(m.state)
}

func (m *Monitor) notify(snap Snapshot) {
	m.mu.RLock()
	listeners := make([]Listener, 0, len(m.listeners))
	for _, fn := range m.listeners {
		listeners = append(listeners, fn)
	}
	m.mu.RUnlock()

	for _, fn := range listeners {
		fn(snap)
	}
}

func (m *Monitor) watchChanges(ctx context.Context) <-chan string {
	if m.changes == nil {
		return nil
	}
	ch, err := m.changes.Changes(ctx, storage.UserNamespace(m.config.UserID))
	if err != nil {
		m.logger.Warn("change feed unavailable, relying on periodic scans", "error", err)
		return nil
	}
	return ch
}

func copySnapshot(s Snapshot) Snapshot {
	out := Snapshot{Imminent: s.Imminent, ScannedAt: s.ScannedAt}
	if s.Urgent != nil {
		u := *s.Urgent
		out.Urgent = &u
	}
	if s.Remaining != nil {
		r := *s.Remaining
		out.Remaining = &r
	}
	return out
}
