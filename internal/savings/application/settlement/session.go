// Package settlement runs the checkout flow that turns a payment request into
// a ledger entry: METHOD_SELECT, then PROCESSING, then SUCCESS or FAILED.
package settlement

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	"github.com/foodthrift/paysmallsmall/internal/notify"
	savingsApplication "github.com/foodthrift/paysmallsmall/internal/savings/application"
	"github.com/foodthrift/paysmallsmall/internal/savings/domain"
	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

var (
	// ErrSettlementInProgress is returned by Open while a checkout is past
	// method selection and has not been dismissed.
	ErrSettlementInProgress = errors.New("settlement already in progress")
	// ErrNoCheckout is returned when an operation needs an open checkout.
	ErrNoCheckout = errors.New("no checkout open")
	// ErrWrongStep is returned when an operation does not apply to the
	// checkout's current step.
	ErrWrongStep = errors.New("operation not allowed at this checkout step")
	// ErrSessionClosed is returned after Close.
	ErrSessionClosed = errors.New("settlement session closed")
)

// Step is a checkout state.
type Step string

const (
	StepMethodSelect Step = "METHOD_SELECT"
	StepProcessing   Step = "PROCESSING"
	StepSuccess      Step = "SUCCESS"
	StepFailed       Step = "FAILED"
)

// Recorder commits a settled payment.
type Recorder interface {
	RecordPayment(ctx context.Context, cmd savingsApplication.RecordPaymentCommand) (domain.Subscription, domain.LedgerTransaction, error)
}

// Checkout is a copy of the checkout state.
type Checkout struct {
	ID           string                    `json:"id"`
	Step         Step                      `json:"step"`
	Subscription domain.Subscription       `json:"subscription"`
	Plan         catalogDomain.Plan        `json:"plan"`
	Amount       int64                     `json:"amount"`
	Providers    []domain.Provider         `json:"providers"`
	Provider     domain.Provider           `json:"provider,omitempty"`
	Transaction  *domain.LedgerTransaction `json:"transaction,omitempty"`
	Error        string                    `json:"error,omitempty"`
}

// Config holds the optional collaborators of a Session.
type Config struct {
	Logger  *slog.Logger
	Metrics observability.Metrics
	Clock   sharedApplication.Clock
	// OnChange observes every step change. It runs without the session lock
	// and may be called from the processing goroutine.
	OnChange func(Checkout)
}

// Session holds at most one checkout for one user.
type Session struct {
	userID   string
	gateway  Gateway
	ledger   Recorder
	plans    savingsApplication.PlanResolver
	logger   *slog.Logger
	metrics  observability.Metrics
	clock    sharedApplication.Clock
	onChange func(Checkout)

	mu      sync.Mutex
	active  *Checkout
	seq     int
	done    chan struct{}
	cancels map[string]context.CancelFunc
	closed  bool
	wg      sync.WaitGroup
}

// NewSession creates an empty settlement session for userID.
func NewSession(userID string, gateway Gateway, ledger Recorder, plans savingsApplication.PlanResolver, cfg Config) *Session {
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	if cfg.Metrics == nil {
		cfg.Metrics = observability.NoopMetrics{}
	}
	return &Session{
		userID:   userID,
		gateway:  gateway,
		ledger:   ledger,
		plans:    plans,
		logger:   cfg.Logger.With("component", "settlement", "user_id", userID),
		metrics:  cfg.Metrics,
		clock:    cfg.Clock,
		onChange: cfg.OnChange,
		cancels:  make(map[string]context.CancelFunc),
	}
}

// Mount subscribes the session to payment requests on bus. Requests that
// arrive while a checkout is busy are logged and ignored.
func (s *Session) Mount(bus *notify.Bus[domain.Subscription]) (unmount func(), err error) {
	return bus.Subscribe(func(sub domain.Subscription) {
		if _, err := s.Open(context.Background(), sub); err != nil {
			s.logger.Info("payment request ignored", "subscription_id", sub.ID, "error", err)
		}
	})
}

// Open starts a checkout for sub at METHOD_SELECT with the resolved plan
// installment as the amount due. An open checkout still at METHOD_SELECT is
// replaced.
func (s *Session) Open(ctx context.Context, sub domain.Subscription) (Checkout, error) {
	if !sub.IsActive() {
		return Checkout{}, fmt.Errorf("%w: %s is %s", domain.ErrSubscriptionNotActive, sub.ID, sub.Status)
	}
	plan := s.plans.Resolve(ctx, sub.PlanID)

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Checkout{}, ErrSessionClosed
	}
	if s.active != nil && s.active.Step != StepMethodSelect {
		step := s.active.Step
		s.mu.Unlock()
		return Checkout{}, fmt.Errorf("%w: checkout is %s", ErrSettlementInProgress, step)
	}
	s.seq++
	s.active = &Checkout{
		ID:           fmt.Sprintf("chk_%d", s.seq),
		Step:         StepMethodSelect,
		Subscription: sub,
		Plan:         plan,
		Amount:       plan.Amount,
		Providers:    domain.Providers(),
	}
	snap := copyCheckout(s.active)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "checkout opened", "subscription_id", sub.ID, "amount", plan.Amount)
	s.changed(snap)
	return snap, nil
}

// Cancel abandons a checkout at METHOD_SELECT, or clears a finished one.
// Nothing is charged or written. Cancelling with no checkout is a no-op.
func (s *Session) Cancel() error {
	s.mu.Lock()
	if s.active == nil {
		s.mu.Unlock()
		return nil
	}
	if s.active.Step == StepProcessing {
		s.mu.Unlock()
		return fmt.Errorf("%w: payment is processing", ErrSettlementInProgress)
	}
	s.active = nil
	s.mu.Unlock()

	s.logger.Debug("checkout cancelled")
	return nil
}

// SelectProvider moves the checkout to PROCESSING and settles in the
// background: the gateway is charged, then the ledger records the payment.
// The plan is resolved again here, so the amount charged is the catalog's
// at selection time. Wait blocks until the outcome is known.
func (s *Session) SelectProvider(ctx context.Context, provider domain.Provider) (Checkout, error) {
	if !provider.IsValid() {
		return Checkout{}, fmt.Errorf("%w: unknown provider %q", ErrWrongStep, provider)
	}

	s.mu.Lock()
	var checkoutID, planID string
	if s.active != nil {
		checkoutID, planID = s.active.ID, s.active.Subscription.PlanID
	}
	s.mu.Unlock()

	var plan catalogDomain.Plan
	if checkoutID != "" {
		plan = s.plans.Resolve(ctx, planID)
	}

	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return Checkout{}, ErrSessionClosed
	}
	if s.active == nil {
		s.mu.Unlock()
		return Checkout{}, ErrNoCheckout
	}
	if s.active.Step != StepMethodSelect {
		step := s.active.Step
		s.mu.Unlock()
		return Checkout{}, fmt.Errorf("%w: checkout is %s", ErrWrongStep, step)
	}

	if s.active.ID == checkoutID {
		s.active.Plan = plan
		s.active.Amount = plan.Amount
	}
	s.active.Step = StepProcessing
	s.active.Provider = provider
	checkout := copyCheckout(s.active)

	procCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	s.cancels[checkout.ID] = cancel
	s.done = make(chan struct{})
	done := s.done
	s.wg.Add(1)
	s.mu.Unlock()

	s.logger.InfoContext(ctx, "settlement processing", "checkout_id", checkout.ID, "provider", provider)
	s.changed(checkout)

	go s.settle(procCtx, checkout, done)
	return checkout, nil
}

func (s *Session) settle(ctx context.Context, checkout Checkout, done chan struct{}) {
	defer s.wg.Done()
	defer close(done)

	start := s.clock.Now()
	var tx domain.LedgerTransaction
	err := s.gateway.Charge(ctx, ChargeRequest{
		UserID:         s.userID,
		SubscriptionID: checkout.Subscription.ID,
		Provider:       checkout.Provider,
		Amount:         checkout.Amount,
	})
	if err != nil {
		err = fmt.Errorf("gateway %s: %w", checkout.Provider, err)
	} else {
		_, tx, err = s.ledger.RecordPayment(ctx, savingsApplication.RecordPaymentCommand{
			UserID:         s.userID,
			SubscriptionID: checkout.Subscription.ID,
			Plan:           checkout.Plan,
			Provider:       checkout.Provider,
		})
	}
	s.metrics.Timing(observability.MetricSettlementTiming, s.clock.Now().Sub(start))

	s.mu.Lock()
	if cancel, ok := s.cancels[checkout.ID]; ok {
		cancel()
		delete(s.cancels, checkout.ID)
	}
	if s.active == nil || s.active.ID != checkout.ID {
		s.mu.Unlock()
		return
	}
	if err != nil {
		s.active.Step = StepFailed
		s.active.Error = err.Error()
	} else {
		s.active.Step = StepSuccess
		s.active.Transaction = &tx
	}
	snap := copyCheckout(s.active)
	s.mu.Unlock()

	if err != nil {
		s.metrics.Counter(observability.MetricPaymentsFailed, 1, observability.T("provider", string(checkout.Provider)))
		s.logger.Warn("settlement failed", "checkout_id", checkout.ID, "subscription_id", checkout.Subscription.ID, "error", err)
	} else {
		s.logger.Info("settlement succeeded", "checkout_id", checkout.ID, "transaction_id", tx.ID, "ref", tx.Ref)
	}
	s.changed(snap)
}

// Dismiss clears a checkout that reached SUCCESS or FAILED.
func (s *Session) Dismiss() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return ErrNoCheckout
	}
	if s.active.Step != StepSuccess && s.active.Step != StepFailed {
		return fmt.Errorf("%w: checkout is %s", ErrWrongStep, s.active.Step)
	}
	s.active = nil
	return nil
}

// Current returns the open checkout, if any.
func (s *Session) Current() (Checkout, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.active == nil {
		return Checkout{}, false
	}
	return copyCheckout(s.active), true
}

// Wait blocks until the current settlement leaves PROCESSING and returns
// the resulting checkout.
func (s *Session) Wait(ctx context.Context) (Checkout, error) {
	s.mu.Lock()
	done := s.done
	s.mu.Unlock()

	if done != nil {
		select {
		case <-ctx.Done():
			return Checkout{}, ctx.Err()
		case <-done:
		}
	}
	checkout, ok := s.Current()
	if !ok {
		return Checkout{}, ErrNoCheckout
	}
	return checkout, nil
}

// Close aborts any settlement still talking to the gateway and waits for
// it to finish. An aborted settlement ends FAILED with no ledger entry
// unless the ledger commit had already started.
func (s *Session) Close() {
	s.mu.Lock()
	s.closed = true
	for id, cancel := range s.cancels {
		cancel()
		delete(s.cancels, id)
	}
	s.mu.Unlock()

	s.wg.Wait()
}

func (s *Session) changed(c Checkout) {
	if s.onChange != nil {
		s.onChange(c)
	}
}

func copyCheckout(c *Checkout) Checkout {
	out := *c
	out.Providers = append([]domain.Provider(nil), c.Providers...)
	if c.Transaction != nil {
		tx := *c.Transaction
		out.Transaction = &tx
	}
	return out
}
