// Package app wires the store, services and per-user runtime together.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"

	"github.com/foodthrift/paysmallsmall/internal/advisory"
	catalogApp "github.com/foodthrift/paysmallsmall/internal/catalog/application"
	"github.com/foodthrift/paysmallsmall/internal/notify"
	savingsApp "github.com/foodthrift/paysmallsmall/internal/savings/application"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/monitor"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/settlement"
	savingsDomain "github.com/foodthrift/paysmallsmall/internal/savings/domain"
	"github.com/foodthrift/paysmallsmall/internal/session"
	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/eventbus"
	"github.com/foodthrift/paysmallsmall/internal/storage"
	"github.com/foodthrift/paysmallsmall/pkg/config"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

// savingsRoutingKeys are the events after which a user's monitor rescans.
var savingsRoutingKeys = []string{
	savingsDomain.RoutingKeyPaymentSettled,
	savingsDomain.RoutingKeySubscriptionEnrolled,
	savingsDomain.RoutingKeySubscriptionCancelled,
	savingsDomain.RoutingKeySubscriptionCompleted,
}

// Container holds all application dependencies.
type Container struct {
	Config *config.Config
	Logger *slog.Logger

	// Metrics is Prometheus-backed when enabled, otherwise in-memory.
	Metrics    observability.Metrics
	Prometheus *observability.PrometheusMetrics
	Health     *observability.HealthRegistry

	Store        storage.Store
	Repositories Repositories

	// Publishers
	EventBus       *eventbus.InProcessBus
	EventPublisher eventbus.Publisher
	rabbitConsumer *eventbus.RabbitMQConsumer

	// Services
	Catalog  *catalogApp.Service
	Ledger   *savingsApp.Ledger
	Sessions *session.Manager
	Advisory *advisory.Service
	Gateway  settlement.Gateway

	clock sharedApplication.Clock

	mu           sync.Mutex
	userSessions map[*UserSession]struct{}
	closed       bool
	cancel       context.CancelFunc
	wg           sync.WaitGroup
}

// Option customises a container before its services are built.
type Option func(*Container)

// WithStore uses an already opened store instead of the configured one.
// The container takes ownership of it.
func WithStore(store storage.Store) Option {
	return func(c *Container) { c.Store = store }
}

// WithGateway replaces the simulated payment gateway.
func WithGateway(gateway settlement.Gateway) Option {
	return func(c *Container) { c.Gateway = gateway }
}

// WithClock fixes the time source of every service.
func WithClock(clock sharedApplication.Clock) Option {
	return func(c *Container) { c.clock = clock }
}

// WithMetrics replaces the metrics sink.
func WithMetrics(metrics observability.Metrics) Option {
	return func(c *Container) { c.Metrics = metrics }
}

// NewContainer creates and wires all dependencies.
func NewContainer(ctx context.Context, cfg *config.Config, logger *slog.Logger, opts ...Option) (*Container, error) {
	if logger == nil {
		logger = slog.Default()
	}
	c := &Container{
		Config:       cfg,
		Logger:       logger,
		Health:       observability.NewHealthRegistry(),
		userSessions: make(map[*UserSession]struct{}),
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.Metrics == nil {
		if cfg.MetricsEnabled {
			c.Prometheus = observability.NewPrometheusMetrics()
			c.Metrics = c.Prometheus
		} else {
			c.Metrics = observability.NewInMemoryMetrics()
		}
	}

	if c.Store == nil {
		store, err := OpenStore(ctx, cfg, logger)
		if err != nil {
			return nil, err
		}
		c.Store = store
	}
	c.Health.Register("store", observability.PingChecker("store", observability.HealthStatusUnhealthy, c.Store.Ping))
	c.Repositories = NewRepositories(c.Store)

	consumerCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	c.cancel = cancel
	if err := c.initEvents(consumerCtx); err != nil {
		cancel()
		_ = c.Store.Close()
		return nil, err
	}

	c.Catalog = catalogApp.NewService(c.Repositories.Catalog, catalogApp.ServiceConfig{
		Publisher: c.EventPublisher,
		Metrics:   c.Metrics,
		Logger:    logger,
		Clock:     c.clock,
	})
	c.Ledger = savingsApp.NewLedger(c.Repositories.Ledger, c.Catalog, savingsApp.LedgerConfig{
		Publisher: c.EventPublisher,
		Metrics:   c.Metrics,
		Logger:    logger,
		Clock:     c.clock,
	})
	c.Sessions = session.NewManager(c.Store, logger)
	c.Advisory = advisory.New(advisory.Config{
		APIKey:        cfg.AdvisoryAPIKey,
		Endpoint:      cfg.AdvisoryEndpoint,
		AdviceModel:   cfg.AdvisoryAdviceModel,
		BriefingModel: cfg.AdvisoryBriefingModel,
		Timeout:       cfg.AdvisoryTimeout,
		Logger:        logger,
		Metrics:       c.Metrics,
	})
	if c.Gateway == nil {
		c.Gateway = settlement.NewSimulatedGateway(cfg.SettlementLatency)
	}

	logger.Info("container initialized",
		"store", fmt.Sprintf("%T", c.Store),
		"rabbitmq", c.rabbitConsumer != nil,
		"prometheus", c.Prometheus != nil,
		"advisory", c.Advisory.Enabled(),
	)
	return c, nil
}

// initEvents sets up local dispatch and, when configured, the RabbitMQ
// exchange so other processes observe this one's payments.
func (c *Container) initEvents(ctx context.Context) error {
	c.EventBus = eventbus.NewInProcessBus(c.Logger)
	c.EventBus.RegisterConsumer(c.refreshConsumer("inprocess"))

	if c.Config.RabbitMQURL == "" {
		c.EventPublisher = c.EventBus
		return nil
	}

	rabbitPublisher, err := eventbus.NewRabbitMQPublisher(c.Config.RabbitMQURL, c.Logger)
	if err != nil {
		if c.Config.IsProduction() {
			return err
		}
		c.Logger.Warn("RabbitMQ not available, events stay in-process", "error", err)
		c.EventPublisher = c.EventBus
		return nil
	}
	c.EventPublisher = eventbus.NewFanoutPublisher(c.EventBus, rabbitPublisher)

	consumer, err := eventbus.NewRabbitMQConsumer(eventbus.RabbitMQConsumerConfig{
		URL:       c.Config.RabbitMQURL,
		Exclusive: true,
		Logger:    c.Logger,
	}, eventbus.NewConsumerRegistry(c.Logger))
	if err != nil {
		c.Logger.Warn("RabbitMQ consumer unavailable, remote payments are seen on the next scan", "error", err)
		return nil
	}
	consumer.RegisterConsumer(c.refreshConsumer("rabbitmq"))
	c.rabbitConsumer = consumer

	c.wg.Add(1)
	go func() {
		defer c.wg.Done()
		if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
			c.Logger.Error("RabbitMQ consumer stopped", "error", err)
		}
	}()
	return nil
}

// refreshConsumer rescans every open monitor of the event's user.
func (c *Container) refreshConsumer(source string) eventbus.Consumer {
	return eventbus.ConsumerFunc{
		Types: savingsRoutingKeys,
		Fn: func(_ context.Context, event *eventbus.Envelope) error {
			c.Metrics.Counter(observability.MetricEventsConsumed, 1,
				observability.T("routing_key", event.RoutingKey),
				observability.T("source", source),
			)
			for _, us := range c.openSessions() {
				if event.UserID == "" || event.UserID == us.User.ID {
					us.Monitor.Refresh()
				}
			}
			return nil
		},
	}
}

func (c *Container) openSessions() []*UserSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*UserSession, 0, len(c.userSessions))
	for us := range c.userSessions {
		out = append(out, us)
	}
	return out
}

// MonitorConfig derives the monitor configuration for userID.
func (c *Container) MonitorConfig(userID string) monitor.Config {
	return monitor.Config{
		UserID:            userID,
		ScanInterval:      c.Config.MonitorScanInterval,
		TickInterval:      c.Config.MonitorTickInterval,
		UrgencyWindowDays: c.Config.UrgencyWindowDays,
	}
}

// UserSession is the live runtime of one signed-in surface: the due-date
// monitor, the settlement session and the bus joining them.
type UserSession struct {
	User       session.User
	Monitor    *monitor.Monitor
	Settlement *settlement.Session
	// Payments carries "pay now" requests from the monitor to settlement.
	Payments *notify.Bus[savingsDomain.Subscription]
	// Checkouts carries every settlement step change to one observer.
	Checkouts *notify.Bus[settlement.Checkout]

	container *Container
	unmount   func()
	cancel    context.CancelFunc
	done      chan struct{}
	closeOnce sync.Once
}

// OpenUserSession starts the monitor for user and mounts a settlement
// session on its payment bus. Close releases both.
func (c *Container) OpenUserSession(ctx context.Context, user session.User) (*UserSession, error) {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, errors.New("app: container closed")
	}
	c.mu.Unlock()

	logger := c.Logger.With("user_id", user.ID)
	us := &UserSession{
		User:      user,
		Payments:  notify.NewBus[savingsDomain.Subscription]("payments", logger),
		Checkouts: notify.NewBus[settlement.Checkout]("checkouts", logger),
		container: c,
		done:      make(chan struct{}),
	}

	changes, _ := c.Store.(storage.ChangeNotifier)
	us.Monitor = monitor.New(c.Ledger, c.MonitorConfig(user.ID), monitor.Options{
		Payments: us.Payments,
		Changes:  changes,
		Logger:   logger,
		Metrics:  c.Metrics,
		Clock:    c.clock,
	})
	us.Settlement = settlement.NewSession(user.ID, c.Gateway, c.Ledger, c.Catalog, settlement.Config{
		Logger:  logger,
		Metrics: c.Metrics,
		Clock:   c.clock,
		OnChange: func(checkout settlement.Checkout) {
			us.Checkouts.Publish(checkout)
		},
	})

	unmount, err := us.Settlement.Mount(us.Payments)
	if err != nil {
		us.Settlement.Close()
		return nil, fmt.Errorf("mount settlement: %w", err)
	}
	us.unmount = unmount

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	us.cancel = cancel
	go func() {
		defer close(us.done)
		if err := us.Monitor.Run(runCtx); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("due-date monitor exited", "error", err)
		}
	}()

	c.mu.Lock()
	c.userSessions[us] = struct{}{}
	c.mu.Unlock()

	logger.Info("user session opened", "role", string(user.Role))
	return us, nil
}

// Close stops the timers, aborts any in-flight settlement and unmounts the
// settlement session. It is safe to call more than once.
func (us *UserSession) Close() {
	us.closeOnce.Do(func() {
		us.unmount()
		us.Settlement.Close()
		us.Monitor.Stop()
		us.cancel()
		<-us.done

		c := us.container
		c.mu.Lock()
		delete(c.userSessions, us)
		c.mu.Unlock()
		c.Logger.Info("user session closed", "user_id", us.User.ID)
	})
}

// Close releases all resources in reverse order of creation.
func (c *Container) Close() error {
	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil
	}
	c.closed = true
	c.mu.Unlock()

	for _, us := range c.openSessions() {
		us.Close()
	}

	var errs []error
	c.cancel()
	if c.rabbitConsumer != nil {
		if err := c.rabbitConsumer.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close rabbitmq consumer: %w", err))
		}
	}
	c.wg.Wait()
	if c.EventPublisher != nil {
		if err := c.EventPublisher.Close(); err != nil {
			errs = append(errs, fmt.Errorf("close publisher: %w", err))
		}
	}
	if err := c.Store.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close store: %w", err))
	}
	return errors.Join(errs...)
}
