// Package api serves the savings engine over HTTP.
package api

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/cors"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	internalApp "github.com/foodthrift/paysmallsmall/internal/app"
	"github.com/foodthrift/paysmallsmall/internal/session"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

// Server is the HTTP API server.
type Server struct {
	router  chi.Router
	server  *http.Server
	logger  *slog.Logger
	app     *cli.App
	metrics observability.Metrics
	limiter *RateLimiter

	// ctx outlives requests; per-user runtimes are bound to it.
	ctx    context.Context
	cancel context.CancelFunc

	mu       sync.Mutex
	sessions map[string]*internalApp.UserSession
}

// ServerConfig holds configuration for the API server.
type ServerConfig struct {
	Addr        string
	ReadTimeout time.Duration
	IdleTimeout time.Duration
	CORSOrigins []string
	RateLimit   float64
	RateBurst   int
}

// DefaultServerConfig returns the default server configuration.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:        "0.0.0.0:8080",
		ReadTimeout: 15 * time.Second,
		// No write timeout: the banner stream is long-lived.
		IdleTimeout: 60 * time.Second,
		CORSOrigins: []string{"http://localhost:3000"},
		RateLimit:   20,
		RateBurst:   40,
	}
}

// Dependencies are the services the handlers call.
type Dependencies struct {
	App     *cli.App
	Metrics observability.Metrics
	// MetricsHandler serves /metrics when set.
	MetricsHandler http.Handler
}

// NewServer creates the API server and registers its routes.
func NewServer(cfg ServerConfig, deps Dependencies, logger *slog.Logger) (*Server, error) {
	if deps.App == nil {
		return nil, errors.New("app is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if deps.Metrics == nil {
		deps.Metrics = observability.NoopMetrics{}
	}
	if cfg.RateLimit <= 0 {
		cfg.RateLimit = DefaultServerConfig().RateLimit
	}
	if cfg.RateBurst <= 0 {
		cfg.RateBurst = DefaultServerConfig().RateBurst
	}

	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		router:   chi.NewRouter(),
		logger:   logger.With("component", "api"),
		app:      deps.App,
		metrics:  deps.Metrics,
		limiter:  NewRateLimiter(ctx, cfg.RateLimit, cfg.RateBurst),
		ctx:      ctx,
		cancel:   cancel,
		sessions: make(map[string]*internalApp.UserSession),
	}
	s.registerRoutes(cfg, deps.MetricsHandler)

	s.server = &http.Server{
		Addr:        cfg.Addr,
		Handler:     s.router,
		ReadTimeout: cfg.ReadTimeout,
		IdleTimeout: cfg.IdleTimeout,
	}
	return s, nil
}

func (s *Server) registerRoutes(cfg ServerConfig, metricsHandler http.Handler) {
	r := s.router

	r.Use(s.recovery)
	r.Use(s.requestContext)
	r.Use(s.requestLogger)
	r.Use(cors.Handler(cors.Options{
		AllowedOrigins:   cfg.CORSOrigins,
		AllowedMethods:   []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowedHeaders:   []string{"Accept", "Authorization", "Content-Type", "X-Correlation-ID"},
		AllowCredentials: true,
		MaxAge:           300,
	}))

	r.Get("/healthz", s.handleHealth)
	if metricsHandler != nil {
		r.Handle("/metrics", metricsHandler)
	}
	r.Get("/api/v1/ws/banner", s.handleBanner)

	r.Group(func(r chi.Router) {
		r.Use(s.limiter.Middleware())
		r.Use(s.countRequests)

		r.Get("/api/v1/plans", s.listPlans)
		r.Post("/api/v1/plans", s.addPlan)
		r.Post("/api/v1/plans/{id}/archive", s.archivePlan)

		r.Get("/api/v1/subscriptions", s.listSubscriptions)
		r.Post("/api/v1/subscriptions", s.enroll)
		r.Get("/api/v1/subscriptions/{id}", s.getSubscription)
		r.Post("/api/v1/subscriptions/{id}/cancel", s.cancelSubscription)
		r.Post("/api/v1/subscriptions/{id}/complete", s.completeSubscription)
		r.Get("/api/v1/transactions", s.listTransactions)
		r.Get("/api/v1/summary", s.summary)
		r.Get("/api/v1/export", s.exportLedger)

		r.Get("/api/v1/monitor", s.monitorSnapshot)
		r.Get("/api/v1/checkout", s.currentCheckout)
		r.Post("/api/v1/checkout", s.openCheckout)
		r.Post("/api/v1/checkout/provider", s.selectProvider)
		r.Post("/api/v1/checkout/cancel", s.cancelCheckout)
		r.Post("/api/v1/checkout/dismiss", s.dismissCheckout)

		r.Get("/api/v1/session", s.currentSession)
		r.Post("/api/v1/session/login", s.login)
		r.Post("/api/v1/session/logout", s.logout)
		r.Put("/api/v1/session/view", s.setView)

		r.Get("/api/v1/advice", s.advice)
		r.Get("/api/v1/briefing", s.briefing)
	})
}

// Handler returns the routed handler, for tests and embedding.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Start serves until Shutdown is called.
func (s *Server) Start() error {
	s.logger.Info("starting API server", "addr", s.server.Addr)
	if err := s.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown stops accepting requests and closes every per-user runtime.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	err := s.server.Shutdown(ctx)
	s.Close()
	return err
}

// Close releases per-user runtimes without touching the listener.
func (s *Server) Close() {
	s.cancel()
	s.mu.Lock()
	sessions := s.sessions
	s.sessions = make(map[string]*internalApp.UserSession)
	s.mu.Unlock()
	for _, us := range sessions {
		us.Close()
	}
}

// userSession returns the long-lived runtime for user, opening it on first use.
func (s *Server) userSession(user session.User) (*internalApp.UserSession, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if us, ok := s.sessions[user.ID]; ok {
		return us, nil
	}
	if s.app.OpenUserSession == nil {
		return nil, cli.ErrNotInitialized
	}
	us, err := s.app.OpenUserSession(s.ctx, user)
	if err != nil {
		return nil, err
	}
	s.sessions[user.ID] = us
	return us, nil
}

// releaseSession stops the monitor and settlement runtime of userID, if any.
func (s *Server) releaseSession(userID string) {
	s.mu.Lock()
	us, ok := s.sessions[userID]
	delete(s.sessions, userID)
	s.mu.Unlock()
	if ok {
		us.Close()
	}
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if s.app.Health == nil {
		writeJSON(w, http.StatusOK, map[string]string{"status": "healthy"})
		return
	}
	report := s.app.Health.Check(r.Context())
	status := http.StatusOK
	if report.Status == observability.HealthStatusUnhealthy {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, report)
}
