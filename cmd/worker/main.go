package main

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/foodthrift/paysmallsmall/adapter/cli"
	"github.com/foodthrift/paysmallsmall/internal/app"
	"github.com/foodthrift/paysmallsmall/internal/reminder"
	"github.com/foodthrift/paysmallsmall/internal/savings/application/monitor"
	"github.com/foodthrift/paysmallsmall/internal/session"
	"github.com/foodthrift/paysmallsmall/pkg/config"
	"github.com/foodthrift/paysmallsmall/pkg/observability"
)

func main() {
	logger := observability.LoggerFromEnv().With("component", "worker")
	logger.Info("starting paysmall reminder worker")

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle shutdown signals
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("received shutdown signal", "signal", sig.String())
		cancel()
	}()

	cfg, err := config.Load()
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if cfg.IsDevelopment() {
		logCfg := observability.DefaultLogConfig()
		logCfg.Level = observability.LogLevelDebug
		logCfg.ServiceVersion = cli.Version
		logger = observability.NewLogger(logCfg).With("component", "worker")
	}

	container, err := app.NewContainer(ctx, cfg, logger)
	if err != nil {
		logger.Error("failed to initialize container", "error", err)
		os.Exit(1)
	}
	defer container.Close()

	user := session.MockCustomer()
	user.ID = cfg.UserID
	us, err := container.OpenUserSession(ctx, user)
	if err != nil {
		logger.Error("failed to start due-date monitor", "error", err)
		os.Exit(1)
	}
	defer us.Close()

	reminders := reminder.New(reminder.Config{
		UserID:  user.ID,
		Plans:   container.Catalog,
		Logger:  logger,
		Metrics: container.Metrics,
	})

	// Watch runs on the monitor goroutine; hand snapshots off so plan
	// lookups never hold up the countdown.
	snapshots := make(chan monitor.Snapshot, 1)
	unwatch := us.Monitor.Watch(func(snap monitor.Snapshot) {
		select {
		case snapshots <- snap:
		default:
		}
	})
	defer unwatch()

	if cfg.WorkerHealthAddr != "" {
		startHealthServer(ctx, cfg.WorkerHealthAddr, container, reminders, logger)
	}

	statsInterval := cfg.WorkerStatsInterval
	if statsInterval <= 0 {
		statsInterval = time.Minute
	}
	statsTicker := time.NewTicker(statsInterval)
	defer statsTicker.Stop()

	for {
		select {
		case <-ctx.Done():
			logger.Info("reminder worker stopped", "sent", reminders.Stats().Sent)
			return
		case snap := <-snapshots:
			reminders.Observe(ctx, snap)
		case <-statsTicker.C:
			snap := us.Monitor.Snapshot()
			stats := reminders.Stats()
			attrs := []any{
				"sent", stats.Sent,
				"last_sent_at", stats.LastSentAt,
				"imminent", snap.Imminent,
			}
			if snap.Urgent != nil {
				attrs = append(attrs, "urgent", snap.Urgent.ID, "due_at", snap.Urgent.NextPaymentDate)
			}
			logger.Info("reminder stats", attrs...)
		}
	}
}

func startHealthServer(ctx context.Context, addr string, container *app.Container, reminders *reminder.Reminder, logger *slog.Logger) {
	mux := http.NewServeMux()
	mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		stats := reminders.Stats()
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"status":       "ok",
			"sent":         stats.Sent,
			"last_sent_at": stats.LastSentAt,
			"last_notice":  stats.LastNotice,
		})
	})
	mux.HandleFunc("/readyz", func(w http.ResponseWriter, r *http.Request) {
		checkCtx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		health := container.Health.Check(checkCtx)
		w.Header().Set("Content-Type", "application/json")
		if health.Status == observability.HealthStatusUnhealthy {
			w.WriteHeader(http.StatusServiceUnavailable)
		}
		_ = json.NewEncoder(w).Encode(health)
	})
	if container.Prometheus != nil {
		mux.Handle("/metrics", container.Prometheus.Handler())
	}

	healthSrv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("health server starting", "addr", addr)
		if err := healthSrv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Error("health server error", "error", err)
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := healthSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("health server shutdown error", "error", err)
		}
	}()
}
