package app

import (
	"context"
	"fmt"
	"log/slog"

	catalogDomain "github.com/foodthrift/paysmallsmall/internal/catalog/domain"
	catalogPersistence "github.com/foodthrift/paysmallsmall/internal/catalog/infrastructure/persistence"
	savingsDomain "github.com/foodthrift/paysmallsmall/internal/savings/domain"
	savingsPersistence "github.com/foodthrift/paysmallsmall/internal/savings/infrastructure/persistence"
	"github.com/foodthrift/paysmallsmall/internal/storage"
	"github.com/foodthrift/paysmallsmall/pkg/config"
)

const defaultPostgresConns = 10

// StoreOptions picks the backend from config. DATABASE_URL wins, then
// REDIS_URL, then a SQLite file (SQLITE_PATH or ~/.paysmall/paysmall.db).
func StoreOptions(cfg *config.Config, logger *slog.Logger) storage.Options {
	opts := storage.Options{
		URL:        cfg.DatabaseURL,
		SQLitePath: cfg.SQLitePath,
		MaxConns:   defaultPostgresConns,
		Logger:     logger,
	}
	if opts.URL == "" && cfg.RedisURL != "" {
		opts.URL = cfg.RedisURL
	}
	return opts
}

// OpenStore opens the configured backend.
func OpenStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	store, err := storage.Open(ctx, StoreOptions(cfg, logger))
	if err != nil {
		return nil, fmt.Errorf("open store: %w", err)
	}
	return store, nil
}

// Repositories are the store-backed repositories of every bounded context.
type Repositories struct {
	Catalog catalogDomain.Repository
	Ledger  savingsDomain.Repository
}

// NewRepositories binds the repositories to one store.
func NewRepositories(store storage.Store) Repositories {
	return Repositories{
		Catalog: catalogPersistence.NewStoreCatalogRepository(store),
		Ledger:  savingsPersistence.NewStoreLedgerRepository(store),
	}
}
