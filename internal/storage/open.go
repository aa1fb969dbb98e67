package storage

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/database"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/database/postgres"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/database/sqlite"
)

// Options selects and configures a backend.
type Options struct {
	// URL picks the backend: empty or a file path for SQLite, postgres://,
	// redis:// or "memory".
	URL string
	// SQLitePath overrides the default file when URL is empty.
	SQLitePath string
	// MaxConns caps the PostgreSQL pool.
	MaxConns int32
	Logger   *slog.Logger
}

// Open creates the store named by opts.URL.
func Open(ctx context.Context, opts Options) (Store, error) {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}

	driver := database.DetectDriver(opts.URL)
	opts.Logger.Debug("opening store", "driver", driver.String())

	switch driver {
	case database.DriverMemory:
		return NewMemoryStore(), nil

	case database.DriverSQLite:
		path := opts.SQLitePath
		if opts.URL != "" {
			path = database.SQLitePathFromURL(opts.URL)
		}
		db, err := sqlite.Open(ctx, path)
		if err != nil {
			return nil, err
		}
		store, err := NewSQLiteStore(ctx, db, opts.Logger)
		if err != nil {
			_ = db.Close()
			return nil, err
		}
		return store, nil

	case database.DriverPostgres:
		pool, err := postgres.Open(ctx, opts.URL, opts.MaxConns)
		if err != nil {
			return nil, err
		}
		store, err := NewPostgresStore(ctx, pool, opts.Logger)
		if err != nil {
			pool.Close()
			return nil, err
		}
		return store, nil

	case database.DriverRedis:
		return NewRedisStore(ctx, opts.URL, opts.Logger)

	default:
		return nil, fmt.Errorf("unsupported storage driver: %s", driver)
	}
}
