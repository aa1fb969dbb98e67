package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/migrations"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/persistence"
)

const sqliteUpsert = `
	INSERT INTO kv_entries (namespace, key, value, updated_at)
	VALUES (?, ?, ?, strftime('%Y-%m-%dT%H:%M:%fZ', 'now'))
	ON CONFLICT (namespace, key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at`

// SQLiteStore persists entries in the kv_entries table of a SQLite file.
// Change notifications cover writers in this process only.
type SQLiteStore struct {
	db     *sql.DB
	uow    *persistence.SQLiteUnitOfWork
	logger *slog.Logger
	*localNotifier
}

// NewSQLiteStore migrates db and wraps it. The store owns db from here on.
func NewSQLiteStore(ctx context.Context, db *sql.DB, logger *slog.Logger) (*SQLiteStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := migrations.RunSQLite(ctx, db); err != nil {
		return nil, err
	}
	return &SQLiteStore{
		db:            db,
		uow:           persistence.NewSQLiteUnitOfWork(db),
		logger:        logger,
		localNotifier: newLocalNotifier(),
	}, nil
}

func (s *SQLiteStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	var value []byte
	err := persistence.SQLiteExec(ctx, s.db).
		QueryRowContext(ctx, `SELECT value FROM kv_entries WHERE namespace = ? AND key = ?`, string(ns), key).
		Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite get %s/%s: %w", ns, key, err)
	}
	return value, nil
}

func (s *SQLiteStore) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	if _, err := persistence.SQLiteExec(ctx, s.db).ExecContext(ctx, sqliteUpsert, string(ns), key, value); err != nil {
		return fmt.Errorf("sqlite put %s/%s: %w", ns, key, err)
	}
	s.notify(ns, key)
	return nil
}

func (s *SQLiteStore) PutAll(ctx context.Context, ns Namespace, entries ...Entry) error {
	err := sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		exec := persistence.SQLiteExec(txCtx, s.db)
		for _, e := range entries {
			if _, err := exec.ExecContext(txCtx, sqliteUpsert, string(ns), e.Key, e.Value); err != nil {
				return fmt.Errorf("sqlite put %s/%s: %w", ns, e.Key, err)
			}
		}
		return nil
	})
	if err != nil {
		return err
	}
	s.notify(ns, entryKeys(entries)...)
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, ns Namespace, key string) error {
	if _, err := persistence.SQLiteExec(ctx, s.db).
		ExecContext(ctx, `DELETE FROM kv_entries WHERE namespace = ? AND key = ?`, string(ns), key); err != nil {
		return fmt.Errorf("sqlite delete %s/%s: %w", ns, key, err)
	}
	s.notify(ns, key)
	return nil
}

func (s *SQLiteStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
