package storage

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/migrations"
	"github.com/foodthrift/paysmallsmall/internal/shared/infrastructure/persistence"
)

const (
	pgUpsert = `
		INSERT INTO kv_entries (namespace, key, value, updated_at)
		VALUES ($1, $2, $3, now())
		ON CONFLICT (namespace, key) DO UPDATE SET value = EXCLUDED.value, updated_at = EXCLUDED.updated_at`

	// pgChannel is raised by the kv_entries trigger with "<namespace>|<key>".
	pgChannel = "kv_changes"
)

// PostgresStore persists entries in PostgreSQL. Writes from any process are
// reported through LISTEN/NOTIFY.
type PostgresStore struct {
	pool   *pgxpool.Pool
	uow    *persistence.PostgresUnitOfWork
	logger *slog.Logger
}

// NewPostgresStore migrates the schema and wraps pool. The store owns pool.
func NewPostgresStore(ctx context.Context, pool *pgxpool.Pool, logger *slog.Logger) (*PostgresStore, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if err := migrations.RunPostgres(ctx, pool); err != nil {
		return nil, err
	}
	return &PostgresStore{
		pool:   pool,
		uow:    persistence.NewPostgresUnitOfWork(pool),
		logger: logger,
	}, nil
}

func (s *PostgresStore) Get(ctx context.Context, ns Namespace, key string) ([]byte, error) {
	var value []byte
	err := persistence.PgExec(ctx, s.pool).
		QueryRow(ctx, `SELECT value FROM kv_entries WHERE namespace = $1 AND key = $2`, string(ns), key).
		Scan(&value)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("postgres get %s/%s: %w", ns, key, err)
	}
	return value, nil
}

func (s *PostgresStore) Put(ctx context.Context, ns Namespace, key string, value []byte) error {
	if _, err := persistence.PgExec(ctx, s.pool).Exec(ctx, pgUpsert, string(ns), key, value); err != nil {
		return fmt.Errorf("postgres put %s/%s: %w", ns, key, err)
	}
	return nil
}

func (s *PostgresStore) PutAll(ctx context.Context, ns Namespace, entries ...Entry) error {
	return sharedApplication.WithUnitOfWork(ctx, s.uow, func(txCtx context.Context) error {
		exec := persistence.PgExec(txCtx, s.pool)
		for _, e := range entries {
			if _, err := exec.Exec(txCtx, pgUpsert, string(ns), e.Key, e.Value); err != nil {
				return fmt.Errorf("postgres put %s/%s: %w", ns, e.Key, err)
			}
		}
		return nil
	})
}

func (s *PostgresStore) Delete(ctx context.Context, ns Namespace, key string) error {
	if _, err := persistence.PgExec(ctx, s.pool).
		Exec(ctx, `DELETE FROM kv_entries WHERE namespace = $1 AND key = $2`, string(ns), key); err != nil {
		return fmt.Errorf("postgres delete %s/%s: %w", ns, key, err)
	}
	return nil
}

// Changes holds one pooled connection in LISTEN mode until ctx is done.
func (s *PostgresStore) Changes(ctx context.Context, ns Namespace) (<-chan string, error) {
	conn, err := s.pool.Acquire(ctx)
	if err != nil {
		return nil, fmt.Errorf("acquire listen connection: %w", err)
	}
	if _, err := conn.Exec(ctx, "LISTEN "+pgChannel); err != nil {
		conn.Release()
		return nil, fmt.Errorf("listen %s: %w", pgChannel, err)
	}

	ch := make(chan string, changeBuffer)
	go func() {
		defer close(ch)
		defer conn.Release()
		for {
			n, err := conn.Conn().WaitForNotification(ctx)
			if err != nil {
				if ctx.Err() == nil {
					s.logger.Warn("postgres change feed stopped", "error", err)
				}
				return
			}
			payloadNS, key, ok := strings.Cut(n.Payload, "|")
			if !ok || Namespace(payloadNS) != ns {
				continue
			}
			select {
			case ch <- key:
			default:
			}
		}
	}()
	return ch, nil
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}
