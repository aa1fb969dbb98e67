package persistence

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

type pgTxKey struct{}

// PgTxInfo holds the PostgreSQL transaction and whether this scope opened it.
type PgTxInfo struct {
	Tx    pgx.Tx
	Owned bool
}

// WithPgTx stores transaction info in the context.
func WithPgTx(ctx context.Context, tx pgx.Tx, owned bool) context.Context {
	return context.WithValue(ctx, pgTxKey{}, PgTxInfo{Tx: tx, Owned: owned})
}

// PgTxInfoFromContext extracts transaction info from the context.
func PgTxInfoFromContext(ctx context.Context) (PgTxInfo, bool) {
	info, ok := ctx.Value(pgTxKey{}).(PgTxInfo)
	if !ok || info.Tx == nil {
		return PgTxInfo{}, false
	}
	return info, true
}

// PgExecutor abstracts pgxpool.Pool and pgx.Tx.
type PgExecutor interface {
	Exec(ctx context.Context, sql string, arguments ...any) (pgconn.CommandTag, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
}

// PgExec returns the transaction in ctx, or the pool when there is none.
func PgExec(ctx context.Context, pool *pgxpool.Pool) PgExecutor {
	if info, ok := PgTxInfoFromContext(ctx); ok {
		return info.Tx
	}
	return pool
}

// PostgresUnitOfWork opens PostgreSQL transactions with the same nesting
// rules as SQLiteUnitOfWork.
type PostgresUnitOfWork struct {
	pool *pgxpool.Pool
}

// NewPostgresUnitOfWork creates a new PostgresUnitOfWork.
func NewPostgresUnitOfWork(pool *pgxpool.Pool) *PostgresUnitOfWork {
	return &PostgresUnitOfWork{pool: pool}
}

func (u *PostgresUnitOfWork) Begin(ctx context.Context) (context.Context, error) {
	if info, ok := PgTxInfoFromContext(ctx); ok {
		return WithPgTx(ctx, info.Tx, false), nil
	}

	tx, err := u.pool.Begin(ctx)
	if err != nil {
		return nil, err
	}
	return WithPgTx(ctx, tx, true), nil
}

func (u *PostgresUnitOfWork) Commit(ctx context.Context) error {
	info, ok := PgTxInfoFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if !info.Owned {
		return nil
	}
	return info.Tx.Commit(ctx)
}

func (u *PostgresUnitOfWork) Rollback(ctx context.Context) error {
	info, ok := PgTxInfoFromContext(ctx)
	if !ok {
		return ErrNoTransaction
	}
	if !info.Owned {
		return nil
	}
	return info.Tx.Rollback(ctx)
}
