package persistence

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sharedApplication "github.com/foodthrift/paysmallsmall/internal/shared/application"

	_ "modernc.org/sqlite"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)

	_, err = db.Exec(`CREATE TABLE ledger (id TEXT PRIMARY KEY, amount INTEGER)`)
	require.NoError(t, err)

	t.Cleanup(func() { _ = db.Close() })
	return db
}

func countRows(t *testing.T, db *sql.DB) int {
	t.Helper()
	var n int
	require.NoError(t, db.QueryRow(`SELECT COUNT(*) FROM ledger`).Scan(&n))
	return n
}

func TestSQLiteUnitOfWork_BeginOwnsTransaction(t *testing.T) {
	db := setupTestDB(t)
	uow := NewSQLiteUnitOfWork(db)

	txCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)

	info, ok := SQLiteTxInfoFromContext(txCtx)
	require.True(t, ok)
	assert.True(t, info.Owned)

	require.NoError(t, uow.Rollback(txCtx))
}

func TestSQLiteUnitOfWork_NestedJoinsOuter(t *testing.T) {
	db := setupTestDB(t)
	uow := NewSQLiteUnitOfWork(db)

	outerCtx, err := uow.Begin(context.Background())
	require.NoError(t, err)
	innerCtx, err := uow.Begin(outerCtx)
	require.NoError(t, err)

	outer, _ := SQLiteTxInfoFromContext(outerCtx)
	inner, _ := SQLiteTxInfoFromContext(innerCtx)
	assert.False(t, inner.Owned)
	assert.Same(t, outer.Tx, inner.Tx)

	_, err = SQLiteExec(innerCtx, db).ExecContext(innerCtx, `INSERT INTO ledger VALUES ('TXN-1', 5000)`)
	require.NoError(t, err)

	// inner commit is a no-op; outer rollback discards the insert
	require.NoError(t, uow.Commit(innerCtx))
	require.NoError(t, uow.Rollback(outerCtx))
	assert.Zero(t, countRows(t, db))
}

func TestSQLiteUnitOfWork_WithUnitOfWork(t *testing.T) {
	db := setupTestDB(t)
	uow := NewSQLiteUnitOfWork(db)
	ctx := context.Background()

	err := sharedApplication.WithUnitOfWork(ctx, uow, func(txCtx context.Context) error {
		_, err := SQLiteExec(txCtx, db).ExecContext(txCtx, `INSERT INTO ledger VALUES ('TXN-1', 5000)`)
		return err
	})
	require.NoError(t, err)
	assert.Equal(t, 1, countRows(t, db))

	boom := errors.New("second write failed")
	err = sharedApplication.WithUnitOfWork(ctx, uow, func(txCtx context.Context) error {
		if _, err := SQLiteExec(txCtx, db).ExecContext(txCtx, `INSERT INTO ledger VALUES ('TXN-2', 5000)`); err != nil {
			return err
		}
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, countRows(t, db))
}

func TestSQLiteUnitOfWork_WithoutTransaction(t *testing.T) {
	uow := NewSQLiteUnitOfWork(setupTestDB(t))

	assert.ErrorIs(t, uow.Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, uow.Rollback(context.Background()), ErrNoTransaction)
}

func TestSQLiteTxInfoFromContext_NilTx(t *testing.T) {
	ctx := WithSQLiteTx(context.Background(), nil, true)

	info, ok := SQLiteTxInfoFromContext(ctx)
	assert.False(t, ok)
	assert.Nil(t, info.Tx)
}

func TestSQLiteExec_FallsBackToDB(t *testing.T) {
	db := setupTestDB(t)
	assert.Same(t, db, SQLiteExec(context.Background(), db))
}

func TestPgTxInfoFromContext_Empty(t *testing.T) {
	_, ok := PgTxInfoFromContext(context.Background())
	assert.False(t, ok)

	uow := NewPostgresUnitOfWork(nil)
	assert.ErrorIs(t, uow.Commit(context.Background()), ErrNoTransaction)
	assert.ErrorIs(t, uow.Rollback(context.Background()), ErrNoTransaction)
}
