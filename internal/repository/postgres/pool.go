// Package postgres contains PostgreSQL implementations of repository interfaces.
package postgres

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avdeyev/flightapp/internal/errs"
)

// PgxPool is a minimal abstraction over a Postgres connection pool,
// used by repositories. It is implemented by *pgxpool.Pool and pgxmock.PgxPoolIface.
type PgxPool interface {
	// Exec executes a SQL command and returns the command tag.
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	// Query executes a SELECT and returns a rows iterator.
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	// QueryRow executes a query expected to return at most one row.
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	// BeginTx starts a transaction with the provided options.
	BeginTx(ctx context.Context, txOptions pgx.TxOptions) (pgx.Tx, error)
	// Close shuts down the pool and frees resources.
	Close()
}

// DB wraps a pool and tracks how many transactions it has open. The count
// must be zero whenever control returns to the caller of a public engine
// operation; the engine's leak guard checks exactly that.
type DB struct {
	Pool PgxPool

	open atomic.Int64
}

// New creates a new connection pool for the given DSN.
func New(ctx context.Context, dsn string) (*DB, error) {
	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, err
	}
	return &DB{Pool: pool}, nil
}

// Close closes the underlying pool.
func (db *DB) Close() { db.Pool.Close() }

// OpenTxCount reports the number of transactions begun on this DB that have
// not yet been committed or rolled back.
func (db *DB) OpenTxCount() int64 { return db.open.Load() }

// Begin starts a serializable transaction tracked by the open counter.
func (db *DB) Begin(ctx context.Context) (*Tx, error) {
	tx, err := db.Pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.Serializable})
	if err != nil {
		return nil, err
	}
	db.open.Add(1)
	return &Tx{Tx: tx, db: db}, nil
}

// Tx decorates pgx.Tx so that the first Commit or Rollback settles the
// open-transaction counter.
type Tx struct {
	pgx.Tx

	db      *DB
	settled atomic.Bool
}

// Commit commits the transaction and settles the counter.
func (t *Tx) Commit(ctx context.Context) error {
	if t.settled.CompareAndSwap(false, true) {
		t.db.open.Add(-1)
	}
	return t.Tx.Commit(ctx)
}

// Rollback rolls the transaction back and settles the counter. Safe to call
// after Commit, as in a deferred cleanup.
func (t *Tx) Rollback(ctx context.Context) error {
	if t.settled.CompareAndSwap(false, true) {
		t.db.open.Add(-1)
	}
	return t.Tx.Rollback(ctx)
}

// isUniqueViolation reports whether the error is a unique constraint violation.
func isUniqueViolation(err error) bool {
	var pg *pgconn.PgError
	return errors.As(err, &pg) && pg.Code == "23505"
}

// isTxConflict reports whether the error is a serialization failure or a
// detected deadlock, i.e. the transaction may succeed when rerun.
func isTxConflict(err error) bool {
	var pg *pgconn.PgError
	if !errors.As(err, &pg) {
		return false
	}
	return pg.Code == "40001" || pg.Code == "40P01"
}

// classify maps retryable storage failures onto errs.ErrTxConflict and leaves
// everything else untouched.
func classify(err error) error {
	if isTxConflict(err) {
		return fmt.Errorf("%w: %w", errs.ErrTxConflict, err)
	}
	return err
}
