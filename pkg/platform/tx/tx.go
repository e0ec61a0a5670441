// Package tx carries a SQL transaction through context so stores can join
// the caller's transaction without widening their interfaces.
package tx

import (
	"context"
	"database/sql"

	dErrors "leaddesk/pkg/domain-errors"
)

type ctxKey struct{}

var txKey = ctxKey{}

// WithTx stores a SQL transaction in context for downstream store usage.
func WithTx(ctx context.Context, tx *sql.Tx) context.Context {
	if tx == nil {
		return ctx
	}
	return context.WithValue(ctx, txKey, tx)
}

// From extracts a SQL transaction from context if present.
func From(ctx context.Context) (*sql.Tx, bool) {
	tx, ok := ctx.Value(txKey).(*sql.Tx)
	return tx, ok
}

// Executor is the subset of *sql.DB and *sql.Tx that stores need. Stores
// resolve it per call so the same code runs inside or outside a transaction.
type Executor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Resolve returns the transaction from ctx when present, otherwise db.
func Resolve(ctx context.Context, db *sql.DB) Executor {
	if t, ok := From(ctx); ok {
		return t
	}
	return db
}

// Runner opens transactions against a database handle.
type Runner struct {
	db *sql.DB
}

// NewRunner wraps a database handle.
func NewRunner(db *sql.DB) *Runner {
	return &Runner{db: db}
}

// RunInTx begins a transaction, stores it in ctx, runs fn, and commits.
// Any error from fn, or a cancelled ctx, rolls the transaction back; nothing
// fn wrote is observable afterward.
func (r *Runner) RunInTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}

	t, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "begin transaction")
	}
	// Releases the connection when fn panics; after Commit it is a no-op
	// (ErrTxDone).
	defer func() {
		_ = t.Rollback()
	}()

	if err := fn(WithTx(ctx, t)); err != nil {
		return err
	}

	if err := t.Commit(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "commit transaction")
	}
	return nil
}
