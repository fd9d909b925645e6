// Package pgxutil holds the transaction helpers the retention mutations run through.
// Single statements go through database/sql; multi-statement resets use a native pgx batch.
package pgxutil

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/stdlib"
)

// Execer is satisfied by *sql.DB, *sql.Tx and *sql.Conn.
type Execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
}

// WithSQLTx runs fn within a database/sql transaction, rolling back on error.
func WithSQLTx(ctx context.Context, db *sql.DB, fn func(*sql.Tx) error) (err error) {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() {
		if rerr := tx.Rollback(); rerr != nil && !errors.Is(rerr, sql.ErrTxDone) {
			err = errors.Join(err, fmt.Errorf("rollback: %w", rerr))
		}
	}()
	if err = fn(tx); err != nil {
		return err
	}
	if err = tx.Commit(); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// ExecAffected runs a statement and returns the number of rows it touched.
func ExecAffected(ctx context.Context, ex Execer, query string, args ...any) (int, error) {
	res, err := ex.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("rows affected: %w", err)
	}
	return int(n), nil
}

// ExecInTx runs a single mutation in its own transaction and reports the affected rows.
func ExecInTx(ctx context.Context, db *sql.DB, query string, args ...any) (int, error) {
	var affected int
	err := WithSQLTx(ctx, db, func(tx *sql.Tx) error {
		n, err := ExecAffected(ctx, tx, query, args...)
		if err != nil {
			return err
		}
		affected = n
		return nil
	})
	return affected, err
}

// WithPgxConn acquires a *pgx.Conn via the stdlib bridge and executes fn with it.
func WithPgxConn(ctx context.Context, db *sql.DB, fn func(*pgx.Conn) error) error {
	conn, err := db.Conn(ctx)
	if err != nil {
		return fmt.Errorf("get conn from pool: %w", err)
	}
	defer func() { _ = conn.Close() }()

	return conn.Raw(func(dc any) error {
		std, ok := dc.(*stdlib.Conn)
		if !ok {
			return errors.New("unexpected driver connection type; expected *stdlib.Conn")
		}
		return fn(std.Conn())
	})
}

// SendBatchTx sends every queued statement in one round trip inside a single transaction.
// Either all statements commit or none do.
func SendBatchTx(ctx context.Context, db *sql.DB, batch *pgx.Batch) error {
	if batch == nil || batch.Len() == 0 {
		return nil
	}
	return WithPgxConn(ctx, db, func(conn *pgx.Conn) error {
		return pgx.BeginFunc(ctx, conn, func(tx pgx.Tx) error {
			return tx.SendBatch(ctx, batch).Close()
		})
	})
}
