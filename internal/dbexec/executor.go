// Package dbexec provides the query-session abstraction the core executes
// against: plain pooled execution, read-only snapshot sessions, and a
// query-counting wrapper for round-trip assertions.
package dbexec

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync/atomic"

	"github.com/google/uuid"

	"catalog-core/internal/logging"
)

// Rows abstracts sql.Rows to allow wrapped cleanup behavior.
type Rows interface {
	Next() bool
	Scan(dest ...any) error
	Err() error
	Close() error
}

// QueryExecutor abstracts read-only SQL execution. Every core operation takes
// one explicitly; there is no ambient session state.
type QueryExecutor interface {
	QueryContext(ctx context.Context, query string, args ...any) (Rows, error)
}

// ExecError wraps an underlying session or store failure. It is propagated
// as-is and never retried inside the core.
type ExecError struct {
	Op  string
	Err error
}

func (e *ExecError) Error() string {
	return fmt.Sprintf("query execution failed (%s): %v", e.Op, e.Err)
}

func (e *ExecError) Unwrap() error { return e.Err }

// WrapExec wraps a session failure in an ExecError, annotated with the
// operation that issued the query.
func WrapExec(op string, err error) error {
	if err == nil {
		return nil
	}
	return &ExecError{Op: op, Err: err}
}

// StandardExecutor executes queries directly against a database handle.
type StandardExecutor struct {
	db *sql.DB
}

// NewStandardExecutor creates an executor that runs queries on the pool
// without an explicit transaction.
func NewStandardExecutor(db *sql.DB) *StandardExecutor {
	return &StandardExecutor{db: db}
}

func (e *StandardExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if e.db == nil {
		return nil, sql.ErrConnDone
	}
	return e.db.QueryContext(ctx, query, args...)
}

// SnapshotSession is a read-only transactional snapshot. The core never
// writes, so the underlying store can serve it from a cheap non-locking read
// view. The caller owns the lifecycle and must Close when done.
type SnapshotSession struct {
	id string
	tx *sql.Tx
}

// BeginSnapshot opens a read-only transaction on the pool.
func BeginSnapshot(ctx context.Context, db *sql.DB) (*SnapshotSession, error) {
	tx, err := db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, WrapExec("begin snapshot", err)
	}
	sess := &SnapshotSession{id: uuid.NewString(), tx: tx}
	logging.FromContext(ctx).Debug("snapshot session started", slog.String("session_id", sess.id))
	return sess, nil
}

// ID returns the session's identifier, used for log correlation.
func (s *SnapshotSession) ID() string { return s.id }

func (s *SnapshotSession) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	if s.tx == nil {
		return nil, sql.ErrTxDone
	}
	return s.tx.QueryContext(ctx, query, args...)
}

// Close releases the snapshot. Read-only transactions have nothing to commit,
// so rollback is the only sensible end.
func (s *SnapshotSession) Close() error {
	if s.tx == nil {
		return nil
	}
	err := s.tx.Rollback()
	s.tx = nil
	if err != nil && err != sql.ErrTxDone {
		return err
	}
	return nil
}

// CountingExecutor counts the queries issued through it. The resolver's
// bounded-round-trip property tests use it to assert query counts stay
// independent of result-set size.
type CountingExecutor struct {
	inner QueryExecutor
	count atomic.Int64
}

// NewCountingExecutor wraps another executor with a query counter.
func NewCountingExecutor(inner QueryExecutor) *CountingExecutor {
	return &CountingExecutor{inner: inner}
}

func (e *CountingExecutor) QueryContext(ctx context.Context, query string, args ...any) (Rows, error) {
	e.count.Add(1)
	return e.inner.QueryContext(ctx, query, args...)
}

// Count returns the number of queries issued so far.
func (e *CountingExecutor) Count() int64 { return e.count.Load() }

// Reset zeroes the counter.
func (e *CountingExecutor) Reset() { e.count.Store(0) }
