package client

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/builder"
	"github.com/satishbabariya/sqlbuilder/query/executor"
)

// ErrTransactionPanic is passed to the error handler when the transaction
// function panics
var ErrTransactionPanic = errors.New("transaction panicked")

// IsolationLevel represents transaction isolation levels
type IsolationLevel int

const (
	// Default uses the server's isolation level
	Default IsolationLevel = iota
	// ReadUncommitted allows dirty reads
	ReadUncommitted
	// ReadCommitted prevents dirty reads
	ReadCommitted
	// RepeatableRead prevents dirty reads and non-repeatable reads
	RepeatableRead
	// Serializable prevents dirty reads, non-repeatable reads, and phantom reads
	Serializable
)

// ToSQLIsolationLevel converts IsolationLevel to sql.IsolationLevel
func (level IsolationLevel) ToSQLIsolationLevel() sql.IsolationLevel {
	switch level {
	case ReadUncommitted:
		return sql.LevelReadUncommitted
	case ReadCommitted:
		return sql.LevelReadCommitted
	case RepeatableRead:
		return sql.LevelRepeatableRead
	case Serializable:
		return sql.LevelSerializable
	default:
		return sql.LevelDefault
	}
}

// Tx is a transaction handle passed to a TransactionFunc
type Tx struct {
	*executor.TxExecutor
	strict bool
}

// Builder returns a query builder that runs inside the transaction
func (tx *Tx) Builder() *builder.Builder {
	return builder.New(tx.Executor, builder.WithStrict(tx.strict))
}

// Exec runs a raw write statement inside the transaction
func (tx *Tx) Exec(ctx context.Context, sqlText string, args ...any) (*query.Result, error) {
	return tx.Executor.Exec(ctx, &query.Query{Kind: query.KindRaw, SQL: sqlText, Args: args})
}

// NestedTransaction runs fn inside a savepoint
func (tx *Tx) NestedTransaction(ctx context.Context, fn func(tx *Tx) error) error {
	return tx.Savepoint(ctx, func() error { return fn(tx) })
}

// TransactionFunc is a function that runs within a transaction
type TransactionFunc func(tx *Tx) error

// ErrorHandler is called with the cause when a transaction is rolled back
type ErrorHandler func(err error)

type txOptions struct {
	isolation IsolationLevel
	readOnly  bool
	onError   ErrorHandler
}

// TxOption configures a transaction
type TxOption func(*txOptions)

// WithIsolation sets the isolation level
func WithIsolation(level IsolationLevel) TxOption {
	return func(o *txOptions) { o.isolation = level }
}

// ReadOnly starts a read-only transaction
func ReadOnly() TxOption {
	return func(o *txOptions) { o.readOnly = true }
}

// OnError registers a handler called after the transaction is rolled back
func OnError(handler ErrorHandler) TxOption {
	return func(o *txOptions) { o.onError = handler }
}

func (o *txOptions) notify(err error) {
	if o.onError != nil {
		o.onError(err)
	}
}

// Transaction executes fn within a database transaction. The transaction is
// committed when fn returns nil. When fn returns an error or panics it is
// rolled back first, then the OnError handler is called with the cause.
//
// The error is always returned, with or without an OnError handler: it is
// never swallowed after rollback, so callers that only want rollback must
// ignore the return value themselves. A panic is re-raised after the handler
// runs.
func (d *DB) Transaction(ctx context.Context, fn TransactionFunc, opts ...TxOption) error {
	o := &txOptions{}
	for _, opt := range opts {
		opt(o)
	}

	sqlTx, err := d.db.BeginTx(ctx, &sql.TxOptions{
		Isolation: o.isolation.ToSQLIsolationLevel(),
		ReadOnly:  o.readOnly,
	})
	if err != nil {
		err = query.NewDriverError("begin", "", err)
		o.notify(err)
		return err
	}

	tx := &Tx{TxExecutor: executor.NewTxExecutor(d.exec, sqlTx), strict: d.cfg.Strict}

	finished := false
	defer func() {
		if finished {
			return
		}
		p := recover()
		_ = tx.Rollback()
		o.notify(fmt.Errorf("%w: %v", ErrTransactionPanic, p))
		panic(p)
	}()

	fnErr := fn(tx)
	finished = true

	if fnErr != nil {
		if rbErr := tx.Rollback(); rbErr != nil {
			fnErr = errors.Join(fnErr, fmt.Errorf("rollback: %w", rbErr))
		}
		o.notify(fnErr)
		return fnErr
	}

	if err := tx.Commit(); err != nil {
		o.notify(err)
		return err
	}
	return nil
}
