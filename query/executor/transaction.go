package executor

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/satishbabariya/sqlbuilder/query"
)

// TxExecutor wraps an Executor to work within a transaction
type TxExecutor struct {
	*Executor
	tx    *sql.Tx
	depth int
}

// NewTxExecutor creates a transaction-bound executor sharing parent's middlewares
func NewTxExecutor(parent *Executor, tx *sql.Tx) *TxExecutor {
	return &TxExecutor{
		Executor: parent.WithConn(tx),
		tx:       tx,
	}
}

// Tx returns the underlying transaction
func (e *TxExecutor) Tx() *sql.Tx {
	return e.tx
}

// Commit commits the transaction
func (e *TxExecutor) Commit() error {
	if err := e.tx.Commit(); err != nil {
		return query.NewDriverError("commit", "", err)
	}
	return nil
}

// Rollback aborts the transaction
func (e *TxExecutor) Rollback() error {
	if err := e.tx.Rollback(); err != nil {
		return query.NewDriverError("rollback", "", err)
	}
	return nil
}

// Savepoint runs fn inside a savepoint, rolling back to it when fn fails or panics
func (e *TxExecutor) Savepoint(ctx context.Context, fn func() error) (err error) {
	e.depth++
	name := fmt.Sprintf("sp_%d", e.depth)
	defer func() { e.depth-- }()

	if _, err := e.Exec(ctx, &query.Query{Kind: query.KindRaw, SQL: "SAVEPOINT " + name}); err != nil {
		return fmt.Errorf("failed to create savepoint: %w", err)
	}

	rollback := &query.Query{Kind: query.KindRaw, SQL: "ROLLBACK TO SAVEPOINT " + name}
	defer func() {
		if p := recover(); p != nil {
			_, _ = e.Exec(ctx, rollback)
			panic(p)
		}
	}()

	if err := fn(); err != nil {
		if _, rbErr := e.Exec(ctx, rollback); rbErr != nil {
			return fmt.Errorf("savepoint error: %v, rollback error: %w", err, rbErr)
		}
		return err
	}

	if _, err := e.Exec(ctx, &query.Query{Kind: query.KindRaw, SQL: "RELEASE SAVEPOINT " + name}); err != nil {
		return fmt.Errorf("failed to release savepoint: %w", err)
	}
	return nil
}
