// Package executor runs compiled statements against a database/sql connection.
package executor

import (
	"context"
	"database/sql"
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/satishbabariya/sqlbuilder/query"
)

// Conn is the part of database/sql the executor needs. Both *sql.DB and
// *sql.Tx satisfy it.
type Conn interface {
	PrepareContext(ctx context.Context, query string) (*sql.Stmt, error)
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// DefaultStmtCacheSize is the number of prepared statements an executor keeps
// when no size is configured
const DefaultStmtCacheSize = 128

// Executor executes queries and maps results
type Executor struct {
	conn        Conn
	cacheStmts  bool
	cacheSize   int
	stmts       *lru.Cache[string, *cachedStmt]
	middlewares []Middleware
}

// Option configures an Executor
type Option func(*Executor)

// WithStmtCache enables or disables the prepared statement cache
func WithStmtCache(enabled bool) Option {
	return func(e *Executor) {
		e.cacheStmts = enabled
	}
}

// WithStmtCacheSize bounds the prepared statement cache. The least recently
// used statement is closed when the cache is full. A size <= 0 disables it.
func WithStmtCacheSize(size int) Option {
	return func(e *Executor) {
		e.cacheSize = size
		e.cacheStmts = size > 0
	}
}

// WithMiddleware appends middlewares to the chain
func WithMiddleware(mw ...Middleware) Option {
	return func(e *Executor) {
		e.middlewares = append(e.middlewares, mw...)
	}
}

// NewExecutor creates a new query executor. The statement cache is enabled
// by default for *sql.DB connections.
func NewExecutor(conn Conn, opts ...Option) *Executor {
	_, isDB := conn.(*sql.DB)
	e := &Executor{
		conn:       conn,
		cacheStmts: isDB,
		cacheSize:  DefaultStmtCacheSize,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.cacheStmts && e.cacheSize > 0 {
		// only fails for a non-positive size
		e.stmts, _ = lru.NewWithEvict(e.cacheSize, func(_ string, s *cachedStmt) {
			s.evict()
		})
	}
	return e
}

// Use adds middlewares to the chain
func (e *Executor) Use(mw ...Middleware) {
	e.middlewares = append(e.middlewares, mw...)
}

// WithConn returns an executor bound to conn that shares this executor's
// middlewares. Statements are not cached on the returned executor.
func (e *Executor) WithConn(conn Conn) *Executor {
	return &Executor{
		conn:        conn,
		middlewares: append([]Middleware(nil), e.middlewares...),
	}
}

// cachedStmt is a cache entry. An evicted statement is closed once the last
// caller using it releases it.
type cachedStmt struct {
	stmt    *sql.Stmt
	mu      sync.Mutex
	refs    int
	evicted bool
}

func (c *cachedStmt) acquire() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.evicted {
		return false
	}
	c.refs++
	return true
}

func (c *cachedStmt) release() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.refs--
	if c.evicted && c.refs == 0 {
		c.stmt.Close()
	}
}

func (c *cachedStmt) evict() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.evicted = true
	if c.refs == 0 {
		c.stmt.Close()
	}
}

// getCachedStmt gets a cached prepared statement or creates a new one. The
// caller must release the returned entry.
func (e *Executor) getCachedStmt(ctx context.Context, sqlText string) (*cachedStmt, error) {
	for {
		if entry, ok := e.stmts.Get(sqlText); ok {
			if entry.acquire() {
				return entry, nil
			}
			continue
		}

		stmt, err := e.conn.PrepareContext(ctx, sqlText)
		if err != nil {
			return nil, err
		}
		entry := &cachedStmt{stmt: stmt, refs: 1}
		prev, found, _ := e.stmts.PeekOrAdd(sqlText, entry)
		if !found {
			return entry, nil
		}
		stmt.Close()
		if prev.acquire() {
			return prev, nil
		}
	}
}

// ClearStmtCache closes and drops every cached prepared statement
func (e *Executor) ClearStmtCache() {
	if e.stmts != nil {
		e.stmts.Purge()
	}
}

// CachedStatements returns the number of cached prepared statements
func (e *Executor) CachedStatements() int {
	if e.stmts == nil {
		return 0
	}
	return e.stmts.Len()
}

// Query runs q and returns every row as a column name to value map
func (e *Executor) Query(ctx context.Context, q *query.Query) ([]map[string]any, error) {
	var out []map[string]any
	err := e.run(ctx, q, func(event *QueryEvent) error {
		rows, release, err := e.query(ctx, q)
		if err != nil {
			return query.NewDriverError("query", q.SQL, err)
		}
		defer release()
		defer rows.Close()

		out, err = scanRows(rows)
		if err != nil {
			return query.NewDriverError("scan", q.SQL, err)
		}
		event.RowsAffected = int64(len(out))
		return nil
	})
	if err != nil {
		return nil, err
	}
	return out, nil
}

// QueryRow runs q and returns its first row, or nil when there is none
func (e *Executor) QueryRow(ctx context.Context, q *query.Query) (map[string]any, error) {
	rows, err := e.Query(ctx, q)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Exec runs a write statement
func (e *Executor) Exec(ctx context.Context, q *query.Query) (*query.Result, error) {
	result := &query.Result{}
	err := e.run(ctx, q, func(event *QueryEvent) error {
		res, err := e.exec(ctx, q)
		if err != nil {
			return query.NewDriverError("exec", q.SQL, err)
		}
		if result.RowsAffected, err = res.RowsAffected(); err != nil {
			return query.NewDriverError("rows affected", q.SQL, err)
		}
		if q.Kind == query.KindInsert {
			if result.LastInsertID, err = res.LastInsertId(); err != nil {
				return query.NewDriverError("last insert id", q.SQL, err)
			}
		}
		event.RowsAffected = result.RowsAffected
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

func (e *Executor) query(ctx context.Context, q *query.Query) (*sql.Rows, func(), error) {
	if e.stmts == nil {
		rows, err := e.conn.QueryContext(ctx, q.SQL, q.Args...)
		return rows, func() {}, err
	}
	entry, err := e.getCachedStmt(ctx, q.SQL)
	if err != nil {
		return nil, nil, err
	}
	rows, err := entry.stmt.QueryContext(ctx, q.Args...)
	if err != nil {
		entry.release()
		return nil, nil, err
	}
	return rows, entry.release, nil
}

func (e *Executor) exec(ctx context.Context, q *query.Query) (sql.Result, error) {
	if e.stmts == nil {
		return e.conn.ExecContext(ctx, q.SQL, q.Args...)
	}
	entry, err := e.getCachedStmt(ctx, q.SQL)
	if err != nil {
		return nil, err
	}
	defer entry.release()
	return entry.stmt.ExecContext(ctx, q.Args...)
}

// run executes fn through the middleware chain
func (e *Executor) run(ctx context.Context, q *query.Query, fn func(event *QueryEvent) error) error {
	event := &QueryEvent{
		Kind:  q.Kind,
		Query: q.SQL,
		Args:  q.Args,
		Start: time.Now(),
	}

	index := 0
	var next func() error
	next = func() error {
		if index >= len(e.middlewares) {
			err := fn(event)
			event.End = time.Now()
			event.Duration = event.End.Sub(event.Start)
			event.Error = err
			return err
		}
		mw := e.middlewares[index]
		index++
		return mw(ctx, event, next)
	}

	return next()
}

// scanRows reads all rows into maps. Byte slices are converted to strings.
func scanRows(rows *sql.Rows) ([]map[string]any, error) {
	columns, err := rows.Columns()
	if err != nil {
		return nil, err
	}

	out := []map[string]any{}
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return nil, err
		}

		row := make(map[string]any, len(columns))
		for i, col := range columns {
			if b, ok := values[i].([]byte); ok {
				row[col] = string(b)
			} else {
				row[col] = values[i]
			}
		}
		out = append(out, row)
	}
	return out, rows.Err()
}
