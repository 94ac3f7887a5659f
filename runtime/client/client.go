// Package client opens database connections and hands out query builders.
package client

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"sync"

	_ "github.com/go-sql-driver/mysql" // MySQL driver
	_ "github.com/mattn/go-sqlite3"    // SQLite driver

	"github.com/satishbabariya/sqlbuilder/internal/logging"
	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/builder"
	"github.com/satishbabariya/sqlbuilder/query/executor"
)

// DB is a connection pool with a shared executor
type DB struct {
	db     *sql.DB
	exec   *executor.Executor
	cfg    Config
	logger *slog.Logger

	mu      sync.Mutex
	lastErr error
}

// Option configures a DB
type Option func(*DB)

// WithLogger logs statements through logger instead of one built from Config.Log
func WithLogger(logger *slog.Logger) Option {
	return func(d *DB) {
		d.logger = logger
	}
}

// WithMiddleware adds executor middlewares
func WithMiddleware(mw ...executor.Middleware) Option {
	return func(d *DB) {
		d.exec.Use(mw...)
	}
}

// WithHook calls hook after every statement
func WithHook(hook executor.Hook) Option {
	return WithMiddleware(executor.HookMiddleware(hook))
}

// Open connects using cfg and verifies the connection
func Open(ctx context.Context, cfg Config, opts ...Option) (*DB, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	db, err := sql.Open(cfg.DriverName(), cfg.DataSourceName())
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	if cfg.MaxOpenConns > 0 {
		db.SetMaxOpenConns(cfg.MaxOpenConns)
	}
	if cfg.MaxIdleConns > 0 {
		db.SetMaxIdleConns(cfg.MaxIdleConns)
	}
	if cfg.ConnMaxLifetime > 0 {
		db.SetConnMaxLifetime(cfg.ConnMaxLifetime)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, query.NewDriverError("connect", "", err)
	}

	d, err := NewFromDB(db, cfg, opts...)
	if err != nil {
		db.Close()
		return nil, err
	}
	return d, nil
}

// NewFromDB wraps an existing connection pool
func NewFromDB(db *sql.DB, cfg Config, opts ...Option) (*DB, error) {
	d := &DB{
		db:   db,
		exec: executor.NewExecutor(db, executor.WithStmtCacheSize(stmtCacheSize(cfg))),
		cfg:  cfg,
	}
	for _, opt := range opts {
		opt(d)
	}

	if d.logger == nil && cfg.Log.Enabled {
		logger, err := logging.New(logging.Options{Enabled: true, Level: cfg.Log.Level, Format: cfg.Log.Format})
		if err != nil {
			return nil, fmt.Errorf("invalid log config: %w", err)
		}
		d.logger = logger
	}
	if d.logger != nil {
		level, err := logging.ParseLevel(cfg.Log.Level)
		if err != nil {
			level = slog.LevelInfo
		}
		d.exec.Use(executor.LoggingMiddleware(d.logger, executor.LogOptions{
			Enabled: true,
			Level:   level,
			Args:    cfg.Log.Args,
		}))
	}
	return d, nil
}

func stmtCacheSize(cfg Config) int {
	if cfg.StmtCacheSize == 0 {
		return executor.DefaultStmtCacheSize
	}
	return cfg.StmtCacheSize
}

// Builder returns a new query builder bound to this connection
func (d *DB) Builder() *builder.Builder {
	return builder.New(d.exec, builder.WithStrict(d.cfg.Strict))
}

// Executor returns the shared executor
func (d *DB) Executor() *executor.Executor {
	return d.exec
}

// SQL returns the underlying connection pool
func (d *DB) SQL() *sql.DB {
	return d.db
}

// Config returns the configuration the connection was created with
func (d *DB) Config() Config {
	return d.cfg
}

// QueryAll runs a raw statement and returns its rows. On failure it returns
// nil and records the error, which LastError reports until the next call.
func (d *DB) QueryAll(ctx context.Context, sqlText string, args ...any) []map[string]any {
	rows, err := d.exec.Query(ctx, &query.Query{Kind: query.KindRaw, SQL: sqlText, Args: args})
	d.setLastError(err)
	if err != nil {
		return nil
	}
	return rows
}

// QueryOne is QueryAll returning only the first row
func (d *DB) QueryOne(ctx context.Context, sqlText string, args ...any) map[string]any {
	rows := d.QueryAll(ctx, sqlText, args...)
	if len(rows) == 0 {
		return nil
	}
	return rows[0]
}

// LastError returns the error recorded by the last QueryAll or QueryOne
func (d *DB) LastError() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.lastErr
}

func (d *DB) setLastError(err error) {
	d.mu.Lock()
	d.lastErr = err
	d.mu.Unlock()
}

// Exec runs a raw write statement
func (d *DB) Exec(ctx context.Context, sqlText string, args ...any) (*query.Result, error) {
	return d.exec.Exec(ctx, &query.Query{Kind: query.KindRaw, SQL: sqlText, Args: args})
}

// Ping verifies the connection
func (d *DB) Ping(ctx context.Context) error {
	return d.db.PingContext(ctx)
}

// Close releases cached statements and closes the pool
func (d *DB) Close() error {
	d.exec.ClearStmtCache()
	return d.db.Close()
}
