package executor

import (
	"context"
	"log/slog"
	"time"

	"github.com/satishbabariya/sqlbuilder/query"
)

// QueryEvent represents a query execution event
type QueryEvent struct {
	Kind         query.Kind
	Query        string
	Args         []any
	RowsAffected int64
	Duration     time.Duration
	Error        error
	Start        time.Time
	End          time.Time
}

// Middleware is a function that intercepts queries
type Middleware func(ctx context.Context, event *QueryEvent, next func() error) error

// LogOptions controls LoggingMiddleware
type LogOptions struct {
	Enabled bool
	// Level is the level successful statements are logged at. Failures are
	// always logged at error level.
	Level slog.Level
	// Args includes bound parameters in the log record
	Args bool
}

// LoggingMiddleware logs every statement through logger. A panicking handler
// never affects the query outcome.
func LoggingMiddleware(logger *slog.Logger, opts LogOptions) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if !opts.Enabled || logger == nil {
			return err
		}
		func() {
			defer func() { _ = recover() }()

			attrs := []any{
				slog.String("kind", event.Kind.String()),
				slog.String("sql", event.Query),
				slog.Duration("duration", event.Duration),
				slog.Int64("rows", event.RowsAffected),
			}
			if opts.Args {
				attrs = append(attrs, slog.Any("args", event.Args))
			}
			if err != nil {
				logger.ErrorContext(ctx, "query failed", append(attrs, slog.Any("error", err))...)
				return
			}
			logger.Log(ctx, opts.Level, "query executed", attrs...)
		}()
		return err
	}
}

// LogEntry is passed to a Hook after each statement
type LogEntry struct {
	Kind     query.Kind
	Args     []any
	Rows     int64
	Duration time.Duration
	Error    error
}

// Hook receives the SQL text and outcome of each statement
type Hook func(sql string, entry LogEntry)

// HookMiddleware calls hook after each statement. Panics in hook are recovered.
func HookMiddleware(hook Hook) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if hook == nil {
			return err
		}
		func() {
			defer func() { _ = recover() }()
			hook(event.Query, LogEntry{
				Kind:     event.Kind,
				Args:     event.Args,
				Rows:     event.RowsAffected,
				Duration: event.Duration,
				Error:    err,
			})
		}()
		return err
	}
}

// TimingMiddleware creates a middleware that measures query execution time
func TimingMiddleware(onTiming func(query string, duration time.Duration)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if onTiming != nil {
			onTiming(event.Query, event.Duration)
		}
		return err
	}
}

// ErrorMiddleware creates a middleware that handles errors
func ErrorMiddleware(onError func(query string, err error)) Middleware {
	return func(ctx context.Context, event *QueryEvent, next func() error) error {
		err := next()
		if err != nil && onError != nil {
			onError(event.Query, err)
		}
		return err
	}
}
