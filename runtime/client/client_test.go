package client

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"
	"strings"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/builder"
	"github.com/satishbabariya/sqlbuilder/query/condition"
	"github.com/satishbabariya/sqlbuilder/query/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openSQLite(t *testing.T, opts ...Option) *DB {
	t.Helper()
	ctx := context.Background()
	cfg := Config{
		Driver:       DriverSQLite,
		Database:     fmt.Sprintf("file:%s?mode=memory&cache=shared", strings.ReplaceAll(t.Name(), "/", "_")),
		MaxOpenConns: 1,
	}
	db, err := Open(ctx, cfg, opts...)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	_, err = db.Exec(ctx, "CREATE TABLE users (id INTEGER PRIMARY KEY AUTOINCREMENT, name TEXT NOT NULL, age INTEGER, team TEXT)")
	require.NoError(t, err)
	return db
}

func TestDB_BuilderRoundTrip(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	n, err := db.Builder().From("users").InsertAll(ctx, []map[string]any{
		{"name": "ann", "age": 31, "team": "red"},
		{"name": "bob", "age": 17, "team": "blue"},
		{"name": "cid", "age": 45, "team": nil},
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3), n)

	id, err := db.Builder().From("users").InsertGetLastID(ctx, map[string]any{"name": "dee", "age": 28, "team": "red"})
	require.NoError(t, err)
	assert.Equal(t, int64(4), id)

	rows, err := db.Builder().
		Select("name").
		From("users").
		Where(map[string]any{"team": []string{"red", "blue"}}).
		AndWhere([]any{"between", "age", 18, 40}).
		OrderBy("name").
		All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "ann"}, {"name": "dee"}}, rows)

	row, err := db.Builder().From("users").Where(map[string]any{"team": nil}).One(ctx)
	require.NoError(t, err)
	assert.Equal(t, "cid", row["name"])

	sub := db.Builder().Select("team").From("users").Where(condition.Gt("age", 30))
	rows, err = db.Builder().Select("name").From("users").Where(condition.In("team", sub)).OrderBy("name", "DESC").All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"name": "dee"}, {"name": "ann"}}, rows)

	counts, err := db.Builder().
		Select("team", "COUNT(*) AS n").
		From(builder.As("adults", db.Builder().From("users").Where(condition.Gte("age", 18)))).
		Where(condition.IsNotNull("team")).
		GroupBy("team").
		Having(condition.Gte("n", 1)).
		OrderBy("team").
		All(ctx)
	require.NoError(t, err)
	assert.Equal(t, []map[string]any{{"team": "red", "n": int64(2)}}, counts)

	affected, err := db.Builder().From("users").Where(condition.Eq("name", "bob")).Update(ctx, map[string]any{"age": 18})
	require.NoError(t, err)
	assert.Equal(t, int64(1), affected)

	affected, err = db.Builder().From("users").Where(condition.Lt("age", 30)).Delete(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2), affected)

	remaining := db.QueryAll(ctx, "SELECT COUNT(*) AS n FROM users")
	require.NoError(t, db.LastError())
	assert.Equal(t, int64(2), remaining[0]["n"])
}

func TestDB_StrictConfig(t *testing.T) {
	db := openSQLite(t)
	db.cfg.Strict = true

	_, err := db.Builder().From("users").Delete(context.Background())
	assert.ErrorIs(t, err, query.ErrInvalidStatement)
}

func TestDB_QueryErrorsAreRecorded(t *testing.T) {
	db := openSQLite(t)
	ctx := context.Background()

	rows := db.QueryAll(ctx, "SELECT * FROM missing_table")
	assert.Nil(t, rows)
	require.Error(t, db.LastError())
	assert.True(t, query.IsDriverError(db.LastError()))

	row := db.QueryOne(ctx, "SELECT 1 AS one")
	require.NoError(t, db.LastError())
	assert.Equal(t, int64(1), row["one"])

	assert.Nil(t, db.QueryOne(ctx, "SELECT * FROM users"))
	assert.NoError(t, db.LastError())
}

func TestDB_Transaction(t *testing.T) {
	ctx := context.Background()

	t.Run("commit", func(t *testing.T) {
		db := openSQLite(t)
		err := db.Transaction(ctx, func(tx *Tx) error {
			_, err := tx.Builder().From("users").Insert(ctx, map[string]any{"name": "ann"})
			return err
		})
		require.NoError(t, err)
		assert.Len(t, db.QueryAll(ctx, "SELECT * FROM users"), 1)
	})

	t.Run("rollback on error calls handler", func(t *testing.T) {
		db := openSQLite(t)
		var handled error
		err := db.Transaction(ctx, func(tx *Tx) error {
			if _, err := tx.Builder().From("users").Insert(ctx, map[string]any{"name": "ann"}); err != nil {
				return err
			}
			return assert.AnError
		}, OnError(func(err error) { handled = err }))

		assert.ErrorIs(t, err, assert.AnError)
		assert.ErrorIs(t, handled, assert.AnError)
		assert.Empty(t, db.QueryAll(ctx, "SELECT * FROM users"))
	})

	t.Run("error is returned without a handler", func(t *testing.T) {
		db := openSQLite(t)
		err := db.Transaction(ctx, func(tx *Tx) error {
			if _, err := tx.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "ann"); err != nil {
				return err
			}
			return assert.AnError
		})
		assert.ErrorIs(t, err, assert.AnError)
		assert.Empty(t, db.QueryAll(ctx, "SELECT * FROM users"))
	})

	t.Run("rollback on panic", func(t *testing.T) {
		db := openSQLite(t)
		var handled error
		assert.PanicsWithValue(t, "boom", func() {
			_ = db.Transaction(ctx, func(tx *Tx) error {
				_, _ = tx.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "ann")
				panic("boom")
			}, OnError(func(err error) { handled = err }))
		})
		assert.ErrorIs(t, handled, ErrTransactionPanic)
		assert.Empty(t, db.QueryAll(ctx, "SELECT * FROM users"))
	})

	t.Run("panicking handler still rolls back", func(t *testing.T) {
		db := openSQLite(t)
		assert.Panics(t, func() {
			_ = db.Transaction(ctx, func(tx *Tx) error {
				_, _ = tx.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "ann")
				return assert.AnError
			}, OnError(func(err error) { panic("handler") }))
		})
		assert.Empty(t, db.QueryAll(ctx, "SELECT * FROM users"))
		require.NoError(t, db.LastError())
	})

	t.Run("nested savepoint", func(t *testing.T) {
		db := openSQLite(t)
		err := db.Transaction(ctx, func(tx *Tx) error {
			if _, err := tx.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "outer"); err != nil {
				return err
			}
			nestedErr := tx.NestedTransaction(ctx, func(tx *Tx) error {
				if _, err := tx.Exec(ctx, "INSERT INTO users (name) VALUES (?)", "inner"); err != nil {
					return err
				}
				return assert.AnError
			})
			assert.ErrorIs(t, nestedErr, assert.AnError)
			return nil
		})
		require.NoError(t, err)

		rows := db.QueryAll(ctx, "SELECT name FROM users")
		assert.Equal(t, []map[string]any{{"name": "outer"}}, rows)
	})
}

func TestDB_Logging(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	var hooked []string
	db := openSQLite(t, WithLogger(logger), WithHook(func(sql string, entry executor.LogEntry) {
		hooked = append(hooked, sql)
	}))

	_, err := db.Builder().From("users").Where(condition.Eq("id", 1)).All(context.Background())
	require.NoError(t, err)

	assert.Contains(t, buf.String(), "SELECT * FROM `users` WHERE `id` = ?")
	assert.Contains(t, hooked, "SELECT * FROM `users` WHERE `id` = ?")
}

func TestDB_ServerVersion(t *testing.T) {
	sqlDB, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer sqlDB.Close()

	db, err := NewFromDB(sqlDB, DefaultConfig())
	require.NoError(t, err)
	db.exec = executor.NewExecutor(sqlDB, executor.WithStmtCache(false))

	mock.ExpectQuery("SELECT VERSION() AS version").
		WillReturnRows(sqlmock.NewRows([]string{"version"}).AddRow("8.0.36-0ubuntu0.22.04.1"))

	v, err := db.ServerVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "8.0.36", v.String())
	assert.NoError(t, CheckServerVersion(v))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestParseServerVersion(t *testing.T) {
	v, err := ParseServerVersion("10.11.6-MariaDB-log")
	require.NoError(t, err)
	assert.Equal(t, "10.11.6", v.String())

	old, err := ParseServerVersion("5.6.51")
	require.NoError(t, err)
	assert.Error(t, CheckServerVersion(old))

	_, err = ParseServerVersion("unknown")
	assert.Error(t, err)
}

func TestOpen_InvalidConfig(t *testing.T) {
	_, err := Open(context.Background(), Config{Driver: "oracle"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid config")
}
