package telemetry

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/executor"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMetrics_RecordQuery(t *testing.T) {
	m, err := NewMetrics(&Config{Namespace: "test"})
	require.NoError(t, err)

	m.RecordQuery(QueryInfo{Kind: query.KindSelect, Duration: 10 * time.Millisecond, RowsAffected: 3})
	m.RecordQuery(QueryInfo{Kind: query.KindSelect, Duration: 20 * time.Millisecond, RowsAffected: 2})
	m.RecordQuery(QueryInfo{Kind: query.KindUpdate, Err: query.NewDriverError("exec", "UPDATE", assert.AnError)})
	m.RecordQuery(QueryInfo{Kind: query.KindDelete, Err: query.Invalid("no table")})

	assert.Equal(t, 2.0, testutil.ToFloat64(m.queries.WithLabelValues("SELECT", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("UPDATE", "driver_error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("DELETE", "error")))
	assert.Equal(t, 5.0, testutil.ToFloat64(m.rows.WithLabelValues("SELECT")))

	count, err := testutil.GatherAndCount(m.Gatherer(), "test_query_duration_seconds")
	require.NoError(t, err)
	assert.Equal(t, 3, count)
}

func TestMetrics_SharedRegisterer(t *testing.T) {
	reg := prometheus.NewRegistry()
	first, err := NewMetrics(&Config{Registerer: reg})
	require.NoError(t, err)
	_, err = NewMetrics(&Config{Registerer: reg})
	require.NoError(t, err)

	first.RecordQuery(QueryInfo{Kind: query.KindInsert, RowsAffected: 1})

	expected := `
# HELP sqlbuilder_rows_total Rows returned by reads and affected by writes.
# TYPE sqlbuilder_rows_total counter
sqlbuilder_rows_total{kind="INSERT"} 1
`
	require.NoError(t, testutil.GatherAndCompare(reg, strings.NewReader(expected), "sqlbuilder_rows_total"))
}

func TestMetrics_Middleware(t *testing.T) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	defer db.Close()

	m, err := NewMetrics(nil)
	require.NoError(t, err)
	exec := executor.NewExecutor(db, executor.WithStmtCache(false), executor.WithMiddleware(m.Middleware()))

	mock.ExpectQuery("SELECT * FROM `users`").
		WillReturnRows(sqlmock.NewRows([]string{"id"}).AddRow(1).AddRow(2))
	mock.ExpectExec("DELETE FROM `users`").WillReturnError(assert.AnError)

	ctx := context.Background()
	_, err = exec.Query(ctx, &query.Query{Kind: query.KindSelect, SQL: "SELECT * FROM `users`"})
	require.NoError(t, err)
	_, err = exec.Exec(ctx, &query.Query{Kind: query.KindDelete, SQL: "DELETE FROM `users`"})
	require.Error(t, err)

	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("SELECT", "success")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.rows.WithLabelValues("SELECT")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.queries.WithLabelValues("DELETE", "driver_error")))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestMetrics_Snapshot(t *testing.T) {
	m, err := NewMetrics(nil)
	require.NoError(t, err)

	m.RecordQuery(QueryInfo{Kind: query.KindSelect, RowsAffected: 4})
	m.RecordQuery(QueryInfo{Kind: query.KindSelect, Err: assert.AnError})

	samples, err := m.Snapshot()
	require.NoError(t, err)
	assert.Equal(t, []Sample{
		{Name: "sqlbuilder_queries_total", Labels: map[string]string{"kind": "SELECT", "status": "error"}, Value: 1},
		{Name: "sqlbuilder_queries_total", Labels: map[string]string{"kind": "SELECT", "status": "success"}, Value: 1},
		{Name: "sqlbuilder_query_duration_seconds", Labels: map[string]string{"kind": "SELECT"}, Value: 2},
		{Name: "sqlbuilder_rows_total", Labels: map[string]string{"kind": "SELECT"}, Value: 4},
	}, samples)
}
