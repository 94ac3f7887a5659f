package ui

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestTableData(t *testing.T) {
	rows := []map[string]any{
		{"name": "ann", "id": int64(1), "team": nil},
		{"name": "bob", "id": int64(2), "team": []byte("red")},
	}
	assert.Equal(t, [][]string{
		{"id", "name", "team"},
		{"1", "ann", "NULL"},
		{"2", "bob", "red"},
	}, TableData(rows))
	assert.Nil(t, TableData(nil))
}

func TestSQLMarkdown(t *testing.T) {
	md := SQLMarkdown("report", "SELECT * FROM `t` WHERE `a` = ?", []any{3})
	assert.Equal(t, "## report\n\n```sql\nSELECT * FROM `t` WHERE `a` = ?\n```\n\n| # | value |\n|---|---|\n| 1 | `3` |\n", md)

	assert.Equal(t, "```sql\nSELECT 1\n```\n", SQLMarkdown("", "SELECT 1", nil))
}

func TestPrintSQL(t *testing.T) {
	var buf bytes.Buffer
	PrintSQL(&buf, "SELECT * FROM `t` WHERE `a` = ?", []any{"x"})
	assert.Contains(t, buf.String(), "SELECT * FROM `t` WHERE `a` = ?")
	assert.Contains(t, buf.String(), "x")

	buf.Reset()
	PrintSQL(&buf, "SELECT 1", nil)
	assert.Contains(t, buf.String(), "no parameters")
}

func TestPrintRows(t *testing.T) {
	var buf bytes.Buffer
	assert.NoError(t, PrintRows(&buf, nil))
	assert.Contains(t, buf.String(), "(0 rows)")

	buf.Reset()
	assert.NoError(t, PrintRows(&buf, []map[string]any{{"id": 1}}))
	assert.Contains(t, buf.String(), "(1 rows)")
}
