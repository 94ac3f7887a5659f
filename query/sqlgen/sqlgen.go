// Package sqlgen compiles condition trees and assembles MySQL statements.
package sqlgen

import (
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/condition"
)

// maxLimit is the row count MySQL needs when OFFSET is used without LIMIT
const maxLimit = "18446744073709551615"

// Clauses is the rendered clause state of a statement. Table and Joins are
// already rendered text. ColumnArgs holds the parameters of the select list
// and JoinArgs those of the FROM and JOIN clauses, each in textual order.
type Clauses struct {
	Option     string
	Columns    []string
	Table      string
	Joins      []string
	Where      condition.Node
	GroupBy    []string
	Having     condition.Node
	OrderBy    []string
	Limit      *int
	Offset     *int
	ColumnArgs []any
	JoinArgs   []any
	// Target names the first FROM table, used by multi-table DELETE
	Target string
	// Sources is the number of FROM tables
	Sources int
	// Strict rejects UPDATE and DELETE statements without a WHERE clause
	Strict bool
}

// multiTable reports whether a write statement needs MySQL's multi-table form
func (c *Clauses) multiTable() bool {
	return len(c.Joins) > 0 || c.Sources > 1
}

// Conditions holds the compiled WHERE and HAVING clauses
type Conditions struct {
	Where  string
	Having string
	Args   []any
}

// MySQLGenerator generates MySQL SQL
type MySQLGenerator struct{}

// NewGenerator creates a new SQL generator
func NewGenerator() *MySQLGenerator {
	return &MySQLGenerator{}
}

// CompileConditions compiles WHERE then HAVING in bound mode.
func (g *MySQLGenerator) CompileConditions(c *Clauses) (*Conditions, error) {
	where, whereArgs, err := Compile(c.Where, ModeBound)
	if err != nil {
		return nil, fmt.Errorf("where: %w", err)
	}
	having, havingArgs, err := Compile(c.Having, ModeBound)
	if err != nil {
		return nil, fmt.Errorf("having: %w", err)
	}
	args := make([]any, 0, len(whereArgs)+len(havingArgs))
	args = append(args, whereArgs...)
	args = append(args, havingArgs...)
	return &Conditions{Where: where, Having: having, Args: args}, nil
}

// GenerateSelect assembles a SELECT statement. Parameters are ordered select
// list, FROM and JOIN parameters, then condition parameters.
func (g *MySQLGenerator) GenerateSelect(c *Clauses) (*query.Query, error) {
	if strings.TrimSpace(c.Table) == "" {
		return nil, query.Invalid("SELECT requires a table")
	}
	conds, err := g.CompileConditions(c)
	if err != nil {
		return nil, err
	}

	var parts []string

	head := "SELECT"
	if c.Option != "" {
		head += " " + c.Option
	}
	if len(c.Columns) == 0 {
		parts = append(parts, head+" *")
	} else {
		parts = append(parts, head+" "+strings.Join(c.Columns, ", "))
	}

	parts = append(parts, "FROM "+c.Table)
	parts = append(parts, c.Joins...)

	if conds.Where != "" {
		parts = append(parts, "WHERE "+conds.Where)
	}
	if len(c.GroupBy) > 0 {
		parts = append(parts, "GROUP BY "+strings.Join(c.GroupBy, ", "))
	}
	if conds.Having != "" {
		parts = append(parts, "HAVING "+conds.Having)
	}
	if len(c.OrderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(c.OrderBy, ", "))
	}
	parts = append(parts, limitClause(c.Limit, c.Offset)...)

	return &query.Query{
		Kind: query.KindSelect,
		SQL:  strings.Join(parts, " "),
		Args: merge(c.ColumnArgs, c.JoinArgs, conds.Args),
	}, nil
}

// GenerateExplain prefixes the SELECT statement with EXPLAIN
func (g *MySQLGenerator) GenerateExplain(c *Clauses) (*query.Query, error) {
	q, err := g.GenerateSelect(c)
	if err != nil {
		return nil, err
	}
	q.Kind = query.KindExplain
	q.SQL = "EXPLAIN " + q.SQL
	return q, nil
}

// GenerateInsert assembles a multi-row INSERT. Every row must carry the same
// columns, which are emitted in ascending order.
func (g *MySQLGenerator) GenerateInsert(table string, rows []map[string]any) (*query.Query, error) {
	if strings.TrimSpace(table) == "" {
		return nil, query.Invalid("INSERT requires a table")
	}
	if len(rows) == 0 || len(rows[0]) == 0 {
		return nil, query.Invalid("INSERT requires at least one non-empty row")
	}

	columns := sortedKeys(rows[0])
	quoted := make([]string, len(columns))
	for i, col := range columns {
		quoted[i] = QuoteIdentifier(col)
	}

	placeholders := "(" + strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",") + ")"
	tuples := make([]string, len(rows))
	args := make([]any, 0, len(rows)*len(columns))
	for i, row := range rows {
		if len(row) != len(columns) {
			return nil, query.Invalid("row %d has %d columns, expected %d", i, len(row), len(columns))
		}
		for _, col := range columns {
			v, ok := row[col]
			if !ok {
				return nil, query.Invalid("row %d is missing column %q", i, col)
			}
			args = append(args, v)
		}
		tuples[i] = placeholders
	}

	sql := fmt.Sprintf("INSERT INTO %s (%s) VALUES %s",
		QuoteTable(table), strings.Join(quoted, ","), strings.Join(tuples, ","))

	return &query.Query{Kind: query.KindInsert, SQL: sql, Args: args}, nil
}

// GenerateUpdate assembles an UPDATE. With joins or several tables it uses
// the multi-table form "UPDATE t JOIN ... SET ...". Parameters are the FROM
// and JOIN parameters, the assigned values in column order, then the condition
// parameters.
func (g *MySQLGenerator) GenerateUpdate(c *Clauses, set map[string]any) (*query.Query, error) {
	if strings.TrimSpace(c.Table) == "" {
		return nil, query.Invalid("UPDATE requires a table")
	}
	if len(set) == 0 {
		return nil, query.Invalid("UPDATE requires at least one assignment")
	}
	if err := checkWrite("UPDATE", c); err != nil {
		return nil, err
	}
	conds, err := g.CompileConditions(c)
	if err != nil {
		return nil, err
	}
	if c.Strict && conds.Where == "" {
		return nil, query.Invalid("UPDATE without WHERE is not allowed in strict mode")
	}

	columns := sortedKeys(set)
	assignments := make([]string, len(columns))
	setArgs := make([]any, 0, len(columns))
	for i, col := range columns {
		assignments[i] = QuoteIdentifier(col) + "=?"
		setArgs = append(setArgs, set[col])
	}

	parts := []string{"UPDATE " + c.Table}
	parts = append(parts, c.Joins...)
	parts = append(parts, "SET "+strings.Join(assignments, ","))
	if conds.Where != "" {
		parts = append(parts, "WHERE "+conds.Where)
	}
	parts = append(parts, writeTail(c)...)

	return &query.Query{
		Kind: query.KindUpdate,
		SQL:  strings.Join(parts, " "),
		Args: merge(c.JoinArgs, setArgs, conds.Args),
	}, nil
}

// GenerateDelete assembles a DELETE. With joins or several tables it uses the
// multi-table form "DELETE target FROM t JOIN ...", deleting from the first
// table. Parameters are the FROM and JOIN parameters, then the condition
// parameters.
func (g *MySQLGenerator) GenerateDelete(c *Clauses) (*query.Query, error) {
	if strings.TrimSpace(c.Table) == "" {
		return nil, query.Invalid("DELETE requires a table")
	}
	if err := checkWrite("DELETE", c); err != nil {
		return nil, err
	}
	conds, err := g.CompileConditions(c)
	if err != nil {
		return nil, err
	}
	if c.Strict && conds.Where == "" {
		return nil, query.Invalid("DELETE without WHERE is not allowed in strict mode")
	}

	head := "DELETE FROM " + c.Table
	if c.multiTable() {
		if c.Target == "" {
			return nil, query.Invalid("multi-table DELETE requires a target table")
		}
		head = "DELETE " + c.Target + " FROM " + c.Table
	}
	parts := []string{head}
	parts = append(parts, c.Joins...)
	if conds.Where != "" {
		parts = append(parts, "WHERE "+conds.Where)
	}
	parts = append(parts, writeTail(c)...)

	return &query.Query{
		Kind: query.KindDelete,
		SQL:  strings.Join(parts, " "),
		Args: merge(c.JoinArgs, conds.Args),
	}, nil
}

// checkWrite rejects clause state an UPDATE or DELETE cannot render
func checkWrite(stmt string, c *Clauses) error {
	switch {
	case len(c.Columns) > 0 || c.Option != "" || len(c.ColumnArgs) > 0:
		return query.Invalid("%s does not take a select list", stmt)
	case len(c.GroupBy) > 0 || c.Having != nil:
		return query.Invalid("%s does not take GROUP BY or HAVING", stmt)
	case c.Offset != nil:
		return query.Invalid("%s does not take OFFSET", stmt)
	case c.multiTable() && (len(c.OrderBy) > 0 || c.Limit != nil):
		return query.Invalid("multi-table %s does not take ORDER BY or LIMIT", stmt)
	}
	return nil
}

// writeTail renders ORDER BY and LIMIT of a single-table UPDATE or DELETE
func writeTail(c *Clauses) []string {
	var parts []string
	if len(c.OrderBy) > 0 {
		parts = append(parts, "ORDER BY "+strings.Join(c.OrderBy, ", "))
	}
	return append(parts, limitClause(c.Limit, nil)...)
}

func limitClause(limit, offset *int) []string {
	var parts []string
	if limit != nil {
		parts = append(parts, fmt.Sprintf("LIMIT %d", *limit))
	}
	if offset != nil {
		if limit == nil {
			// MySQL requires LIMIT when using OFFSET
			parts = append(parts, "LIMIT "+maxLimit)
		}
		parts = append(parts, fmt.Sprintf("OFFSET %d", *offset))
	}
	return parts
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

func merge(buffers ...[]any) []any {
	n := 0
	for _, b := range buffers {
		n += len(b)
	}
	out := make([]any, 0, n)
	for _, b := range buffers {
		out = append(out, b...)
	}
	return out
}
