// Package builder provides a fluent query builder API.
//
// A Builder accumulates clause state through chained calls and consumes it in
// exactly one terminal call (All, One, Insert, Update, Delete, Explain,
// GetQuery, DumpQuery or ToSQL), after which the state is empty again whether
// the call succeeded or not. Errors raised by chained calls are sticky: the
// first one is kept, later calls are ignored, and the next terminal call
// returns it.
package builder

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/condition"
	"github.com/satishbabariya/sqlbuilder/query/executor"
	"github.com/satishbabariya/sqlbuilder/query/sqlgen"
)

// ErrNoExecutor is returned by terminal calls that need a database when the
// builder was created without one.
var ErrNoExecutor = errors.New("builder has no executor")

// clauseState is the per-statement state consumed by a terminal call
type clauseState struct {
	columns  []string
	option   string
	table    string
	target   string
	sources  int
	joins    []string
	where    condition.Node
	whereSet bool
	groupBy  []string
	having   condition.Node
	orderBy  []string
	limit    *int
	offset   *int
	err      error

	// parameters collected before WHERE, kept per clause so that they can be
	// merged in textual order whatever order the calls were made in
	columnParams []any
	tableParams  []any
	joinParams   []any
}

// Builder builds and runs MySQL statements
type Builder struct {
	exec   *executor.Executor
	gen    *sqlgen.MySQLGenerator
	strict bool
	state  clauseState
}

// Option configures a Builder
type Option func(*Builder)

// WithStrict makes UPDATE and DELETE without WHERE fail
func WithStrict(strict bool) Option {
	return func(b *Builder) {
		b.strict = strict
	}
}

// New creates a builder. exec may be nil for a builder that only renders SQL.
func New(exec *executor.Executor, opts ...Option) *Builder {
	b := &Builder{
		exec: exec,
		gen:  sqlgen.NewGenerator(),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// SubQuery returns a fresh builder sharing this builder's executor and options.
// Its clause state is independent of the parent.
func (b *Builder) SubQuery() *Builder {
	return &Builder{exec: b.exec, gen: b.gen, strict: b.strict}
}

// Strict toggles strict mode for this builder
func (b *Builder) Strict(strict bool) *Builder {
	b.strict = strict
	return b
}

// Err returns the sticky error recorded by chained calls, if any
func (b *Builder) Err() error {
	return b.state.err
}

func (b *Builder) fail(err error) *Builder {
	if b.state.err == nil {
		b.state.err = err
	}
	return b
}

func (b *Builder) failed() bool {
	return b.state.err != nil
}

func (b *Builder) reset() {
	b.state = clauseState{}
}

// Select adds columns to the select list. Plain and dotted names are quoted,
// "col AS alias" keeps its alias, and expressions are kept as written.
func (b *Builder) Select(columns ...string) *Builder {
	if b.failed() {
		return b
	}
	for _, col := range columns {
		for _, part := range splitColumns(col) {
			b.state.columns = append(b.state.columns, sqlgen.QuoteColumn(part))
		}
	}
	return b
}

// SelectSubquery adds "(sub) AS alias" to the select list
func (b *Builder) SelectSubquery(alias string, sub condition.Subquery) *Builder {
	if b.failed() {
		return b
	}
	sql, params, err := sub.ToSQL()
	if err != nil {
		return b.fail(fmt.Errorf("select subquery %q: %w", alias, err))
	}
	b.state.columns = append(b.state.columns, fmt.Sprintf("(%s) AS %s", sql, sqlgen.QuoteIdentifier(alias)))
	b.state.columnParams = append(b.state.columnParams, params...)
	return b
}

// SelectOption sets a modifier placed right after SELECT, such as DISTINCT or
// SQL_NO_CACHE
func (b *Builder) SelectOption(option string) *Builder {
	if b.failed() {
		return b
	}
	b.state.option = strings.TrimSpace(option)
	return b
}

// Distinct is SelectOption("DISTINCT")
func (b *Builder) Distinct() *Builder {
	return b.SelectOption("DISTINCT")
}

// From sets the tables the statement reads from. Each source is a table name,
// optionally aliased as "users u", or the result of As.
func (b *Builder) From(sources ...any) *Builder {
	if b.failed() {
		return b
	}
	if len(sources) == 0 {
		return b.fail(query.Invalid("FROM requires at least one table"))
	}
	rendered := make([]string, 0, len(sources))
	var params []any
	for i, src := range sources {
		sql, p, err := renderSource(src)
		if err != nil {
			return b.fail(err)
		}
		rendered = append(rendered, sql)
		params = append(params, p...)
		if i == 0 {
			b.state.target = sourceTarget(src)
		}
	}
	b.state.table = strings.Join(rendered, ", ")
	b.state.sources = len(sources)
	b.state.tableParams = params
	return b
}

// Table is an alias of From
func (b *Builder) Table(sources ...any) *Builder {
	return b.From(sources...)
}

// Where sets the WHERE condition. It may be called once per statement; use
// AndWhere and OrWhere to refine it.
func (b *Builder) Where(cond any) *Builder {
	if b.failed() {
		return b
	}
	if b.state.whereSet {
		return b.fail(query.Invalid("Where called twice, use AndWhere or OrWhere to extend the condition"))
	}
	node, err := parseCondition(cond)
	if err != nil {
		return b.fail(fmt.Errorf("where: %w", err))
	}
	b.state.where = node
	b.state.whereSet = true
	return b
}

// AndWhere combines the current WHERE condition with cond using AND
func (b *Builder) AndWhere(cond any) *Builder {
	return b.combineWhere(condition.AND, cond)
}

// OrWhere combines the current WHERE condition with cond using OR
func (b *Builder) OrWhere(cond any) *Builder {
	return b.combineWhere(condition.OR, cond)
}

func (b *Builder) combineWhere(boolean condition.Boolean, cond any) *Builder {
	if b.failed() {
		return b
	}
	node, err := parseCondition(cond)
	if err != nil {
		return b.fail(fmt.Errorf("where: %w", err))
	}
	b.state.where = combine(boolean, b.state.where, node)
	b.state.whereSet = true
	return b
}

// GroupBy adds GROUP BY columns
func (b *Builder) GroupBy(columns ...string) *Builder {
	if b.failed() {
		return b
	}
	for _, col := range columns {
		for _, part := range splitColumns(col) {
			b.state.groupBy = append(b.state.groupBy, sqlgen.QuoteIdentifier(part))
		}
	}
	return b
}

// Having adds a HAVING condition. Repeated calls are combined with AND.
func (b *Builder) Having(cond any) *Builder {
	if b.failed() {
		return b
	}
	node, err := parseCondition(cond)
	if err != nil {
		return b.fail(fmt.Errorf("having: %w", err))
	}
	b.state.having = combine(condition.AND, b.state.having, node)
	return b
}

// OrderBy adds an ORDER BY term. Direction defaults to ASC.
func (b *Builder) OrderBy(field string, direction ...string) *Builder {
	if b.failed() {
		return b
	}
	dir := "ASC"
	if len(direction) > 0 && direction[0] != "" {
		dir = strings.ToUpper(strings.TrimSpace(direction[0]))
	}
	if dir != "ASC" && dir != "DESC" {
		return b.fail(query.Invalid("order direction must be ASC or DESC, got %q", direction[0]))
	}
	if strings.TrimSpace(field) == "" {
		return b.fail(query.Invalid("order by requires a field"))
	}
	b.state.orderBy = append(b.state.orderBy, sqlgen.QuoteIdentifier(field)+" "+dir)
	return b
}

// OrderByMap adds ORDER BY terms from a field to direction map, in
// ascending field order
func (b *Builder) OrderByMap(terms map[string]string) *Builder {
	fields := make([]string, 0, len(terms))
	for f := range terms {
		fields = append(fields, f)
	}
	sort.Strings(fields)
	for _, f := range fields {
		b.OrderBy(f, terms[f])
	}
	return b
}

// Limit sets the maximum number of rows
func (b *Builder) Limit(n int) *Builder {
	if b.failed() {
		return b
	}
	if n < 0 {
		return b.fail(query.Invalid("negative limit %d", n))
	}
	b.state.limit = &n
	return b
}

// Offset sets the number of rows to skip
func (b *Builder) Offset(n int) *Builder {
	if b.failed() {
		return b
	}
	if n < 0 {
		return b.fail(query.Invalid("negative offset %d", n))
	}
	b.state.offset = &n
	return b
}

func (b *Builder) clauses() *sqlgen.Clauses {
	s := &b.state
	joinArgs := make([]any, 0, len(s.tableParams)+len(s.joinParams))
	joinArgs = append(joinArgs, s.tableParams...)
	joinArgs = append(joinArgs, s.joinParams...)
	return &sqlgen.Clauses{
		Option:     s.option,
		Columns:    s.columns,
		Table:      s.table,
		Joins:      s.joins,
		Where:      s.where,
		GroupBy:    s.groupBy,
		Having:     s.having,
		OrderBy:    s.orderBy,
		Limit:      s.limit,
		Offset:     s.offset,
		ColumnArgs: s.columnParams,
		JoinArgs:   joinArgs,
		Target:     s.target,
		Sources:    s.sources,
		Strict:     b.strict,
	}
}

// parseCondition converts cond to a node and renders the subqueries it
// embeds, so the node can be compiled more than once
func parseCondition(cond any) (condition.Node, error) {
	node, err := condition.Parse(cond)
	if err != nil || node == nil {
		return node, err
	}
	return condition.Freeze(node)
}

// combine joins two conditions, flattening a left-hand group that already
// uses the same connective
func combine(boolean condition.Boolean, left, right condition.Node) condition.Node {
	switch {
	case right == nil:
		return left
	case left == nil:
		return right
	}
	if g, ok := left.(condition.Group); ok && g.Boolean == boolean {
		children := append(append([]condition.Node(nil), g.Children...), right)
		return condition.Group{Boolean: boolean, Children: children}
	}
	return condition.Group{Boolean: boolean, Children: []condition.Node{left, right}}
}

func splitColumns(s string) []string {
	// commas inside parentheses belong to function calls
	var out []string
	depth, start := 0, 0
	for i, r := range s {
		switch r {
		case '(':
			depth++
		case ')':
			depth--
		case ',':
			if depth == 0 {
				out = append(out, s[start:i])
				start = i + 1
			}
		}
	}
	out = append(out, s[start:])

	parts := out[:0]
	for _, p := range out {
		if p = strings.TrimSpace(p); p != "" {
			parts = append(parts, p)
		}
	}
	return parts
}

func (b *Builder) executor() (*executor.Executor, error) {
	if b.exec == nil {
		return nil, ErrNoExecutor
	}
	return b.exec, nil
}

var _ condition.Subquery = (*Builder)(nil)

// fetch runs a read statement
func (b *Builder) fetch(ctx context.Context, q *query.Query) ([]map[string]any, error) {
	exec, err := b.executor()
	if err != nil {
		return nil, err
	}
	return exec.Query(ctx, q)
}
