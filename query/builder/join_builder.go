package builder

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/condition"
	"github.com/satishbabariya/sqlbuilder/query/sqlgen"
)

// JoinKind is the type of a JOIN clause
type JoinKind string

const (
	JoinInner JoinKind = "INNER"
	JoinLeft  JoinKind = "LEFT"
	JoinRight JoinKind = "RIGHT"
	JoinFull  JoinKind = "FULL"
	JoinCross JoinKind = "CROSS"
)

// Join adds a JOIN clause. The ON condition is rendered with values inlined,
// so column references can be written as plain strings:
//
//	b.Join(JoinLeft, "orders o", []any{"=", "o.user_id", "u.id"})
//	b.Join(JoinLeft, "orders o", map[string]any{"o.user_id": "u.id"})
//
// The optional where condition is bound and appended to ON with AND. Its
// parameters are placed before those of the WHERE clause.
func (b *Builder) Join(kind JoinKind, table any, on any, where ...any) *Builder {
	if b.failed() {
		return b
	}
	source, params, err := renderSource(table)
	if err != nil {
		return b.fail(fmt.Errorf("join: %w", err))
	}

	clause := string(kind) + " JOIN " + source

	onNode, err := condition.Parse(on)
	if err != nil {
		return b.fail(fmt.Errorf("join on: %w", err))
	}
	onSQL, onParams, err := sqlgen.Compile(onNode, sqlgen.ModeRaw)
	if err != nil {
		return b.fail(fmt.Errorf("join on: %w", err))
	}
	params = append(params, onParams...)

	var filters []string
	for _, w := range where {
		node, err := condition.Parse(w)
		if err != nil {
			return b.fail(fmt.Errorf("join where: %w", err))
		}
		sql, p, err := sqlgen.Compile(node, sqlgen.ModeBound)
		if err != nil {
			return b.fail(fmt.Errorf("join where: %w", err))
		}
		if sql == "" {
			continue
		}
		if _, isGroup := node.(condition.Group); isGroup {
			sql = "(" + sql + ")"
		}
		filters = append(filters, sql)
		params = append(params, p...)
	}

	if onSQL != "" || len(filters) > 0 {
		if kind == JoinCross {
			return b.fail(query.Invalid("CROSS JOIN does not take a condition"))
		}
		terms := filters
		if onSQL != "" {
			if _, isGroup := onNode.(condition.Group); isGroup && len(filters) > 0 {
				onSQL = "(" + onSQL + ")"
			}
			terms = append([]string{onSQL}, filters...)
		}
		clause += " ON " + strings.Join(terms, " AND ")
	} else if kind != JoinCross {
		return b.fail(query.Invalid("%s JOIN requires an ON condition", kind))
	}

	b.state.joins = append(b.state.joins, clause)
	b.state.joinParams = append(b.state.joinParams, params...)
	return b
}

// InnerJoin adds an INNER JOIN
func (b *Builder) InnerJoin(table any, on any, where ...any) *Builder {
	return b.Join(JoinInner, table, on, where...)
}

// LeftJoin adds a LEFT JOIN
func (b *Builder) LeftJoin(table any, on any, where ...any) *Builder {
	return b.Join(JoinLeft, table, on, where...)
}

// RightJoin adds a RIGHT JOIN
func (b *Builder) RightJoin(table any, on any, where ...any) *Builder {
	return b.Join(JoinRight, table, on, where...)
}

// FullJoin adds a FULL JOIN
func (b *Builder) FullJoin(table any, on any, where ...any) *Builder {
	return b.Join(JoinFull, table, on, where...)
}

// CrossJoin adds a CROSS JOIN
func (b *Builder) CrossJoin(table any) *Builder {
	return b.Join(JoinCross, table, nil)
}
