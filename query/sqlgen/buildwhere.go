package sqlgen

import (
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/condition"
)

// Mode selects how values are emitted by Compile
type Mode int

const (
	// ModeBound emits ? placeholders and collects the values as parameters
	ModeBound Mode = iota
	// ModeRaw inlines values as SQL literals. Used for JOIN ... ON.
	ModeRaw
)

// Compile renders a condition tree. The returned parameters match the ?
// placeholders of the returned SQL left to right. A nil node renders as "".
func Compile(node condition.Node, mode Mode) (string, []any, error) {
	if node == nil {
		return "", nil, nil
	}
	c := &compiler{mode: mode}
	sql, err := c.build(node, true)
	if err != nil {
		return "", nil, err
	}
	return sql, c.params, nil
}

// compiler carries the parameter sink of one Compile call
type compiler struct {
	mode   Mode
	params []any
}

func (c *compiler) build(node condition.Node, root bool) (string, error) {
	switch n := node.(type) {
	case condition.Raw:
		return n.SQL, nil
	case condition.Leaf:
		return c.buildLeaf(n)
	case condition.Between:
		return c.buildBetween(n), nil
	case condition.Exists:
		return c.buildExists(n)
	case condition.Group:
		return c.buildGroup(n, root)
	case condition.HashMap:
		return c.buildHash(n)
	case nil:
		return "", nil
	}
	return "", query.Malformed("unsupported condition node %T", node)
}

func (c *compiler) buildLeaf(leaf condition.Leaf) (string, error) {
	if strings.TrimSpace(leaf.Field) == "" {
		return "", query.Malformed("comparison without a field")
	}
	op := leaf.Operator
	if op == "" {
		op = "="
	}
	field := QuoteIdentifier(leaf.Field)

	if sub, ok := leaf.Value.(condition.Subquery); ok {
		inner, err := c.subquery(sub)
		if err != nil {
			return "", err
		}
		return fmt.Sprintf("%s %s (%s)", field, op, inner), nil
	}
	if values, ok := condition.Sequence(leaf.Value); ok {
		if len(values) == 0 {
			// nothing is IN an empty set and everything is NOT IN it
			if strings.HasPrefix(op, "NOT") || op == "!=" || op == "<>" {
				return "1 = 1", nil
			}
			return "0 = 1", nil
		}
		return fmt.Sprintf("%s %s (%s)", field, op, c.list(values)), nil
	}
	if condition.IsNullValue(leaf.Value) {
		return fmt.Sprintf("%s %s NULL", field, op), nil
	}
	return fmt.Sprintf("%s %s %s", field, op, c.value(leaf.Value)), nil
}

func (c *compiler) buildBetween(b condition.Between) string {
	keyword := "BETWEEN"
	if b.Negated {
		keyword = "NOT BETWEEN"
	}
	low := c.value(b.Low)
	high := c.value(b.High)
	return fmt.Sprintf("%s %s %s AND %s", QuoteIdentifier(b.Field), keyword, low, high)
}

func (c *compiler) buildExists(e condition.Exists) (string, error) {
	keyword := "EXISTS"
	if e.Negated {
		keyword = "NOT EXISTS"
	}
	var inner string
	var err error
	switch op := e.Operand.(type) {
	case condition.Subquery:
		inner, err = c.subquery(op)
	case condition.Node:
		inner, err = c.build(op, true)
	default:
		return "", query.Malformed("%s operand must be a subquery or a condition, got %T", keyword, e.Operand)
	}
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%s (%s)", keyword, inner), nil
}

func (c *compiler) buildGroup(g condition.Group, root bool) (string, error) {
	keyword := strings.ToUpper(string(g.Boolean))
	if keyword != "OR" {
		keyword = "AND"
	}

	var parts []string
	for _, child := range g.Children {
		sql, err := c.build(child, false)
		if err != nil {
			return "", err
		}
		if sql == "" {
			continue
		}
		// nested groups wrap themselves
		if _, isGroup := child.(condition.Group); !isGroup {
			sql = "(" + sql + ")"
		}
		parts = append(parts, sql)
	}
	if len(parts) == 0 {
		return "", nil
	}

	sql := strings.Join(parts, " "+keyword+" ")
	if !root {
		sql = "(" + sql + ")"
	}
	return sql, nil
}

func (c *compiler) buildHash(h condition.HashMap) (string, error) {
	parts := make([]string, 0, len(h.Pairs))
	for _, p := range h.Pairs {
		var leaf condition.Leaf
		if _, isSub := p.Value.(condition.Subquery); isSub {
			leaf = condition.Leaf{Field: p.Field, Operator: "IN", Value: p.Value}
		} else {
			leaf = condition.Eq(p.Field, p.Value)
		}
		sql, err := c.buildLeaf(leaf)
		if err != nil {
			return "", err
		}
		parts = append(parts, sql)
	}
	return strings.Join(parts, " AND "), nil
}

// subquery renders an embedded statement and splices its parameters into the
// sink at the current position. Parameters are kept in raw mode too since the
// subquery's own placeholders remain in its SQL.
func (c *compiler) subquery(sub condition.Subquery) (string, error) {
	sql, params, err := sub.ToSQL()
	if err != nil {
		return "", fmt.Errorf("subquery: %w", err)
	}
	c.params = append(c.params, params...)
	return sql, nil
}

func (c *compiler) list(values []any) string {
	items := make([]string, len(values))
	for i, v := range values {
		items[i] = c.value(v)
	}
	return strings.Join(items, ",")
}

func (c *compiler) value(v any) string {
	if c.mode == ModeRaw {
		return Literal(v)
	}
	c.params = append(c.params, v)
	return "?"
}

// Literal renders v as an inline SQL token. Strings are emitted verbatim so
// that column references can be compared in JOIN conditions.
func Literal(v any) string {
	if condition.IsNullValue(v) {
		return "NULL"
	}
	switch x := v.(type) {
	case string:
		return x
	case []byte:
		return string(x)
	case bool:
		if x {
			return "TRUE"
		}
		return "FALSE"
	case int:
		return strconv.Itoa(x)
	case int8, int16, int32, int64, uint, uint8, uint16, uint32, uint64:
		return fmt.Sprintf("%d", x)
	case float32:
		return strconv.FormatFloat(float64(x), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	case time.Time:
		return "'" + x.Format("2006-01-02 15:04:05.999999") + "'"
	case fmt.Stringer:
		return x.String()
	}
	return fmt.Sprint(v)
}
