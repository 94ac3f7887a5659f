package condition

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/sqlbuilder/query"
)

// Parse converts a loosely shaped condition into a Node. Accepted shapes:
//
//	"a = b"                          raw fragment
//	map[string]any{"a": 1}           equality map, keys in ascending order
//	[]any{"between", "f", lo, hi}    range (also "not between")
//	[]any{"exists", sub}             sub-select test (also "not exists")
//	[]any{"and", c1, c2, ...}        boolean group (also "or")
//	[]any{op, "f", value}            comparison
//	[]any{c1, c2, ...}               implicit AND of nested shapes
//
// Nodes are returned unchanged. A nil input yields a nil Node.
func Parse(v any) (Node, error) {
	switch c := v.(type) {
	case nil:
		return nil, nil
	case Node:
		return c, nil
	case string:
		if strings.TrimSpace(c) == "" {
			return nil, nil
		}
		return Raw{SQL: c}, nil
	case map[string]any:
		return Hash(c), nil
	}

	elems, ok := Sequence(v)
	if !ok {
		return nil, query.Malformed("unsupported condition type %T", v)
	}
	if len(elems) == 0 {
		return nil, query.Malformed("empty condition list")
	}

	head, isKeyword := elems[0].(string)
	if !isKeyword {
		if !nested(elems[0]) {
			return nil, query.Malformed("condition list must start with an operator, got %T", elems[0])
		}
		children, err := parseAll(elems)
		if err != nil {
			return nil, err
		}
		return Group{Boolean: AND, Children: children}, nil
	}

	kw := strings.ToUpper(strings.Join(strings.Fields(head), " "))
	switch kw {
	case "AND", "OR":
		children, err := parseAll(elems[1:])
		if err != nil {
			return nil, err
		}
		return Group{Boolean: Boolean(kw), Children: children}, nil

	case "BETWEEN", "NOT BETWEEN":
		if len(elems) != 4 {
			return nil, query.Malformed("%s expects a field and two bounds, got %d operands", kw, len(elems)-1)
		}
		field, err := fieldName(elems[1])
		if err != nil {
			return nil, err
		}
		return Between{Field: field, Low: elems[2], High: elems[3], Negated: kw == "NOT BETWEEN"}, nil

	case "EXISTS", "NOT EXISTS":
		if len(elems) != 2 {
			return nil, query.Malformed("%s expects a single operand, got %d", kw, len(elems)-1)
		}
		operand, err := existsOperand(elems[1])
		if err != nil {
			return nil, err
		}
		return Exists{Operand: operand, Negated: kw == "NOT EXISTS"}, nil
	}

	switch len(elems) {
	case 3:
		field, err := fieldName(elems[1])
		if err != nil {
			return nil, err
		}
		return Leaf{Field: field, Operator: kw, Value: elems[2]}, nil
	case 4:
		return nil, query.Malformed("operator %q does not take three operands", head)
	}
	return nil, query.Malformed("unrecognized condition %v", v)
}

// MustParse is like Parse but panics on error.
func MustParse(v any) Node {
	n, err := Parse(v)
	if err != nil {
		panic(err)
	}
	return n
}

func parseAll(elems []any) ([]Node, error) {
	children := make([]Node, 0, len(elems))
	for i, e := range elems {
		child, err := Parse(e)
		if err != nil {
			return nil, fmt.Errorf("operand %d: %w", i, err)
		}
		if child != nil {
			children = append(children, child)
		}
	}
	return children, nil
}

func existsOperand(v any) (any, error) {
	if sub, ok := v.(Subquery); ok {
		return sub, nil
	}
	n, err := Parse(v)
	if err != nil {
		return nil, err
	}
	if n == nil {
		return nil, query.Malformed("EXISTS operand is empty")
	}
	return n, nil
}

func fieldName(v any) (string, error) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return "", query.Malformed("field name must be a non-empty string, got %v", v)
	}
	return s, nil
}

func nested(v any) bool {
	switch v.(type) {
	case map[string]any, Node:
		return true
	}
	_, ok := Sequence(v)
	return ok
}
