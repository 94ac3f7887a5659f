// Package condition defines the condition expression tree consumed by the SQL generator.
//
// Nodes are immutable values. They are built either through the typed constructors
// (Eq, In, Range, And, ...) or by converting loosely shaped input with Parse.
package condition

import (
	"reflect"
	"sort"
	"strings"
)

// Node is one of Raw, Leaf, Between, Exists, Group or HashMap.
type Node interface {
	node()
}

// Subquery is a statement that can be embedded inside another one. ToSQL renders
// the SELECT and hands back its parameters so the embedding site can splice them
// in at the right position.
type Subquery interface {
	ToSQL() (string, []any, error)
}

type null struct{}

// Null is the NULL sentinel. A nil value is treated the same way.
var Null = null{}

// Raw is an opaque SQL fragment emitted verbatim
type Raw struct {
	SQL string
}

// Leaf compares a field with a value using Operator
type Leaf struct {
	Field    string
	Operator string
	Value    any
}

// Between is a range test on a field
type Between struct {
	Field   string
	Low     any
	High    any
	Negated bool
}

// Exists tests a sub-select for rows. Operand is a Subquery or a Group.
type Exists struct {
	Operand any
	Negated bool
}

// Boolean is the connective of a Group
type Boolean string

const (
	AND Boolean = "AND"
	OR  Boolean = "OR"
)

// Group joins its children with a boolean connective
type Group struct {
	Boolean  Boolean
	Children []Node
}

// Pair is one entry of a HashMap
type Pair struct {
	Field string
	Value any
}

// HashMap is a list of field/value pairs that are AND-ed together
type HashMap struct {
	Pairs []Pair
}

func (Raw) node()     {}
func (Leaf) node()    {}
func (Between) node() {}
func (Exists) node()  {}
func (Group) node()   {}
func (HashMap) node() {}

// IsNullValue reports whether v is the NULL sentinel or nil.
func IsNullValue(v any) bool {
	if v == nil {
		return true
	}
	_, ok := v.(null)
	return ok
}

// Sequence returns the elements of v when v is a slice or array. Byte slices are
// scalars.
func Sequence(v any) ([]any, bool) {
	switch s := v.(type) {
	case []any:
		return s, true
	case []byte:
		return nil, false
	}
	rv := reflect.ValueOf(v)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out, true
}

// Hash builds a HashMap from a map, iterating keys in ascending order.
func Hash(m map[string]any) HashMap {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	pairs := make([]Pair, len(keys))
	for i, k := range keys {
		pairs[i] = Pair{Field: k, Value: m[k]}
	}
	return HashMap{Pairs: pairs}
}

// Pairs builds a HashMap keeping the caller's order. Arguments alternate field, value.
// A trailing field without a value is compared with NULL.
func Pairs(kv ...any) HashMap {
	var pairs []Pair
	for i := 0; i < len(kv); i += 2 {
		field, _ := kv[i].(string)
		var value any = Null
		if i+1 < len(kv) {
			value = kv[i+1]
		}
		pairs = append(pairs, Pair{Field: field, Value: value})
	}
	return HashMap{Pairs: pairs}
}

// Op builds a Leaf with an arbitrary operator.
func Op(field, operator string, value any) Leaf {
	return Leaf{Field: field, Operator: strings.ToUpper(strings.TrimSpace(operator)), Value: value}
}

// Eq matches field = value. A sequence or subquery value becomes IN and a nil
// value becomes IS NULL.
func Eq(field string, value any) Leaf {
	switch {
	case IsNullValue(value):
		return Leaf{Field: field, Operator: "IS", Value: Null}
	case isSet(value):
		return Leaf{Field: field, Operator: "IN", Value: value}
	}
	return Leaf{Field: field, Operator: "=", Value: value}
}

// Ne matches field != value, NOT IN for sets and IS NOT NULL for nil.
func Ne(field string, value any) Leaf {
	switch {
	case IsNullValue(value):
		return Leaf{Field: field, Operator: "IS NOT", Value: Null}
	case isSet(value):
		return Leaf{Field: field, Operator: "NOT IN", Value: value}
	}
	return Leaf{Field: field, Operator: "!=", Value: value}
}

func Gt(field string, value any) Leaf      { return Leaf{Field: field, Operator: ">", Value: value} }
func Gte(field string, value any) Leaf     { return Leaf{Field: field, Operator: ">=", Value: value} }
func Lt(field string, value any) Leaf      { return Leaf{Field: field, Operator: "<", Value: value} }
func Lte(field string, value any) Leaf     { return Leaf{Field: field, Operator: "<=", Value: value} }
func Like(field string, value any) Leaf    { return Leaf{Field: field, Operator: "LIKE", Value: value} }
func NotLike(field string, value any) Leaf { return Leaf{Field: field, Operator: "NOT LIKE", Value: value} }

// In matches field IN (values...). Values may be a single slice or a Subquery.
func In(field string, values ...any) Leaf {
	return Leaf{Field: field, Operator: "IN", Value: setValue(values)}
}

// NotIn matches field NOT IN (values...).
func NotIn(field string, values ...any) Leaf {
	return Leaf{Field: field, Operator: "NOT IN", Value: setValue(values)}
}

func IsNull(field string) Leaf    { return Leaf{Field: field, Operator: "IS", Value: Null} }
func IsNotNull(field string) Leaf { return Leaf{Field: field, Operator: "IS NOT", Value: Null} }

// Range matches field BETWEEN low AND high.
func Range(field string, low, high any) Between {
	return Between{Field: field, Low: low, High: high}
}

// NotRange matches field NOT BETWEEN low AND high.
func NotRange(field string, low, high any) Between {
	return Between{Field: field, Low: low, High: high, Negated: true}
}

// ExistsIn matches when the subquery yields at least one row.
func ExistsIn(sub Subquery) Exists { return Exists{Operand: sub} }

// NotExistsIn matches when the subquery yields no rows.
func NotExistsIn(sub Subquery) Exists { return Exists{Operand: sub, Negated: true} }

// And groups nodes with AND
func And(children ...Node) Group { return Group{Boolean: AND, Children: children} }

// Or groups nodes with OR
func Or(children ...Node) Group { return Group{Boolean: OR, Children: children} }

// SQL wraps a raw fragment
func SQL(fragment string) Raw { return Raw{SQL: fragment} }

func isSet(v any) bool {
	if _, ok := v.(Subquery); ok {
		return true
	}
	_, ok := Sequence(v)
	return ok
}

func setValue(values []any) any {
	if len(values) == 1 && isSet(values[0]) {
		return values[0]
	}
	if values == nil {
		return []any{}
	}
	return values
}
