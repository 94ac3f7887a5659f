package condition

import "fmt"

// Compiled is a subquery rendered ahead of time. Unlike a builder, its ToSQL
// can be called any number of times.
type Compiled struct {
	SQL  string
	Args []any
}

// ToSQL returns the stored statement
func (c Compiled) ToSQL() (string, []any, error) {
	return c.SQL, c.Args, nil
}

// Freeze renders every subquery referenced by n once and returns an
// equivalent tree that only holds Compiled subqueries.
func Freeze(n Node) (Node, error) {
	switch v := n.(type) {
	case Leaf:
		value, err := freezeValue(v.Value)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", v.Field, err)
		}
		v.Value = value
		return v, nil
	case HashMap:
		pairs := make([]Pair, len(v.Pairs))
		for i, p := range v.Pairs {
			value, err := freezeValue(p.Value)
			if err != nil {
				return nil, fmt.Errorf("%s: %w", p.Field, err)
			}
			pairs[i] = Pair{Field: p.Field, Value: value}
		}
		return HashMap{Pairs: pairs}, nil
	case Exists:
		switch op := v.Operand.(type) {
		case Subquery:
			value, err := freezeValue(op)
			if err != nil {
				return nil, err
			}
			v.Operand = value
		case Node:
			inner, err := Freeze(op)
			if err != nil {
				return nil, err
			}
			v.Operand = inner
		}
		return v, nil
	case Group:
		children := make([]Node, len(v.Children))
		for i, child := range v.Children {
			frozen, err := Freeze(child)
			if err != nil {
				return nil, err
			}
			children[i] = frozen
		}
		return Group{Boolean: v.Boolean, Children: children}, nil
	}
	return n, nil
}

func freezeValue(v any) (any, error) {
	sub, ok := v.(Subquery)
	if !ok {
		return v, nil
	}
	if c, ok := sub.(Compiled); ok {
		return c, nil
	}
	sql, args, err := sub.ToSQL()
	if err != nil {
		return nil, fmt.Errorf("subquery: %w", err)
	}
	return Compiled{SQL: sql, Args: args}, nil
}
