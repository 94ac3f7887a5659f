// Package filter parses a textual filter language into condition trees.
//
// The language covers what a WHERE clause usually needs:
//
//	status IN (1, 2) AND (age BETWEEN 18 AND 30 OR vip = TRUE)
//	name NOT LIKE 'test%' AND deleted_at IS NULL
//
// AND binds tighter than OR and parentheses group. Keywords are
// case-insensitive. Values are bound as parameters when the tree is compiled.
package filter

import (
	"strconv"
	"strings"

	"github.com/alecthomas/participle/v2"
	"github.com/alecthomas/participle/v2/lexer"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/condition"
)

// Expression is the root of the parse tree: AND terms joined by OR
type Expression struct {
	Pos   lexer.Position
	Terms []*Conjunction `@@ ( "OR" @@ )*`
}

// Conjunction is a list of factors joined by AND
type Conjunction struct {
	Pos     lexer.Position
	Factors []*Factor `@@ ( "AND" @@ )*`
}

// Factor is a parenthesized expression or a predicate
type Factor struct {
	Pos       lexer.Position
	Group     *Expression `  "(" @@ ")"`
	Predicate *Predicate  `| @@`
}

// Predicate tests one field
type Predicate struct {
	Pos     lexer.Position
	Field   string     `@Ident`
	Between *BetweenOp `( @@`
	In      *InOp      `| @@`
	Is      *IsOp      `| @@`
	Like    *LikeOp    `| @@`
	Compare *CompareOp `| @@ )`
}

// BetweenOp is [NOT] BETWEEN low AND high
type BetweenOp struct {
	Not  bool   `@"NOT"? "BETWEEN"`
	Low  *Value `@@ "AND"`
	High *Value `@@`
}

// InOp is [NOT] IN (v, ...)
type InOp struct {
	Not    bool     `@"NOT"? "IN" "("`
	Values []*Value `( @@ ( "," @@ )* )? ")"`
}

// IsOp is IS [NOT] NULL
type IsOp struct {
	Not bool `"IS" @"NOT"? "NULL"`
}

// LikeOp is [NOT] LIKE pattern
type LikeOp struct {
	Not     bool   `@"NOT"? "LIKE"`
	Pattern *Value `@@`
}

// CompareOp is a binary comparison
type CompareOp struct {
	Operator string `@Operator`
	Value    *Value `@@`
}

// Value is a literal
type Value struct {
	Null   bool    `  @"NULL"`
	Bool   *string `| @( "TRUE" | "FALSE" )`
	Number *string `| @Number`
	String *string `| @String`
}

var parser = participle.MustBuild[Expression](
	participle.Lexer(filterLexer),
	participle.Elide("Whitespace"),
	participle.CaseInsensitive("Keyword"),
	participle.UseLookahead(4),
)

// Parse parses a filter expression into a condition tree. Syntax errors wrap
// query.ErrMalformedCondition.
func Parse(input string) (condition.Node, error) {
	if strings.TrimSpace(input) == "" {
		return nil, nil
	}
	expr, err := parser.ParseString("", input)
	if err != nil {
		return nil, query.Malformed("filter: %v", err)
	}
	return expr.Node()
}

// MustParse is like Parse but panics on error
func MustParse(input string) condition.Node {
	node, err := Parse(input)
	if err != nil {
		panic(err)
	}
	return node
}

// Node converts the expression to a condition tree
func (e *Expression) Node() (condition.Node, error) {
	nodes := make([]condition.Node, 0, len(e.Terms))
	for _, term := range e.Terms {
		n, err := term.Node()
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return condition.Or(nodes...), nil
}

// Node converts the conjunction to a condition tree
func (c *Conjunction) Node() (condition.Node, error) {
	nodes := make([]condition.Node, 0, len(c.Factors))
	for _, f := range c.Factors {
		var (
			n   condition.Node
			err error
		)
		if f.Group != nil {
			n, err = f.Group.Node()
		} else {
			n, err = f.Predicate.Node()
		}
		if err != nil {
			return nil, err
		}
		nodes = append(nodes, n)
	}
	if len(nodes) == 1 {
		return nodes[0], nil
	}
	return condition.And(nodes...), nil
}

// Node converts the predicate to a condition node
func (p *Predicate) Node() (condition.Node, error) {
	field := strings.ReplaceAll(p.Field, "`", "")

	switch {
	case p.Between != nil:
		low, err := p.Between.Low.Go()
		if err != nil {
			return nil, err
		}
		high, err := p.Between.High.Go()
		if err != nil {
			return nil, err
		}
		if p.Between.Not {
			return condition.NotRange(field, low, high), nil
		}
		return condition.Range(field, low, high), nil

	case p.In != nil:
		values := make([]any, 0, len(p.In.Values))
		for _, v := range p.In.Values {
			gv, err := v.Go()
			if err != nil {
				return nil, err
			}
			values = append(values, gv)
		}
		if p.In.Not {
			return condition.NotIn(field, values), nil
		}
		return condition.In(field, values), nil

	case p.Is != nil:
		if p.Is.Not {
			return condition.IsNotNull(field), nil
		}
		return condition.IsNull(field), nil

	case p.Like != nil:
		pattern, err := p.Like.Pattern.Go()
		if err != nil {
			return nil, err
		}
		if p.Like.Not {
			return condition.NotLike(field, pattern), nil
		}
		return condition.Like(field, pattern), nil

	case p.Compare != nil:
		v, err := p.Compare.Value.Go()
		if err != nil {
			return nil, err
		}
		switch p.Compare.Operator {
		case "=":
			return condition.Eq(field, v), nil
		case "!=", "<>":
			return condition.Ne(field, v), nil
		default:
			return condition.Op(field, p.Compare.Operator, v), nil
		}
	}
	return nil, query.Malformed("filter: predicate on %q has no operator", field)
}

// Go returns the literal as a Go value. Integers become int64 and decimals
// float64.
func (v *Value) Go() (any, error) {
	switch {
	case v.Null:
		return nil, nil
	case v.Bool != nil:
		return strings.EqualFold(*v.Bool, "TRUE"), nil
	case v.Number != nil:
		if !strings.Contains(*v.Number, ".") {
			n, err := strconv.ParseInt(*v.Number, 10, 64)
			if err != nil {
				return nil, query.Malformed("filter: %v", err)
			}
			return n, nil
		}
		f, err := strconv.ParseFloat(*v.Number, 64)
		if err != nil {
			return nil, query.Malformed("filter: %v", err)
		}
		return f, nil
	case v.String != nil:
		return unquote(*v.String), nil
	}
	return nil, query.Malformed("filter: empty value")
}

func unquote(s string) string {
	quote := s[0]
	body := s[1 : len(s)-1]

	var b strings.Builder
	b.Grow(len(body))
	for i := 0; i < len(body); i++ {
		c := body[i]
		switch {
		case c == '\\' && i+1 < len(body):
			i++
			b.WriteByte(body[i])
		case c == quote && i+1 < len(body) && body[i+1] == quote:
			i++
			b.WriteByte(c)
		default:
			b.WriteByte(c)
		}
	}
	return b.String()
}
