package condition

import (
	"errors"
	"testing"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type countingSubquery struct {
	calls int
}

func (c *countingSubquery) ToSQL() (string, []any, error) {
	c.calls++
	return "SELECT `id` FROM `t` WHERE `x` = ?", []any{c.calls}, nil
}

func TestParse(t *testing.T) {
	tests := []struct {
		name  string
		input any
		want  Node
	}{
		{"nil", nil, nil},
		{"blank string", "  ", nil},
		{"raw", "a = b", Raw{SQL: "a = b"}},
		{"node passthrough", Eq("a", 1), Leaf{Field: "a", Operator: "=", Value: 1}},
		{"map sorted", map[string]any{"b": 2, "a": 1}, HashMap{Pairs: []Pair{{"a", 1}, {"b", 2}}}},
		{"comparison", []any{"<>", "a", 1}, Leaf{Field: "a", Operator: "<>", Value: 1}},
		{"keyword spacing", []any{"not   like", "a", "x%"}, Leaf{Field: "a", Operator: "NOT LIKE", Value: "x%"}},
		{"between", []any{"Between", "a", 1, 2}, Between{Field: "a", Low: 1, High: 2}},
		{"not between", []any{"not between", "a", 1, 2}, Between{Field: "a", Low: 1, High: 2, Negated: true}},
		{"or group", []any{"OR", "x", map[string]any{"y": 1}}, Group{Boolean: OR, Children: []Node{Raw{SQL: "x"}, HashMap{Pairs: []Pair{{"y", 1}}}}}},
		{"implicit and", []any{[]any{"=", "a", 1}, "b"}, Group{Boolean: AND, Children: []Node{Leaf{Field: "a", Operator: "=", Value: 1}, Raw{SQL: "b"}}}},
		{"typed slice", []string{"=", "a", "b"}, Leaf{Field: "a", Operator: "=", Value: "b"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Parse(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParse_Exists(t *testing.T) {
	sub := &countingSubquery{}
	got, err := Parse([]any{"exists", sub})
	require.NoError(t, err)
	assert.Equal(t, Exists{Operand: sub}, got)

	got, err = Parse([]any{"not exists", []any{"and", "a", "b"}})
	require.NoError(t, err)
	assert.Equal(t, Exists{Operand: Group{Boolean: AND, Children: []Node{Raw{SQL: "a"}, Raw{SQL: "b"}}}, Negated: true}, got)
}

func TestParse_Malformed(t *testing.T) {
	inputs := []any{
		[]any{"between", "a", 1},
		[]any{"between", "a", 1, 2, 3},
		[]any{"like", "a", 1, 2},
		[]any{"=", "", 1},
		[]any{"exists", nil},
		[]any{"and", []any{"between", "a"}},
		3.14,
		struct{}{},
	}
	for _, in := range inputs {
		_, err := Parse(in)
		require.Error(t, err, "%v", in)
		assert.True(t, errors.Is(err, query.ErrMalformedCondition), "%v", in)
	}
	assert.Panics(t, func() { MustParse(1) })
}

func TestConstructors(t *testing.T) {
	assert.Equal(t, Leaf{Field: "a", Operator: "IS", Value: Null}, Eq("a", nil))
	assert.Equal(t, Leaf{Field: "a", Operator: "IN", Value: []int{1}}, Eq("a", []int{1}))
	assert.Equal(t, Leaf{Field: "a", Operator: "IS NOT", Value: Null}, Ne("a", Null))
	assert.Equal(t, Leaf{Field: "a", Operator: "NOT IN", Value: []any{1, 2}}, Ne("a", []any{1, 2}))
	assert.Equal(t, Leaf{Field: "a", Operator: "IN", Value: []any{1, 2}}, In("a", 1, 2))
	assert.Equal(t, Leaf{Field: "a", Operator: "IN", Value: []string{"x"}}, In("a", []string{"x"}))
	assert.Equal(t, Leaf{Field: "a", Operator: "IN", Value: []any{}}, In("a"))
	assert.Equal(t, Leaf{Field: "a", Operator: "NOT REGEXP", Value: "^x"}, Op("a", " not regexp ", "^x"))
	assert.Equal(t, HashMap{Pairs: []Pair{{"b", 1}, {"a", Null}}}, Pairs("b", 1, "a"))
	assert.Equal(t, Between{Field: "a", Low: 1, High: 2, Negated: true}, NotRange("a", 1, 2))
}

func TestSequence(t *testing.T) {
	seq, ok := Sequence([3]int{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, []any{1, 2, 3}, seq)

	_, ok = Sequence([]byte("abc"))
	assert.False(t, ok)
	_, ok = Sequence("abc")
	assert.False(t, ok)
}

func TestFreeze(t *testing.T) {
	sub := &countingSubquery{}
	tree := And(In("id", sub), Pairs("owner", sub), NotExistsIn(sub), Or(Eq("k", 1)))

	frozen, err := Freeze(tree)
	require.NoError(t, err)
	assert.Equal(t, 3, sub.calls)

	g := frozen.(Group)
	assert.Equal(t, Compiled{SQL: "SELECT `id` FROM `t` WHERE `x` = ?", Args: []any{1}}, g.Children[0].(Leaf).Value)
	assert.Equal(t, Compiled{SQL: "SELECT `id` FROM `t` WHERE `x` = ?", Args: []any{2}}, g.Children[1].(HashMap).Pairs[0].Value)
	assert.Equal(t, Compiled{SQL: "SELECT `id` FROM `t` WHERE `x` = ?", Args: []any{3}}, g.Children[2].(Exists).Operand)

	again, err := Freeze(frozen)
	require.NoError(t, err)
	assert.Equal(t, frozen, again)
	assert.Equal(t, 3, sub.calls)
}
