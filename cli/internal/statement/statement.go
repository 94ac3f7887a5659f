// Package statement reads statements described in YAML (or JSON) and applies
// them to a query builder.
//
//	select: [u.id, u.name, "COUNT(o.id) AS orders"]
//	from: users u
//	joins:
//	  - kind: left
//	    table: orders o
//	    on: o.user_id = u.id
//	    where: o.state = 'paid'
//	where: u.age >= 18 AND u.status IN (1, 2)
//	group_by: [u.id, u.name]
//	having: orders > 0
//	order_by: {orders: desc}
//	limit: 10
//
// where and having are either a filter expression string or a condition
// shape such as [and, {status: [1, 2]}, [between, age, 18, 30]]. Join ON
// conditions are raw SQL. A statement with insert, update or delete set
// describes a write instead of a SELECT.
package statement

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/afero"
	"gopkg.in/yaml.v3"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/builder"
	"github.com/satishbabariya/sqlbuilder/query/condition"
	"github.com/satishbabariya/sqlbuilder/query/condition/filter"
)

// Kind names what a statement does
type Kind string

const (
	KindSelect Kind = "select"
	KindInsert Kind = "insert"
	KindUpdate Kind = "update"
	KindDelete Kind = "delete"
)

// Statement is a statement described declaratively
type Statement struct {
	Select   []string `yaml:"select"`
	Distinct bool     `yaml:"distinct"`
	From     string   `yaml:"from"`
	Joins    []Join   `yaml:"joins"`
	Where    any      `yaml:"where"`
	GroupBy  []string `yaml:"group_by"`
	Having   any      `yaml:"having"`
	OrderBy  OrderBy  `yaml:"order_by"`
	Limit    *int     `yaml:"limit"`
	Offset   *int     `yaml:"offset"`

	Insert []map[string]any `yaml:"insert"`
	Update map[string]any   `yaml:"update"`
	Delete bool             `yaml:"delete"`

	narrow []condition.Node
}

// Join is one JOIN clause
type Join struct {
	Kind  string `yaml:"kind"`
	Table string `yaml:"table"`
	On    string `yaml:"on"`
	Where any    `yaml:"where"`
}

// Order is one ORDER BY term
type Order struct {
	Field string `yaml:"field"`
	Dir   string `yaml:"dir"`
}

// OrderBy is written either as a list of terms or as a field to direction
// mapping, which is applied in ascending field order
type OrderBy []Order

// UnmarshalYAML accepts both forms
func (o *OrderBy) UnmarshalYAML(node *yaml.Node) error {
	if node.Kind == yaml.MappingNode {
		var m map[string]string
		if err := node.Decode(&m); err != nil {
			return err
		}
		fields := make([]string, 0, len(m))
		for f := range m {
			fields = append(fields, f)
		}
		sort.Strings(fields)
		for _, f := range fields {
			*o = append(*o, Order{Field: f, Dir: m[f]})
		}
		return nil
	}
	var list []Order
	if err := node.Decode(&list); err != nil {
		return err
	}
	*o = list
	return nil
}

// Kind reports whether the statement reads or writes
func (s *Statement) Kind() Kind {
	switch {
	case len(s.Insert) > 0:
		return KindInsert
	case len(s.Update) > 0:
		return KindUpdate
	case s.Delete:
		return KindDelete
	}
	return KindSelect
}

// Parse decodes a statement. Unknown keys are rejected.
func Parse(data []byte) (*Statement, error) {
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)

	var s Statement
	if err := dec.Decode(&s); err != nil {
		return nil, fmt.Errorf("invalid statement: %w", err)
	}
	if strings.TrimSpace(s.From) == "" {
		return nil, fmt.Errorf("invalid statement: from is required")
	}
	writes := 0
	for _, set := range []bool{len(s.Insert) > 0, len(s.Update) > 0, s.Delete} {
		if set {
			writes++
		}
	}
	if writes > 1 {
		return nil, fmt.Errorf("invalid statement: insert, update and delete are exclusive")
	}
	return &s, nil
}

// Load reads and decodes a statement file from fs
func Load(fs afero.Fs, path string) (*Statement, error) {
	data, err := afero.ReadFile(fs, path)
	if err != nil {
		return nil, err
	}
	s, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}
	return s, nil
}

// Apply adds the statement's clauses to b. Condition syntax errors are
// returned directly; everything else is reported by b's next terminal call.
func (s *Statement) Apply(b *builder.Builder) (*builder.Builder, error) {
	b.Select(s.Select...)
	if s.Distinct {
		b.Distinct()
	}
	b.From(s.From)

	for i, j := range s.Joins {
		kind, err := joinKind(j.Kind)
		if err != nil {
			return nil, fmt.Errorf("join %d: %w", i, err)
		}
		var where []any
		if j.Where != nil {
			node, err := conditionOf(j.Where)
			if err != nil {
				return nil, fmt.Errorf("join %d where: %w", i, err)
			}
			where = append(where, node)
		}
		var on any
		if strings.TrimSpace(j.On) != "" {
			on = condition.SQL(j.On)
		}
		b.Join(kind, j.Table, on, where...)
	}

	if s.Where != nil {
		node, err := conditionOf(s.Where)
		if err != nil {
			return nil, fmt.Errorf("where: %w", err)
		}
		b.Where(node)
	}
	for _, node := range s.narrow {
		b.AndWhere(node)
	}
	b.GroupBy(s.GroupBy...)
	if s.Having != nil {
		node, err := conditionOf(s.Having)
		if err != nil {
			return nil, fmt.Errorf("having: %w", err)
		}
		b.Having(node)
	}
	for _, o := range s.OrderBy {
		b.OrderBy(o.Field, o.Dir)
	}
	if s.Limit != nil {
		b.Limit(*s.Limit)
	}
	if s.Offset != nil {
		b.Offset(*s.Offset)
	}
	return b, nil
}

// Narrow ANDs node onto the WHERE condition when the statement is applied
func (s *Statement) Narrow(node condition.Node) {
	if node != nil {
		s.narrow = append(s.narrow, node)
	}
}

// Query applies the statement to b and renders it without running it
func (s *Statement) Query(b *builder.Builder) (*query.Query, error) {
	if _, err := s.Apply(b); err != nil {
		return nil, err
	}
	switch s.Kind() {
	case KindInsert:
		return b.InsertQuery(s.Insert...)
	case KindUpdate:
		return b.UpdateQuery(s.Update)
	case KindDelete:
		return b.DeleteQuery()
	}
	return b.GetQuery()
}

// conditionOf parses filter strings and passes condition shapes through
func conditionOf(v any) (condition.Node, error) {
	if text, ok := v.(string); ok {
		return filter.Parse(text)
	}
	return condition.Parse(v)
}

func joinKind(kind string) (builder.JoinKind, error) {
	switch strings.ToUpper(strings.TrimSpace(kind)) {
	case "", "INNER":
		return builder.JoinInner, nil
	case "LEFT":
		return builder.JoinLeft, nil
	case "RIGHT":
		return builder.JoinRight, nil
	case "FULL":
		return builder.JoinFull, nil
	case "CROSS":
		return builder.JoinCross, nil
	}
	return "", fmt.Errorf("unknown join kind %q", kind)
}
