package builder

import (
	"context"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/condition"
)

// State is a snapshot of a builder's clause state
type State struct {
	Select          []string
	Option          string
	Table           string
	Joins           []string
	Where           condition.Node
	GroupBy         []string
	Having          condition.Node
	OrderBy         []string
	Limit           *int
	Offset          *int
	JoinParams      []any
	ConditionParams []any
	Err             error
}

// Empty reports whether no clause has been set
func (s *State) Empty() bool {
	return len(s.Select) == 0 && s.Option == "" && s.Table == "" && len(s.Joins) == 0 &&
		s.Where == nil && len(s.GroupBy) == 0 && s.Having == nil && len(s.OrderBy) == 0 &&
		s.Limit == nil && s.Offset == nil && len(s.JoinParams) == 0 &&
		len(s.ConditionParams) == 0 && s.Err == nil
}

// State returns a snapshot of the clause state without consuming it. The
// condition parameters are those WHERE and HAVING would bind if built now.
func (b *Builder) State() *State {
	c := b.clauses()
	s := &State{
		Select:     append([]string(nil), b.state.columns...),
		Option:     b.state.option,
		Table:      b.state.table,
		Joins:      append([]string(nil), b.state.joins...),
		Where:      b.state.where,
		GroupBy:    append([]string(nil), b.state.groupBy...),
		Having:     b.state.having,
		OrderBy:    append([]string(nil), b.state.orderBy...),
		Limit:      b.state.limit,
		Offset:     b.state.offset,
		JoinParams: append(append([]any(nil), c.ColumnArgs...), c.JoinArgs...),
		Err:        b.state.err,
	}
	if len(s.JoinParams) == 0 {
		s.JoinParams = nil
	}
	if conds, err := b.gen.CompileConditions(c); err == nil {
		if len(conds.Args) > 0 {
			s.ConditionParams = conds.Args
		}
	} else if s.Err == nil {
		s.Err = err
	}
	return s
}

// DumpQuery returns the clause state and resets the builder
func (b *Builder) DumpQuery() *State {
	defer b.reset()
	return b.State()
}

// GetQuery renders the SELECT statement and resets the builder
func (b *Builder) GetQuery() (*query.Query, error) {
	defer b.reset()
	return b.buildSelect()
}

func (b *Builder) buildSelect() (*query.Query, error) {
	if b.state.err != nil {
		return nil, b.state.err
	}
	return b.gen.GenerateSelect(b.clauses())
}

// All runs the SELECT and returns every row
func (b *Builder) All(ctx context.Context) ([]map[string]any, error) {
	defer b.reset()
	q, err := b.buildSelect()
	if err != nil {
		return nil, err
	}
	return b.fetch(ctx, q)
}

// One runs the SELECT with LIMIT 1 and returns the row, or nil when there is none
func (b *Builder) One(ctx context.Context) (map[string]any, error) {
	defer b.reset()
	one := 1
	b.state.limit = &one
	q, err := b.buildSelect()
	if err != nil {
		return nil, err
	}
	rows, err := b.fetch(ctx, q)
	if err != nil || len(rows) == 0 {
		return nil, err
	}
	return rows[0], nil
}

// Explain runs EXPLAIN for the SELECT and returns the plan rows
func (b *Builder) Explain(ctx context.Context) ([]map[string]any, error) {
	defer b.reset()
	if b.state.err != nil {
		return nil, b.state.err
	}
	q, err := b.gen.GenerateExplain(b.clauses())
	if err != nil {
		return nil, err
	}
	return b.fetch(ctx, q)
}

// ExplainQuery renders the EXPLAIN statement and resets the builder
func (b *Builder) ExplainQuery() (*query.Query, error) {
	defer b.reset()
	if b.state.err != nil {
		return nil, b.state.err
	}
	return b.gen.GenerateExplain(b.clauses())
}
