package builder

import (
	"fmt"
	"strings"

	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/condition"
	"github.com/satishbabariya/sqlbuilder/query/sqlgen"
)

// Aliased is a table or subquery with an alias, produced by As
type Aliased struct {
	Alias  string
	Source any
}

// As aliases a table name or a subquery for use in From and Join.
// Subqueries in FROM must be aliased.
func As(alias string, source any) Aliased {
	return Aliased{Alias: alias, Source: source}
}

// ToSQL renders the builder as a SELECT for embedding in another statement
// and resets it. The returned parameters are in placeholder order.
func (b *Builder) ToSQL() (string, []any, error) {
	q, err := b.GetQuery()
	if err != nil {
		return "", nil, err
	}
	return q.SQL, q.Args, nil
}

// renderSource renders a FROM or JOIN source
func renderSource(src any) (string, []any, error) {
	switch s := src.(type) {
	case string:
		if strings.TrimSpace(s) == "" {
			return "", nil, query.Invalid("empty table name")
		}
		return sqlgen.QuoteTable(s), nil, nil
	case Aliased:
		if strings.TrimSpace(s.Alias) == "" {
			return "", nil, query.Invalid("empty alias")
		}
		alias := sqlgen.QuoteIdentifier(s.Alias)
		switch inner := s.Source.(type) {
		case string:
			if strings.TrimSpace(inner) == "" {
				return "", nil, query.Invalid("empty table name")
			}
			return sqlgen.QuoteIdentifier(inner) + " AS " + alias, nil, nil
		case condition.Subquery:
			sql, params, err := inner.ToSQL()
			if err != nil {
				return "", nil, fmt.Errorf("subquery %s: %w", s.Alias, err)
			}
			return "(" + sql + ") AS " + alias, params, nil
		}
		return "", nil, query.Invalid("unsupported source %T for alias %s", s.Source, s.Alias)
	case condition.Subquery:
		return "", nil, query.Invalid("subquery sources must be aliased with As")
	}
	return "", nil, query.Invalid("unsupported table source %T", src)
}

// sourceTarget is the name a write statement uses for a FROM source
func sourceTarget(src any) string {
	switch s := src.(type) {
	case string:
		return sqlgen.TableTarget(s)
	case Aliased:
		return sqlgen.QuoteIdentifier(s.Alias)
	}
	return ""
}
