// Package query holds the values shared by the builder, the SQL generator and the executor.
package query

// Kind identifies the statement a query was assembled for.
type Kind int

const (
	KindSelect Kind = iota
	KindInsert
	KindUpdate
	KindDelete
	KindExplain
	KindRaw
)

// String returns the SQL keyword of the statement kind
func (k Kind) String() string {
	switch k {
	case KindSelect:
		return "SELECT"
	case KindInsert:
		return "INSERT"
	case KindUpdate:
		return "UPDATE"
	case KindDelete:
		return "DELETE"
	case KindExplain:
		return "EXPLAIN"
	default:
		return "RAW"
	}
}

// Query represents a compiled statement and its positional arguments
type Query struct {
	Kind Kind
	SQL  string
	Args []any
}

// Result represents the outcome of a write statement
type Result struct {
	RowsAffected int64
	LastInsertID int64
}
