package filter

import (
	"github.com/alecthomas/participle/v2/lexer"
)

// filterLexer defines the token types of the filter language
var filterLexer = lexer.MustSimple([]lexer.SimpleRule{
	// Keywords are matched case-insensitively by the parser
	{Name: "Keyword", Pattern: `(?i)\b(AND|OR|NOT|IN|IS|NULL|BETWEEN|LIKE|TRUE|FALSE)\b`},

	// Identifiers, optionally dotted or backtick-quoted
	{Name: "Ident", Pattern: "(?:`[^`]+`|[a-zA-Z_][a-zA-Z0-9_]*)(?:\\.(?:`[^`]+`|[a-zA-Z_][a-zA-Z0-9_]*))*"},

	// Literals
	{Name: "String", Pattern: `'(?:\\.|''|[^'\\])*'|"(?:\\.|[^"\\])*"`},
	{Name: "Number", Pattern: `-?\d+(?:\.\d+)?`},

	// Operators and punctuation
	{Name: "Operator", Pattern: `<>|!=|<=|>=|=|<|>`},
	{Name: "Punct", Pattern: `[(),]`},

	{Name: "Whitespace", Pattern: `\s+`},
})
