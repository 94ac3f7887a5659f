package sqlgen

import (
	"regexp"
	"strings"
)

var (
	identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$]*(\.[A-Za-z_][A-Za-z0-9_$]*)*(\.\*)?$`)
	aliasPattern      = regexp.MustCompile(`(?i)^(\S+)\s+(?:as\s+)?([A-Za-z_][A-Za-z0-9_$]*)$`)
)

// QuoteIdentifier quotes plain and dotted identifiers with backticks. Anything
// else, such as expressions, * or already quoted names, is returned unchanged.
func QuoteIdentifier(name string) string {
	name = strings.TrimSpace(name)
	if !identifierPattern.MatchString(name) {
		return name
	}
	parts := strings.Split(name, ".")
	for i, p := range parts {
		if p != "*" {
			parts[i] = "`" + p + "`"
		}
	}
	return strings.Join(parts, ".")
}

// QuoteTable quotes a table reference, keeping an alias written as
// "users u" or "users AS u".
func QuoteTable(ref string) string {
	ref = strings.TrimSpace(ref)
	if m := aliasPattern.FindStringSubmatch(ref); m != nil && identifierPattern.MatchString(m[1]) {
		return QuoteIdentifier(m[1]) + " AS " + QuoteIdentifier(m[2])
	}
	return QuoteIdentifier(ref)
}

// QuoteColumn quotes a select-list entry, keeping an "expr AS alias" suffix.
func QuoteColumn(col string) string {
	col = strings.TrimSpace(col)
	if m := aliasPattern.FindStringSubmatch(col); m != nil && identifierPattern.MatchString(m[1]) &&
		strings.Contains(strings.ToUpper(col), " AS ") {
		return QuoteIdentifier(m[1]) + " AS " + QuoteIdentifier(m[2])
	}
	return QuoteIdentifier(col)
}

// TableTarget returns the name a statement uses to refer to a table
// reference: the quoted alias when there is one, else the quoted table.
func TableTarget(ref string) string {
	ref = strings.TrimSpace(ref)
	if m := aliasPattern.FindStringSubmatch(ref); m != nil && identifierPattern.MatchString(m[1]) {
		return QuoteIdentifier(m[2])
	}
	return QuoteIdentifier(ref)
}
