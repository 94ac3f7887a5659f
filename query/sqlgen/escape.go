package sqlgen

import "strings"

var (
	likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	escaper     = strings.NewReplacer(
		"\x00", `\0`,
		"\n", `\n`,
		"\r", `\r`,
		`\`, `\\`,
		`'`, `\'`,
		`"`, `\"`,
		"\x1a", `\Z`,
	)
)

// EscapeLike escapes the LIKE wildcards of s so it matches literally.
func EscapeLike(s string) string {
	return likeEscaper.Replace(s)
}

// Escape escapes s for use inside a quoted MySQL string literal, using the
// character set of mysql_real_escape_string.
func Escape(s string) string {
	return escaper.Replace(s)
}

// Quote escapes s and wraps it in single quotes.
func Quote(s string) string {
	return "'" + Escape(s) + "'"
}
