package sqlgen

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestEscapeLike(t *testing.T) {
	assert.Equal(t, `100\%`, EscapeLike("100%"))
	assert.Equal(t, `a\_b`, EscapeLike("a_b"))
	assert.Equal(t, `c:\\dir`, EscapeLike(`c:\dir`))
	assert.Equal(t, "plain", EscapeLike("plain"))
}

func TestEscape(t *testing.T) {
	assert.Equal(t, `O\'Brien`, Escape("O'Brien"))
	assert.Equal(t, `line\nbreak`, Escape("line\nbreak"))
	assert.Equal(t, `\0\Z\"`, Escape("\x00\x1a\""))
	assert.Equal(t, `'it\'s'`, Quote("it's"))
}

func TestQuoteIdentifier(t *testing.T) {
	tests := map[string]string{
		"name":          "`name`",
		"users.name":    "`users`.`name`",
		"users.*":       "`users`.*",
		"*":             "*",
		"`already`":     "`already`",
		"COUNT(*)":      "COUNT(*)",
		" padded ":      "`padded`",
		"a.b.c":         "`a`.`b`.`c`",
		"price * 2":     "price * 2",
		"1starts_digit": "1starts_digit",
	}
	for in, want := range tests {
		assert.Equal(t, want, QuoteIdentifier(in), in)
	}
}

func TestQuoteTable(t *testing.T) {
	assert.Equal(t, "`users`", QuoteTable("users"))
	assert.Equal(t, "`users` AS `u`", QuoteTable("users u"))
	assert.Equal(t, "`users` AS `u`", QuoteTable("users as u"))
	assert.Equal(t, "`db`.`users` AS `u`", QuoteTable("db.users AS u"))
}

func TestQuoteColumn(t *testing.T) {
	assert.Equal(t, "`id`", QuoteColumn("id"))
	assert.Equal(t, "`u`.`name` AS `n`", QuoteColumn("u.name AS n"))
	assert.Equal(t, "COUNT(*) AS total", QuoteColumn("COUNT(*) AS total"))
}
