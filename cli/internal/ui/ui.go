// Package ui renders command output for the terminal.
package ui

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/AlecAivazis/survey/v2"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/fatih/color"
	"github.com/pterm/pterm"
)

var (
	// Colors
	PrimaryColor   = lipgloss.Color("#00D9FF")
	SuccessColor   = lipgloss.Color("#00FF88")
	WarningColor   = lipgloss.Color("#FFB800")
	ErrorColor     = lipgloss.Color("#FF4444")
	SecondaryColor = lipgloss.Color("#6C757D")

	// Styles
	SuccessStyle = lipgloss.NewStyle().
			Foreground(SuccessColor).
			Bold(true)

	ErrorStyle = lipgloss.NewStyle().
			Foreground(ErrorColor).
			Bold(true)

	WarningStyle = lipgloss.NewStyle().
			Foreground(WarningColor).
			Bold(true)

	SecondaryStyle = lipgloss.NewStyle().
			Foreground(SecondaryColor)

	SQLStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(PrimaryColor).
			Padding(0, 1)

	// ParamColor highlights bound parameter values
	ParamColor = color.New(color.FgCyan)
)

// PrintSuccess prints a success message
func PrintSuccess(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, SuccessStyle.Render("✓ "+fmt.Sprintf(format, args...)))
}

// PrintError prints an error message to stderr
func PrintError(format string, args ...any) {
	fmt.Fprintln(os.Stderr, ErrorStyle.Render("✗ "+fmt.Sprintf(format, args...)))
}

// PrintWarning prints a warning message
func PrintWarning(w io.Writer, format string, args ...any) {
	fmt.Fprintln(w, WarningStyle.Render("⚠ "+fmt.Sprintf(format, args...)))
}

// PrintSQL prints a statement in a box followed by its parameters
func PrintSQL(w io.Writer, sql string, params []any) {
	fmt.Fprintln(w, SQLStyle.Render(sql))
	if len(params) == 0 {
		fmt.Fprintln(w, SecondaryStyle.Render("no parameters"))
		return
	}
	for i, p := range params {
		fmt.Fprintf(w, "%s %s\n", SecondaryStyle.Render(fmt.Sprintf("$%d", i+1)), ParamColor.Sprint(FormatValue(p)))
	}
}

// SQLMarkdown formats a statement and its parameters as markdown
func SQLMarkdown(title, sql string, params []any) string {
	var b strings.Builder
	if title != "" {
		fmt.Fprintf(&b, "## %s\n\n", title)
	}
	fmt.Fprintf(&b, "```sql\n%s\n```\n", sql)
	if len(params) > 0 {
		b.WriteString("\n| # | value |\n|---|---|\n")
		for i, p := range params {
			fmt.Fprintf(&b, "| %d | `%s` |\n", i+1, FormatValue(p))
		}
	}
	return b.String()
}

// PrintMarkdown renders markdown content
func PrintMarkdown(w io.Writer, content string) error {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(100),
	)
	if err != nil {
		return err
	}

	out, err := r.Render(content)
	if err != nil {
		return err
	}

	_, err = fmt.Fprint(w, out)
	return err
}

// TableData converts rows to a header line followed by one line per row.
// Columns are sorted by name.
func TableData(rows []map[string]any) [][]string {
	if len(rows) == 0 {
		return nil
	}
	headers := make([]string, 0, len(rows[0]))
	for col := range rows[0] {
		headers = append(headers, col)
	}
	sort.Strings(headers)

	data := [][]string{headers}
	for _, row := range rows {
		line := make([]string, len(headers))
		for i, col := range headers {
			line[i] = FormatValue(row[col])
		}
		data = append(data, line)
	}
	return data
}

// PrintRows prints rows as a table
func PrintRows(w io.Writer, rows []map[string]any) error {
	if len(rows) == 0 {
		fmt.Fprintln(w, SecondaryStyle.Render("(0 rows)"))
		return nil
	}
	if err := pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(TableData(rows)).Render(); err != nil {
		return err
	}
	fmt.Fprintln(w, SecondaryStyle.Render(fmt.Sprintf("(%d rows)", len(rows))))
	return nil
}

// FormatValue renders a column or parameter value
func FormatValue(v any) string {
	switch x := v.(type) {
	case nil:
		return "NULL"
	case []byte:
		return string(x)
	case string:
		return x
	default:
		return fmt.Sprint(x)
	}
}

// PromptPassword asks for a password without echoing it
func PromptPassword(message string) (string, error) {
	var password string
	err := survey.AskOne(&survey.Password{Message: message}, &password)
	return password, err
}
