package commands

import (
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlbuilder/cli/internal/config"
	"github.com/satishbabariya/sqlbuilder/cli/internal/statement"
	"github.com/satishbabariya/sqlbuilder/cli/internal/ui"
	"github.com/satishbabariya/sqlbuilder/cli/internal/watch"
	"github.com/satishbabariya/sqlbuilder/internal/logging"
	"github.com/satishbabariya/sqlbuilder/query"
	"github.com/satishbabariya/sqlbuilder/query/builder"
	"github.com/satishbabariya/sqlbuilder/query/condition"
	"github.com/satishbabariya/sqlbuilder/query/condition/filter"
	"github.com/satishbabariya/sqlbuilder/query/sqlgen"
)

// CompileOptions holds options for the compile command
type CompileOptions struct {
	Filter   string
	Watch    bool
	Markdown bool
}

func newCompileCommand(a *app) *cobra.Command {
	opts := &CompileOptions{}

	cmd := &cobra.Command{
		Use:   "compile [file]",
		Short: "Render a statement file or filter expression to SQL",
		Long: `Render a statement to SQL and its bound parameters without connecting.

The statement is read from a YAML or JSON file, or from stdin when the file
is "-". With --filter alone only the condition is rendered; combined with a
file it is ANDed onto the statement's WHERE clause.`,
		Example: `  sqlbuilder compile report.yaml
  sqlbuilder compile --filter "age >= 18 AND status IN (1, 2)"
  sqlbuilder compile report.yaml --filter "team = 'red'" --markdown
  sqlbuilder compile report.yaml --watch`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) > 0 {
				path = args[0]
			}
			if path == "" && opts.Filter == "" {
				return errors.New("a statement file or --filter is required")
			}
			if opts.Watch && (path == "" || path == "-") {
				return errors.New("--watch requires a statement file")
			}

			render := func() error {
				q, err := a.compile(cmd.InOrStdin(), path, opts.Filter)
				if err != nil {
					return err
				}
				if opts.Markdown {
					return ui.PrintMarkdown(cmd.OutOrStdout(), ui.SQLMarkdown(path, q.SQL, q.Args))
				}
				ui.PrintSQL(cmd.OutOrStdout(), q.SQL, q.Args)
				return nil
			}
			if !opts.Watch {
				return render()
			}

			w, err := watch.New(path, render, watch.WithLogger(logging.Logger()))
			if err != nil {
				return err
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt)
			defer stop()
			return w.Run(ctx)
		},
	}

	cmd.Flags().StringVarP(&opts.Filter, "filter", "f", "", "Filter expression to render or AND onto the statement")
	cmd.Flags().BoolVarP(&opts.Watch, "watch", "w", false, "Re-render when the file changes")
	cmd.Flags().BoolVar(&opts.Markdown, "markdown", false, "Render as markdown")

	return cmd
}

// compile renders the statement at path, or the filter alone when path is empty
func (a *app) compile(stdin io.Reader, path, filterExpr string) (*query.Query, error) {
	var narrow condition.Node
	if filterExpr != "" {
		node, err := filter.Parse(filterExpr)
		if err != nil {
			return nil, err
		}
		if path == "" {
			sql, params, err := sqlgen.Compile(node, sqlgen.ModeBound)
			if err != nil {
				return nil, err
			}
			return &query.Query{Kind: query.KindRaw, SQL: sql, Args: params}, nil
		}
		narrow = node
	}

	s, err := loadStatement(stdin, path)
	if err != nil {
		return nil, err
	}
	s.Narrow(narrow)
	return s.Query(builder.New(nil, builder.WithStrict(a.cfg.Strict)))
}

// loadStatement reads a statement from AppFs, or from stdin when path is "-"
func loadStatement(stdin io.Reader, path string) (*statement.Statement, error) {
	if path != "-" {
		return statement.Load(config.AppFs, path)
	}
	data, err := io.ReadAll(stdin)
	if err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return statement.Parse(data)
}
