package commands

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlbuilder/cli/internal/config"
	"github.com/satishbabariya/sqlbuilder/cli/internal/statement"
	"github.com/satishbabariya/sqlbuilder/cli/internal/ui"
	"github.com/satishbabariya/sqlbuilder/cli/internal/version"
	"github.com/satishbabariya/sqlbuilder/query/builder"
	"github.com/satishbabariya/sqlbuilder/query/condition/filter"
	"github.com/satishbabariya/sqlbuilder/runtime/client"
)

// statementRunner runs an applied statement against an open connection
type statementRunner func(ctx context.Context, cmd *cobra.Command, s *statement.Statement, b *builder.Builder) error

// runStatement loads the statement named by args, opens the connection and
// hands both to run
func (a *app) runStatement(cmd *cobra.Command, args []string, filterExpr string, run statementRunner) error {
	s, err := loadStatement(cmd.InOrStdin(), args[0])
	if err != nil {
		return err
	}
	if filterExpr != "" {
		node, err := filter.Parse(filterExpr)
		if err != nil {
			return err
		}
		s.Narrow(node)
	}

	ctx := cmd.Context()
	db, err := a.open(ctx)
	if err != nil {
		return err
	}
	defer db.Close()

	b, err := s.Apply(db.Builder())
	if err != nil {
		return err
	}
	return run(ctx, cmd, s, b)
}

func newQueryCommand(a *app) *cobra.Command {
	var filterExpr string

	cmd := &cobra.Command{
		Use:   "query <file>",
		Short: "Run a SELECT statement file and print the rows",
		Example: `  sqlbuilder query report.yaml
  sqlbuilder query report.yaml --filter "team = 'red'"
  cat report.yaml | sqlbuilder query -`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatement(cmd, args, filterExpr, func(ctx context.Context, cmd *cobra.Command, s *statement.Statement, b *builder.Builder) error {
				if s.Kind() != statement.KindSelect {
					return fmt.Errorf("%s statements are run with exec", s.Kind())
				}
				rows, err := b.All(ctx)
				if err != nil {
					return err
				}
				return ui.PrintRows(cmd.OutOrStdout(), rows)
			})
		},
	}
	cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "Filter expression ANDed onto the statement")
	return cmd
}

func newExecCommand(a *app) *cobra.Command {
	var filterExpr string

	cmd := &cobra.Command{
		Use:   "exec <file>",
		Short: "Run an insert, update or delete statement file",
		Example: `  sqlbuilder exec seed-users.yaml
  sqlbuilder exec archive.yaml --filter "created_at < '2020-01-01'"`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatement(cmd, args, filterExpr, func(ctx context.Context, cmd *cobra.Command, s *statement.Statement, b *builder.Builder) error {
				var (
					affected int64
					err      error
				)
				switch s.Kind() {
				case statement.KindInsert:
					affected, err = b.InsertAll(ctx, s.Insert)
				case statement.KindUpdate:
					affected, err = b.Update(ctx, s.Update)
				case statement.KindDelete:
					affected, err = b.Delete(ctx)
				default:
					return fmt.Errorf("select statements are run with query")
				}
				if err != nil {
					return err
				}
				ui.PrintSuccess(cmd.OutOrStdout(), "%s: %d rows affected", s.Kind(), affected)
				return nil
			})
		},
	}
	cmd.Flags().StringVarP(&filterExpr, "filter", "f", "", "Filter expression ANDed onto the statement")
	return cmd
}

func newExplainCommand(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "explain <file>",
		Short: "Show the execution plan of a SELECT statement file",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return a.runStatement(cmd, args, "", func(ctx context.Context, cmd *cobra.Command, s *statement.Statement, b *builder.Builder) error {
				if s.Kind() != statement.KindSelect {
					return fmt.Errorf("only select statements can be explained")
				}
				plan, err := b.Explain(ctx)
				if err != nil {
					return err
				}
				return ui.PrintRows(cmd.OutOrStdout(), plan)
			})
		},
	}
}

func newConfigCommand(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Inspect or save the connection settings",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg := *a.cfg
			if cfg.Password != "" {
				cfg.Password = "********"
			}
			return ui.PrintRows(cmd.OutOrStdout(), []map[string]any{{
				"driver":   cfg.DriverName(),
				"host":     cfg.Host,
				"port":     cfg.Port,
				"username": cfg.Username,
				"password": cfg.Password,
				"database": cfg.Database,
				"strict":   cfg.Strict,
			}})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "save",
		Short: "Write the current settings, without the password, to ~/.config/sqlbuilder",
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := config.Save(a.cfg)
			if err != nil {
				return err
			}
			ui.PrintSuccess(cmd.OutOrStdout(), "saved %s", path)
			return nil
		},
	})
	return cmd
}

func newVersionCommand(a *app) *cobra.Command {
	var server bool

	cmd := &cobra.Command{
		Use:   "version",
		Short: "Show version information",
		Long:  `Display sqlbuilder build information and, with --server, the connected MySQL version.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			out := cmd.OutOrStdout()
			_, _ = fmt.Fprintln(out, version.Get().FullString())
			if !server {
				return nil
			}

			db, err := a.open(cmd.Context())
			if err != nil {
				return err
			}
			defer db.Close()

			v, err := db.ServerVersion(cmd.Context())
			if err != nil {
				return err
			}
			if err := client.CheckServerVersion(v); err != nil {
				ui.PrintWarning(out, "%v", err)
				return nil
			}
			ui.PrintSuccess(out, "server version %s (minimum %s)", v, client.MinServerVersion)
			return nil
		},
	}
	cmd.Flags().BoolVar(&server, "server", false, "Also query and check the server version")
	return cmd
}
