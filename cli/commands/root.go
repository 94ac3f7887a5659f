// Package commands implements the sqlbuilder command line.
package commands

import (
	"context"
	"fmt"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/satishbabariya/sqlbuilder/cli/internal/config"
	"github.com/satishbabariya/sqlbuilder/cli/internal/ui"
	"github.com/satishbabariya/sqlbuilder/cli/internal/version"
	"github.com/satishbabariya/sqlbuilder/internal/logging"
	"github.com/satishbabariya/sqlbuilder/runtime/client"
	"github.com/satishbabariya/sqlbuilder/telemetry"
)

// app holds the global flags and the state shared by subcommands
type app struct {
	cfgFile     string
	askPassword bool
	debug       bool
	stats       bool

	cfg     *client.Config
	metrics *telemetry.Metrics
}

// NewRootCmd creates and returns the root command
func NewRootCmd() *cobra.Command {
	a := &app{}

	rootCmd := &cobra.Command{
		Use:   "sqlbuilder",
		Short: "Compile and run MySQL statements",
		Long: `sqlbuilder renders statements described in YAML or JSON files, or filter
expressions, to parameterized MySQL and optionally runs them.`,
		Version:           version.Version,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, _ []string) error {
			return a.printStats(cmd)
		},
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "", "config file (default: .sqlbuilder.yaml in ., ~ or ~/.config/sqlbuilder)")
	rootCmd.PersistentFlags().BoolVar(&a.askPassword, "ask-password", false, "Prompt for the database password")
	rootCmd.PersistentFlags().BoolVar(&a.debug, "debug", false, "Log every statement at debug level")
	rootCmd.PersistentFlags().BoolVar(&a.stats, "stats", false, "Print statement metrics after the command")

	rootCmd.AddCommand(newCompileCommand(a))
	rootCmd.AddCommand(newQueryCommand(a))
	rootCmd.AddCommand(newExecCommand(a))
	rootCmd.AddCommand(newExplainCommand(a))
	rootCmd.AddCommand(newConfigCommand(a))
	rootCmd.AddCommand(newVersionCommand(a))

	return rootCmd
}

// Execute runs the root command
func Execute() error {
	rootCmd := NewRootCmd()
	if err := rootCmd.Execute(); err != nil {
		ui.PrintError("%v", err)
		return err
	}
	return nil
}

func (a *app) setup(cmd *cobra.Command, _ []string) error {
	if cmd.Name() == "help" || cmd.Name() == "completion" || cmd.Name() == "__complete" {
		return nil
	}

	cfg, err := config.Load(a.cfgFile)
	if err != nil {
		return err
	}
	if a.debug {
		cfg.Log.Enabled = true
		cfg.Log.Level = "debug"
	}
	if err := logging.Init(logging.Options{
		Enabled: cfg.Log.Enabled,
		Level:   cfg.Log.Level,
		Format:  cfg.Log.Format,
		Output:  cmd.ErrOrStderr(),
	}); err != nil {
		return fmt.Errorf("invalid log config: %w", err)
	}

	if a.askPassword {
		password, err := ui.PromptPassword("Database password:")
		if err != nil {
			return err
		}
		cfg.Password = password
	}

	a.cfg = cfg
	logging.Debug("configuration loaded", "driver", cfg.DriverName(), "host", cfg.Host, "database", cfg.Database)
	return nil
}

// open connects with the loaded configuration
func (a *app) open(ctx context.Context) (*client.DB, error) {
	var opts []client.Option
	if logging.Enabled() {
		opts = append(opts, client.WithLogger(logging.Logger()))
	}
	if a.stats {
		m, err := telemetry.NewMetrics(nil)
		if err != nil {
			return nil, err
		}
		a.metrics = m
		opts = append(opts, client.WithMiddleware(m.Middleware()))
	}
	return client.Open(ctx, *a.cfg, opts...)
}

func (a *app) printStats(cmd *cobra.Command) error {
	if a.metrics == nil {
		return nil
	}
	samples, err := a.metrics.Snapshot()
	if err != nil {
		return err
	}
	rows := make([]map[string]any, 0, len(samples))
	for _, s := range samples {
		labels := make([]string, 0, len(s.Labels))
		for k, v := range s.Labels {
			labels = append(labels, k+"="+v)
		}
		sort.Strings(labels)
		rows = append(rows, map[string]any{
			"metric": s.Name,
			"labels": strings.Join(labels, ","),
			"value":  s.Value,
		})
	}
	return ui.PrintRows(cmd.OutOrStdout(), rows)
}
