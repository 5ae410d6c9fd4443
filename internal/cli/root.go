package cli

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"expensetracker/internal/config"
	applog "expensetracker/internal/log"
	"expensetracker/internal/mcpserver"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath   string
	LogLevel string

	Config *config.Config
	Logger *applog.Logger
}

// NewRootCommand creates the root command for the expensetracker CLI.
func NewRootCommand() *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:           "expensetracker",
		Short:         "Record, list and summarize expenses",
		Long:          "Expense tracker backed by a single SQLite file, served to assistants over the Model Context Protocol.",
		Version:       mcpserver.Version,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			LoadEnvFile()

			cfg, err := LoadAndValidateConfig(func(c *config.Config) {
				if cmd.Flags().Changed("db") {
					c.SQLiteDBPath = opts.DBPath
				}
				if cmd.Flags().Changed("log-level") {
					c.LogLevel = opts.LogLevel
				}
				// Only serve defines --transport.
				if f := cmd.Flags().Lookup("transport"); f != nil && f.Changed {
					c.Transport = f.Value.String()
				}
			})
			if err != nil {
				return err
			}
			opts.Config = cfg

			// stdout is reserved for command output and protocol frames
			logger, err := SetupLogger(cfg.LogLevel, cmd.ErrOrStderr())
			if err != nil {
				return err
			}
			opts.Logger = logger
			return nil
		},
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", "", "SQLite database file (overrides SQLITE_DB_PATH)")
	cmd.PersistentFlags().StringVar(&opts.LogLevel, "log-level", "", "log level: debug|info|warn|error (overrides LOG_LEVEL)")

	cmd.AddCommand(NewServeCommand(opts))
	cmd.AddCommand(NewAddCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewSummarizeCommand(opts))
	cmd.AddCommand(NewCategoriesCommand(opts))

	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	return nil
}
