package main

import (
	"context"
	"fmt"
	"time"

	"github.com/Konsultn-Engineering/gsql"
	"github.com/Konsultn-Engineering/gsql/connector"
	"github.com/pkg/errors"
	"github.com/spf13/cobra"
)

// RootOptions holds the connection flags shared by every command.
type RootOptions struct {
	ConfigPath string
	Driver     string
	Host       string
	Port       int
	Database   string
	Username   string
	Password   string
	SSLMode    string
	LogPath    string
	LogLevel   string
	Timeout    time.Duration
	Format     string
}

var validFormats = []string{"json", "text"}

func NewRootCommand() *cobra.Command {
	return newRootCommand(&RootOptions{})
}

func newRootCommand(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "gsql",
		Short: "Run SQL templates and prepared statements",
		Long: `gsql runs a query template or a prepared statement against MySQL,
PostgreSQL or SQLite and prints the result.

Failures are appended to the diagnostics file (--log-path).`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			for _, f := range validFormats {
				if f == opts.Format {
					return nil
				}
			}
			return errors.Errorf("invalid format %q: must be one of %v", opts.Format, validFormats)
		},
	}

	flags := cmd.PersistentFlags()
	flags.StringVarP(&opts.ConfigPath, "config", "c", "", "YAML connection config")
	flags.StringVar(&opts.Driver, "driver", "", "driver name (mysql|postgres|sqlite3)")
	flags.StringVar(&opts.Host, "host", "", "database host")
	flags.IntVar(&opts.Port, "port", 0, "database port")
	flags.StringVarP(&opts.Database, "database", "d", "", "database name, or file path for sqlite3")
	flags.StringVarP(&opts.Username, "user", "u", "", "database user")
	flags.StringVar(&opts.Password, "password", "", "database password")
	flags.StringVar(&opts.SSLMode, "ssl-mode", "", "postgres sslmode")
	flags.StringVar(&opts.LogPath, "log-path", "", "diagnostics file")
	flags.StringVar(&opts.LogLevel, "log-level", "warn", "log level (debug|info|warn|error|none)")
	flags.DurationVar(&opts.Timeout, "timeout", 0, "abort the statement after this long")
	flags.StringVar(&opts.Format, "format", "json", "output format (json|text)")

	cmd.AddCommand(NewQueryCommand(opts))
	cmd.AddCommand(NewExecCommand(opts))
	cmd.AddCommand(NewDriversCommand())

	return cmd
}

// Config merges the config file, if any, with the flags set on cmd.
func (o *RootOptions) Config(cmd *cobra.Command) (connector.Config, error) {
	var cfg connector.Config
	if o.ConfigPath != "" {
		loaded, err := connector.LoadConfig(o.ConfigPath)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}

	flags := cmd.Flags()
	set := func(name string, apply func()) {
		if flags.Changed(name) {
			apply()
		}
	}
	set("driver", func() { cfg.Driver = o.Driver })
	set("host", func() { cfg.Host = o.Host })
	set("port", func() { cfg.Port = o.Port })
	set("database", func() { cfg.Database = o.Database })
	set("user", func() { cfg.Username = o.Username })
	set("password", func() { cfg.Password = o.Password })
	set("ssl-mode", func() { cfg.SSLMode = o.SSLMode })
	set("log-path", func() { cfg.LogPath = o.LogPath })
	set("timeout", func() { cfg.QueryTimeout = o.Timeout })
	if flags.Changed("log-level") || cfg.LogLevel == "" {
		cfg.LogLevel = o.LogLevel
	}

	cfg.ApplyDefaults()
	return cfg, nil
}

func (o *RootOptions) connect(cmd *cobra.Command) (*gsql.Client, error) {
	cfg, err := o.Config(cmd)
	if err != nil {
		return nil, err
	}
	return gsql.Initialize(contextOf(cmd), cfg)
}

func contextOf(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

func NewDriversCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "drivers",
		Short: "List the registered drivers",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			for _, name := range connector.Drivers() {
				fmt.Fprintln(cmd.OutOrStdout(), name)
			}
			return nil
		},
	}
}
