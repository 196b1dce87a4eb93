package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/HerbHall/stampd/internal/config"
	"github.com/HerbHall/stampd/internal/querysql"
	"github.com/HerbHall/stampd/internal/store"
)

// rootOptions holds global flags for all commands.
type rootOptions struct {
	ConfigPath string
	Driver     string
	DSN        string
	LogLevel   string

	// set by PersistentPreRunE
	cfg *config.ViperConfig
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}

	cmd := &cobra.Command{
		Use:           "stampd",
		Short:         "stampd - timestamp proof request service",
		Long:          "Serves stamps over HTTP and manages the stamps database.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := config.Load(opts.ConfigPath)
			if err != nil {
				return err
			}
			flags := cmd.Flags()
			bindings := map[string]string{
				"database.driver": "driver",
				"database.dsn":    "dsn",
				"log.level":       "log-level",
			}
			for key, name := range bindings {
				if err := cfg.BindPFlag(key, flags.Lookup(name)); err != nil {
					return err
				}
			}
			opts.cfg = cfg
			return nil
		},
	}

	pf := cmd.PersistentFlags()
	pf.StringVarP(&opts.ConfigPath, "config", "c", "", "path to configuration file")
	pf.StringVar(&opts.Driver, "driver", "sqlite", "database driver (sqlite|postgres)")
	pf.StringVar(&opts.DSN, "dsn", "stampd.db", "database path or connection string")
	pf.StringVar(&opts.LogLevel, "log-level", "info", "log level (debug|info|warn|error)")

	cmd.AddCommand(newServeCommand(opts))
	cmd.AddCommand(newSeedCommand(opts))
	cmd.AddCommand(newCreateStampCommand(opts))
	cmd.AddCommand(newBackupCommand(opts))
	cmd.AddCommand(newRestoreCommand(opts))
	cmd.AddCommand(newVersionCommand())

	return cmd
}

// newLogger builds the process logger from log.level and log.development.
func newLogger(cfg config.Config) (*zap.Logger, error) {
	level, err := zapcore.ParseLevel(strings.ToLower(cfg.GetString("log.level")))
	if err != nil {
		return nil, fmt.Errorf("log.level: %w", err)
	}

	zc := zap.NewProductionConfig()
	if cfg.GetBool("log.development") {
		zc = zap.NewDevelopmentConfig()
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}

// openStore connects to the configured database.
func openStore(ctx context.Context, cfg config.Config) (*store.Store, error) {
	dialect, err := querysql.ParseDialect(cfg.GetString("database.driver"))
	if err != nil {
		return nil, err
	}
	return store.Open(ctx, dialect, cfg.GetString("database.dsn"))
}
