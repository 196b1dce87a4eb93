package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/HerbHall/stampd/internal/backup"
	"github.com/HerbHall/stampd/internal/querysql"
)

func newBackupCommand(opts *rootOptions) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "backup",
		Short: "Archive the SQLite database and config file",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			dbPath, err := sqlitePath(opts)
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("stampd-backup-%s.tar.gz", time.Now().Format("20060102-150405"))
			}

			m, err := backup.Backup(cmd.Context(), dbPath, opts.ConfigPath, output)
			if err != nil {
				return fmt.Errorf("backup failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Backup created: %s (%d files)\n", output, len(m.Files))
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file path (default: stampd-backup-{timestamp}.tar.gz)")
	return cmd
}

func newRestoreCommand(opts *rootOptions) *cobra.Command {
	var input, dataDir string
	var force bool

	cmd := &cobra.Command{
		Use:   "restore",
		Short: "Restore files from a backup archive",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			m, err := backup.Restore(cmd.Context(), input, dataDir, force)
			if err != nil {
				return fmt.Errorf("restore failed: %w", err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Restore complete: %d files restored to %s\n", len(m.Files), dataDir)
			return nil
		},
	}

	cmd.Flags().StringVarP(&input, "input", "i", "", "backup archive to restore (required)")
	cmd.Flags().StringVar(&dataDir, "data-dir", ".", "target directory for restored files")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite existing files")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func sqlitePath(opts *rootOptions) (string, error) {
	dialect, err := querysql.ParseDialect(opts.cfg.GetString("database.driver"))
	if err != nil {
		return "", err
	}
	if dialect != querysql.SQLite {
		return "", fmt.Errorf("backup supports the sqlite driver only, configured %s", dialect)
	}
	return opts.cfg.GetString("database.dsn"), nil
}
