package commands

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ramonehamilton/draftlab/internal/config"
	"github.com/ramonehamilton/draftlab/internal/storage"
)

// migrator is the schema manager of the running migrate subcommand.
var migrator *storage.MigrationManager

func init() {
	migrateDownCmd.Flags().Bool("yes", false, "confirm dropping every table")

	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd, migrateVersionCmd)
	rootCmd.AddCommand(migrateCmd)
}

// migrateCmd replaces the root hooks so the store is not opened, and so not
// auto-migrated, before the subcommand runs.
var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Manage the SQL store schema.",

	PersistentPreRunE:  openMigrator,
	PersistentPostRunE: closeMigrator,
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Applies all pending migrations.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := migrator.Up(); err != nil {
			return err
		}
		return printVersion(cmd)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Rolls back every migration, dropping all stored data.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		if yes, _ := cmd.Flags().GetBool("yes"); !yes {
			return fmt.Errorf("migrate down drops every table; rerun with --yes")
		}
		if err := migrator.Down(); err != nil {
			return err
		}
		return printVersion(cmd)
	},
}

var migrateVersionCmd = &cobra.Command{
	Use:   "version",
	Short: "Prints the applied schema version.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return printVersion(cmd)
	},
}

func printVersion(cmd *cobra.Command) error {
	v, dirty, err := migrator.Version()
	if err != nil {
		return err
	}
	state := "clean"
	if dirty {
		state = "dirty"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "schema version %d (%s)\n", v, state)
	return nil
}

func openMigrator(cmd *cobra.Command, args []string) error {
	// Post-run hooks are skipped when RunE fails.
	_ = closeMigrator(cmd, args)

	cfg, _, logger, err := loadConfig(cmd.Flags())
	if err != nil {
		return err
	}
	defer func() { _ = logger.Sync() }()

	if cfg.Store.Driver != config.DriverSQLite && cfg.Store.Driver != config.DriverPostgres {
		return fmt.Errorf("store driver %s has no migrations; apply its schema on the server", cfg.Store.Driver)
	}

	dbConfig := databaseConfig(cfg)
	if cfg.Store.Driver == config.DriverSQLite {
		if err := os.MkdirAll(filepath.Dir(dbConfig.Path), 0o755); err != nil {
			return fmt.Errorf("create database directory: %w", err)
		}
	}

	mgr, err := storage.NewMigrationManager(dbConfig)
	if err != nil {
		return err
	}
	logger.Debug("migration manager opened", zap.String("driver", cfg.Store.Driver))
	migrator = mgr
	return nil
}

func closeMigrator(cmd *cobra.Command, args []string) error {
	if migrator == nil {
		return nil
	}
	err := migrator.Close()
	migrator = nil
	return err
}
