package main

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strconv"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/spf13/cobra"

	"github.com/rafaelsava/S2Market/internal/logger"
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	var (
		databaseURL    string
		migrationsPath string
		logLevel       string
	)

	log := slog.Default()
	open := func() (*migrate.Migrate, error) {
		if databaseURL == "" {
			return nil, errors.New("POSTGRES_URL or --database is required")
		}
		m, err := migrate.New(migrationsPath, databaseURL)
		if err != nil {
			return nil, fmt.Errorf("create migrate instance: %w", err)
		}
		return m, nil
	}

	cmd := &cobra.Command{
		Use:          "migrate",
		Short:        "Apply S2Market database migrations",
		SilenceUsage: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			log = logger.New(logger.Options{Service: "migrate", Level: logLevel})
		},
	}

	cmd.PersistentFlags().StringVar(&databaseURL, "database", os.Getenv("POSTGRES_URL"), "Postgres URL")
	cmd.PersistentFlags().StringVar(&migrationsPath, "path", envOr("MIGRATIONS_PATH", "file://migrations"), "Migrations source URL")
	cmd.PersistentFlags().StringVar(&logLevel, "log-level", envOr("LOG_LEVEL", "info"), "Log level (debug, info, warn, error)")

	cmd.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			if err := m.Up(); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					log.Info("no pending migrations")
					return nil
				}
				log.Error("migration up failed", "error", err)
				return err
			}
			log.Info("migrations applied successfully")
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "down [steps]",
		Short: "Roll back migrations, one step by default",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			steps := 1
			if len(args) == 1 {
				n, err := strconv.Atoi(args[0])
				if err != nil || n < 1 {
					return fmt.Errorf("steps must be a positive integer, got %q", args[0])
				}
				steps = n
			}

			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			if err := m.Steps(-steps); err != nil {
				if errors.Is(err, migrate.ErrNoChange) {
					log.Info("no migrations to rollback")
					return nil
				}
				log.Error("migration down failed", "error", err)
				return err
			}
			log.Info("migrations rolled back successfully", "steps", steps)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			version, dirty, err := m.Version()
			if errors.Is(err, migrate.ErrNilVersion) {
				log.Info("no migrations applied yet")
				return nil
			}
			if err != nil {
				log.Error("failed to get version", "error", err)
				return err
			}
			log.Info("current migration version", "version", version, "dirty", dirty)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations and clear the dirty flag",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version %q", args[0])
			}

			m, err := open()
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			if err := m.Force(version); err != nil {
				log.Error("force failed", "error", err)
				return err
			}
			log.Info("migration version forced", "version", version)
			return nil
		},
	})

	return cmd
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
