package main

import (
	"fmt"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/hackgods/clinic-scheduling/internal/db"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var dsn string

	root := &cobra.Command{
		Use:           "migrate",
		Short:         "Apply or roll back the clinic scheduling schema",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			_ = godotenv.Load()
			if dsn == "" {
				dsn = os.Getenv("POSTGRES_DSN")
			}
			if dsn == "" {
				return fmt.Errorf("POSTGRES_DSN is required (or pass --dsn)")
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&dsn, "dsn", "", "Postgres connection string (defaults to POSTGRES_DSN)")

	withMigrator := func(fn func(m *db.Migrator, args []string) error) func(*cobra.Command, []string) error {
		return func(cmd *cobra.Command, args []string) error {
			m, err := db.NewMigrator(dsn)
			if err != nil {
				return err
			}
			defer func() { _ = m.Close() }()
			return fn(m, args)
		}
	}

	root.AddCommand(&cobra.Command{
		Use:   "up",
		Short: "Apply all pending migrations",
		RunE: withMigrator(func(m *db.Migrator, _ []string) error {
			if err := m.Up(); err != nil {
				return err
			}
			fmt.Println("migrations complete")
			return nil
		}),
	})

	var steps int
	down := &cobra.Command{
		Use:   "down",
		Short: "Roll back migrations",
		RunE: withMigrator(func(m *db.Migrator, _ []string) error {
			if err := m.Down(steps); err != nil {
				return err
			}
			fmt.Printf("rolled back %d migration(s)\n", steps)
			return nil
		}),
	}
	down.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back")
	root.AddCommand(down)

	root.AddCommand(&cobra.Command{
		Use:   "force <version>",
		Short: "Set the schema version without running migrations",
		Args:  cobra.ExactArgs(1),
		RunE: withMigrator(func(m *db.Migrator, args []string) error {
			version, err := strconv.Atoi(args[0])
			if err != nil {
				return fmt.Errorf("invalid version: %w", err)
			}
			if err := m.Force(version); err != nil {
				return err
			}
			fmt.Printf("forced version to %d\n", version)
			return nil
		}),
	})

	root.AddCommand(&cobra.Command{
		Use:   "version",
		Short: "Print the current schema version",
		RunE: withMigrator(func(m *db.Migrator, _ []string) error {
			v, dirty, err := m.Version()
			if err != nil {
				return err
			}
			fmt.Printf("version=%d dirty=%t\n", v, dirty)
			return nil
		}),
	})

	return root
}
