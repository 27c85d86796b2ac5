package main

import (
	"errors"
	"fmt"

	"github.com/DanielPopoola/atelier-orders/internal/config"
	"github.com/DanielPopoola/atelier-orders/internal/infrastructure/persistence/postgres"
	"github.com/golang-migrate/migrate/v4"
	"github.com/spf13/cobra"
)

func migrateCmd() *cobra.Command {
	var steps int

	cmd := &cobra.Command{
		Use:       "migrate up|down|version",
		Short:     "Apply, roll back or inspect database migrations",
		Args:      cobra.MatchAll(cobra.ExactArgs(1), cobra.OnlyValidArgs),
		ValidArgs: []string{"up", "down", "version"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.LoadConfig()
			if err != nil {
				return fmt.Errorf("load config: %w", err)
			}

			m, err := postgres.NewMigrator(cfg.Database.MigrationsPath, cfg.Database.URL())
			if err != nil {
				return err
			}
			defer func() { _, _ = m.Close() }()

			switch args[0] {
			case "up":
				err = m.Up()
			case "down":
				err = m.Steps(-steps)
			case "version":
				version, dirty, verr := m.Version()
				if errors.Is(verr, migrate.ErrNilVersion) {
					fmt.Fprintln(cmd.OutOrStdout(), "no migrations applied")
					return nil
				}
				if verr != nil {
					return verr
				}
				fmt.Fprintf(cmd.OutOrStdout(), "version %d (dirty: %t)\n", version, dirty)
				return nil
			}

			if errors.Is(err, migrate.ErrNoChange) {
				fmt.Fprintln(cmd.OutOrStdout(), "no change")
				return nil
			}
			if err != nil {
				return fmt.Errorf("migrate %s: %w", args[0], err)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "migrate %s: done\n", args[0])
			return nil
		},
	}

	cmd.Flags().IntVar(&steps, "steps", 1, "number of migrations to roll back with down")
	return cmd
}
