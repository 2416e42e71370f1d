package cli

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/alanyoungcy/optionscalc/internal/app"
	"github.com/alanyoungcy/optionscalc/internal/config"
	"github.com/alanyoungcy/optionscalc/internal/store/postgres"
)

func newDBCmd(a *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "db",
		Short: "Manage the shared-state database",
	}
	cmd.AddCommand(newDBMigrateCmd(a))
	cmd.AddCommand(&cobra.Command{
		Use:   "migrations",
		Short: "List the embedded PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			names, err := postgres.Migrations()
			if err != nil {
				return err
			}
			for _, n := range names {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	})
	return cmd
}

func newDBMigrateCmd(a *App) *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending PostgreSQL migrations",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			path, _ := cmd.Flags().GetString("config")
			cfg, err := config.Load(path)
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(cmd.Context(), 60*time.Second)
			defer cancel()

			client, err := app.OpenPostgres(ctx, cfg)
			if err != nil {
				return err
			}
			defer client.Close()

			applied, err := client.RunMigrations(ctx)
			if err != nil {
				return err
			}
			a.Logger.Info("migrations applied", slog.Int("count", len(applied)))
			for _, n := range applied {
				fmt.Fprintln(cmd.OutOrStdout(), n)
			}
			return nil
		},
	}
}
