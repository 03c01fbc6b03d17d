package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/api/internal/store"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply or roll back the database schema",
}

var migrateUpCmd = &cobra.Command{
	Use:   "up",
	Short: "Apply pending migrations",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrate(cmd, true)
	},
}

var migrateDownCmd = &cobra.Command{
	Use:   "down",
	Short: "Roll back every applied migration",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		return runMigrate(cmd, false)
	},
}

func init() {
	migrateCmd.AddCommand(migrateUpCmd, migrateDownCmd)
	rootCmd.AddCommand(migrateCmd)
}

func runMigrate(cmd *cobra.Command, up bool) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if up {
		if err := store.ApplyMigrations(ctx, repo.DB(), repo.Dialect()); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "migrations applied (%s)\n", repo.Dialect())
		return nil
	}
	if err := store.RollbackMigrations(ctx, repo.DB(), repo.Dialect()); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "migrations rolled back (%s)\n", repo.Dialect())
	return nil
}
