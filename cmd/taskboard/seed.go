package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/api/internal/app"
)

var seedUserID int64

var seedCmd = &cobra.Command{
	Use:   "seed-templates",
	Short: "Store the starter template catalog for a user",
	Args:  cobra.NoArgs,
	RunE:  runSeed,
}

func init() {
	seedCmd.Flags().Int64Var(&seedUserID, "user-id", 0, "user that will own the templates")
	_ = seedCmd.MarkFlagRequired("user-id")
	rootCmd.AddCommand(seedCmd)
}

func runSeed(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	ctx := cmd.Context()
	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()

	if _, err := repo.GetUser(ctx, seedUserID); err != nil {
		return fmt.Errorf("user %d: %w", seedUserID, err)
	}
	seeded, err := app.New(app.Options{Repo: repo, Logger: logger}).SeedDefaultTemplates(ctx, seedUserID)
	if err != nil {
		return err
	}
	for _, tmpl := range seeded {
		fmt.Fprintf(cmd.OutOrStdout(), "%d\t%s\n", tmpl.ID, tmpl.Name)
	}
	return nil
}
