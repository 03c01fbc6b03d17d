package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"taskboard/api/internal/auth"
)

var tokenUserID int64

var tokenCmd = &cobra.Command{
	Use:   "token",
	Short: "Issue a bearer token for a user",
	Long: `Token prints a bearer token for an existing user, for scripts and chat
integrations that cannot go through the browser sign-in.`,
	Args: cobra.NoArgs,
	RunE: runToken,
}

func init() {
	tokenCmd.Flags().Int64Var(&tokenUserID, "user-id", 0, "user to issue the token for")
	_ = tokenCmd.MarkFlagRequired("user-id")
	rootCmd.AddCommand(tokenCmd)
}

func runToken(cmd *cobra.Command, _ []string) error {
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

	user, err := repo.GetUser(ctx, tokenUserID)
	if err != nil {
		return fmt.Errorf("user %d: %w", tokenUserID, err)
	}
	raw, claims, err := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL).Issue(user.ID, user.Email)
	if err != nil {
		return err
	}
	fmt.Fprintln(cmd.OutOrStdout(), raw)
	fmt.Fprintf(cmd.ErrOrStderr(), "expires %s\n", claims.ExpiresAt.Format("2006-01-02 15:04 MST"))
	return nil
}
