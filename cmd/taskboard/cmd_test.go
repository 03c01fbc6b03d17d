package main

import (
	"bytes"
	"context"
	"io"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"taskboard/api/internal/auth"
	"taskboard/api/internal/config"
	"taskboard/api/internal/store"
)

func executeCommand(root *cobra.Command, args ...string) (stdout, stderr string, err error) {
	var out, errOut bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&errOut)
	root.SetArgs(args)
	err = root.Execute()
	return out.String(), errOut.String(), err
}

func useTempDatabase(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "cli.db")
	t.Setenv("TASKBOARD_DATABASE_URL", "sqlite://"+path)
	t.Setenv("TASKBOARD_JWT_SECRET", "cli-secret")
	return path
}

func TestMigrateTokenAndSeed(t *testing.T) {
	path := useTempDatabase(t)
	ctx := context.Background()

	out, _, err := executeCommand(rootCmd, "migrate", "up")
	require.NoError(t, err)
	assert.Contains(t, out, "migrations applied (sqlite)")

	db, err := store.OpenSQLite(ctx, path)
	require.NoError(t, err)
	repo := store.NewSQLStore(db, store.DialectSQLite)
	user, _, err := repo.UpsertUser(ctx, store.User{ExternalID: "cli-1", Email: "ops@example.com", Name: "Ops"})
	require.NoError(t, err)
	require.NoError(t, repo.Close())

	out, errOut, err := executeCommand(rootCmd, "token", "--user-id", "1")
	require.NoError(t, err)
	assert.Contains(t, errOut, "expires")
	claims, err := auth.NewTokenIssuer([]byte("cli-secret"), auth.DefaultTTL).Parse(strings.TrimSpace(out))
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)

	out, _, err = executeCommand(rootCmd, "seed-templates", "--user-id", "1")
	require.NoError(t, err)
	lines := strings.Split(strings.TrimSpace(out), "\n")
	assert.Len(t, lines, 5)

	out, _, err = executeCommand(rootCmd, "migrate", "down")
	require.NoError(t, err)
	assert.Contains(t, out, "rolled back")
}

func TestTokenForUnknownUser(t *testing.T) {
	useTempDatabase(t)
	_, _, err := executeCommand(rootCmd, "migrate", "up")
	require.NoError(t, err)

	_, _, err = executeCommand(rootCmd, "token", "--user-id", "42")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "user 42")
}

func TestNewLogger(t *testing.T) {
	logger, err := newLogger(config.LogConfig{Level: "debug", Format: "text"}, io.Discard)
	require.NoError(t, err)
	assert.True(t, logger.Enabled(context.Background(), -4))

	_, err = newLogger(config.LogConfig{Level: "loud", Format: "json"}, io.Discard)
	assert.Error(t, err)

	_, err = newLogger(config.LogConfig{Level: "info", Format: "xml"}, io.Discard)
	assert.Error(t, err)
}
