package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	assert.Equal(t, ":8787", cfg.Addr)
	assert.Equal(t, "sqlite://data/taskboard.db", cfg.DatabaseURL)
	assert.Equal(t, 30*24*time.Hour, cfg.TokenTTL)
	assert.Equal(t, "taskboard_session", cfg.SessionCookie)
	assert.False(t, cfg.DevLogin)
	assert.Equal(t, "json", cfg.Log.Format)
}

func TestLoadFileThenEnv(t *testing.T) {
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	contents := []byte("addr: \":9000\"\ntoken_ttl: 1h\nlog:\n  level: debug\nsmtp:\n  host: mail.local\n")
	require.NoError(t, os.WriteFile(path, contents, 0o600))

	t.Setenv("TASKBOARD_ADDR", ":9100")
	t.Setenv("TASKBOARD_DEV_LOGIN", "true")
	t.Setenv("TASKBOARD_SMTP_FROM", "noreply@example.com")

	cfg, err := Load(path)
	require.NoError(t, err)

	assert.Equal(t, ":9100", cfg.Addr)
	assert.Equal(t, time.Hour, cfg.TokenTTL)
	assert.Equal(t, "debug", cfg.Log.Level)
	assert.True(t, cfg.DevLogin)
	assert.Equal(t, "mail.local", cfg.SMTP.Host)
	assert.Equal(t, "noreply@example.com", cfg.SMTP.From)
}

func TestLoadRejectsEmptySecret(t *testing.T) {
	t.Setenv("TASKBOARD_JWT_SECRET", "")
	path := filepath.Join(t.TempDir(), "taskboard.yaml")
	require.NoError(t, os.WriteFile(path, []byte("jwt_secret: \"\"\n"), 0o600))

	_, err := Load(path)
	require.Error(t, err)
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	require.Error(t, err)
}
