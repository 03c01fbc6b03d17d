package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"taskboard/api/internal/config"
	"taskboard/api/internal/store"
)

var configPath string

var rootCmd = &cobra.Command{
	Use:   "taskboard",
	Short: "Projects, boards and checklists API",
	Long: `Taskboard serves the projects, boards and lists API and carries the
operational commands that go with it: schema migrations, token issuing and
template seeding.`,
	SilenceUsage: true,
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "config file (YAML); TASKBOARD_* env vars override it")
}

func loadConfig() (config.Config, error) {
	return config.Load(configPath)
}

// newLogger builds the process logger from the log section of the config.
func newLogger(cfg config.LogConfig, w io.Writer) (*slog.Logger, error) {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		return nil, fmt.Errorf("invalid log.level %q", cfg.Level)
	}
	opts := &slog.HandlerOptions{Level: level}
	switch strings.ToLower(cfg.Format) {
	case "", "json":
		return slog.New(slog.NewJSONHandler(w, opts)), nil
	case "text":
		return slog.New(slog.NewTextHandler(w, opts)), nil
	default:
		return nil, fmt.Errorf("invalid log.format %q (want json or text)", cfg.Format)
	}
}

func openStore(ctx context.Context, cfg config.Config) (*store.SQLStore, error) {
	db, dialect, err := store.Open(ctx, cfg.DatabaseURL)
	if err != nil {
		return nil, err
	}
	return store.NewSQLStore(db, dialect), nil
}
