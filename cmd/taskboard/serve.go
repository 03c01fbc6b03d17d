package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"taskboard/api/internal/app"
	"taskboard/api/internal/auth"
	"taskboard/api/internal/identity"
	"taskboard/api/internal/notify"
	"taskboard/api/internal/session"
	"taskboard/api/internal/store"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP API",
	Long: `Serve applies pending migrations and starts the HTTP API. Sessions are
kept in Redis when redis_url is set and in the database otherwise.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg.Log, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	repo, err := openStore(ctx, cfg)
	if err != nil {
		return err
	}
	defer repo.Close()
	if err := store.ApplyMigrations(ctx, repo.DB(), repo.Dialect()); err != nil {
		return err
	}

	var sessions session.Store
	if strings.TrimSpace(cfg.RedisURL) != "" {
		redisStore, err := session.NewRedisStore(ctx, cfg.RedisURL)
		if err != nil {
			return err
		}
		defer redisStore.Close()
		sessions = redisStore
		logger.Info("sessions stored in redis")
	} else {
		sessions = session.NewDBStore(repo)
		logger.Info("sessions stored in the database")
	}

	mailer := notify.NewMailer(cfg.SMTP)
	if !mailer.IsConfigured() {
		logger.Info("smtp not configured; share notifications disabled")
	}

	tokens := auth.NewTokenIssuer([]byte(cfg.JWTSecret), cfg.TokenTTL)
	service := app.New(app.Options{
		Repo:       repo,
		Sessions:   sessions,
		Tokens:     tokens,
		Notifier:   mailer,
		Logger:     logger,
		SessionTTL: cfg.SessionTTL,
	})
	resolver := identity.NewResolver(sessions, tokens, repo, logger)
	httpServer := app.NewHTTPServer(service, resolver, logger, app.HTTPConfig{
		CORSOrigin:    cfg.CORSOrigin,
		SessionCookie: cfg.SessionCookie,
		SessionTTL:    cfg.SessionTTL,
		SecureCookie:  cfg.CORSOrigin != "*",
		DevLogin:      cfg.DevLogin,
	})
	if cfg.DevLogin {
		logger.Warn("dev login is enabled; do not use in production")
	}

	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("taskboard api listening", "addr", cfg.Addr)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown error", "error", err)
	}
	return nil
}
