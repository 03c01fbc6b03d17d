package app

import (
	"context"
	"log/slog"
	"strings"
	"time"

	"taskboard/api/internal/access"
	"taskboard/api/internal/apperr"
	"taskboard/api/internal/auth"
	"taskboard/api/internal/notify"
	"taskboard/api/internal/session"
	"taskboard/api/internal/store"
)

// Notifier is told about shares after they commit.
type Notifier interface {
	ShareInvite(ctx context.Context, invite notify.ShareInvite) error
}

type noopNotifier struct{}

func (noopNotifier) ShareInvite(context.Context, notify.ShareInvite) error { return nil }

type Options struct {
	Repo       store.Repository
	Sessions   session.Store
	Tokens     *auth.TokenIssuer
	Notifier   Notifier
	Logger     *slog.Logger
	SessionTTL time.Duration
	Now        func() time.Time
}

// Service orchestrates the resource lifecycle and template engine on top of
// the repository. Callers authorize the primary resource before calling in;
// the service only checks secondary references such as a template's target
// project or an item assignee.
type Service struct {
	repo       store.Repository
	access     *access.Evaluator
	sessions   session.Store
	tokens     *auth.TokenIssuer
	notifier   Notifier
	logger     *slog.Logger
	sessionTTL time.Duration
	now        func() time.Time
}

func New(opts Options) *Service {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	if opts.Notifier == nil {
		opts.Notifier = noopNotifier{}
	}
	if opts.Sessions == nil {
		opts.Sessions = session.NewDBStore(opts.Repo)
	}
	if opts.SessionTTL <= 0 {
		opts.SessionTTL = auth.DefaultTTL
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Service{
		repo:       opts.Repo,
		access:     access.NewEvaluator(opts.Repo),
		sessions:   opts.Sessions,
		tokens:     opts.Tokens,
		notifier:   opts.Notifier,
		logger:     opts.Logger.With("component", "service"),
		sessionTTL: opts.SessionTTL,
		now:        opts.Now,
	}
}

func (s *Service) Access() *access.Evaluator {
	return s.access
}

func (s *Service) Sessions() session.Store {
	return s.sessions
}

func (s *Service) Tokens() *auth.TokenIssuer {
	return s.tokens
}

func (s *Service) Ping(ctx context.Context) error {
	return s.repo.Ping(ctx)
}

// required trims v and fails with a validation error naming field when the
// result is empty.
func required(field string, v *string) (string, error) {
	if v == nil {
		return "", apperr.Validation("%s is required", field)
	}
	trimmed := strings.TrimSpace(*v)
	if trimmed == "" {
		return "", apperr.Validation("%s is required", field)
	}
	return trimmed, nil
}

func orDefault(v *string, def string) string {
	if v == nil || strings.TrimSpace(*v) == "" {
		return def
	}
	return strings.TrimSpace(*v)
}

// Grouped splits accessible resources by how the caller reaches them.
type Grouped[T any] struct {
	Owned  []T `json:"owned"`
	Shared []T `json:"shared"`
}
