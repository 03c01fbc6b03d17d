// Package identity turns a request credential into a user.
package identity

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/auth"
	"taskboard/api/internal/session"
	"taskboard/api/internal/store"
)

// Credential carries whatever the caller presented. Either field may be
// empty; the session wins when both resolve.
type Credential struct {
	SessionID   string
	BearerToken string
}

// BearerFromHeader extracts the token from an Authorization header value.
func BearerFromHeader(header string) string {
	const prefix = "bearer "
	if len(header) <= len(prefix) || !strings.EqualFold(header[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

type UserSource interface {
	GetUser(ctx context.Context, id int64) (store.User, error)
}

type Resolver struct {
	sessions session.Store
	tokens   *auth.TokenIssuer
	users    UserSource
	logger   *slog.Logger
}

func NewResolver(sessions session.Store, tokens *auth.TokenIssuer, users UserSource, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		sessions: sessions,
		tokens:   tokens,
		users:    users,
		logger:   logger.With("component", "identity"),
	}
}

// Resolve returns the user behind cred. An unknown, expired or malformed
// credential yields ok=false with a nil error; only infrastructure failures
// are returned as errors.
func (r *Resolver) Resolve(ctx context.Context, cred Credential) (store.User, bool, error) {
	if cred.SessionID != "" && r.sessions != nil {
		userID, err := r.sessions.Lookup(ctx, cred.SessionID)
		switch {
		case err == nil:
			user, ok, err := r.loadUser(ctx, userID)
			if err != nil || ok {
				return user, ok, err
			}
		case errors.Is(err, session.ErrNotFound):
		default:
			return store.User{}, false, err
		}
	}

	if cred.BearerToken != "" && r.tokens != nil {
		claims, err := r.tokens.Parse(cred.BearerToken)
		if err != nil {
			r.logger.Debug("bearer token rejected", "error", err)
			return store.User{}, false, nil
		}
		return r.loadUser(ctx, claims.UserID)
	}
	return store.User{}, false, nil
}

func (r *Resolver) loadUser(ctx context.Context, id int64) (store.User, bool, error) {
	user, err := r.users.GetUser(ctx, id)
	if err != nil {
		if apperr.IsNotFound(err) {
			return store.User{}, false, nil
		}
		return store.User{}, false, err
	}
	return user, true, nil
}
