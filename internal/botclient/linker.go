package botclient

import (
	"context"
	"errors"
	"fmt"

	"taskboard/api/internal/session"
)

// ErrNotLinked means the external principal has not registered a token.
var ErrNotLinked = errors.New("account not linked")

// Linker remembers which API token belongs to which chat user.
type Linker struct {
	baseURL string
	creds   session.CredentialStore
	opts    []Option
}

func NewLinker(baseURL string, creds session.CredentialStore, opts ...Option) *Linker {
	return &Linker{baseURL: baseURL, creds: creds, opts: opts}
}

// Link checks token against the API and stores it for principal. A token
// the API rejects is not stored.
func (l *Linker) Link(ctx context.Context, principal, token string) (User, error) {
	if principal == "" || token == "" {
		return User{}, errors.New("principal and token are required")
	}
	user, err := New(l.baseURL, token, l.opts...).Me(ctx)
	if err != nil {
		return User{}, fmt.Errorf("verify token: %w", err)
	}
	if err := l.creds.Set(ctx, principal, token); err != nil {
		return User{}, err
	}
	return user, nil
}

// Client returns an API client acting as principal.
func (l *Linker) Client(ctx context.Context, principal string) (*Client, error) {
	token, err := l.creds.Get(ctx, principal)
	if errors.Is(err, session.ErrNotFound) {
		return nil, ErrNotLinked
	}
	if err != nil {
		return nil, err
	}
	return New(l.baseURL, token, l.opts...), nil
}
