package app

import (
	"context"
	"errors"
	"strings"
	"time"

	"taskboard/api/internal/apperr"
	"taskboard/api/internal/store"
)

// SignInInput is the identity asserted by the sign-in provider.
type SignInInput struct {
	ExternalID string  `json:"external_id"`
	Email      string  `json:"email"`
	Name       string  `json:"name"`
	AvatarURL  *string `json:"avatar_url"`
}

type SignInResult struct {
	User      store.User
	SessionID string
	Created   bool
}

type TokenResponse struct {
	Token     string    `json:"token"`
	ExpiresIn int64     `json:"expires_in"`
	ExpiresAt time.Time `json:"expires_at"`
}

// SignIn creates or refreshes the user and opens a browser session. A
// first sign-in also seeds the starter templates in the same transaction.
func (s *Service) SignIn(ctx context.Context, in SignInInput) (SignInResult, error) {
	in.ExternalID = strings.TrimSpace(in.ExternalID)
	in.Email = strings.TrimSpace(in.Email)
	in.Name = strings.TrimSpace(in.Name)
	if in.ExternalID == "" {
		return SignInResult{}, apperr.Validation("external_id is required")
	}
	if in.Email == "" || !strings.Contains(in.Email, "@") {
		return SignInResult{}, apperr.Validation("a valid email is required")
	}
	if in.Name == "" {
		in.Name = in.Email
	}

	var result SignInResult
	err := s.repo.InTx(ctx, func(repo store.Repository) error {
		user, created, err := repo.UpsertUser(ctx, store.User{
			ExternalID: in.ExternalID,
			Email:      in.Email,
			Name:       in.Name,
			AvatarURL:  in.AvatarURL,
		})
		if err != nil {
			return err
		}
		if created {
			if _, err := seedCatalog(ctx, repo, user.ID); err != nil {
				return err
			}
		}
		result = SignInResult{User: user, Created: created}
		return nil
	})
	if err != nil {
		return SignInResult{}, err
	}

	result.SessionID, err = s.sessions.Create(ctx, result.User.ID, s.sessionTTL)
	if err != nil {
		return SignInResult{}, err
	}
	if result.Created {
		s.logger.Info("user created", "user_id", result.User.ID)
	}
	return result, nil
}

func (s *Service) SignOut(ctx context.Context, sessionID string) error {
	if sessionID == "" {
		return nil
	}
	return s.sessions.Revoke(ctx, sessionID)
}

// IssueToken mints a bearer token for programmatic clients.
func (s *Service) IssueToken(user store.User) (TokenResponse, error) {
	if s.tokens == nil {
		return TokenResponse{}, errors.New("token issuing is not configured")
	}
	raw, claims, err := s.tokens.Issue(user.ID, user.Email)
	if err != nil {
		return TokenResponse{}, err
	}
	return TokenResponse{
		Token:     raw,
		ExpiresIn: int64(claims.ExpiresAt.Sub(claims.IssuedAt).Seconds()),
		ExpiresAt: claims.ExpiresAt,
	}, nil
}
