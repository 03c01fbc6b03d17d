package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"taskboard/api/internal/session"
)

const userColumns = `id, external_id, email, name, avatar_url, created_at, last_login`

func scanUser(row interface{ Scan(...any) error }, user *User) error {
	var avatar sql.NullString
	if err := row.Scan(&user.ID, &user.ExternalID, &user.Email, &user.Name, &avatar,
		scanTime(&user.CreatedAt), scanNullTime(&user.LastLogin)); err != nil {
		return err
	}
	if avatar.Valid {
		user.AvatarURL = &avatar.String
	}
	return nil
}

// UpsertUser creates the user keyed by ExternalID or refreshes its profile
// and last login. created reports whether a row was inserted.
func (s *SQLStore) UpsertUser(ctx context.Context, user User) (User, bool, error) {
	now := s.timestamp()
	user.Email = strings.TrimSpace(user.Email)

	var existing User
	err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE external_id = ?`, user.ExternalID), &existing)
	switch {
	case err == nil:
		if _, err := s.exec(ctx, `
			UPDATE users SET name = ?, avatar_url = ?, last_login = ? WHERE id = ?
		`, user.Name, user.AvatarURL, now, existing.ID); err != nil {
			return User{}, false, fmt.Errorf("refresh user: %w", err)
		}
		existing.Name = user.Name
		existing.AvatarURL = user.AvatarURL
		existing.LastLogin = &now
		return existing, false, nil
	case !errors.Is(err, sql.ErrNoRows):
		return User{}, false, fmt.Errorf("lookup user: %w", err)
	}

	id, err := s.insert(ctx, `
		INSERT INTO users (external_id, email, name, avatar_url, created_at, last_login)
		VALUES (?, ?, ?, ?, ?, ?)
	`, user.ExternalID, user.Email, user.Name, user.AvatarURL, now, now)
	if err != nil {
		return User{}, false, fmt.Errorf("insert user: %w", err)
	}
	user.ID = id
	user.CreatedAt = now
	user.LastLogin = &now
	return user, true, nil
}

func (s *SQLStore) GetUser(ctx context.Context, id int64) (User, error) {
	var user User
	if err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = ?`, id), &user); err != nil {
		return User{}, notFound(err, "user")
	}
	return user, nil
}

func (s *SQLStore) GetUserByEmail(ctx context.Context, email string) (User, error) {
	var user User
	err := scanUser(s.queryRow(ctx, `SELECT `+userColumns+` FROM users WHERE LOWER(email) = LOWER(?)`, strings.TrimSpace(email)), &user)
	if err != nil {
		return User{}, notFound(err, "user")
	}
	return user, nil
}

func (s *SQLStore) CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) error {
	_, err := s.exec(ctx, `
		INSERT INTO sessions (id, user_id, expires_at, created_at) VALUES (?, ?, ?, ?)
	`, id, userID, expiresAt.UTC(), s.timestamp())
	if err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// LookupSession returns session.ErrNotFound for unknown or expired ids.
func (s *SQLStore) LookupSession(ctx context.Context, id string, now time.Time) (int64, error) {
	var (
		userID    int64
		expiresAt time.Time
	)
	err := s.queryRow(ctx, `SELECT user_id, expires_at FROM sessions WHERE id = ?`, id).Scan(&userID, scanTime(&expiresAt))
	if errors.Is(err, sql.ErrNoRows) {
		return 0, session.ErrNotFound
	}
	if err != nil {
		return 0, fmt.Errorf("lookup session: %w", err)
	}
	if !now.Before(expiresAt) {
		return 0, session.ErrNotFound
	}
	return userID, nil
}

func (s *SQLStore) DeleteSession(ctx context.Context, id string) error {
	if _, err := s.exec(ctx, `DELETE FROM sessions WHERE id = ?`, id); err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	return nil
}
