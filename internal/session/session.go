// Package session provides server-side browser sessions and the key-value
// credential store used by bot integrations.
package session

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

var ErrNotFound = errors.New("session not found or expired")

// Store maps opaque session ids to user ids.
type Store interface {
	Create(ctx context.Context, userID int64, ttl time.Duration) (string, error)
	Lookup(ctx context.Context, id string) (int64, error)
	Revoke(ctx context.Context, id string) error
}

// Backend is the persistence contract DBStore relies on.
type Backend interface {
	CreateSession(ctx context.Context, id string, userID int64, expiresAt time.Time) error
	LookupSession(ctx context.Context, id string, now time.Time) (int64, error)
	DeleteSession(ctx context.Context, id string) error
}

// DBStore keeps sessions in the relational store when Redis is not
// configured.
type DBStore struct {
	backend Backend
	now     func() time.Time
}

func NewDBStore(backend Backend) *DBStore {
	return &DBStore{backend: backend, now: time.Now}
}

func (s *DBStore) Create(ctx context.Context, userID int64, ttl time.Duration) (string, error) {
	id := newSessionID()
	if err := s.backend.CreateSession(ctx, id, userID, s.now().Add(ttl)); err != nil {
		return "", err
	}
	return id, nil
}

func (s *DBStore) Lookup(ctx context.Context, id string) (int64, error) {
	return s.backend.LookupSession(ctx, id, s.now())
}

func (s *DBStore) Revoke(ctx context.Context, id string) error {
	return s.backend.DeleteSession(ctx, id)
}

func newSessionID() string {
	return uuid.NewString()
}
