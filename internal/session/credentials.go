package session

import (
	"context"
	"errors"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// CredentialStore maps an external principal, such as a chat user id, to
// the bearer token it signed in with.
type CredentialStore interface {
	Get(ctx context.Context, principal string) (string, error)
	Set(ctx context.Context, principal, credential string) error
}

type RedisCredentialStore struct {
	client *redis.Client
	prefix string
}

func NewRedisCredentialStore(client *redis.Client) *RedisCredentialStore {
	return &RedisCredentialStore{client: client, prefix: "credential:"}
}

func (s *RedisCredentialStore) Get(ctx context.Context, principal string) (string, error) {
	value, err := s.client.Get(ctx, s.prefix+principal).Result()
	if errors.Is(err, redis.Nil) {
		return "", ErrNotFound
	}
	if err != nil {
		return "", fmt.Errorf("get credential: %w", err)
	}
	return value, nil
}

// Set stores credential without expiry; the token itself carries exp.
func (s *RedisCredentialStore) Set(ctx context.Context, principal, credential string) error {
	if err := s.client.Set(ctx, s.prefix+principal, credential, 0).Err(); err != nil {
		return fmt.Errorf("set credential: %w", err)
	}
	return nil
}
