package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// RedisTokenStore persists tokens in Redis as JSON values. Entries for tokens
// without a refresh token expire with the token; refreshable tokens are kept
// so a restarted process can resume with a refresh instead of a full
// re-authorization.
type RedisTokenStore struct {
	client    redis.UniversalClient
	keyPrefix string
}

// NewRedisTokenStore creates a token store on an existing Redis client.
func NewRedisTokenStore(client redis.UniversalClient, keyPrefix string) *RedisTokenStore {
	if keyPrefix == "" {
		keyPrefix = "authkit:token:"
	}
	return &RedisTokenStore{client: client, keyPrefix: keyPrefix}
}

// Store stores a token under a key.
func (s *RedisTokenStore) Store(ctx context.Context, key string, token *Token) error {
	data, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token: %w", err)
	}

	var ttl time.Duration
	if token.RefreshToken == "" && !token.ExpiresAt.IsZero() {
		ttl = time.Until(token.ExpiresAt)
		if ttl <= 0 {
			return s.Delete(ctx, key)
		}
	}

	if err := s.client.Set(ctx, s.keyPrefix+key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to store token: %w", err)
	}
	return nil
}

// Retrieve gets a token by key.
func (s *RedisTokenStore) Retrieve(ctx context.Context, key string) (*Token, error) {
	data, err := s.client.Get(ctx, s.keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, ErrTokenNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to retrieve token: %w", err)
	}

	var token Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token: %w", err)
	}
	return &token, nil
}

// Delete removes a token by key.
func (s *RedisTokenStore) Delete(ctx context.Context, key string) error {
	if err := s.client.Del(ctx, s.keyPrefix+key).Err(); err != nil {
		return fmt.Errorf("failed to delete token: %w", err)
	}
	return nil
}
