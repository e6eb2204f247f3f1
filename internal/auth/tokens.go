package auth

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/tillpoint/tillpoint/internal/shared"
)

// TokenStore issues and verifies opaque bearer tokens backed by Redis.
// Tokens expire after the configured TTL.
type TokenStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewTokenStore constructs a TokenStore.
func NewTokenStore(client *redis.Client, ttl time.Duration) *TokenStore {
	return &TokenStore{client: client, ttl: ttl}
}

type tokenPayload struct {
	UserID int64  `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Issue creates a fresh token for the user.
func (ts *TokenStore) Issue(ctx context.Context, user *User) (string, error) {
	token := uuid.NewString()
	data, err := json.Marshal(tokenPayload{
		UserID: user.ID,
		Name:   user.Name,
		Email:  user.Email,
		Role:   user.Role,
	})
	if err != nil {
		return "", err
	}
	if err := ts.client.Set(ctx, ts.key(token), data, ts.ttl).Err(); err != nil {
		return "", err
	}
	return token, nil
}

// Lookup resolves a token to the caller identity.
func (ts *TokenStore) Lookup(ctx context.Context, token string) (shared.Identity, error) {
	if token == "" {
		return shared.Identity{}, shared.ErrUnauthorized
	}
	data, err := ts.client.Get(ctx, ts.key(token)).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return shared.Identity{}, shared.ErrUnauthorized
		}
		return shared.Identity{}, err
	}
	var payload tokenPayload
	if err := json.Unmarshal(data, &payload); err != nil {
		return shared.Identity{}, err
	}
	return shared.Identity{
		UserID: payload.UserID,
		Name:   payload.Name,
		Email:  payload.Email,
		Role:   payload.Role,
	}, nil
}

// Revoke deletes a token before its TTL expires.
func (ts *TokenStore) Revoke(ctx context.Context, token string) error {
	err := ts.client.Del(ctx, ts.key(token)).Err()
	if errors.Is(err, redis.Nil) {
		return nil
	}
	return err
}

// TTL exposes the configured token lifetime.
func (ts *TokenStore) TTL() time.Duration {
	return ts.ttl
}

func (ts *TokenStore) key(token string) string {
	return "auth:token:" + token
}
