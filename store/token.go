package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// CreateToken mints an opaque session token for a user and stores it with
// the configured time-to-live. The store's own expiry evicts stale tokens.
func (s *Store) CreateToken(ctx context.Context, userID string) (string, error) {
	token := uuid.NewString()
	ttl := time.Duration(s.cfg.Session.MaxAge) * time.Second

	if err := s.rdb.HSet(ctx, tokenKey(token), "userId", userID).Err(); err != nil {
		return "", fmt.Errorf("failed to store session token: %w", err)
	}
	if err := s.rdb.Expire(ctx, tokenKey(token), ttl).Err(); err != nil {
		return "", fmt.Errorf("failed to set token expiry: %w", err)
	}

	return token, nil
}

// ResolveToken returns the user id a session token belongs to, or
// ErrNotFound for unknown or expired tokens.
func (s *Store) ResolveToken(ctx context.Context, token string) (string, error) {
	userID, err := s.rdb.HGet(ctx, tokenKey(token), "userId").Result()
	if errors.Is(err, redis.Nil) {
		return "", fmt.Errorf("session token: %w", ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to resolve session token: %w", err)
	}
	return userID, nil
}

// DeleteToken revokes a session token immediately.
func (s *Store) DeleteToken(ctx context.Context, token string) error {
	if err := s.rdb.Del(ctx, tokenKey(token)).Err(); err != nil {
		return fmt.Errorf("failed to delete session token: %w", err)
	}
	return nil
}
