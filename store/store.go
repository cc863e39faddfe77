// Package store implements the Redis-backed persistence layer for Votify.
// Users, groups, voting sessions, votes and auth tokens are kept as hashes,
// lists and sets under string key prefixes.
package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/alicebob/miniredis/v2"
	"github.com/charmbracelet/log"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlsv/votify/config"
)

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when a unique index entry is already taken.
	ErrConflict = errors.New("record already exists")
	// ErrInvalidCredentials is returned for every failed login branch,
	// deliberately not distinguishing unknown users from wrong passwords.
	ErrInvalidCredentials = errors.New("invalid username or password")
	// ErrInvalidData is returned when a stored record does not match the expected shape.
	ErrInvalidData = errors.New("invalid stored data")
	// ErrAlreadyVoted is returned when a voter has already voted in a session.
	ErrAlreadyVoted = errors.New("already voted")
	// ErrSessionClosed is returned when voting on a session outside its time window.
	ErrSessionClosed = errors.New("voting session is not ongoing")
	// ErrUnknownOption is returned when a vote names an option not on the slide list.
	ErrUnknownOption = errors.New("unknown option")
)

// Store owns the connection to the key-value store. It is created once at
// startup and passed explicitly to every consumer.
type Store struct {
	rdb  *redis.Client
	mini *miniredis.Miniredis
	cfg  *config.Config
}

// New connects to the configured Redis server. When no address is configured
// an embedded store is started instead, so Votify runs self-contained.
func New(ctx context.Context, cfg *config.Config) (*Store, error) {
	s := &Store{cfg: cfg}

	if cfg.Redis == nil || cfg.Redis.Addr == "" {
		mr, err := miniredis.Run()
		if err != nil {
			return nil, fmt.Errorf("failed to start embedded store: %w", err)
		}
		s.mini = mr
		s.rdb = redis.NewClient(&redis.Options{Addr: mr.Addr()})
		log.Info("started embedded key-value store", "addr", mr.Addr())
		return s, nil
	}

	s.rdb = redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if err := s.rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Redis.Addr, err)
	}
	log.Info("connected to redis", "addr", cfg.Redis.Addr)

	return s, nil
}

// Client exposes the underlying Redis client for collaborators that share the
// connection, like the rate limiter and the Redis-backed cache.
func (s *Store) Client() *redis.Client {
	return s.rdb
}

// Close closes the Redis connection and stops the embedded store if running.
func (s *Store) Close() error {
	if s.rdb != nil {
		if err := s.rdb.Close(); err != nil {
			return err
		}
	}
	if s.mini != nil {
		s.mini.Close()
	}
	return nil
}

// Reset deletes every Votify key. Used by the reset command.
func (s *Store) Reset(ctx context.Context) error {
	for _, pattern := range []string{"user:*", "group:*", "session:*", "auth:*", "ratelimit:*"} {
		iter := s.rdb.Scan(ctx, 0, pattern, 0).Iterator()
		for iter.Next(ctx) {
			if err := s.rdb.Del(ctx, iter.Val()).Err(); err != nil {
				return fmt.Errorf("failed to delete key %s: %w", iter.Val(), err)
			}
		}
		if err := iter.Err(); err != nil {
			return fmt.Errorf("failed to scan keys: %w", err)
		}
	}
	return nil
}

func userKey(id string) string { return "user:" + id }
func usernameKey(username string) string { return "user:username:" + username }
func emailKey(email string) string { return "user:email:" + email }
func adminFlagKey(id string) string { return "user:" + id + ":isAdmin" }
func userGroupsKey(id string) string { return "user:" + id + ":groups" }
func groupKey(id string) string { return "group:" + id }
func groupUsersKey(id string) string { return "group:" + id + ":users" }
func sessionKey(id string) string { return "session:" + id }
func slidesKey(id string) string { return "session:" + id + ":slides" }
func votesKey(id string) string { return "session:" + id + ":votes" }
func votersKey(id string) string { return "session:" + id + ":voters" }
func notifiedKey(id string) string { return "session:" + id + ":notified" }
func tokenKey(token string) string { return "auth:" + token }
