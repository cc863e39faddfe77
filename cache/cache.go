// Package cache fronts the store's full-scan session listing with a short
// lived cache so the O(keys) scan is not repeated on every page load.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/eko/gocache/lib/v4/cache"
	gocache_store "github.com/eko/gocache/lib/v4/store"
	go_store "github.com/eko/gocache/store/go_cache/v4"
	redis_store "github.com/eko/gocache/store/redis/v4"
	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"

	"github.com/mkarlsv/votify/config"
	"github.com/mkarlsv/votify/store"
)

const sessionListKey = "sessions:all"

// PrefixedCache wraps a cache.Cache and adds a prefix to all keys, with JSON
// as the value codec.
type PrefixedCache[T any] struct {
	cache  *cache.Cache[[]byte]
	prefix string
}

// NewPrefixedCache creates a new prefixed cache wrapper.
func NewPrefixedCache[T any](cache *cache.Cache[[]byte], prefix string) *PrefixedCache[T] {
	return &PrefixedCache[T]{
		cache:  cache,
		prefix: prefix,
	}
}

// Get retrieves a value from the cache with the prefixed key.
func (p *PrefixedCache[T]) Get(ctx context.Context, key string) (T, error) {
	data, err := p.cache.Get(ctx, p.prefix+key)
	if err != nil {
		return *new(T), err
	}
	var result T
	if err := json.Unmarshal(data, &result); err != nil {
		return *new(T), err
	}
	return result, nil
}

// Set stores a value in the cache with the prefixed key.
func (p *PrefixedCache[T]) Set(ctx context.Context, key string, object T, options ...gocache_store.Option) error {
	data, err := json.Marshal(object)
	if err != nil {
		return err
	}
	return p.cache.Set(ctx, p.prefix+key, data, options...)
}

// Delete removes a value from the cache with the prefixed key.
func (p *PrefixedCache[T]) Delete(ctx context.Context, key string) error {
	return p.cache.Delete(ctx, p.prefix+key)
}

// Sessions caches the decoded session list.
type Sessions struct {
	cache *PrefixedCache[[]*store.Session]
	ttl   time.Duration
}

// NewSessions creates the session list cache: in-memory by default, backed
// by its own Redis connection when one is configured.
func NewSessions(cfg *config.CacheConfig) *Sessions {
	ttl := 30 * time.Second
	if cfg != nil && cfg.TTLSeconds > 0 {
		ttl = time.Duration(cfg.TTLSeconds) * time.Second
	}

	var inner *cache.Cache[[]byte]
	if cfg != nil && cfg.RedisAddr != "" {
		redisClient := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		inner = cache.New[[]byte](redis_store.NewRedis(redisClient))
	} else {
		gocacheClient := gocache.New(ttl, 2*ttl)
		inner = cache.New[[]byte](go_store.NewGoCache(gocacheClient))
	}

	return &Sessions{
		cache: NewPrefixedCache[[]*store.Session](inner, "votify:"),
		ttl:   ttl,
	}
}

// Get returns the cached session list, or false when the cache is cold.
func (s *Sessions) Get(ctx context.Context) ([]*store.Session, bool) {
	sessions, err := s.cache.Get(ctx, sessionListKey)
	if err != nil {
		return nil, false
	}
	return sessions, true
}

// Set stores the session list with the configured TTL.
func (s *Sessions) Set(ctx context.Context, sessions []*store.Session) error {
	if err := s.cache.Set(ctx, sessionListKey, sessions, gocache_store.WithExpiration(s.ttl)); err != nil {
		return fmt.Errorf("failed to cache session list: %w", err)
	}
	return nil
}

// Invalidate drops the cached session list, forcing the next read to scan.
func (s *Sessions) Invalidate(ctx context.Context) {
	_ = s.cache.Delete(ctx, sessionListKey)
}
