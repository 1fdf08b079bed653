// Package cache decorates a ports.Store with a Redis copy of the template
// registry. Every other call goes straight to the wrapped store.
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"menuforge/internal/models"
	"menuforge/internal/pkg/logger"
	"menuforge/internal/ports"
)

// DefaultKey is the Redis key holding the cached template list.
const DefaultKey = "menuforge:templates"

// KV is the subset of *redis.Client used by Store.
type KV interface {
	Get(ctx context.Context, key string) *redis.StringCmd
	Set(ctx context.Context, key string, value any, expiration time.Duration) *redis.StatusCmd
	Del(ctx context.Context, keys ...string) *redis.IntCmd
	Incr(ctx context.Context, key string) *redis.IntCmd
}

// Store caches ListTemplates and invalidates on writes. Redis failures are
// logged and fall back to the wrapped store.
//
// Entries are stored under "<key>:<generation>". Every write bumps the
// generation counter at "<key>:gen", so a list read from the store before a
// write can only land under a generation nobody reads any more.
type Store struct {
	ports.Store
	kv  KV
	key string
	ttl time.Duration
	log *logger.Logger
}

// Option configures a Store.
type Option func(*Store)

// WithKey overrides DefaultKey.
func WithKey(key string) Option {
	return func(s *Store) { s.key = key }
}

// WithTTL bounds how long a cached list is served.
func WithTTL(ttl time.Duration) Option {
	return func(s *Store) { s.ttl = ttl }
}

// New wraps inner.
func New(inner ports.Store, kv KV, log *logger.Logger, opts ...Option) *Store {
	s := &Store{
		Store: inner,
		kv:    kv,
		key:   DefaultKey,
		ttl:   10 * time.Minute,
		log:   log.WithComponent("template-cache"),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Unwrap returns the wrapped backend.
func (s *Store) Unwrap() ports.Store { return s.Store }

func (s *Store) genKey() string { return s.key + ":gen" }

func (s *Store) entryKey(gen int64) string {
	return s.key + ":" + strconv.FormatInt(gen, 10)
}

// generation returns the current generation; ok is false when Redis cannot
// be read and the cache must be bypassed.
func (s *Store) generation(ctx context.Context) (gen int64, ok bool) {
	gen, err := s.kv.Get(ctx, s.genKey()).Int64()
	switch {
	case err == nil:
		return gen, true
	case errors.Is(err, redis.Nil):
		return 0, true
	default:
		s.log.Warn("template cache read failed", "error", err.Error())
		return 0, false
	}
}

func (s *Store) ListTemplates(ctx context.Context) ([]models.Template, error) {
	gen, cached := s.generation(ctx)
	if !cached {
		return s.Store.ListTemplates(ctx)
	}

	key := s.entryKey(gen)
	raw, err := s.kv.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var list []models.Template
		if jerr := json.Unmarshal(raw, &list); jerr == nil {
			return list, nil
		}
		s.log.Warn("dropping undecodable cache entry", "key", key)
	case !errors.Is(err, redis.Nil):
		s.log.Warn("template cache read failed", "error", err.Error())
	}

	list, err := s.Store.ListTemplates(ctx)
	if err != nil {
		return nil, err
	}
	if b, err := json.Marshal(list); err == nil {
		if err := s.kv.Set(ctx, key, b, s.ttl).Err(); err != nil {
			s.log.Warn("template cache write failed", "error", err.Error())
		}
	}
	return list, nil
}

func (s *Store) ReplaceTemplates(ctx context.Context, list []models.Template) error {
	if err := s.Store.ReplaceTemplates(ctx, list); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

func (s *Store) DeleteTemplate(ctx context.Context, name string) error {
	if err := s.Store.DeleteTemplate(ctx, name); err != nil {
		return err
	}
	s.invalidate(ctx)
	return nil
}

// invalidate moves readers to a new generation and drops the previous entry.
func (s *Store) invalidate(ctx context.Context) {
	gen, err := s.kv.Incr(ctx, s.genKey()).Result()
	if err != nil {
		s.log.Warn("template cache invalidation failed", "error", err.Error())
		return
	}
	if err := s.kv.Del(ctx, s.entryKey(gen-1)).Err(); err != nil {
		s.log.Warn("template cache cleanup failed", "error", err.Error())
	}
}
