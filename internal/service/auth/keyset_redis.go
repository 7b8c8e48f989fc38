package auth

import (
	"context"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"

	"thakii-backend/pkg/logger"
	"thakii-backend/pkg/redis"
)

// RedisKeySetSource shares the raw key-set document across instances through
// Redis. Redis failures fall through to the wrapped source. Only documents
// that parse as a key set are shared.
type RedisKeySetSource struct {
	next   KeySetSource
	client *redis.Client
	key    string
	ttl    time.Duration
	logger *logger.Logger
}

// NewRedisKeySetSource wraps next, storing its document under key for ttl.
func NewRedisKeySetSource(next KeySetSource, client *redis.Client, key string, ttl time.Duration, log *logger.Logger) *RedisKeySetSource {
	if ttl <= 0 {
		ttl = redis.TTLJWKS
	}
	return &RedisKeySetSource{
		next:   next,
		client: client,
		key:    key,
		ttl:    ttl,
		logger: logger.OrNop(log),
	}
}

// Fetch implements KeySetSource.
func (s *RedisKeySetSource) Fetch(ctx context.Context) ([]byte, error) {
	cached, err := s.client.Get(ctx, s.key)
	switch {
	case err == nil && cached != "":
		return []byte(cached), nil
	case err != nil && !redis.IsMiss(err):
		s.logger.WithError(err).Warn("Shared key set read failed, fetching from provider")
	}

	body, err := s.next.Fetch(ctx)
	if err != nil {
		return nil, err
	}

	if _, err := jwk.Parse(body); err != nil {
		s.logger.WithError(err).Warn("Provider returned an invalid key set, not sharing it")
		return body, nil
	}
	if err := s.client.Set(ctx, s.key, string(body), s.ttl); err != nil {
		s.logger.WithError(err).Warn("Failed to share key set")
	}
	return body, nil
}

// Invalidate implements Invalidator.
func (s *RedisKeySetSource) Invalidate(ctx context.Context) error {
	return s.client.Delete(ctx, s.key)
}
