package caching

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/sirupsen/logrus"
)

// CacheService is the redis-backed support store for the guard chain:
// session revocation checks and request rate limiting. It does not cache
// subscription decisions; those are re-evaluated per call.
type CacheService interface {
	// Session revocation
	RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error
	IsSessionRevoked(ctx context.Context, sessionID string) (bool, error)

	// Rate limiting (fixed window)
	IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error)
	IncrementRateLimit(ctx context.Context, key string, window time.Duration) error

	// Generic string operations
	SetString(ctx context.Context, key, value string, ttl time.Duration) error
	GetString(ctx context.Context, key string) (string, error)
	Delete(ctx context.Context, key string) error

	Ping(ctx context.Context) error
}

type redisCacheService struct {
	client *redis.Client
}

// NewRedisCacheService creates a redis-backed cache service. A failed ping at
// startup is logged, not fatal; the service degrades to fail-open checks.
func NewRedisCacheService(addr, password string, db int) CacheService {
	parsedAddr := addr
	if strings.HasPrefix(addr, "redis://") || strings.HasPrefix(addr, "rediss://") {
		parsedAddr = strings.TrimPrefix(strings.TrimPrefix(addr, "redis://"), "rediss://")
	}

	client := redis.NewClient(&redis.Options{
		Addr:     parsedAddr,
		Password: password,
		DB:       db,
	})

	if err := client.Ping(context.Background()).Err(); err != nil {
		logrus.WithError(err).WithField("addr", parsedAddr).Warn("redis ping failed on initialization")
	}

	return &redisCacheService{client: client}
}

func sessionRevocationKey(sessionID string) string {
	return "session:revoked:" + sessionID
}

func (s *redisCacheService) RevokeSession(ctx context.Context, sessionID string, ttl time.Duration) error {
	return s.client.Set(ctx, sessionRevocationKey(sessionID), "1", ttl).Err()
}

func (s *redisCacheService) IsSessionRevoked(ctx context.Context, sessionID string) (bool, error) {
	_, err := s.client.Get(ctx, sessionRevocationKey(sessionID)).Result()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *redisCacheService) IsRateLimited(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	count, err := s.client.Get(ctx, "ratelimit:"+key).Int()
	if errors.Is(err, redis.Nil) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return count >= limit, nil
}

func (s *redisCacheService) IncrementRateLimit(ctx context.Context, key string, window time.Duration) error {
	pipe := s.client.TxPipeline()
	pipe.Incr(ctx, "ratelimit:"+key)
	pipe.Expire(ctx, "ratelimit:"+key, window)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("increment rate limit %q: %w", key, err)
	}
	return nil
}

func (s *redisCacheService) SetString(ctx context.Context, key, value string, ttl time.Duration) error {
	return s.client.Set(ctx, key, value, ttl).Err()
}

func (s *redisCacheService) GetString(ctx context.Context, key string) (string, error) {
	value, err := s.client.Get(ctx, key).Result()
	if errors.Is(err, redis.Nil) {
		return "", nil
	}
	return value, err
}

func (s *redisCacheService) Delete(ctx context.Context, key string) error {
	return s.client.Del(ctx, key).Err()
}

func (s *redisCacheService) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}
