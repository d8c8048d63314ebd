package ratelimit

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/redis/go-redis/v9"
)

const (
	// redisKeyPrefix namespaces rate-limit records in a shared Redis.
	redisKeyPrefix = "bookchat:ratelimit:"

	// DefaultRedisTTL bounds how long an idle client's record survives.
	// Unlike the in-memory store, Redis gives us eviction for free.
	DefaultRedisTTL = 10 * time.Minute
)

// RedisStore keeps rate-limit records in Redis so several relay instances
// behind a load balancer share one admission view. Reads and writes are not
// atomic across instances; a client racing two instances may slip one extra
// request through, which is acceptable for this limiter.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisStore connects to Redis at the given URL
// (e.g. "redis://localhost:6379" or "redis://:password@host:6379/0").
func NewRedisStore(url string, ttl time.Duration) (*RedisStore, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("invalid redis URL: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	if ttl == 0 {
		ttl = DefaultRedisTTL
	}

	slog.Info("redis rate-limit store connected", "ttl", ttl)

	return &RedisStore{client: client, ttl: ttl}, nil
}

// Get retrieves a client's record from Redis.
func (s *RedisStore) Get(ctx context.Context, clientID string) (*Record, error) {
	data, err := s.client.Get(ctx, redisKeyPrefix+clientID).Bytes()
	if err != nil {
		if err == redis.Nil {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get rate-limit record: %w", err)
	}

	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("failed to parse rate-limit record: %w", err)
	}
	return &rec, nil
}

// Set stores a client's record in Redis with the configured TTL.
func (s *RedisStore) Set(ctx context.Context, clientID string, rec Record) error {
	data, err := json.Marshal(rec)
	if err != nil {
		return fmt.Errorf("failed to marshal rate-limit record: %w", err)
	}

	if err := s.client.Set(ctx, redisKeyPrefix+clientID, data, s.ttl).Err(); err != nil {
		return fmt.Errorf("failed to set rate-limit record: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	if s.client != nil {
		return s.client.Close()
	}
	return nil
}
