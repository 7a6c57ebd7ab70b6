package cartstore

import (
	"context"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"storefront/internal/models"
)

const redisOpTimeout = 5 * time.Second

// RedisStore mirrors the cart to a Redis key, one key per profile. Useful
// when several storefront instances should see the same profile's cart.
type RedisStore struct {
	rdb *redis.Client
	key string
}

// NewRedisStore creates a Redis-backed cart store for the given profile.
func NewRedisStore(addr, password string, db int, profile string) (*RedisStore, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := rdb.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}

	return &RedisStore{
		rdb: rdb,
		key: fmt.Sprintf("cart:%s", profile),
	}, nil
}

// Load reads the last-saved cart. A missing key, a transient Redis error or
// corrupt content all read as an empty cart; hydration never fails.
func (s *RedisStore) Load() []models.CartLine {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	data, err := s.rdb.Get(ctx, s.key).Bytes()
	if err != nil {
		return nil
	}
	return decodeLines(data)
}

// Save overwrites the stored cart with a full serialization.
func (s *RedisStore) Save(lines []models.CartLine) error {
	data, err := encodeLines(lines)
	if err != nil {
		return fmt.Errorf("failed to encode cart: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.Set(ctx, s.key, data, 0).Err(); err != nil {
		return fmt.Errorf("failed to write cart mirror: %w", err)
	}
	return nil
}

// Clear removes the stored cart entirely.
func (s *RedisStore) Clear() error {
	ctx, cancel := context.WithTimeout(context.Background(), redisOpTimeout)
	defer cancel()

	if err := s.rdb.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("failed to remove cart mirror: %w", err)
	}
	return nil
}

// Close closes the Redis connection.
func (s *RedisStore) Close() error {
	return s.rdb.Close()
}
