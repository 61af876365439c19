package cache

import (
	"context"
	"time"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
)

// KeyPrefix is the prefix for short code keys
const KeyPrefix = "short:"

// Key returns the cache key for a short code
func Key(shortCode string) string {
	return KeyPrefix + shortCode
}

// RedisCache stores short code to URL mappings in Redis
type RedisCache struct {
	client *redis.Client
}

// RedisOptions configures the Redis connection
type RedisOptions struct {
	Addr         string
	Password     string
	DB           int
	PoolSize     int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// NewRedisCache connects to Redis and verifies the connection
func NewRedisCache(opts RedisOptions) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     opts.PoolSize,
		DialTimeout:  opts.DialTimeout,
		ReadTimeout:  opts.ReadTimeout,
		WriteTimeout: opts.WriteTimeout,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, errors.Wrap(err, "failed to connect to Redis")
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheFromClient wraps an existing client
func NewRedisCacheFromClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Get returns the cached URL for a short code; ok is false on a miss
func (r *RedisCache) Get(ctx context.Context, shortCode string) (string, bool, error) {
	val, err := r.client.Get(ctx, Key(shortCode)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errors.Wrap(err, "failed to get from Redis")
	}
	return val, true, nil
}

// SetWithTTL caches the URL for a short code
func (r *RedisCache) SetWithTTL(ctx context.Context, shortCode, originalURL string, ttl time.Duration) error {
	if err := r.client.Set(ctx, Key(shortCode), originalURL, ttl).Err(); err != nil {
		return errors.Wrap(err, "failed to set in Redis")
	}
	return nil
}

// Delete removes a short code from cache. Deleting a missing key is not an error.
func (r *RedisCache) Delete(ctx context.Context, shortCode string) error {
	if err := r.client.Del(ctx, Key(shortCode)).Err(); err != nil {
		return errors.Wrap(err, "failed to delete from Redis")
	}
	return nil
}

// Ping checks the Redis connection
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	return r.client.Close()
}

// Client returns the underlying Redis client
func (r *RedisCache) Client() *redis.Client {
	return r.client
}
