package storage

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/parting-gifts/internal/config"
)

// RedisCache wraps the Redis client
type RedisCache struct {
	client *redis.Client
}

// NewRedisCache creates a new Redis cache connection
func NewRedisCache(cfg *config.RedisConfig) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         fmt.Sprintf("%s:%s", cfg.Host, cfg.Port),
		Password:     cfg.Password,
		DB:           cfg.DB,
		PoolSize:     cfg.MaxConnections,
		MinIdleConns: 5,
		MaxRetries:   3,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
		PoolTimeout:  4 * time.Second,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisCache{client: client}, nil
}

// NewRedisCacheWithClient wraps an existing client. Used in tests.
func NewRedisCacheWithClient(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

// Close closes the Redis connection
func (r *RedisCache) Close() error {
	if r.client != nil {
		return r.client.Close()
	}
	return nil
}

// Ping checks if Redis is reachable
func (r *RedisCache) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// ErrCacheMiss is returned when a key is not cached.
var ErrCacheMiss = errors.New("cache miss")

const (
	unreadCountTTL  = 30 * time.Second
	discoverTTL     = time.Minute
	unreadKeyPrefix = "unread:"
	discoverPrefix  = "discover:"
)

// GetUnreadCount returns the cached unread message count for a user.
func (r *RedisCache) GetUnreadCount(ctx context.Context, username string) (int, error) {
	val, err := r.client.Get(ctx, unreadKeyPrefix+username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, ErrCacheMiss
		}
		return 0, fmt.Errorf("failed to get unread count: %w", err)
	}
	count, err := strconv.Atoi(val)
	if err != nil {
		return 0, ErrCacheMiss
	}
	return count, nil
}

// SetUnreadCount caches the unread message count for a user.
func (r *RedisCache) SetUnreadCount(ctx context.Context, username string, count int) error {
	return r.client.Set(ctx, unreadKeyPrefix+username, count, unreadCountTTL).Err()
}

// InvalidateUnreadCount drops the cached unread count for a user.
func (r *RedisCache) InvalidateUnreadCount(ctx context.Context, username string) error {
	return r.client.Del(ctx, unreadKeyPrefix+username).Err()
}

// GetDiscover returns the cached discover list for a user.
func (r *RedisCache) GetDiscover(ctx context.Context, username string) ([]string, error) {
	val, err := r.client.Get(ctx, discoverPrefix+username).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, ErrCacheMiss
		}
		return nil, fmt.Errorf("failed to get discover list: %w", err)
	}
	var users []string
	if err := json.Unmarshal([]byte(val), &users); err != nil {
		return nil, ErrCacheMiss
	}
	return users, nil
}

// SetDiscover caches the discover list for a user.
func (r *RedisCache) SetDiscover(ctx context.Context, username string, users []string) error {
	data, err := json.Marshal(users)
	if err != nil {
		return fmt.Errorf("failed to marshal discover list: %w", err)
	}
	return r.client.Set(ctx, discoverPrefix+username, data, discoverTTL).Err()
}

// InvalidateDiscover drops the cached discover list for a user.
func (r *RedisCache) InvalidateDiscover(ctx context.Context, username string) error {
	return r.client.Del(ctx, discoverPrefix+username).Err()
}
