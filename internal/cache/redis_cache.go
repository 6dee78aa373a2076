package cache

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"
)

const invalidationChannel = "bidengine:cache:invalidate"

// RedisStore is the shared Store every replica reads and invalidates
type RedisStore struct {
	client *redis.Client
	stats  statsRecorder
}

var _ Store = (*RedisStore)(nil)

// NewRedisStore creates a new Redis client and verifies the connection
func NewRedisStore(config CacheConfig) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     config.RedisAddr,
		Password: config.RedisPassword,
		DB:       config.RedisDB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client}, nil
}

// Get retrieves a value from Redis
func (rs *RedisStore) Get(ctx context.Context, key string) ([]byte, error) {
	data, err := rs.client.Get(ctx, key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			rs.stats.recordMiss()
			return nil, ErrCacheMiss
		}
		rs.stats.recordError()
		return nil, fmt.Errorf("redis get error: %w", err)
	}

	rs.stats.recordHit()
	return data, nil
}

// Set stores a value in Redis
func (rs *RedisStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	if err := rs.client.Set(ctx, key, value, ttl).Err(); err != nil {
		rs.stats.recordError()
		return fmt.Errorf("redis set error: %w", err)
	}
	return nil
}

// Delete removes keys in a single DEL
func (rs *RedisStore) Delete(ctx context.Context, keys ...string) error {
	if len(keys) == 0 {
		return nil
	}
	if err := rs.client.Del(ctx, keys...).Err(); err != nil {
		rs.stats.recordError()
		return fmt.Errorf("redis delete error: %w", err)
	}
	return nil
}

// Stats returns cache statistics
func (rs *RedisStore) Stats() CacheStats {
	return rs.stats.snapshot()
}

// PublishInvalidation announces deleted keys to other replicas
func (rs *RedisStore) PublishInvalidation(ctx context.Context, keys ...string) error {
	if err := rs.client.Publish(ctx, invalidationChannel, strings.Join(keys, "\n")).Err(); err != nil {
		return fmt.Errorf("redis publish error: %w", err)
	}
	return nil
}

// SubscribeInvalidation calls handler with the keys of every published
// invalidation until ctx is cancelled.
func (rs *RedisStore) SubscribeInvalidation(ctx context.Context, handler func(keys []string)) error {
	pubsub := rs.client.Subscribe(ctx, invalidationChannel)
	defer pubsub.Close()

	// wait for the subscription to be confirmed
	if _, err := pubsub.Receive(ctx); err != nil {
		return fmt.Errorf("redis subscribe error: %w", err)
	}

	ch := pubsub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			handler(strings.Split(msg.Payload, "\n"))
		}
	}
}

// Ping checks Redis connection health
func (rs *RedisStore) Ping(ctx context.Context) error {
	return rs.client.Ping(ctx).Err()
}

// Close closes the Redis connection
func (rs *RedisStore) Close() error {
	return rs.client.Close()
}
