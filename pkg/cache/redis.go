package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

// RedisCache is a thin JSON cache over a Redis client. The API server uses
// it as an optional read-through cache for stored analyses; a nil
// *RedisCache is a valid no-op receiver for Get/Set/Delete.
type RedisCache struct {
	client *redis.Client
	ctx    context.Context
}

// Config holds Redis connection settings
type Config struct {
	Addr     string
	Password string
	DB       int
}

// New connects to Redis and verifies the connection
func New(cfg Config) (*RedisCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	rc := &RedisCache{
		client: client,
		ctx:    client.Context(),
	}

	if err := client.Ping(rc.ctx).Err(); err != nil {
		return nil, fmt.Errorf("failed to connect to redis at %s: %w", cfg.Addr, err)
	}

	return rc, nil
}

// Set stores a JSON-encoded value with a TTL
func (rc *RedisCache) Set(key string, value interface{}, ttl time.Duration) error {
	if rc == nil {
		return nil
	}
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return rc.client.Set(rc.ctx, key, data, ttl).Err()
}

// Get loads a JSON-encoded value into dest. Returns redis.Nil when the key
// is absent; Miss distinguishes that case.
func (rc *RedisCache) Get(key string, dest interface{}) error {
	if rc == nil {
		return redis.Nil
	}
	data, err := rc.client.Get(rc.ctx, key).Bytes()
	if err != nil {
		return err
	}
	return json.Unmarshal(data, dest)
}

// Miss reports whether err from Get means the key was absent
func Miss(err error) bool {
	return err == redis.Nil
}

// Exists checks whether a key is present
func (rc *RedisCache) Exists(key string) (bool, error) {
	n, err := rc.client.Exists(rc.ctx, key).Result()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// Delete removes a key
func (rc *RedisCache) Delete(key string) error {
	if rc == nil {
		return nil
	}
	return rc.client.Del(rc.ctx, key).Err()
}

// SetNX stores a value only if the key does not already exist
func (rc *RedisCache) SetNX(key string, value interface{}, ttl time.Duration) (bool, error) {
	data, err := json.Marshal(value)
	if err != nil {
		return false, fmt.Errorf("failed to marshal cache value: %w", err)
	}
	return rc.client.SetNX(rc.ctx, key, data, ttl).Result()
}

// Close closes the underlying client
func (rc *RedisCache) Close() error {
	if rc == nil {
		return nil
	}
	return rc.client.Close()
}
