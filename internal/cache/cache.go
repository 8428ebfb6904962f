// Package cache provides the byte-oriented lookup cache that fronts
// read-heavy companion queries. Two backends exist: Redis for deployments
// with several replicas, and an in-process go-cache store otherwise.
package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"github.com/redis/go-redis/v9"
)

// Cache stores opaque values under string keys with a per-entry TTL.
// A miss is reported as (nil, false, nil), not an error.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, bool, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// Memory is an in-process Cache.
type Memory struct {
	c *gocache.Cache
}

// NewMemory returns a Memory cache whose entries default to ttl and whose
// expired entries are purged every cleanup interval.
func NewMemory(ttl, cleanup time.Duration) *Memory {
	return &Memory{c: gocache.New(ttl, cleanup)}
}

func (m *Memory) Get(_ context.Context, key string) ([]byte, bool, error) {
	if v, ok := m.c.Get(key); ok {
		return v.([]byte), true, nil
	}
	return nil, false, nil
}

func (m *Memory) Set(_ context.Context, key string, value []byte, ttl time.Duration) error {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	m.c.Set(key, value, ttl)
	return nil
}

func (m *Memory) Delete(_ context.Context, key string) error {
	m.c.Delete(key)
	return nil
}

// Redis is a Cache backed by a Redis server.
type Redis struct {
	client *redis.Client
	prefix string
}

// NewRedis parses url (redis://[:password@]host:port/db) and returns a Redis
// cache whose keys are namespaced under prefix.
func NewRedis(url, prefix string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, err
	}
	return &Redis{client: redis.NewClient(opts), prefix: prefix}, nil
}

// NewRedisClient wraps an existing client.
func NewRedisClient(client *redis.Client, prefix string) *Redis {
	return &Redis{client: client, prefix: prefix}
}

func (r *Redis) Get(ctx context.Context, key string) ([]byte, bool, error) {
	val, err := r.client.Get(ctx, r.prefix+key).Bytes()
	if err == redis.Nil {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return val, true, nil
}

func (r *Redis) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	return r.client.Set(ctx, r.prefix+key, value, ttl).Err()
}

func (r *Redis) Delete(ctx context.Context, key string) error {
	return r.client.Del(ctx, r.prefix+key).Err()
}

// Ping checks connectivity.
func (r *Redis) Ping(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close releases the underlying connection pool.
func (r *Redis) Close() error {
	return r.client.Close()
}
