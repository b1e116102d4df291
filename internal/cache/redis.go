// Package cache holds the shared embedding cache. Vectors are stored in
// Redis as little-endian float32 bytes so every API instance reuses query
// embeddings computed by the others.
package cache

import (
	"context"
	"encoding/binary"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"

	ferrors "github.com/lukketsvane/frivillig-db/internal/errors"
)

const (
	// keyPrefix namespaces embedding keys.
	keyPrefix = "frivillig:emb:"

	// DefaultTTL applies when no TTL is configured.
	DefaultTTL = 24 * time.Hour
)

// Redis stores embeddings in Redis.
type Redis struct {
	client *redis.Client
	ttl    time.Duration
}

// RedisOption configures a Redis cache.
type RedisOption func(*Redis)

// WithTTL sets the expiry of new entries. Zero keeps the default.
func WithTTL(ttl time.Duration) RedisOption {
	return func(r *Redis) {
		if ttl > 0 {
			r.ttl = ttl
		}
	}
}

// NewRedis wraps an existing client.
func NewRedis(client *redis.Client, opts ...RedisOption) *Redis {
	r := &Redis{client: client, ttl: DefaultTTL}
	for _, opt := range opts {
		if opt != nil {
			opt(r)
		}
	}
	return r
}

// Connect parses url, pings the server and returns the cache. An empty url
// returns nil, nil: Redis is optional.
func Connect(ctx context.Context, url string, opts ...RedisOption) (*Redis, error) {
	if url == "" {
		return nil, nil
	}

	ropts, err := redis.ParseURL(url)
	if err != nil {
		return nil, ferrors.ConfigError("parse redis url", err)
	}
	client := redis.NewClient(ropts)

	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, ferrors.UpstreamError("redis ping failed", err)
	}
	return NewRedis(client, opts...), nil
}

// Get returns the vector stored under key. A missing key is (nil, false, nil).
func (r *Redis) Get(ctx context.Context, key string) ([]float32, bool, error) {
	b, err := r.client.Get(ctx, keyPrefix+key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}

	vec, err := decode(b)
	if err != nil {
		return nil, false, err
	}
	return vec, true, nil
}

// Set stores vec under key with the configured TTL.
func (r *Redis) Set(ctx context.Context, key string, vec []float32) error {
	return r.client.Set(ctx, keyPrefix+key, encode(vec), r.ttl).Err()
}

// Health pings the server.
func (r *Redis) Health(ctx context.Context) error {
	return r.client.Ping(ctx).Err()
}

// Close closes the client.
func (r *Redis) Close() error {
	return r.client.Close()
}

func encode(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, v := range vec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(v))
	}
	return b
}

func decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("cached vector has %d bytes, not a multiple of 4", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return vec, nil
}
