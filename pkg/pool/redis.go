package pool

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// Redis hands out dedicated *redis.Conn from a go-redis client.
type Redis struct {
	client *redis.Client
	owned  bool
}

// NewRedis builds a client from opts. Connections are dialed lazily.
func NewRedis(opts *redis.Options) *Redis {
	return &Redis{client: redis.NewClient(opts), owned: true}
}

// RedisFromURL parses a redis:// URL.
func RedisFromURL(url string) (*Redis, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("pool/redis: parse url: %w", err)
	}
	return NewRedis(opts), nil
}

// RedisFromClient wraps an existing client. The caller keeps ownership.
func RedisFromClient(c *redis.Client) *Redis { return &Redis{client: c} }

func (r *Redis) Acquire(ctx context.Context) (*redis.Conn, func(), error) {
	conn := r.client.Conn()
	if err := conn.Ping(ctx).Err(); err != nil {
		_ = conn.Close()
		return nil, nil, fmt.Errorf("pool/redis: acquire: %w", err)
	}
	return conn, func() { _ = conn.Close() }, nil
}

func (r *Redis) Client() *redis.Client { return r.client }

func (r *Redis) Close() error {
	if r == nil || !r.owned || r.client == nil {
		return nil
	}
	return r.client.Close()
}
