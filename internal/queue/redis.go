package queue

import (
	"context"
	"errors"
	"fmt"
	"strings"

	goredis "github.com/redis/go-redis/v9"
)

const DefaultRedisKey = "resident:jobs"

// Redis is a list-backed queue: LPUSH on push, RPOP on pop.
type Redis struct {
	Key string
}

var _ Queue[*goredis.Conn] = Redis{}

func (r Redis) key() string {
	if k := strings.TrimSpace(r.Key); k != "" {
		return k
	}
	return DefaultRedisKey
}

func (r Redis) Push(ctx context.Context, conn *goredis.Conn, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if err := conn.LPush(ctx, r.key(), payload).Err(); err != nil {
		return fmt.Errorf("queue/redis: push: %w", err)
	}
	return nil
}

func (r Redis) Pop(ctx context.Context, conn *goredis.Conn) ([]byte, bool, error) {
	b, err := conn.RPop(ctx, r.key()).Bytes()
	if errors.Is(err, goredis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("queue/redis: pop: %w", err)
	}
	return b, true, nil
}

func (r Redis) Len(ctx context.Context, conn *goredis.Conn) (int64, error) {
	n, err := conn.LLen(ctx, r.key()).Result()
	if err != nil {
		return 0, fmt.Errorf("queue/redis: len: %w", err)
	}
	return n, nil
}
