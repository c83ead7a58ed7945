package app

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"resident/internal/accounts"
	"resident/internal/config"
	"resident/internal/queue"
)

// Enqueue pushes one job onto the SQL store queue or, with kind "redis",
// onto the configured redis list.
func (a *App) Enqueue(ctx context.Context, kind string, job queue.Job) error {
	payload, err := job.Encode()
	if err != nil {
		return err
	}
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", config.QueueSQL:
		if a.store.Postgres != nil {
			conn, release, err := a.store.Postgres.Acquire(ctx)
			if err != nil {
				return err
			}
			defer release()
			return queue.Postgres{}.Push(ctx, conn, payload)
		}
		conn, release, err := a.store.SQL.Acquire(ctx)
		if err != nil {
			return err
		}
		defer release()
		return queue.SQL{}.Push(ctx, conn, payload)
	case config.QueueRedis:
		if a.redis == nil {
			return errors.New("redis queue needs a redis section")
		}
		conn, release, err := a.redis.Acquire(ctx)
		if err != nil {
			return err
		}
		defer release()
		return a.redisQueue.Push(ctx, conn, payload)
	default:
		return fmt.Errorf("unknown queue %q", kind)
	}
}

// PutAccount writes an account through the directory.
func (a *App) PutAccount(ctx context.Context, acc accounts.Account) error {
	return a.dir.Put(ctx, acc)
}
