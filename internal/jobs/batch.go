// Package jobs holds the task bodies resident runs: batch producers driven by
// loopers, queue drainers driven by workers, and the status notifier.
package jobs

import (
	"context"
	"time"

	"resident/internal/queue"
	logx "resident/pkg/logx"
	"resident/pkg/pool"
	"resident/pkg/resident"
	"resident/pkg/retry"
)

type BatchConfig struct {
	Code   string
	Window time.Duration
	Retry  retry.Policy
}

// BatchTask returns a looper task that, once per batch window across all
// processes sharing the store, enqueues a Job stamped with the tick time.
//
// Store failures are logged and the looper carries on with its schedule.
func BatchTask[C any](p pool.Pool[C], gate Gate[C], q queue.Queue[C], cfg BatchConfig, log logx.Logger) resident.Task {
	if log.IsZero() {
		log = logx.Nop()
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry.MaxAttempts = 1
	}
	log = log.With(logx.String("batch", cfg.Code))
	cfg.Retry.Log = log

	return pool.WithConn(p, func(ctx context.Context, now time.Time, conn C, err error) resident.LoopState {
		if err != nil {
			log.Warn("batch skipped: no connection", logx.Err(err))
			return resident.Continue()
		}

		slot := Slot(now, cfg.Window)
		claim, err := retry.Execute(ctx, cfg.Retry, func(ctx context.Context, _ int) (bool, error) {
			return gate.Claim(ctx, conn, cfg.Code, slot)
		})
		if err != nil {
			return resident.Continue()
		}
		if !claim.OK {
			log.Warn("batch claim failed", logx.Int("attempts", claim.Attempts()), logx.Err(claim.Err()))
			return resident.Continue()
		}
		if !claim.Value {
			log.Info("batch already claimed", logx.Int64("slot", slot))
			return resident.Continue()
		}

		payload, err := queue.NewJob(cfg.Code, now).Encode()
		if err != nil {
			log.Error("batch encode failed", logx.Err(err))
			return resident.Continue()
		}
		push, err := retry.Do(ctx, cfg.Retry, func(ctx context.Context, _ int) error {
			return q.Push(ctx, conn, payload)
		})
		if err != nil {
			return resident.Continue()
		}
		if !push.OK {
			log.Warn("batch enqueue failed", logx.Int("attempts", push.Attempts()), logx.Err(push.Err()))
			return resident.Continue()
		}
		log.Info("batch enqueued", logx.Int64("slot", slot), logx.Time("now", now))
		return resident.Continue()
	})
}
