package jobs

import (
	"context"
	"time"

	"golang.org/x/time/rate"

	"resident/internal/queue"
	logx "resident/pkg/logx"
	"resident/pkg/pool"
	"resident/pkg/resident"
)

const defaultIdleBackoff = 2 * time.Second

// Handler processes one decoded job. Errors are logged; the job is not requeued.
type Handler func(ctx context.Context, job queue.Job) error

type DrainConfig struct {
	// IdleBackoff is how long the worker sleeps after finding nothing (or failing).
	IdleBackoff time.Duration
	// RatePerSec caps handled jobs per second. 0 disables the cap.
	RatePerSec int
}

// DrainTask returns a worker task that pops one job per run. It returns
// Continue while jobs keep coming and Duration(IdleBackoff) once the queue
// is empty or the store fails.
func DrainTask[C any](p pool.Pool[C], q queue.Queue[C], handle Handler, cfg DrainConfig, log logx.Logger) resident.Task {
	if log.IsZero() {
		log = logx.Nop()
	}
	idle := cfg.IdleBackoff
	if idle <= 0 {
		idle = defaultIdleBackoff
	}
	var lim *rate.Limiter
	if cfg.RatePerSec > 0 {
		lim = rate.NewLimiter(rate.Limit(cfg.RatePerSec), cfg.RatePerSec)
	}
	th := logx.NewThrottle(30*time.Second, 1)

	// The connection goes back to the pool before the handler runs so the
	// handler can acquire its own (SQLite pools hold a single connection).
	pop := func(ctx context.Context) ([]byte, bool, error) {
		conn, release, err := p.Acquire(ctx)
		if err != nil {
			return nil, false, err
		}
		defer release()
		return q.Pop(ctx, conn)
	}

	drain := func(ctx context.Context, _ time.Time) resident.LoopState {
		payload, ok, err := pop(ctx)
		if err != nil {
			th.Warn(log, "pop", "drain: pop failed", logx.Err(err))
			return resident.Duration(idle)
		}
		if !ok {
			log.Trace("drain: queue empty", logx.Duration("idle", idle))
			return resident.Duration(idle)
		}

		job, err := queue.DecodeJob(payload)
		if err != nil {
			log.Warn("drain: dropping undecodable job", logx.Err(err), logx.Int("bytes", len(payload)))
			return resident.Continue()
		}
		start := time.Now()
		if err := handle(ctx, job); err != nil {
			log.Warn("drain: job failed", logx.String("job", job.ID.String()), logx.Err(err))
			return resident.Continue()
		}
		log.Debug("drain: job done", logx.String("job", job.ID.String()), logx.Duration("took", time.Since(start)))
		return resident.Continue()
	}

	if lim == nil {
		return drain
	}
	return func(ctx context.Context, now time.Time) resident.LoopState {
		r := lim.ReserveN(now, 1)
		if d := r.DelayFrom(now); d > 0 {
			r.CancelAt(now)
			return resident.Duration(d)
		}
		return drain(ctx, now)
	}
}
