package app

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	goredis "github.com/redis/go-redis/v9"

	"resident/internal/config"
	"resident/internal/jobs"
	"resident/internal/queue"
	logx "resident/pkg/logx"
	"resident/pkg/resident"
	"resident/pkg/retry"
	"resident/pkg/systemd"
)

const (
	kindLooper = "looper"
	kindWorker = "worker"
)

// loopSpec is a built loop waiting to be spawned. Building can fail;
// spawning cannot.
type loopSpec struct {
	name  string
	kind  string
	sched resident.Schedule
	poll  time.Duration
	task  resident.Task
}

func (a *App) buildLoops(cfg *config.Config) ([]loopSpec, error) {
	policy, err := mapRetry(cfg, a.log.With(logx.String("comp", "retry")))
	if err != nil {
		return nil, err
	}

	var specs []loopSpec
	for _, l := range cfg.Loopers {
		if !l.IsEnabled() {
			a.log.Info("looper disabled", logx.String("name", l.Name))
			continue
		}
		sched, err := resident.ParseSchedule(l.Schedule)
		if err != nil {
			return nil, fmt.Errorf("looper %s: %w", l.Name, err)
		}
		poll, err := pollInterval("loopers."+l.Name+".poll_interval", l.PollInterval)
		if err != nil {
			return nil, err
		}
		bc, err := mapBatch(l, policy)
		if err != nil {
			return nil, err
		}
		specs = append(specs, loopSpec{
			name:  l.Name,
			kind:  kindLooper,
			sched: sched,
			poll:  poll,
			task:  a.batchTask(bc, a.log.With(logx.String("comp", "batch"))),
		})
	}

	for _, w := range cfg.Workers {
		if !w.IsEnabled() {
			a.log.Info("worker disabled", logx.String("name", w.Name))
			continue
		}
		poll, err := pollInterval("workers."+w.Name+".poll_interval", w.PollInterval)
		if err != nil {
			return nil, err
		}
		dc, err := mapDrain(w)
		if err != nil {
			return nil, err
		}
		log := a.log.With(logx.String("comp", "drain"), logx.String("worker", w.Name))
		task, err := a.drainTask(w.Queue, dc, log)
		if err != nil {
			return nil, fmt.Errorf("worker %s: %w", w.Name, err)
		}
		specs = append(specs, loopSpec{name: w.Name, kind: kindWorker, poll: poll, task: task})
	}

	if t := cfg.Telegram; t != nil {
		spec, err := a.notifierSpec(t, policy)
		if err != nil {
			return nil, err
		}
		specs = append(specs, spec)
	}

	if cfg.Systemd.Watchdog {
		interval, err := systemd.WatchdogInterval()
		switch {
		case err != nil:
			a.log.Warn("systemd watchdog unavailable", logx.Err(err))
		case interval <= 0:
			a.log.Info("systemd watchdog not requested by the unit")
		default:
			specs = append(specs, loopSpec{
				name: "systemd_watchdog",
				kind: kindWorker,
				poll: interval,
				task: systemd.WatchdogTask(interval, a.log.With(logx.String("comp", "systemd"))),
			})
		}
	}
	return specs, nil
}

func (a *App) batchTask(bc jobs.BatchConfig, log logx.Logger) resident.Task {
	if a.store.Postgres != nil {
		return jobs.BatchTask[*pgxpool.Conn](a.store.Postgres, jobs.PostgresGate{}, queue.Postgres{}, bc, log)
	}
	return jobs.BatchTask[*sql.Conn](a.store.SQL, jobs.SQLGate{}, queue.SQL{}, bc, log)
}

func (a *App) drainTask(kind string, dc jobs.DrainConfig, log logx.Logger) (resident.Task, error) {
	handle := jobs.AccountHandler(a.dir, log)
	switch strings.ToLower(strings.TrimSpace(kind)) {
	case "", config.QueueSQL:
		if a.store.Postgres != nil {
			return jobs.DrainTask[*pgxpool.Conn](a.store.Postgres, queue.Postgres{}, handle, dc, log), nil
		}
		return jobs.DrainTask[*sql.Conn](a.store.SQL, queue.SQL{}, handle, dc, log), nil
	case config.QueueRedis:
		if a.redis == nil {
			return nil, errors.New("redis queue needs a redis section")
		}
		return jobs.DrainTask[*goredis.Conn](a.redis, a.redisQueue, handle, dc, log), nil
	default:
		return nil, fmt.Errorf("unknown queue %q", kind)
	}
}

func (a *App) notifierSpec(t *config.TelegramConfig, policy retry.Policy) (loopSpec, error) {
	sched, err := resident.ParseSchedule(t.Schedule)
	if err != nil {
		return loopSpec{}, fmt.Errorf("telegram.schedule: %w", err)
	}
	sender := a.sender
	if sender == nil {
		bot, err := jobs.NewTelegramBot(t.Token)
		if err != nil {
			return loopSpec{}, fmt.Errorf("telegram: %w", err)
		}
		sender = bot
	}
	host, _ := os.Hostname()
	status := func(ctx context.Context, now time.Time) (string, error) {
		pending, err := a.Pending(ctx)
		if err != nil {
			return "", err
		}
		return jobs.StatusText(host, now, pending, a.dir.Cached()), nil
	}
	return loopSpec{
		name:  "telegram_status",
		kind:  kindLooper,
		sched: sched,
		poll:  defaultPollInterval,
		task:  jobs.NotifyTask(sender, t.ChatID, status, policy, a.log.With(logx.String("comp", "notify"))),
	}, nil
}

func (a *App) spawn(sig *resident.Signal, specs []loopSpec) []*resident.Handle {
	handles := make([]*resident.Handle, 0, len(specs))
	for _, s := range specs {
		opts := []resident.Option{
			resident.WithName(s.name),
			resident.WithLogger(a.log),
			resident.WithObserver(a.obs),
		}
		a.obs.Started(s.name, s.kind)
		var h *resident.Handle
		if s.kind == kindLooper {
			h = resident.SpawnLooper(sig, s.sched, s.poll, s.task, nil, opts...)
		} else {
			h = resident.SpawnWorker(sig, s.poll, s.task, nil, opts...)
		}
		handles = append(handles, h)
	}
	return handles
}
