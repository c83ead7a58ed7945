// Package app assembles a resident process from its config: storage, caches,
// loops, metrics, and systemd integration.
package app

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"sync"
	"syscall"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"resident/internal/accounts"
	"resident/internal/config"
	"resident/internal/jobs"
	"resident/internal/metrics"
	"resident/internal/queue"
	"resident/internal/runtime/supervisor"
	"resident/internal/storage"
	logx "resident/pkg/logx"
	"resident/pkg/pool"
	"resident/pkg/resident"
	"resident/pkg/systemd"
)

const defaultShutdownTimeout = 10 * time.Second

type App struct {
	cfgm *config.Manager
	cfg  *config.Config

	log  logx.Logger
	logs *logx.Service

	store      *storage.Backend
	redis      *pool.Redis
	redisQueue queue.Redis
	dir        accounts.Directory

	obs     *metrics.Observer
	metrics *metrics.Server
	sender  jobs.Sender

	closeOnce sync.Once

	// ShutdownTimeout bounds how long Run waits for loops after the signal fires.
	ShutdownTimeout time.Duration
}

type Option func(*App)

// WithSender replaces the Telegram bot used by the status notifier.
func WithSender(s jobs.Sender) Option { return func(a *App) { a.sender = s } }

// New loads and validates the config at cfgPath, then opens storage.
func New(ctx context.Context, cfgPath string, opts ...Option) (*App, error) {
	cfgm := config.NewManager(cfgPath)
	cfg, err := cfgm.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := config.Validate(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	logSvc, log := logx.New(mapLogging(cfg))
	a := &App{
		cfgm:            cfgm,
		cfg:             cfg,
		log:             log.With(logx.String("comp", "app")),
		logs:            logSvc,
		obs:             metrics.NewObserver(),
		ShutdownTimeout: defaultShutdownTimeout,
	}
	for _, o := range opts {
		o(a)
	}
	cfgm.SetLogger(log.With(logx.String("comp", "config")))
	cfgm.SetValidator(func(_ context.Context, c *config.Config) error { return config.Validate(c) })

	if err := a.open(ctx, cfg, log); err != nil {
		a.Close()
		return nil, err
	}
	a.metrics = metrics.NewServer(a.obs, a.health, log)
	return a, nil
}

func (a *App) open(ctx context.Context, cfg *config.Config, log logx.Logger) error {
	sc, err := mapStorage(cfg)
	if err != nil {
		return err
	}
	store, err := storage.Open(ctx, sc, log.With(logx.String("comp", "storage")))
	if err != nil {
		return err
	}
	a.store = store
	a.log.Info("storage ready", logx.String("driver", store.Driver))

	if r := cfg.Redis; r != nil {
		a.redis = pool.NewRedis(&goredis.Options{Addr: r.Addr, Password: r.Password, DB: r.DB})
		a.redisQueue = queue.Redis{Key: r.Key}
	}

	expire, keyExpire, err := mapAccounts(cfg)
	if err != nil {
		return err
	}
	dlog := log.With(logx.String("comp", "accounts"))
	if store.Postgres != nil {
		a.dir = accounts.NewPostgresDirectory(store.Postgres, expire, keyExpire, dlog)
	} else {
		a.dir = accounts.NewSQLDirectory(store.SQL, expire, keyExpire, dlog)
	}
	return nil
}

func (a *App) Store() *storage.Backend       { return a.store }
func (a *App) Accounts() accounts.Directory  { return a.dir }
func (a *App) Observer() *metrics.Observer   { return a.obs }
func (a *App) MetricsAddr() string           { return a.metrics.Addr() }
func (a *App) Config() *config.Manager { return a.cfgm }
func (a *App) Logger() logx.Logger           { return a.log }

// Pending counts queued jobs in the SQL store.
func (a *App) Pending(ctx context.Context) (int64, error) {
	if a.store.Postgres != nil {
		conn, release, err := a.store.Postgres.Acquire(ctx)
		if err != nil {
			return 0, err
		}
		defer release()
		return queue.Postgres{}.Len(ctx, conn)
	}
	conn, release, err := a.store.SQL.Acquire(ctx)
	if err != nil {
		return 0, err
	}
	defer release()
	return queue.SQL{}.Len(ctx, conn)
}

func (a *App) health(ctx context.Context) error {
	if a.store.Postgres != nil {
		return a.store.Postgres.Ping(ctx)
	}
	return a.store.SQL.DB().PingContext(ctx)
}

// Run spawns every configured loop and blocks until ctx ends, SIGINT/SIGTERM
// arrives, or a task returns AllTerminate. It then waits for the loops to
// finish and releases storage.
func (a *App) Run(ctx context.Context) error {
	defer a.Close()

	specs, err := a.buildLoops(a.cfg)
	if err != nil {
		return err
	}

	sig := resident.NewSignalContext(ctx)
	interrupt := resident.NotifyOn(sig, a.log, os.Interrupt, syscall.SIGTERM)
	sup := supervisor.New(sig.Context(), supervisor.WithLogger(a.log.With(logx.String("comp", "supervisor"))))

	mc, err := mapMetrics(a.cfg)
	if err != nil {
		sig.Cancel()
		return err
	}
	a.metrics.Apply(sig.Context(), mc)

	handles := a.spawn(sig, specs)
	a.log.Info("resident started", logx.Int("loops", len(handles)))

	sup.GoRestart("config.watch", a.cfgm.Watch, 250*time.Millisecond, 30*time.Second)
	sup.Go0("config.reload", a.reloadLoop)

	if sent, err := systemd.Ready(); err != nil {
		a.log.Warn("systemd notify failed", logx.Err(err))
	} else if sent {
		a.log.Debug("systemd notified ready")
	}

	<-sig.Done()
	a.log.Info("stopping")
	_, _ = systemd.Stopping()

	stopCtx, cancel := context.WithTimeout(context.Background(), a.ShutdownTimeout)
	defer cancel()

	var errs []error
	if err := resident.WaitAll(stopCtx, append(handles, interrupt)...); err != nil {
		errs = append(errs, fmt.Errorf("loops: %w", err))
	}
	a.metrics.Stop(stopCtx)
	if err := sup.Stop(stopCtx); err != nil {
		errs = append(errs, err)
	}
	a.log.Info("stopped")
	return errors.Join(errs...)
}

// reloadLoop applies the parts of a new config that can change live
// (logging and metrics) and warns about the rest.
func (a *App) reloadLoop(ctx context.Context) {
	sub := a.cfgm.Subscribe(8)
	defer a.cfgm.Unsubscribe(sub)

	last := a.cfg
	for {
		select {
		case <-ctx.Done():
			return
		case next, ok := <-sub:
			if !ok {
				return
			}
			// Coalesce bursts, keeping the newest.
			for drained := false; !drained; {
				select {
				case newer := <-sub:
					if newer != nil {
						next = newer
					}
				default:
					drained = true
				}
			}
			a.apply(ctx, last, next)
			last = next
		}
	}
}

func (a *App) apply(ctx context.Context, prev, next *config.Config) {
	changed, attrs := config.SummarizeConfigChange(prev, next)
	if len(changed) == 0 {
		a.log.Info("config reloaded (no changes)")
		return
	}

	a.logs.Apply(mapLogging(next))
	if mc, err := mapMetrics(next); err != nil {
		a.log.Warn("invalid metrics config; keeping previous", logx.Err(err))
	} else {
		a.metrics.Apply(ctx, mc)
	}

	fields := append([]logx.Field{logx.String("changed", strings.Join(changed, ","))}, attrs...)
	a.log.Info("config reloaded", fields...)
	if config.RestartRequired(changed) {
		a.log.Warn("config change needs a restart to take effect", logx.String("changed", strings.Join(changed, ",")))
	}
}

// Close releases storage and log sinks. Run calls it on exit; call it
// directly only when Run is never reached.
func (a *App) Close() {
	a.closeOnce.Do(a.close)
}

func (a *App) close() {
	if a.redis != nil {
		_ = a.redis.Close()
	}
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn("storage close failed", logx.Err(err))
		}
	}
	if a.logs != nil {
		_ = a.logs.Close()
	}
}
