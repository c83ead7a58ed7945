package config

import (
	"errors"
	"fmt"
	"strings"

	"resident/pkg/resident"
)

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"

	QueueSQL   = "sql"
	QueueRedis = "redis"
)

// Validate checks the whole config and reports every problem it finds.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	var errs []error
	add := func(err error) {
		if err != nil {
			errs = append(errs, err)
		}
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Storage.Driver)) {
	case "", DriverSQLite:
		if strings.TrimSpace(cfg.Storage.Path) == "" {
			add(errors.New("storage.path: required for sqlite"))
		}
		_, err := Duration("storage.busy_timeout", cfg.Storage.BusyTimeout, 0)
		add(err)
	case DriverPostgres:
		if strings.TrimSpace(cfg.Storage.URL) == "" {
			add(errors.New("storage.url: required for postgres"))
		}
		if cfg.Storage.MaxConns < 0 {
			add(errors.New("storage.max_conns: must be >= 0"))
		}
	default:
		add(fmt.Errorf("storage.driver: unknown driver %q", cfg.Storage.Driver))
	}

	if cfg.Retry.MaxAttempts < 0 {
		add(errors.New("retry.max_attempts: must be >= 0"))
	}
	_, err := Duration("retry.delay", cfg.Retry.Delay, 0)
	add(err)
	_, err = Duration("retry.timeout", cfg.Retry.Timeout, 0)
	add(err)

	names := map[string]string{}
	seen := func(kind, path, name string) {
		if strings.TrimSpace(name) == "" {
			add(fmt.Errorf("%s.name: required", path))
			return
		}
		if prev, ok := names[name]; ok {
			add(fmt.Errorf("%s.name: %q already used by a %s", path, name, prev))
			return
		}
		names[name] = kind
	}

	for i, l := range cfg.Loopers {
		path := fmt.Sprintf("loopers[%d]", i)
		seen("looper", path, l.Name)
		if _, err := resident.ParseSchedule(l.Schedule); err != nil {
			add(fmt.Errorf("%s.schedule: %w", path, err))
		}
		_, err := Duration(path+".poll_interval", l.PollInterval, 0)
		add(err)
		_, err = Duration(path+".batch_window", l.BatchWindow, 0)
		add(err)
	}

	for i, w := range cfg.Workers {
		path := fmt.Sprintf("workers[%d]", i)
		seen("worker", path, w.Name)
		switch strings.ToLower(strings.TrimSpace(w.Queue)) {
		case "", QueueSQL:
		case QueueRedis:
			if cfg.Redis == nil || strings.TrimSpace(cfg.Redis.Addr) == "" {
				add(fmt.Errorf("%s.queue: redis queue needs a redis section", path))
			}
		default:
			add(fmt.Errorf("%s.queue: unknown queue %q", path, w.Queue))
		}
		_, err := Duration(path+".poll_interval", w.PollInterval, 0)
		add(err)
		_, err = Duration(path+".idle_backoff", w.IdleBackoff, 0)
		add(err)
		if w.RatePerSec < 0 {
			add(fmt.Errorf("%s.rate_per_sec: must be >= 0", path))
		}
	}

	_, err = Duration("accounts.expire_interval", cfg.Accounts.ExpireInterval, 0)
	add(err)
	_, err = Duration("accounts.key_expire", cfg.Accounts.KeyExpire, 0)
	add(err)

	if m := cfg.Metrics; m != nil && m.Enabled {
		_, err := Duration("metrics.read_timeout", m.ReadTimeout, 0)
		add(err)
		_, err = Duration("metrics.write_timeout", m.WriteTimeout, 0)
		add(err)
	}

	if t := cfg.Telegram; t != nil {
		if strings.TrimSpace(t.Token) == "" {
			add(errors.New("telegram.token: required"))
		}
		if t.ChatID == 0 {
			add(errors.New("telegram.chat_id: required"))
		}
		if _, err := resident.ParseSchedule(t.Schedule); err != nil {
			add(fmt.Errorf("telegram.schedule: %w", err))
		}
	}

	return errors.Join(errs...)
}
