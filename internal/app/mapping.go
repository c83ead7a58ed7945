package app

import (
	"fmt"
	"strings"
	"time"

	"resident/internal/config"
	"resident/internal/jobs"
	"resident/internal/metrics"
	"resident/internal/storage"
	logx "resident/pkg/logx"
	"resident/pkg/retry"
)

const (
	defaultBusyTimeout  = time.Second
	defaultPollInterval = time.Second
	defaultRetryDelay   = 200 * time.Millisecond
	defaultRetryTimeout = 5 * time.Second
	defaultMaxAttempts  = 3
)

func mapLogging(cfg *config.Config) logx.Config {
	return logx.Config{
		Level:   cfg.Logging.Level,
		Console: cfg.Logging.Console,
		File: logx.FileConfig{
			Enabled: cfg.Logging.File.Enabled,
			Path:    cfg.Logging.File.Path,
		},
	}
}

func mapStorage(cfg *config.Config) (storage.Config, error) {
	sc := cfg.Storage
	driver := strings.ToLower(strings.TrimSpace(sc.Driver))
	switch driver {
	case "", "sqlite3", storage.DriverSQLite:
		busy, err := config.Duration("storage.busy_timeout", sc.BusyTimeout, defaultBusyTimeout)
		if err != nil {
			return storage.Config{}, err
		}
		return storage.Config{Driver: storage.DriverSQLite, Path: strings.TrimSpace(sc.Path), BusyTimeout: busy}, nil
	case storage.DriverPostgres, "pgx":
		return storage.Config{Driver: storage.DriverPostgres, URL: strings.TrimSpace(sc.URL), MaxConns: int32(sc.MaxConns)}, nil
	default:
		return storage.Config{}, fmt.Errorf("unknown storage.driver: %s", sc.Driver)
	}
}

func mapRetry(cfg *config.Config, log logx.Logger) (retry.Policy, error) {
	delay, err := config.Duration("retry.delay", cfg.Retry.Delay, defaultRetryDelay)
	if err != nil {
		return retry.Policy{}, err
	}
	timeout, err := config.Duration("retry.timeout", cfg.Retry.Timeout, defaultRetryTimeout)
	if err != nil {
		return retry.Policy{}, err
	}
	attempts := cfg.Retry.MaxAttempts
	if attempts <= 0 {
		attempts = defaultMaxAttempts
	}
	return retry.Policy{
		MaxAttempts: attempts,
		Delay:       delay,
		Timeout:     timeout,
		Exponential: cfg.Retry.Exponential,
		Log:         log,
	}, nil
}

func mapBatch(l config.LooperConfig, policy retry.Policy) (jobs.BatchConfig, error) {
	window, err := config.Duration(fmt.Sprintf("loopers[%s].batch_window", l.Name), l.BatchWindow, 0)
	if err != nil {
		return jobs.BatchConfig{}, err
	}
	code := strings.TrimSpace(l.BatchCode)
	if code == "" {
		code = l.Name
	}
	return jobs.BatchConfig{Code: code, Window: window, Retry: policy}, nil
}

func mapDrain(w config.WorkerConfig) (jobs.DrainConfig, error) {
	idle, err := config.Duration(fmt.Sprintf("workers[%s].idle_backoff", w.Name), w.IdleBackoff, 0)
	if err != nil {
		return jobs.DrainConfig{}, err
	}
	return jobs.DrainConfig{IdleBackoff: idle, RatePerSec: w.RatePerSec}, nil
}

func mapAccounts(cfg *config.Config) (expire, keyExpire time.Duration, err error) {
	if expire, err = config.Duration("accounts.expire_interval", cfg.Accounts.ExpireInterval, 0); err != nil {
		return 0, 0, err
	}
	if keyExpire, err = config.Duration("accounts.key_expire", cfg.Accounts.KeyExpire, 0); err != nil {
		return 0, 0, err
	}
	return expire, keyExpire, nil
}

func mapMetrics(cfg *config.Config) (metrics.ServerConfig, error) {
	m := cfg.Metrics
	if m == nil || !m.Enabled {
		return metrics.ServerConfig{}, nil
	}
	rt, err := config.Duration("metrics.read_timeout", m.ReadTimeout, 0)
	if err != nil {
		return metrics.ServerConfig{}, err
	}
	wt, err := config.Duration("metrics.write_timeout", m.WriteTimeout, 0)
	if err != nil {
		return metrics.ServerConfig{}, err
	}
	return metrics.ServerConfig{
		Enabled:      true,
		Addr:         strings.TrimSpace(m.Addr),
		Path:         strings.TrimSpace(m.Path),
		ReadTimeout:  rt,
		WriteTimeout: wt,
	}, nil
}

func pollInterval(path, raw string) (time.Duration, error) {
	return config.Duration(path, raw, defaultPollInterval)
}
