package config

// Config is the on-disk configuration of a resident process.
//
// All durations are Go duration strings (e.g. "500ms", "10s", "1m").
// JSON and YAML are both accepted; unknown keys are rejected.
type Config struct {
	Logging  LoggingConfig   `json:"logging"`
	Metrics  *MetricsConfig  `json:"metrics,omitempty"`
	Storage  StorageConfig   `json:"storage"`
	Redis    *RedisConfig    `json:"redis,omitempty"`
	Retry    RetryConfig     `json:"retry"`
	Loopers  []LooperConfig  `json:"loopers"`
	Workers  []WorkerConfig  `json:"workers"`
	Accounts AccountsConfig  `json:"accounts"`
	Telegram *TelegramConfig `json:"telegram,omitempty"`
	Systemd  SystemdConfig   `json:"systemd"`
}

type LoggingConfig struct {
	Level   string      `json:"level"`
	Console bool        `json:"console"`
	File    LoggingFile `json:"file"`
}

type LoggingFile struct {
	Enabled bool   `json:"enabled"`
	Path    string `json:"path"`
}

// MetricsConfig controls the Prometheus endpoint. Omit the section to disable it.
//
// Prefer binding to localhost (e.g. "127.0.0.1:9464").
type MetricsConfig struct {
	Enabled bool   `json:"enabled"`
	Addr    string `json:"addr,omitempty"` // default: "127.0.0.1:9464"
	Path    string `json:"path,omitempty"` // default: "/metrics"

	ReadTimeout  string `json:"read_timeout,omitempty"`
	WriteTimeout string `json:"write_timeout,omitempty"`
}

// StorageConfig selects the SQL backend for jobs, batches and accounts.
//
// Example:
//
//	"storage": { "driver": "sqlite", "path": "./data/resident.db" }
//	"storage": { "driver": "postgres", "url": "postgres://localhost/resident", "max_conns": 8 }
type StorageConfig struct {
	Driver      string `json:"driver"`
	Path        string `json:"path,omitempty"`
	URL         string `json:"url,omitempty"`
	BusyTimeout string `json:"busy_timeout,omitempty"` // sqlite only
	MaxConns    int    `json:"max_conns,omitempty"`    // postgres only
}

type RedisConfig struct {
	Addr     string `json:"addr"`
	Password string `json:"password,omitempty"`
	DB       int    `json:"db,omitempty"`
	// Key is the list that holds queued jobs. Default: "resident:jobs".
	Key string `json:"key,omitempty"`
}

// RetryConfig is the policy batch tasks use for their writes.
//
// Defaults: max_attempts 3, delay "200ms", timeout "5s", exponential false.
type RetryConfig struct {
	MaxAttempts int    `json:"max_attempts,omitempty"`
	Delay       string `json:"delay,omitempty"`
	Timeout     string `json:"timeout,omitempty"`
	Exponential bool   `json:"exponential,omitempty"`
}

// LooperConfig declares one schedule-driven batch producer.
//
// Schedule accepts cron expressions (5 or 6 fields, or descriptors like
// "@hourly") and intervals ("interval:30s", "every:5m", "10m", "01:30").
type LooperConfig struct {
	Name         string `json:"name"`
	Schedule     string `json:"schedule"`
	PollInterval string `json:"poll_interval,omitempty"` // default: "1s"
	BatchCode    string `json:"batch_code,omitempty"`    // default: name
	BatchWindow  string `json:"batch_window,omitempty"`  // default: "1m"
	Enabled      *bool  `json:"enabled,omitempty"`       // default: true
}

func (l LooperConfig) IsEnabled() bool { return l.Enabled == nil || *l.Enabled }

// WorkerConfig declares one queue drainer.
type WorkerConfig struct {
	Name         string `json:"name"`
	Queue        string `json:"queue"`                   // "sql" (default) or "redis"
	PollInterval string `json:"poll_interval,omitempty"` // default: "1s"
	IdleBackoff  string `json:"idle_backoff,omitempty"`  // default: "2s"
	RatePerSec   int    `json:"rate_per_sec,omitempty"`  // 0 = unlimited
	Enabled      *bool  `json:"enabled,omitempty"`
}

func (w WorkerConfig) IsEnabled() bool { return w.Enabled == nil || *w.Enabled }

type AccountsConfig struct {
	// ExpireInterval is the whole-map refresh period. Default: "1m".
	ExpireInterval string `json:"expire_interval,omitempty"`
	// KeyExpire is the per-key TTL. Default: expire_interval.
	KeyExpire string `json:"key_expire,omitempty"`
}

// TelegramConfig enables the periodic status notifier. Omit to disable.
type TelegramConfig struct {
	Token    string `json:"token"`
	ChatID   int64  `json:"chat_id"`
	Schedule string `json:"schedule"`
}

type SystemdConfig struct {
	// Watchdog pings systemd at half of WATCHDOG_USEC when the unit sets WatchdogSec.
	Watchdog bool `json:"watchdog"`
}
