package config

import (
	"reflect"
	"sort"
	"strings"

	logx "resident/pkg/logx"
)

// SummarizeConfigChange returns a compact list of changed sections and safe
// structured attrs for logging (never includes secrets like tokens).
func SummarizeConfigChange(oldCfg, newCfg *Config) ([]string, []logx.Field) {
	if oldCfg == nil {
		oldCfg = &Config{}
	}
	if newCfg == nil {
		newCfg = &Config{}
	}

	changed := make([]string, 0, 6)
	attrs := make([]logx.Field, 0, 16)

	if !reflect.DeepEqual(oldCfg.Logging, newCfg.Logging) {
		changed = append(changed, "logging")
		attrs = append(attrs,
			logx.String("logging.level", newCfg.Logging.Level),
			logx.Bool("logging.console", newCfg.Logging.Console),
			logx.Bool("logging.file_enabled", newCfg.Logging.File.Enabled),
		)
	}

	if !reflect.DeepEqual(oldCfg.Metrics, newCfg.Metrics) {
		changed = append(changed, "metrics")
		if m := newCfg.Metrics; m != nil {
			attrs = append(attrs, logx.Bool("metrics.enabled", m.Enabled), logx.String("metrics.addr", strings.TrimSpace(m.Addr)))
		}
	}

	// Storage: never log the url, it may carry a password.
	oS, nS := oldCfg.Storage, newCfg.Storage
	if oS.Driver != nS.Driver || oS.Path != nS.Path || oS.URL != nS.URL || oS.BusyTimeout != nS.BusyTimeout || oS.MaxConns != nS.MaxConns {
		changed = append(changed, "storage")
		attrs = append(attrs,
			logx.String("storage.driver", nS.Driver),
			logx.Bool("storage.url_set", strings.TrimSpace(nS.URL) != ""),
			logx.Int("storage.max_conns", nS.MaxConns),
		)
	}

	if !reflect.DeepEqual(oldCfg.Redis, newCfg.Redis) {
		changed = append(changed, "redis")
		if r := newCfg.Redis; r != nil {
			attrs = append(attrs, logx.String("redis.addr", r.Addr), logx.Int("redis.db", r.DB))
		}
	}

	if oldCfg.Retry != newCfg.Retry {
		changed = append(changed, "retry")
		attrs = append(attrs,
			logx.Int("retry.max_attempts", newCfg.Retry.MaxAttempts),
			logx.String("retry.delay", newCfg.Retry.Delay),
			logx.Bool("retry.exponential", newCfg.Retry.Exponential),
		)
	}

	if !reflect.DeepEqual(oldCfg.Loopers, newCfg.Loopers) {
		changed = append(changed, "loopers")
		attrs = append(attrs, logx.Int("loopers.count", len(newCfg.Loopers)))
	}
	if !reflect.DeepEqual(oldCfg.Workers, newCfg.Workers) {
		changed = append(changed, "workers")
		attrs = append(attrs, logx.Int("workers.count", len(newCfg.Workers)))
	}
	if oldCfg.Accounts != newCfg.Accounts {
		changed = append(changed, "accounts")
		attrs = append(attrs, logx.String("accounts.expire_interval", newCfg.Accounts.ExpireInterval))
	}

	// Telegram: never log the token.
	oT, nT := derefTelegram(oldCfg.Telegram), derefTelegram(newCfg.Telegram)
	if (oldCfg.Telegram == nil) != (newCfg.Telegram == nil) || oT != nT {
		changed = append(changed, "telegram")
		attrs = append(attrs,
			logx.Bool("telegram.enabled", newCfg.Telegram != nil),
			logx.Bool("telegram.token_set", strings.TrimSpace(nT.Token) != ""),
			logx.String("telegram.schedule", nT.Schedule),
		)
	}

	if oldCfg.Systemd != newCfg.Systemd {
		changed = append(changed, "systemd")
		attrs = append(attrs, logx.Bool("systemd.watchdog", newCfg.Systemd.Watchdog))
	}

	sort.Strings(changed)
	return changed, attrs
}

func derefTelegram(t *TelegramConfig) TelegramConfig {
	if t == nil {
		return TelegramConfig{}
	}
	return *t
}

// RestartRequired reports whether a change touches sections that are only
// read at startup. Logging and metrics are applied live.
func RestartRequired(changed []string) bool {
	for _, s := range changed {
		switch s {
		case "logging", "metrics":
		default:
			return true
		}
	}
	return false
}
