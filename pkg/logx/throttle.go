package logx

import (
	"strings"
	"sync"
	"time"

	"golang.org/x/time/rate"
)

// Throttle gates repeated log lines per key.
//
// A loop that fails on every tick (e.g. a dead database) would otherwise emit
// one warning per poll. Each key gets its own token bucket; Allow reports
// whether the caller should log now.
type Throttle struct {
	every time.Duration
	burst int

	mu   sync.Mutex
	lims map[string]*rate.Limiter
}

// NewThrottle allows burst lines per key, refilling one token every `every`.
func NewThrottle(every time.Duration, burst int) *Throttle {
	if every <= 0 {
		every = 5 * time.Second
	}
	if burst <= 0 {
		burst = 1
	}
	return &Throttle{every: every, burst: burst, lims: map[string]*rate.Limiter{}}
}

func (t *Throttle) Allow(key string) bool {
	if t == nil {
		return true
	}
	key = strings.TrimSpace(key)
	t.mu.Lock()
	lim := t.lims[key]
	if lim == nil {
		lim = rate.NewLimiter(rate.Every(t.every), t.burst)
		t.lims[key] = lim
	}
	t.mu.Unlock()
	return lim.Allow()
}

// Warn logs at warn level unless key is currently throttled.
func (t *Throttle) Warn(l Logger, key, msg string, fields ...Field) {
	if !t.Allow(key) {
		return
	}
	l.log(LevelWarn, msg, fields...)
}
