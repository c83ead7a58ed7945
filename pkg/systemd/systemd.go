// Package systemd speaks the sd_notify protocol: readiness, stopping, and
// watchdog keep-alives. Every call is a no-op outside a systemd unit.
package systemd

import (
	"context"
	"time"

	"github.com/coreos/go-systemd/v22/daemon"

	logx "resident/pkg/logx"
	"resident/pkg/resident"
)

func notify(state string) (bool, error) { return daemon.SdNotify(false, state) }

// Ready reports startup completion. sent is false when NOTIFY_SOCKET is unset.
func Ready() (sent bool, err error) { return notify(daemon.SdNotifyReady) }

func Stopping() (bool, error) { return notify(daemon.SdNotifyStopping) }

// Status sets the free-form status line shown by systemctl status.
func Status(msg string) (bool, error) { return notify("STATUS=" + msg) }

// WatchdogInterval returns half the unit's WatchdogSec, or 0 when the
// watchdog is off for this process.
func WatchdogInterval() (time.Duration, error) {
	d, err := daemon.SdWatchdogEnabled(false)
	if err != nil || d <= 0 {
		return 0, err
	}
	return d / 2, nil
}

// WatchdogTask returns a worker task that pings the watchdog every interval.
func WatchdogTask(interval time.Duration, log logx.Logger) resident.Task {
	if log.IsZero() {
		log = logx.Nop()
	}
	th := logx.NewThrottle(time.Minute, 1)
	return func(context.Context, time.Time) resident.LoopState {
		if _, err := notify(daemon.SdNotifyWatchdog); err != nil {
			th.Warn(log, "watchdog", "systemd watchdog ping failed", logx.Err(err))
		}
		return resident.Duration(interval)
	}
}
