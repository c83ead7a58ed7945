package systemd

import (
	"context"
	"testing"
	"time"

	logx "resident/pkg/logx"
	"resident/pkg/resident"
)

func TestNotifyWithoutSocketIsNoop(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	sent, err := Ready()
	if err != nil || sent {
		t.Fatalf("Ready() = %v, %v; want false, nil", sent, err)
	}
	if sent, err := Stopping(); err != nil || sent {
		t.Fatalf("Stopping() = %v, %v", sent, err)
	}
}

func TestWatchdogInterval(t *testing.T) {
	t.Setenv("WATCHDOG_USEC", "")
	t.Setenv("WATCHDOG_PID", "")
	if d, err := WatchdogInterval(); err != nil || d != 0 {
		t.Fatalf("disabled: got %v, %v", d, err)
	}

	t.Setenv("WATCHDOG_USEC", "2000000")
	d, err := WatchdogInterval()
	if err != nil {
		t.Fatal(err)
	}
	if d != time.Second {
		t.Fatalf("interval = %v, want 1s", d)
	}
}

func TestWatchdogTaskReschedules(t *testing.T) {
	t.Setenv("NOTIFY_SOCKET", "")
	st := WatchdogTask(3*time.Second, logx.Nop())(context.Background(), time.Now())
	if st != resident.Duration(3*time.Second) {
		t.Fatalf("state = %v", st)
	}
}
