package resident

import (
	"time"
)

// SpawnWorker starts a self-paced loop.
//
// The task runs immediately. Continue runs it again as soon as possible
// (drain-a-queue polling); Duration(d) waits d before the next attempt.
func SpawnWorker(sig *Signal, pollInterval time.Duration, task Task, onStop func(), opts ...Option) *Handle {
	l := newLoop("worker", sig, pollInterval, task, onStop, opts)
	go l.run(time.Now(), NextWorkerTick)
	return l.handle
}
