package resident

import (
	"time"
)

// SpawnLooper starts a schedule-driven loop.
//
// The first tick is sched's first timestamp after now. If the schedule has no
// future tick, onStop runs and the handle completes immediately. After each
// run, Continue waits for the next tick after the run's start time and
// Duration(d) waits d. The loop sleeps in chunks of at most pollInterval so
// cancellation is observed at least that often.
func SpawnLooper(sig *Signal, sched Schedule, pollInterval time.Duration, task Task, onStop func(), opts ...Option) *Handle {
	l := newLoop("looper", sig, pollInterval, task, onStop, opts)

	var first time.Time
	if sched != nil {
		first = sched.Next(time.Now())
	}
	if first.IsZero() {
		go func() {
			defer l.handle.finish()
			l.opt.log.Warn("schedule has no upcoming tick")
			l.stop(StopScheduleExhausted)
		}()
		return l.handle
	}

	go l.run(first, func(st LoopState, now time.Time) (time.Time, bool) {
		return NextLooperTick(st, now, sched)
	})
	return l.handle
}
