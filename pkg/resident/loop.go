package resident

import (
	"context"
	"runtime/debug"
	"time"

	logx "resident/pkg/logx"
)

// Task is invoked once per due tick. ctx is the Signal's context.
type Task func(ctx context.Context, now time.Time) LoopState

// advanceFunc turns a task result into the next wake time (false ends the loop).
type advanceFunc func(st LoopState, now time.Time) (time.Time, bool)

type loop struct {
	kind   string
	sig    *Signal
	poll   time.Duration
	task   Task
	onStop func()
	opt    options
	handle *Handle
}

func newLoop(kind string, sig *Signal, poll time.Duration, task Task, onStop func(), opts []Option) *loop {
	if sig == nil {
		sig = NewSignal()
	}
	if poll <= 0 {
		poll = defaultPollInterval
	}
	o := buildOptions(kind, opts)
	return &loop{
		kind:   kind,
		sig:    sig,
		poll:   poll,
		task:   task,
		onStop: onStop,
		opt:    o,
		handle: newHandle(o.name),
	}
}

// run drives the loop until a terminal path is reached, then runs onStop
// exactly once and completes the handle.
func (l *loop) run(next time.Time, advance advanceFunc) {
	defer l.handle.finish()
	l.opt.log.Debug("loop started", logx.Duration("poll", l.poll), logx.Time("next", next))
	reason := l.iterate(next, advance)
	l.stop(reason)
}

func (l *loop) iterate(next time.Time, advance advanceFunc) StopReason {
	for {
		if l.sig.Cancelled() {
			return StopCancelled
		}

		now := time.Now()
		if !now.Before(next) {
			st := l.invoke(now)
			switch st.Kind {
			case StateAllTerminate:
				l.sig.Cancel()
				return StopAllTerminate
			case StateTerminate:
				return StopTerminate
			}
			n, ok := advance(st, now)
			if !ok {
				return StopScheduleExhausted
			}
			next = n
		}

		l.sleepUntil(next)
	}
}

// invoke runs the task once. A panic is logged and treated as
// Duration(poll) so one bad tick can't kill the loop.
func (l *loop) invoke(now time.Time) (st LoopState) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			l.opt.log.Error("task panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
			l.opt.observer.TaskPanicked(l.opt.name, l.kind)
			st = Duration(l.poll)
		}
		l.opt.observer.TaskFinished(l.opt.name, l.kind, st, time.Since(start))
	}()
	st = l.task(l.sig.Context(), now)
	l.opt.log.Trace("task finished", logx.String("state", st.String()), logx.Duration("took", time.Since(start)))
	return st
}

// sleepUntil sleeps min(poll, next-now), never negative. It returns early
// when the Signal fires.
func (l *loop) sleepUntil(next time.Time) {
	d := time.Until(next)
	if d <= 0 {
		return
	}
	if d > l.poll {
		d = l.poll
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-l.sig.Done():
	}
}

func (l *loop) stop(reason StopReason) {
	defer l.opt.observer.LoopStopped(l.opt.name, l.kind, reason)
	if l.onStop != nil {
		func() {
			defer func() {
				if r := recover(); r != nil {
					l.opt.log.Error("onStop panicked", logx.Any("panic", r), logx.Stack(string(debug.Stack())))
				}
			}()
			l.onStop()
		}()
	}
	l.opt.log.Info("loop stopped", logx.String("reason", string(reason)))
}
