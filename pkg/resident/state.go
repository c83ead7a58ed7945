package resident

import (
	"fmt"
	"time"
)

type StateKind int

const (
	// StateContinue keeps the loop running. A Looper waits for the next
	// schedule tick; a Worker runs again right away.
	StateContinue StateKind = iota
	// StateDuration keeps the loop running and waits Delay before the next run.
	StateDuration
	// StateTerminate stops only this loop.
	StateTerminate
	// StateAllTerminate stops this loop and cancels the shared Signal.
	StateAllTerminate
)

func (k StateKind) String() string {
	switch k {
	case StateContinue:
		return "continue"
	case StateDuration:
		return "duration"
	case StateTerminate:
		return "terminate"
	case StateAllTerminate:
		return "all_terminate"
	default:
		return fmt.Sprintf("state(%d)", int(k))
	}
}

// LoopState is what a task returns after each invocation.
// The zero value is Continue.
type LoopState struct {
	Kind  StateKind
	Delay time.Duration
}

func Continue() LoopState     { return LoopState{Kind: StateContinue} }
func Terminate() LoopState    { return LoopState{Kind: StateTerminate} }
func AllTerminate() LoopState { return LoopState{Kind: StateAllTerminate} }

// Duration schedules the next run d from now. Negative d is treated as 0.
func Duration(d time.Duration) LoopState {
	if d < 0 {
		d = 0
	}
	return LoopState{Kind: StateDuration, Delay: d}
}

func (s LoopState) String() string {
	if s.Kind == StateDuration {
		return "duration(" + s.Delay.String() + ")"
	}
	return s.Kind.String()
}

// NextLooperTick computes a Looper's next wake time.
// ok is false when the loop must end: Terminate, AllTerminate, or Continue on
// an exhausted schedule.
func NextLooperTick(st LoopState, now time.Time, sched Schedule) (next time.Time, ok bool) {
	switch st.Kind {
	case StateContinue:
		if sched == nil {
			return time.Time{}, false
		}
		next = sched.Next(now)
		if next.IsZero() {
			return time.Time{}, false
		}
		return next, true
	case StateDuration:
		return now.Add(clampDelay(st.Delay)), true
	default:
		return time.Time{}, false
	}
}

// NextWorkerTick computes a Worker's next wake time. Continue means "now".
func NextWorkerTick(st LoopState, now time.Time) (next time.Time, ok bool) {
	switch st.Kind {
	case StateContinue:
		return now, true
	case StateDuration:
		return now.Add(clampDelay(st.Delay)), true
	default:
		return time.Time{}, false
	}
}

func clampDelay(d time.Duration) time.Duration {
	if d < 0 {
		return 0
	}
	return d
}
