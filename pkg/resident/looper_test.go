package resident

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func waitDone(t *testing.T, h *Handle, within time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), within)
	defer cancel()
	if err := h.Wait(ctx); err != nil {
		t.Fatalf("%s did not stop within %v: %v", h.Name(), within, err)
	}
}

// pastOnce returns a tick in the past on the first call and nothing afterwards.
func pastOnce() Schedule {
	var calls atomic.Int32
	return scheduleFunc(func(t time.Time) time.Time {
		if calls.Add(1) == 1 {
			return t.Add(-time.Second)
		}
		return time.Time{}
	})
}

type recordingObserver struct {
	mu      sync.Mutex
	reasons map[string]StopReason
	panics  int
	runs    int
}

func newRecordingObserver() *recordingObserver {
	return &recordingObserver{reasons: map[string]StopReason{}}
}

func (o *recordingObserver) TaskFinished(string, string, LoopState, time.Duration) {
	o.mu.Lock()
	o.runs++
	o.mu.Unlock()
}

func (o *recordingObserver) TaskPanicked(string, string) {
	o.mu.Lock()
	o.panics++
	o.mu.Unlock()
}

func (o *recordingObserver) LoopStopped(name, _ string, reason StopReason) {
	o.mu.Lock()
	o.reasons[name] = reason
	o.mu.Unlock()
}

func (o *recordingObserver) reason(name string) StopReason {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.reasons[name]
}

func TestLooperFiresImmediatelyWhenTickIsPast(t *testing.T) {
	t.Parallel()
	sig := NewSignal()
	var runs, stops atomic.Int32

	start := time.Now()
	h := SpawnLooper(sig, pastOnce(), time.Hour, func(ctx context.Context, now time.Time) LoopState {
		runs.Add(1)
		return Terminate()
	}, func() { stops.Add(1) })

	waitDone(t, h, time.Second)
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("task waited %v, expected immediate run", elapsed)
	}
	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runs.Load())
	}
	if stops.Load() != 1 {
		t.Fatalf("onStop ran %d times, want 1", stops.Load())
	}
	if sig.Cancelled() {
		t.Fatal("Terminate must not cancel the shared signal")
	}
}

func TestLooperDegenerateScheduleStopsImmediately(t *testing.T) {
	t.Parallel()
	obs := newRecordingObserver()
	var runs, stops atomic.Int32
	none := scheduleFunc(func(time.Time) time.Time { return time.Time{} })

	h := SpawnLooper(NewSignal(), none, time.Hour, func(context.Context, time.Time) LoopState {
		runs.Add(1)
		return Continue()
	}, func() { stops.Add(1) }, WithName("degenerate"), WithObserver(obs))

	waitDone(t, h, time.Second)
	if runs.Load() != 0 {
		t.Fatalf("task ran %d times on a schedule with no ticks", runs.Load())
	}
	if stops.Load() != 1 {
		t.Fatalf("onStop ran %d times, want 1", stops.Load())
	}
	if got := obs.reason("degenerate"); got != StopScheduleExhausted {
		t.Fatalf("reason = %q", got)
	}
}

func TestLooperScheduleExhaustedAfterContinueRunsOnStopOnce(t *testing.T) {
	t.Parallel()
	obs := newRecordingObserver()
	var runs, stops atomic.Int32

	h := SpawnLooper(NewSignal(), pastOnce(), time.Hour, func(context.Context, time.Time) LoopState {
		runs.Add(1)
		return Continue()
	}, func() { stops.Add(1) }, WithName("exhausted"), WithObserver(obs))

	waitDone(t, h, time.Second)
	if runs.Load() != 1 {
		t.Fatalf("runs = %d, want 1", runs.Load())
	}
	if stops.Load() != 1 {
		t.Fatalf("onStop ran %d times, want 1", stops.Load())
	}
	if got := obs.reason("exhausted"); got != StopScheduleExhausted {
		t.Fatalf("reason = %q", got)
	}
}

func TestLooperAllTerminateStopsSiblings(t *testing.T) {
	t.Parallel()
	sig := NewSignal()
	obs := newRecordingObserver()
	poll := 50 * time.Millisecond
	var siblingStops atomic.Int32

	// The sibling's next tick is an hour away; only cancellation can stop it.
	far := scheduleFunc(func(t time.Time) time.Time { return t.Add(time.Hour) })
	sibling := SpawnLooper(sig, far, poll, func(context.Context, time.Time) LoopState {
		t.Error("sibling task should never run")
		return Continue()
	}, func() { siblingStops.Add(1) }, WithName("sibling"), WithObserver(obs))

	time.Sleep(2 * poll)
	leader := SpawnLooper(sig, pastOnce(), poll, func(context.Context, time.Time) LoopState {
		return AllTerminate()
	}, nil, WithName("leader"), WithObserver(obs))

	waitDone(t, leader, time.Second)
	if !sig.Cancelled() {
		t.Fatal("AllTerminate should cancel the shared signal")
	}
	waitDone(t, sibling, 4*poll)
	if siblingStops.Load() != 1 {
		t.Fatalf("sibling onStop ran %d times", siblingStops.Load())
	}
	if got := obs.reason("leader"); got != StopAllTerminate {
		t.Fatalf("leader reason = %q", got)
	}
	if got := obs.reason("sibling"); got != StopCancelled {
		t.Fatalf("sibling reason = %q", got)
	}
}

func TestLooperDurationReschedules(t *testing.T) {
	t.Parallel()
	var runs atomic.Int32
	var times []time.Time
	var mu sync.Mutex

	h := SpawnLooper(NewSignal(), pastOnce(), time.Second, func(_ context.Context, now time.Time) LoopState {
		mu.Lock()
		times = append(times, now)
		mu.Unlock()
		if runs.Add(1) == 3 {
			return Terminate()
		}
		return Duration(40 * time.Millisecond)
	}, nil)

	waitDone(t, h, 2*time.Second)
	mu.Lock()
	defer mu.Unlock()
	if len(times) != 3 {
		t.Fatalf("runs = %d, want 3", len(times))
	}
	for i := 1; i < len(times); i++ {
		if gap := times[i].Sub(times[i-1]); gap < 40*time.Millisecond {
			t.Fatalf("gap %d = %v, want >= 40ms", i, gap)
		}
	}
}

func TestLooperRecoversTaskPanic(t *testing.T) {
	t.Parallel()
	obs := newRecordingObserver()
	var runs atomic.Int32

	h := SpawnLooper(NewSignal(), pastOnce(), 10*time.Millisecond, func(context.Context, time.Time) LoopState {
		if runs.Add(1) == 1 {
			panic("boom")
		}
		return Terminate()
	}, nil, WithName("panicky"), WithObserver(obs))

	waitDone(t, h, time.Second)
	if runs.Load() != 2 {
		t.Fatalf("runs = %d, want 2", runs.Load())
	}
	obs.mu.Lock()
	defer obs.mu.Unlock()
	if obs.panics != 1 {
		t.Fatalf("panics = %d, want 1", obs.panics)
	}
	if obs.reasons["panicky"] != StopTerminate {
		t.Fatalf("reason = %q", obs.reasons["panicky"])
	}
}

func TestLooperTaskReceivesSignalContext(t *testing.T) {
	t.Parallel()
	sig := NewSignal()
	got := make(chan context.Context, 1)

	h := SpawnLooper(sig, pastOnce(), time.Second, func(ctx context.Context, _ time.Time) LoopState {
		got <- ctx
		return Terminate()
	}, nil)
	waitDone(t, h, time.Second)

	ctx := <-got
	if ctx.Err() != nil {
		t.Fatal("ctx should be live while the signal is not cancelled")
	}
	sig.Cancel()
	if ctx.Err() == nil {
		t.Fatal("ctx should follow the signal")
	}
}
