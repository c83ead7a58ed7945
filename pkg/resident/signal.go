package resident

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	logx "resident/pkg/logx"
)

// Signal is the process-wide shutdown trigger shared by every loop.
//
// Cancellation is one-shot and level-triggered: once set it stays set.
// Pass the same *Signal to every loop that should stop together.
type Signal struct {
	ctx    context.Context
	cancel context.CancelFunc
}

func NewSignal() *Signal { return NewSignalContext(context.Background()) }

// NewSignalContext derives a Signal from parent; cancelling parent cancels the Signal.
func NewSignalContext(parent context.Context) *Signal {
	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := context.WithCancel(parent)
	return &Signal{ctx: ctx, cancel: cancel}
}

// Cancel requests shutdown. Safe to call repeatedly and from any goroutine.
func (s *Signal) Cancel() { s.cancel() }

// Cancelled reports whether shutdown was requested. It never blocks.
func (s *Signal) Cancelled() bool { return s.ctx.Err() != nil }

func (s *Signal) Done() <-chan struct{} { return s.ctx.Done() }

// Context is cancelled together with the Signal. Tasks use it for I/O.
func (s *Signal) Context() context.Context { return s.ctx }

// InterruptHandler wires SIGINT/SIGTERM to a fresh Signal.
//
// The returned Handle completes once the Signal is cancelled, whether by an OS
// signal or by anything else (e.g. a task returning AllTerminate).
func InterruptHandler(log logx.Logger) (*Signal, *Handle) {
	sig := NewSignal()
	return sig, NotifyOn(sig, log, os.Interrupt, syscall.SIGTERM)
}

// NotifyOn cancels sig when any of the given OS signals arrives.
func NotifyOn(sig *Signal, log logx.Logger, signals ...os.Signal) *Handle {
	if log.IsZero() {
		log = logx.Nop()
	}
	h := newHandle("interrupt")
	ch := make(chan os.Signal, 1)
	signal.Notify(ch, signals...)
	go func() {
		defer h.finish()
		defer signal.Stop(ch)
		select {
		case s := <-ch:
			log.Info("received os signal", logx.String("signal", s.String()))
			sig.Cancel()
		case <-sig.Done():
		}
	}()
	return h
}
