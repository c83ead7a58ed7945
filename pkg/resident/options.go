package resident

import (
	"time"

	logx "resident/pkg/logx"
)

const defaultPollInterval = time.Second

// StopReason says which terminal path ended a loop.
type StopReason string

const (
	StopCancelled         StopReason = "cancelled"
	StopTerminate         StopReason = "terminate"
	StopAllTerminate      StopReason = "all_terminate"
	StopScheduleExhausted StopReason = "schedule_exhausted"
)

// Observer receives loop lifecycle callbacks. Implementations must be cheap
// and must not block; they run on the loop goroutine.
type Observer interface {
	TaskFinished(name, kind string, st LoopState, took time.Duration)
	TaskPanicked(name, kind string)
	LoopStopped(name, kind string, reason StopReason)
}

type NopObserver struct{}

func (NopObserver) TaskFinished(string, string, LoopState, time.Duration) {}
func (NopObserver) TaskPanicked(string, string)                          {}
func (NopObserver) LoopStopped(string, string, StopReason)               {}

type Option func(*options)

type options struct {
	name     string
	log      logx.Logger
	observer Observer
}

// WithName labels the loop in logs, metrics and its Handle.
func WithName(name string) Option { return func(o *options) { o.name = name } }

func WithLogger(log logx.Logger) Option { return func(o *options) { o.log = log } }

func WithObserver(obs Observer) Option { return func(o *options) { o.observer = obs } }

func buildOptions(kind string, opts []Option) options {
	o := options{name: kind}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.log.IsZero() {
		o.log = logx.Nop()
	}
	if o.observer == nil {
		o.observer = NopObserver{}
	}
	o.log = o.log.With(logx.String("loop", o.name), logx.String("kind", kind))
	return o
}
