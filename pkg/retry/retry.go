// Package retry runs a fallible operation a bounded number of times with an
// optional per-attempt timeout and fixed or exponential delay between attempts.
//
// Timeouts and operation errors are tracked separately: a timed out attempt
// bumps Result.TimeoutCount and appends nothing to Result.Errors.
package retry

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	logx "resident/pkg/logx"
)

// Policy configures Execute.
type Policy struct {
	MaxAttempts int
	// Delay between attempts. Zero means retry immediately.
	Delay time.Duration
	// Timeout per attempt. Zero disables the timeout wrapper.
	Timeout time.Duration
	// Exponential sleeps Delay * 2^attempt after the given (1-indexed) attempt.
	Exponential bool
	Log         logx.Logger
}

// Backoff returns the sleep that follows attempt (1-indexed).
func (p Policy) Backoff(attempt int) time.Duration {
	if p.Delay <= 0 {
		return 0
	}
	if !p.Exponential {
		return p.Delay
	}
	if attempt < 0 {
		attempt = 0
	}
	d := p.Delay
	for i := 0; i < attempt; i++ {
		if d > math.MaxInt64/2 {
			return math.MaxInt64
		}
		d *= 2
	}
	return d
}

// Result is what Execute hands back. Either OK is true, or
// len(Errors)+TimeoutCount equals the number of attempts made.
type Result[T any] struct {
	Value        T
	OK           bool
	Errors       []error
	TimeoutCount int
}

// Attempts is the number of attempts that have finished.
func (r Result[T]) Attempts() int {
	n := len(r.Errors) + r.TimeoutCount
	if r.OK {
		n++
	}
	return n
}

// LastError returns the most recent operation error, or nil.
func (r Result[T]) LastError() error {
	if len(r.Errors) == 0 {
		return nil
	}
	return r.Errors[len(r.Errors)-1]
}

// Err summarises a failed Result as a single error. It is nil when OK.
func (r Result[T]) Err() error {
	if r.OK {
		return nil
	}
	errs := make([]error, 0, len(r.Errors)+1)
	errs = append(errs, r.Errors...)
	if r.TimeoutCount > 0 {
		errs = append(errs, fmt.Errorf("%w (%d times)", ErrAttemptTimeout, r.TimeoutCount))
	}
	if len(errs) == 0 {
		return errors.New("retry: no attempt succeeded")
	}
	return errors.Join(errs...)
}

// TimedOut reports whether err came from Result.Err and includes timeouts.
func TimedOut(err error) bool { return errors.Is(err, ErrAttemptTimeout) }

// Execute calls op up to p.MaxAttempts times. Attempts are numbered from 1.
//
// The returned error is non-nil only for invalid input or when ctx ends
// before attempts run out; running out of attempts is reported through
// Result alone. On ctx cancellation the partial Result is returned.
func Execute[T any](ctx context.Context, p Policy, op func(ctx context.Context, attempt int) (T, error)) (Result[T], error) {
	var res Result[T]
	if p.MaxAttempts <= 0 {
		return res, ErrInvalidMaxAttempts
	}
	if ctx == nil {
		ctx = context.Background()
	}
	log := p.Log
	if log.IsZero() {
		log = logx.Nop()
	}

	for attempt := 1; ; attempt++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}

		v, timedOut, err := runAttempt(ctx, p.Timeout, attempt, op)
		switch {
		case timedOut:
			if cerr := ctx.Err(); cerr != nil {
				return res, cerr
			}
			res.TimeoutCount++
			log.Debug("attempt timed out", logx.Int("attempt", attempt), logx.Duration("timeout", p.Timeout))
		case err != nil:
			res.Errors = append(res.Errors, err)
			log.Debug("attempt failed", logx.Int("attempt", attempt), logx.Err(err))
		default:
			res.Value = v
			res.OK = true
			return res, nil
		}

		if attempt >= p.MaxAttempts {
			return res, nil
		}

		delay := p.Backoff(attempt)
		if delay <= 0 {
			continue
		}
		log.Trace("retry scheduled", logx.Int("attempt", attempt+1), logx.Duration("delay", delay))
		tmr := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			tmr.Stop()
			return res, ctx.Err()
		case <-tmr.C:
		}
	}
}

// Do is Execute for operations that only report an error.
func Do(ctx context.Context, p Policy, op func(ctx context.Context, attempt int) error) (Result[struct{}], error) {
	return Execute(ctx, p, func(ctx context.Context, attempt int) (struct{}, error) {
		return struct{}{}, op(ctx, attempt)
	})
}

type outcome[T any] struct {
	v   T
	err error
}

func runAttempt[T any](ctx context.Context, timeout time.Duration, attempt int, op func(context.Context, int) (T, error)) (v T, timedOut bool, err error) {
	if timeout <= 0 {
		v, err = call(ctx, attempt, op)
		return v, false, err
	}

	actx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	ch := make(chan outcome[T], 1)
	go func() {
		v, err := call(actx, attempt, op)
		ch <- outcome[T]{v: v, err: err}
	}()

	select {
	case o := <-ch:
		// An op that noticed its deadline and returned an error still timed out.
		if o.err != nil && actx.Err() != nil {
			return v, true, nil
		}
		return o.v, false, o.err
	case <-actx.Done():
	}

	// The attempt stays counted as a timeout, but the next one must not start
	// until this one has returned. Only the parent ctx can cut the wait short.
	select {
	case <-ch:
	case <-ctx.Done():
	}
	return v, true, nil
}

func call[T any](ctx context.Context, attempt int, op func(context.Context, int) (T, error)) (v T, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &PanicError{Attempt: attempt, Value: r}
		}
	}()
	return op(ctx, attempt)
}
