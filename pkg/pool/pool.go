// Package pool is the connection-acquisition seam between resident tasks and
// their backing stores.
//
// A task never owns a connection across ticks. It acquires one per run,
// uses it, and releases it. Acquisition failures are ordinary errors that the
// task turns into a LoopState.
package pool

import (
	"context"
	"time"

	"resident/pkg/resident"
)

// Pool hands out connections of type C. The release func must be called
// exactly once when err is nil.
type Pool[C any] interface {
	Acquire(ctx context.Context) (conn C, release func(), err error)
}

// Func adapts a plain function to Pool.
type Func[C any] func(ctx context.Context) (C, func(), error)

func (f Func[C]) Acquire(ctx context.Context) (C, func(), error) { return f(ctx) }

// ConnTask is a task body that receives the connection (or the acquisition
// error) for the current tick.
type ConnTask[C any] func(ctx context.Context, now time.Time, conn C, err error) resident.LoopState

// WithConn wraps fn into a resident.Task that acquires a connection from p on
// every tick and releases it once fn returns. When acquisition fails fn gets
// the zero C and the error.
func WithConn[C any](p Pool[C], fn ConnTask[C]) resident.Task {
	return func(ctx context.Context, now time.Time) resident.LoopState {
		conn, release, err := p.Acquire(ctx)
		if err == nil && release != nil {
			defer release()
		}
		return fn(ctx, now, conn, err)
	}
}
