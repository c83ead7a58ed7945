package holder

import (
	"context"

	"resident/pkg/pool"
)

// lazyConn acquires at most one connection per Get and only when a fetch is
// actually needed.
type lazyConn[C any] struct {
	p       pool.Pool[C]
	conn    C
	release func()
	held    bool
}

func (l *lazyConn[C]) get(ctx context.Context) (C, error) {
	if l.held {
		return l.conn, nil
	}
	c, release, err := l.p.Acquire(ctx)
	if err != nil {
		var zero C
		return zero, backendErr(OpAcquire, err)
	}
	l.conn, l.release, l.held = c, release, true
	return c, nil
}

func (l *lazyConn[C]) close() {
	if l.held && l.release != nil {
		l.release()
	}
	l.held = false
}
