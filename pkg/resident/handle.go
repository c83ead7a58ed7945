package resident

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/sync/errgroup"
)

// Handle is returned by every spawn. It completes after the loop has fully
// stopped and its onStop callback has returned.
type Handle struct {
	name string
	done chan struct{}
	once sync.Once
}

func newHandle(name string) *Handle {
	return &Handle{name: name, done: make(chan struct{})}
}

func (h *Handle) finish() { h.once.Do(func() { close(h.done) }) }

func (h *Handle) Name() string { return h.name }

func (h *Handle) Done() <-chan struct{} { return h.done }

// Wait blocks until the loop stopped or ctx ends.
func (h *Handle) Wait(ctx context.Context) error {
	select {
	case <-h.done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("resident: waiting for %s: %w", h.name, ctx.Err())
	}
}

// WaitAll waits for every handle. It returns the first ctx error, if any.
func WaitAll(ctx context.Context, handles ...*Handle) error {
	g, gctx := errgroup.WithContext(ctx)
	for _, h := range handles {
		if h == nil {
			continue
		}
		h := h
		g.Go(func() error { return h.Wait(gctx) })
	}
	return g.Wait()
}
