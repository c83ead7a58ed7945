package holder

import (
	"context"

	logx "resident/pkg/logx"
)

// FetchOne loads a single key. ok is false when the store has no such key.
type FetchOne[C any, K comparable, V any] func(ctx context.Context, conn C, key K) (v V, ok bool, err error)

// FetchAll loads every row the holder should serve.
type FetchAll[C any, K comparable, V any] func(ctx context.Context, conn C) (map[K]V, error)

type Option func(*options)

type options struct {
	name string
	log  logx.Logger
}

func WithName(name string) Option { return func(o *options) { o.name = name } }

func WithLogger(log logx.Logger) Option { return func(o *options) { o.log = log } }

func buildOptions(opts []Option) options {
	o := options{name: "holder"}
	for _, fn := range opts {
		if fn != nil {
			fn(&o)
		}
	}
	if o.log.IsZero() {
		o.log = logx.Nop()
	}
	o.log = o.log.With(logx.String("holder", o.name))
	return o
}
