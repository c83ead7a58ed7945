package holder

import (
	"context"
	"sync"
	"time"

	"resident/pkg/pool"
)

type entry[V any] struct {
	v        V
	expireAt time.Time
}

// EachExpire caches single keys, each with its own expiry. It never loads
// the whole table.
type EachExpire[C any, K comparable, V any] struct {
	pool   pool.Pool[C]
	expire time.Duration
	one    FetchOne[C, K, V]
	opt    options

	mu sync.Mutex
	m  map[K]entry[V]
}

func NewEachExpire[C any, K comparable, V any](p pool.Pool[C], expire time.Duration, one FetchOne[C, K, V], opts ...Option) *EachExpire[C, K, V] {
	return &EachExpire[C, K, V]{
		pool:   p,
		expire: expire,
		one:    one,
		opt:    buildOptions(opts),
		m:      map[K]entry[V]{},
	}
}

func (h *EachExpire[C, K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	return h.GetAt(ctx, key, time.Now())
}

// GetAt serves key from memory while now is before its expiry and otherwise
// refetches it. A key the store no longer has is dropped and not cached.
//
// Evicting on a miss is deliberate and differs from a plain TTL map, which
// would keep the expired entry until Delete. Len counts only keys the store
// returned on their last fetch.
func (h *EachExpire[C, K, V]) GetAt(ctx context.Context, key K, now time.Time) (V, bool, error) {
	var zero V
	h.mu.Lock()
	defer h.mu.Unlock()

	if e, ok := h.m[key]; ok && now.Before(e.expireAt) {
		return e.v, true, nil
	}

	lc := &lazyConn[C]{p: h.pool}
	defer lc.close()
	conn, err := lc.get(ctx)
	if err != nil {
		return zero, false, err
	}
	v, ok, err := h.one(ctx, conn, key)
	if err != nil {
		return zero, false, backendErr(OpFetchOne, err)
	}
	if !ok {
		delete(h.m, key)
		return zero, false, nil
	}
	h.m[key] = entry[V]{v: v, expireAt: now.Add(h.expire)}
	return v, true, nil
}

func (h *EachExpire[C, K, V]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.m)
}

// Delete evicts key so the next Get refetches it.
func (h *EachExpire[C, K, V]) Delete(key K) {
	h.mu.Lock()
	delete(h.m, key)
	h.mu.Unlock()
}
