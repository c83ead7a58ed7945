package holder

import (
	"context"
	"sync"
	"time"

	logx "resident/pkg/logx"
	"resident/pkg/pool"
)

// Map serves a whole table from memory and reloads it wholesale once every
// expire interval.
type Map[C any, K comparable, V any] struct {
	pool   pool.Pool[C]
	expire time.Duration
	one    FetchOne[C, K, V]
	all    FetchAll[C, K, V]
	opt    options

	mu       sync.Mutex
	m        map[K]V
	expireAt time.Time
}

// NewMap builds an empty Map. The first Get always performs a bulk refresh.
func NewMap[C any, K comparable, V any](p pool.Pool[C], expire time.Duration, one FetchOne[C, K, V], all FetchAll[C, K, V], opts ...Option) *Map[C, K, V] {
	return &Map[C, K, V]{
		pool:   p,
		expire: expire,
		one:    one,
		all:    all,
		opt:    buildOptions(opts),
		m:      map[K]V{},
	}
}

func (h *Map[C, K, V]) Get(ctx context.Context, key K) (V, bool, error) {
	return h.GetAt(ctx, key, time.Now())
}

// GetAt looks key up as of now.
//
// When now is at or past the expiry the whole map is replaced from FetchAll
// first. A key still missing afterwards is fetched alone; a hit is cached
// without moving the expiry, a miss is not cached.
func (h *Map[C, K, V]) GetAt(ctx context.Context, key K, now time.Time) (V, bool, error) {
	var zero V
	h.mu.Lock()
	defer h.mu.Unlock()

	lc := &lazyConn[C]{p: h.pool}
	defer lc.close()

	if !now.Before(h.expireAt) {
		conn, err := lc.get(ctx)
		if err != nil {
			return zero, false, err
		}
		fresh, err := h.all(ctx, conn)
		if err != nil {
			h.opt.log.Warn("bulk refresh failed", logx.Err(err))
			return zero, false, backendErr(OpFetchAll, err)
		}
		if fresh == nil {
			fresh = map[K]V{}
		}
		h.m = fresh
		h.expireAt = now.Add(h.expire)
		h.opt.log.Debug("bulk refreshed", logx.Int("entries", len(fresh)), logx.Time("expire_at", h.expireAt))
	}

	if v, ok := h.m[key]; ok {
		return v, true, nil
	}

	conn, err := lc.get(ctx)
	if err != nil {
		return zero, false, err
	}
	v, ok, err := h.one(ctx, conn, key)
	if err != nil {
		return zero, false, backendErr(OpFetchOne, err)
	}
	if !ok {
		return zero, false, nil
	}
	h.m[key] = v
	return v, true, nil
}

// Len is the number of cached entries.
func (h *Map[C, K, V]) Len() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.m)
}

// ExpireAt is when the next bulk refresh is due.
func (h *Map[C, K, V]) ExpireAt() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expireAt
}

// Invalidate makes the next Get bulk refresh. Cached entries stay until then.
func (h *Map[C, K, V]) Invalidate() {
	h.mu.Lock()
	h.expireAt = time.Time{}
	h.mu.Unlock()
}
