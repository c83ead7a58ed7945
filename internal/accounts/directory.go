package accounts

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"resident/pkg/holder"
	logx "resident/pkg/logx"
	"resident/pkg/pool"
)

const defaultExpire = time.Minute

// Directory answers account lookups from two caches: a whole-table cache
// refreshed every expire interval, and a per-key cache for callers that want
// a tighter bound on staleness.
type Directory interface {
	Get(ctx context.Context, id uuid.UUID) (Account, bool, error)
	GetFresh(ctx context.Context, id uuid.UUID) (Account, bool, error)
	Put(ctx context.Context, a Account) error
	Cached() int
}

type directory[C any] struct {
	p    pool.Pool[C]
	all  *holder.Map[C, uuid.UUID, Account]
	each *holder.EachExpire[C, uuid.UUID, Account]
	put  func(context.Context, C, Account) error
}

// NewDirectory wires both holders over p. keyExpire <= 0 uses expire.
func NewDirectory[C any](
	p pool.Pool[C],
	expire, keyExpire time.Duration,
	one holder.FetchOne[C, uuid.UUID, Account],
	all holder.FetchAll[C, uuid.UUID, Account],
	put func(context.Context, C, Account) error,
	log logx.Logger,
) Directory {
	if expire <= 0 {
		expire = defaultExpire
	}
	if keyExpire <= 0 {
		keyExpire = expire
	}
	return &directory[C]{
		p:    p,
		all:  holder.NewMap(p, expire, one, all, holder.WithName("accounts"), holder.WithLogger(log)),
		each: holder.NewEachExpire(p, keyExpire, one, holder.WithName("accounts_each"), holder.WithLogger(log)),
		put:  put,
	}
}

func NewSQLDirectory(p *pool.SQL, expire, keyExpire time.Duration, log logx.Logger) Directory {
	return NewDirectory(pool.Pool[*sql.Conn](p), expire, keyExpire, FetchOneSQL, FetchAllSQL, PutSQL, log)
}

func NewPostgresDirectory(p *pool.Postgres, expire, keyExpire time.Duration, log logx.Logger) Directory {
	return NewDirectory(pool.Pool[*pgxpool.Conn](p), expire, keyExpire, FetchOnePostgres, FetchAllPostgres, PutPostgres, log)
}

func (d *directory[C]) Get(ctx context.Context, id uuid.UUID) (Account, bool, error) {
	return d.all.Get(ctx, id)
}

func (d *directory[C]) GetFresh(ctx context.Context, id uuid.UUID) (Account, bool, error) {
	return d.each.Get(ctx, id)
}

// Put writes through to the store and drops the per-key entry. The whole-map
// cache picks the change up on its next refresh.
func (d *directory[C]) Put(ctx context.Context, a Account) error {
	conn, release, err := d.p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer release()
	if err := d.put(ctx, conn, a); err != nil {
		return err
	}
	d.each.Delete(a.ID)
	return nil
}

func (d *directory[C]) Cached() int { return d.all.Len() }
