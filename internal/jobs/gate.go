package jobs

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Gate lets exactly one process run a batch per time slot. Several resident
// processes may run the same looper; the first to claim the slot wins.
type Gate[C any] interface {
	Claim(ctx context.Context, conn C, code string, slot int64) (bool, error)
}

// Slot buckets now into window-sized slots. window <= 0 means one minute.
func Slot(now time.Time, window time.Duration) int64 {
	if window <= 0 {
		window = time.Minute
	}
	return now.UnixNano() / int64(window)
}

// SQLGate claims slots in resident_batches on SQLite.
type SQLGate struct{}

func (SQLGate) Claim(ctx context.Context, conn *sql.Conn, code string, slot int64) (bool, error) {
	res, err := conn.ExecContext(ctx,
		`INSERT INTO resident_batches(batch_code, slot, claimed_at) VALUES(?, ?, ?)
		 ON CONFLICT(batch_code, slot) DO NOTHING`,
		code, slot, time.Now().UnixMilli(),
	)
	if err != nil {
		return false, fmt.Errorf("jobs/sql: claim batch: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("jobs/sql: claim batch: %w", err)
	}
	return n == 1, nil
}

// PostgresGate claims slots in resident_batches on PostgreSQL.
type PostgresGate struct{}

func (PostgresGate) Claim(ctx context.Context, conn *pgxpool.Conn, code string, slot int64) (bool, error) {
	tag, err := conn.Exec(ctx,
		`INSERT INTO resident_batches (batch_code, slot) VALUES ($1, $2)
		 ON CONFLICT (batch_code, slot) DO NOTHING`,
		code, slot,
	)
	if err != nil {
		return false, fmt.Errorf("jobs/postgres: claim batch: %w", err)
	}
	return tag.RowsAffected() == 1, nil
}
