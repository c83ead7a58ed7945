package queue

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Postgres is the resident_jobs queue on PostgreSQL. Concurrent workers never
// see the same row thanks to FOR UPDATE SKIP LOCKED.
type Postgres struct{}

var _ Queue[*pgxpool.Conn] = Postgres{}

func (Postgres) Push(ctx context.Context, conn *pgxpool.Conn, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	if _, err := conn.Exec(ctx, `INSERT INTO resident_jobs (payload) VALUES ($1)`, payload); err != nil {
		return fmt.Errorf("queue/postgres: push: %w", err)
	}
	return nil
}

func (Postgres) Pop(ctx context.Context, conn *pgxpool.Conn) ([]byte, bool, error) {
	var payload []byte
	err := conn.QueryRow(ctx, `
		DELETE FROM resident_jobs
		WHERE id = (
			SELECT id FROM resident_jobs
			ORDER BY id
			FOR UPDATE SKIP LOCKED
			LIMIT 1
		)
		RETURNING payload`,
	).Scan(&payload)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("queue/postgres: pop: %w", err)
	}
	return payload, true, nil
}

func (Postgres) Len(ctx context.Context, conn *pgxpool.Conn) (int64, error) {
	var n int64
	if err := conn.QueryRow(ctx, `SELECT COUNT(*) FROM resident_jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue/postgres: len: %w", err)
	}
	return n, nil
}
