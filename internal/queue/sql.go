package queue

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQL is the resident_jobs queue on SQLite through database/sql.
type SQL struct{}

var _ Queue[*sql.Conn] = SQL{}

func (SQL) Push(ctx context.Context, conn *sql.Conn, payload []byte) error {
	if len(payload) == 0 {
		return ErrEmptyPayload
	}
	_, err := conn.ExecContext(ctx,
		`INSERT INTO resident_jobs(payload, created_at) VALUES(?, ?)`,
		payload, time.Now().UnixMilli(),
	)
	if err != nil {
		return fmt.Errorf("queue/sql: push: %w", err)
	}
	return nil
}

func (SQL) Pop(ctx context.Context, conn *sql.Conn) ([]byte, bool, error) {
	var payload []byte
	err := conn.QueryRowContext(ctx,
		`DELETE FROM resident_jobs
		 WHERE id = (SELECT id FROM resident_jobs ORDER BY id LIMIT 1)
		 RETURNING payload`,
	).Scan(&payload)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("queue/sql: pop: %w", err)
	}
	return payload, true, nil
}

func (SQL) Len(ctx context.Context, conn *sql.Conn) (int64, error) {
	var n int64
	if err := conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM resident_jobs`).Scan(&n); err != nil {
		return 0, fmt.Errorf("queue/sql: len: %w", err)
	}
	return n, nil
}
