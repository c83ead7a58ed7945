// Package accounts serves account rows through TTL holders so hot lookups
// in drain workers don't hit the database on every job.
package accounts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

type Account struct {
	ID      uuid.UUID `json:"id"`
	Content string    `json:"content"`
}

// SQLite fetchers. IDs are stored as canonical uuid strings.

func FetchAllSQL(ctx context.Context, conn *sql.Conn) (map[uuid.UUID]Account, error) {
	rows, err := conn.QueryContext(ctx, `SELECT id, content FROM resident_accounts`)
	if err != nil {
		return nil, fmt.Errorf("accounts/sql: fetch all: %w", err)
	}
	defer rows.Close()

	out := map[uuid.UUID]Account{}
	for rows.Next() {
		var raw string
		var a Account
		if err := rows.Scan(&raw, &a.Content); err != nil {
			return nil, fmt.Errorf("accounts/sql: scan: %w", err)
		}
		id, err := uuid.Parse(raw)
		if err != nil {
			return nil, fmt.Errorf("accounts/sql: bad id %q: %w", raw, err)
		}
		a.ID = id
		out[id] = a
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("accounts/sql: fetch all: %w", err)
	}
	return out, nil
}

func FetchOneSQL(ctx context.Context, conn *sql.Conn, id uuid.UUID) (Account, bool, error) {
	a := Account{ID: id}
	err := conn.QueryRowContext(ctx, `SELECT content FROM resident_accounts WHERE id = ?`, id.String()).Scan(&a.Content)
	if errors.Is(err, sql.ErrNoRows) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, fmt.Errorf("accounts/sql: fetch one: %w", err)
	}
	return a, true, nil
}

func PutSQL(ctx context.Context, conn *sql.Conn, a Account) error {
	_, err := conn.ExecContext(ctx,
		`INSERT INTO resident_accounts(id, content) VALUES(?, ?)
		 ON CONFLICT(id) DO UPDATE SET content = excluded.content`,
		a.ID.String(), a.Content,
	)
	if err != nil {
		return fmt.Errorf("accounts/sql: put: %w", err)
	}
	return nil
}

// PostgreSQL fetchers. pgx maps UUID columns onto [16]byte-compatible uuid.UUID.

func FetchAllPostgres(ctx context.Context, conn *pgxpool.Conn) (map[uuid.UUID]Account, error) {
	rows, err := conn.Query(ctx, `SELECT id, content FROM resident_accounts`)
	if err != nil {
		return nil, fmt.Errorf("accounts/postgres: fetch all: %w", err)
	}
	list, err := pgx.CollectRows(rows, pgx.RowToStructByPos[Account])
	if err != nil {
		return nil, fmt.Errorf("accounts/postgres: fetch all: %w", err)
	}
	out := make(map[uuid.UUID]Account, len(list))
	for _, a := range list {
		out[a.ID] = a
	}
	return out, nil
}

func FetchOnePostgres(ctx context.Context, conn *pgxpool.Conn, id uuid.UUID) (Account, bool, error) {
	a := Account{ID: id}
	err := conn.QueryRow(ctx, `SELECT content FROM resident_accounts WHERE id = $1`, id).Scan(&a.Content)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, false, nil
	}
	if err != nil {
		return Account{}, false, fmt.Errorf("accounts/postgres: fetch one: %w", err)
	}
	return a, true, nil
}

func PutPostgres(ctx context.Context, conn *pgxpool.Conn, a Account) error {
	_, err := conn.Exec(ctx,
		`INSERT INTO resident_accounts (id, content) VALUES ($1, $2)
		 ON CONFLICT (id) DO UPDATE SET content = EXCLUDED.content`,
		a.ID, a.Content,
	)
	if err != nil {
		return fmt.Errorf("accounts/postgres: put: %w", err)
	}
	return nil
}
