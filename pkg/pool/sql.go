package pool

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	_ "modernc.org/sqlite"
)

const defaultBusyTimeout = 5 * time.Second

// SQL hands out *sql.Conn from a database/sql pool.
type SQL struct {
	db *sql.DB
}

// SQLFromDB wraps an already configured database handle.
func SQLFromDB(db *sql.DB) *SQL { return &SQL{db: db} }

// OpenSQLite opens (creating if needed) the SQLite database at path with WAL
// journaling and a single connection. busyTimeout <= 0 means 5s.
func OpenSQLite(path string, busyTimeout time.Duration) (*SQL, error) {
	if strings.TrimSpace(path) == "" {
		return nil, errors.New("pool/sqlite: path is required")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("pool/sqlite: create directory %s: %w", dir, err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("pool/sqlite: open %s: %w", path, err)
	}
	// SQLite serialises writers.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)

	if busyTimeout <= 0 {
		busyTimeout = defaultBusyTimeout
	}
	ctx := context.Background()
	pragmas := []string{
		fmt.Sprintf("PRAGMA busy_timeout = %d", busyTimeout.Milliseconds()),
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
	}
	for _, p := range pragmas {
		if _, err := db.ExecContext(ctx, p); err != nil {
			_ = db.Close()
			return nil, fmt.Errorf("pool/sqlite: %s: %w", p, err)
		}
	}
	return SQLFromDB(db), nil
}

func (s *SQL) Acquire(ctx context.Context) (*sql.Conn, func(), error) {
	c, err := s.db.Conn(ctx)
	if err != nil {
		return nil, nil, fmt.Errorf("pool/sql: acquire: %w", err)
	}
	return c, func() { _ = c.Close() }, nil
}

func (s *SQL) DB() *sql.DB { return s.db }

func (s *SQL) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}
