package storage

import (
	"errors"
	"time"
)

var ErrUnknownDriver = errors.New("storage: unknown driver")

const (
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config configures storage.
//
// Driver values:
//   - "sqlite": SQLite database file at Path
//   - "postgres": PostgreSQL server at URL
//
// An empty Driver means sqlite.
type Config struct {
	Driver      string
	Path        string
	URL         string
	BusyTimeout time.Duration // sqlite only; 0 means default
	MaxConns    int32         // postgres only; 0 means pgx default
}
