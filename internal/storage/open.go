package storage

import (
	"context"
	"fmt"
	"strings"

	logx "resident/pkg/logx"
	"resident/pkg/pool"
)

// Backend is an opened, migrated store. Exactly one of SQL and Postgres is set.
type Backend struct {
	Driver   string
	SQL      *pool.SQL
	Postgres *pool.Postgres
}

// Open initializes the configured store and applies migrations.
func Open(ctx context.Context, cfg Config, log logx.Logger) (*Backend, error) {
	if log.IsZero() {
		log = logx.Nop()
	}

	driver := strings.ToLower(strings.TrimSpace(cfg.Driver))
	switch driver {
	case "", DriverSQLite, "sqlite3":
		return openSQLite(ctx, cfg, log)
	case DriverPostgres, "pgx":
		return openPostgres(ctx, cfg, log)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, cfg.Driver)
	}
}

func (b *Backend) Close() error {
	if b == nil {
		return nil
	}
	if b.Postgres != nil {
		b.Postgres.Close()
	}
	if b.SQL != nil {
		return b.SQL.Close()
	}
	return nil
}
