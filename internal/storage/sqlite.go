package storage

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"strings"

	logx "resident/pkg/logx"
	"resident/pkg/pool"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

func openSQLite(ctx context.Context, cfg Config, log logx.Logger) (*Backend, error) {
	if strings.TrimSpace(cfg.Path) == "" {
		return nil, errors.New("storage: sqlite path is required")
	}
	p, err := pool.OpenSQLite(cfg.Path, cfg.BusyTimeout)
	if err != nil {
		return nil, err
	}
	if err := migrateSQLite(ctx, p); err != nil {
		_ = p.Close()
		return nil, err
	}
	log.Debug("sqlite storage ready", logx.String("path", cfg.Path))
	return &Backend{Driver: DriverSQLite, SQL: p}, nil
}

func migrateSQLite(ctx context.Context, p *pool.SQL) error {
	b, err := migrationsFS.ReadFile("migrations/sqlite.sql")
	if err != nil {
		return err
	}
	if _, err := p.DB().ExecContext(ctx, string(b)); err != nil {
		return fmt.Errorf("storage: migrate sqlite: %w", err)
	}
	return nil
}
