package storage

import (
	"context"
	"fmt"

	logx "resident/pkg/logx"
	"resident/pkg/pool"
)

func openPostgres(ctx context.Context, cfg Config, log logx.Logger) (*Backend, error) {
	p, err := pool.NewPostgres(ctx, cfg.URL, cfg.MaxConns)
	if err != nil {
		return nil, err
	}
	if err := migratePostgres(ctx, p); err != nil {
		p.Close()
		return nil, err
	}
	log.Debug("postgres storage ready", logx.Int("max_conns", int(p.DB().Config().MaxConns)))
	return &Backend{Driver: DriverPostgres, Postgres: p}, nil
}

func migratePostgres(ctx context.Context, p *pool.Postgres) error {
	b, err := migrationsFS.ReadFile("migrations/postgres.sql")
	if err != nil {
		return err
	}
	// The simple protocol allows several statements in one Exec.
	if _, err := p.DB().Exec(ctx, string(b)); err != nil {
		return fmt.Errorf("storage: migrate postgres: %w", err)
	}
	return nil
}
