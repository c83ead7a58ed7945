package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"

	logx "resident/pkg/logx"
)

func TestOpenSQLiteMigrates(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "data", "resident.db")
	b, err := Open(ctx, Config{Path: path}, logx.Nop())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer b.Close()
	if b.Driver != DriverSQLite || b.SQL == nil || b.Postgres != nil {
		t.Fatalf("backend = %+v", b)
	}

	for _, table := range []string{"resident_jobs", "resident_batches", "resident_accounts"} {
		var name string
		err := b.SQL.DB().QueryRowContext(ctx,
			`SELECT name FROM sqlite_master WHERE type = 'table' AND name = ?`, table,
		).Scan(&name)
		if err != nil {
			t.Fatalf("table %s missing: %v", table, err)
		}
	}

	// Migrations are idempotent.
	if err := migrateSQLite(ctx, b.SQL); err != nil {
		t.Fatalf("second migrate: %v", err)
	}
}

func TestOpenRejectsUnknownDriver(t *testing.T) {
	t.Parallel()
	_, err := Open(context.Background(), Config{Driver: "mongo"}, logx.Logger{})
	if !errors.Is(err, ErrUnknownDriver) {
		t.Fatalf("err = %v", err)
	}
}

func TestOpenSQLiteRequiresPath(t *testing.T) {
	t.Parallel()
	if _, err := Open(context.Background(), Config{Driver: "sqlite"}, logx.Nop()); err == nil {
		t.Fatal("expected error")
	}
}
