package accounts

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"resident/internal/storage"
	logx "resident/pkg/logx"
)

func openDirectory(t *testing.T, expire time.Duration) (Directory, *storage.Backend) {
	t.Helper()
	b, err := storage.Open(context.Background(), storage.Config{Path: filepath.Join(t.TempDir(), "a.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	return NewSQLDirectory(b.SQL, expire, 0, logx.Nop()), b
}

func TestDirectoryServesAccounts(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d, _ := openDirectory(t, time.Hour)

	ids := []uuid.UUID{
		uuid.MustParse("00000000-0000-0000-0000-000000000001"),
		uuid.MustParse("00000000-0000-0000-0000-000000000002"),
	}
	for i, id := range ids {
		if err := d.Put(ctx, Account{ID: id, Content: []string{"alice", "bob"}[i]}); err != nil {
			t.Fatalf("Put: %v", err)
		}
	}

	a, ok, err := d.Get(ctx, ids[0])
	if err != nil || !ok || a.Content != "alice" {
		t.Fatalf("Get = %+v ok=%v err=%v", a, ok, err)
	}
	if d.Cached() != 2 {
		t.Fatalf("bulk refresh should cache both accounts, got %d", d.Cached())
	}

	// Created after the bulk refresh: served by the single-key fallback.
	late := uuid.MustParse("00000000-0000-0000-0000-000000000003")
	if err := d.Put(ctx, Account{ID: late, Content: "carol"}); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if a, ok, _ := d.Get(ctx, late); !ok || a.Content != "carol" {
		t.Fatalf("late account = %+v ok=%v", a, ok)
	}

	if _, ok, err := d.Get(ctx, uuid.New()); ok || err != nil {
		t.Fatalf("unknown id: ok=%v err=%v", ok, err)
	}
}

func TestDirectoryGetFreshSeesWrites(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	d, _ := openDirectory(t, time.Hour)
	id := uuid.New()

	if err := d.Put(ctx, Account{ID: id, Content: "v1"}); err != nil {
		t.Fatal(err)
	}
	if a, _, _ := d.GetFresh(ctx, id); a.Content != "v1" {
		t.Fatalf("GetFresh = %q", a.Content)
	}
	if err := d.Put(ctx, Account{ID: id, Content: "v2"}); err != nil {
		t.Fatal(err)
	}
	if a, _, _ := d.GetFresh(ctx, id); a.Content != "v2" {
		t.Fatalf("Put should evict the per-key entry, got %q", a.Content)
	}
}

func TestFetchAllSQLRejectsBadIDs(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	_, b := openDirectory(t, time.Hour)
	if _, err := b.SQL.DB().ExecContext(ctx, `INSERT INTO resident_accounts(id, content) VALUES('not-a-uuid', 'x')`); err != nil {
		t.Fatal(err)
	}
	conn, release, err := b.SQL.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer release()
	if _, err := FetchAllSQL(ctx, conn); err == nil {
		t.Fatal("expected id parse error")
	}
}
