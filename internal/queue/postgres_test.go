package queue

import (
	"context"
	"os"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"

	"resident/internal/storage"
	logx "resident/pkg/logx"
)

// openTestPostgres needs a disposable database in RESIDENT_PG_URL. The
// resident_jobs table is truncated first.
func openTestPostgres(t *testing.T) *storage.Backend {
	t.Helper()
	url := os.Getenv("RESIDENT_PG_URL")
	if url == "" {
		t.Skip("RESIDENT_PG_URL not set")
	}
	ctx := context.Background()
	b, err := storage.Open(ctx, storage.Config{Driver: storage.DriverPostgres, URL: url, MaxConns: 4}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	t.Cleanup(func() { _ = b.Close() })
	if _, err := b.Postgres.DB().Exec(ctx, "TRUNCATE resident_jobs"); err != nil {
		t.Fatalf("truncate: %v", err)
	}
	return b
}

func acquirePG(t *testing.T, b *storage.Backend) *pgxpool.Conn {
	t.Helper()
	conn, release, err := b.Postgres.Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(release)
	return conn
}

func pushJobs(t *testing.T, conn *pgxpool.Conn, batches ...string) {
	t.Helper()
	for _, name := range batches {
		b, err := Job{Batch: name}.Encode()
		if err != nil {
			t.Fatal(err)
		}
		if err := (Postgres{}).Push(context.Background(), conn, b); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
}

// popBatch pops one job and returns its batch name. jsonb does not keep the
// payload bytes verbatim, so jobs are compared after decoding.
func popBatch(t *testing.T, conn *pgxpool.Conn) (string, bool) {
	t.Helper()
	b, ok, err := (Postgres{}).Pop(context.Background(), conn)
	if err != nil {
		t.Fatalf("Pop: %v", err)
	}
	if !ok {
		return "", false
	}
	j, err := DecodeJob(b)
	if err != nil {
		t.Fatalf("DecodeJob(%s): %v", b, err)
	}
	return j.Batch, true
}

func TestPostgresQueue(t *testing.T) {
	ctx := context.Background()
	b := openTestPostgres(t)
	a := acquirePG(t, b)
	other := acquirePG(t, b)
	q := Postgres{}

	if _, ok := popBatch(t, a); ok {
		t.Fatal("Pop on an empty table should report ok=false")
	}
	if err := q.Push(ctx, a, nil); err == nil {
		t.Fatal("Push(nil) should fail")
	}

	pushJobs(t, a, "one", "two", "three")
	if n, err := q.Len(ctx, a); err != nil || n != 3 {
		t.Fatalf("Len = %d, %v", n, err)
	}

	// a holds the oldest row inside an open transaction; other must skip it.
	if _, err := a.Exec(ctx, "BEGIN"); err != nil {
		t.Fatalf("BEGIN: %v", err)
	}
	if got, _ := popBatch(t, a); got != "one" {
		t.Fatalf("locked Pop = %q, want one", got)
	}
	if got, _ := popBatch(t, other); got != "two" {
		t.Fatalf("concurrent Pop = %q, want two", got)
	}
	if _, err := a.Exec(ctx, "ROLLBACK"); err != nil {
		t.Fatalf("ROLLBACK: %v", err)
	}

	for _, want := range []string{"one", "three"} {
		if got, ok := popBatch(t, other); !ok || got != want {
			t.Fatalf("Pop = %q,%v want %q", got, ok, want)
		}
	}
	if n, err := q.Len(ctx, other); err != nil || n != 0 {
		t.Fatalf("Len after drain = %d, %v", n, err)
	}
}
