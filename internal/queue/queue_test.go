package queue

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"

	"resident/internal/storage"
	logx "resident/pkg/logx"
)

func openTestConn(t *testing.T) *sql.Conn {
	t.Helper()
	ctx := context.Background()
	b, err := storage.Open(ctx, storage.Config{Driver: "sqlite", Path: filepath.Join(t.TempDir(), "q.db")}, logx.Nop())
	if err != nil {
		t.Fatalf("storage.Open: %v", err)
	}
	conn, release, err := b.SQL.Acquire(ctx)
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(func() {
		release()
		_ = b.Close()
	})
	return conn
}

func TestSQLQueueFIFO(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	conn := openTestConn(t)
	q := SQL{}

	for _, p := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		if err := q.Push(ctx, conn, []byte(p)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if n, err := q.Len(ctx, conn); err != nil || n != 3 {
		t.Fatalf("Len = %d, %v", n, err)
	}
	for _, want := range []string{`{"n":1}`, `{"n":2}`, `{"n":3}`} {
		got, ok, err := q.Pop(ctx, conn)
		if err != nil || !ok {
			t.Fatalf("Pop: ok=%v err=%v", ok, err)
		}
		if string(got) != want {
			t.Fatalf("Pop = %s, want %s", got, want)
		}
	}
	if _, ok, err := q.Pop(ctx, conn); err != nil || ok {
		t.Fatalf("empty Pop: ok=%v err=%v", ok, err)
	}
}

func TestSQLQueueRejectsEmptyPayload(t *testing.T) {
	t.Parallel()
	conn := openTestConn(t)
	if err := (SQL{}).Push(context.Background(), conn, nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("err = %v", err)
	}
}

func TestJobRoundTrip(t *testing.T) {
	t.Parallel()
	now := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	acct := uuid.MustParse("00000000-0000-0000-0000-000000000001")
	j := NewJob("minutely_batch", now)
	j.Account = &acct

	b, err := j.Encode()
	if err != nil {
		t.Fatalf("Encode: %v", err)
	}
	got, err := DecodeJob(b)
	if err != nil {
		t.Fatalf("DecodeJob: %v", err)
	}
	if got.ID != j.ID || got.Batch != "minutely_batch" || !got.Now.Equal(now) || *got.Account != acct {
		t.Fatalf("got %+v", got)
	}
	if j.ID == uuid.Nil {
		t.Fatal("NewJob should assign an id")
	}
}

func TestRedisDefaultKey(t *testing.T) {
	t.Parallel()
	if k := (Redis{}).key(); k != DefaultRedisKey {
		t.Fatalf("key = %q", k)
	}
	if k := (Redis{Key: " jobs:x "}).key(); k != "jobs:x" {
		t.Fatalf("key = %q", k)
	}
}
