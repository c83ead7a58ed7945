package queue

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"

	"resident/pkg/pool"
)

func openTestRedis(t *testing.T) (*miniredis.Miniredis, *goredis.Conn) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })

	conn, release, err := pool.RedisFromClient(client).Acquire(context.Background())
	if err != nil {
		t.Fatalf("Acquire: %v", err)
	}
	t.Cleanup(release)
	return mr, conn
}

func TestRedisQueueFIFO(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, conn := openTestRedis(t)
	q := Redis{Key: "jobs:test"}

	if _, ok, err := q.Pop(ctx, conn); err != nil || ok {
		t.Fatalf("Pop on missing key: ok=%v err=%v", ok, err)
	}
	for _, p := range []string{"a", "b", "c"} {
		if err := q.Push(ctx, conn, []byte(p)); err != nil {
			t.Fatalf("Push: %v", err)
		}
	}
	if n, err := q.Len(ctx, conn); err != nil || n != 3 {
		t.Fatalf("Len = %d, %v", n, err)
	}
	if got, err := mr.List("jobs:test"); err != nil || len(got) != 3 {
		t.Fatalf("list = %v, %v", got, err)
	}

	for _, want := range []string{"a", "b", "c"} {
		got, ok, err := q.Pop(ctx, conn)
		if err != nil || !ok {
			t.Fatalf("Pop: ok=%v err=%v", ok, err)
		}
		if string(got) != want {
			t.Fatalf("Pop = %q, want %q", got, want)
		}
	}

	got, ok, err := q.Pop(ctx, conn)
	if err != nil || ok || got != nil {
		t.Fatalf("empty Pop = %q ok=%v err=%v", got, ok, err)
	}
	if n, err := q.Len(ctx, conn); err != nil || n != 0 {
		t.Fatalf("Len after drain = %d, %v", n, err)
	}
}

func TestRedisQueueErrors(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	mr, conn := openTestRedis(t)
	q := Redis{}

	if err := q.Push(ctx, conn, nil); !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("Push(nil) = %v", err)
	}

	// A non-list value under the key surfaces as a real error, not an empty queue.
	mr.Set(DefaultRedisKey, "scalar")
	if _, ok, err := q.Pop(ctx, conn); err == nil || ok {
		t.Fatalf("Pop on wrong type: ok=%v err=%v", ok, err)
	}
	if _, err := q.Len(ctx, conn); err == nil {
		t.Fatal("Len on wrong type should fail")
	}
}
