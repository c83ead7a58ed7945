package app

import (
	"context"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	tele "gopkg.in/telebot.v4"

	"resident/internal/accounts"
	"resident/internal/queue"
)

type recordingSender struct {
	mu   sync.Mutex
	sent []string
}

func (r *recordingSender) Send(_ tele.Recipient, what interface{}, _ ...interface{}) (*tele.Message, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if s, ok := what.(string); ok {
		r.sent = append(r.sent, s)
	}
	return &tele.Message{}, nil
}

func (r *recordingSender) count() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sent)
}

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	body = strings.ReplaceAll(body, "$DIR", filepath.ToSlash(dir))
	path := filepath.Join(dir, "resident.json")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func eventually(t *testing.T, within time.Duration, what string, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(within)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(25 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func countRows(t *testing.T, a *App, table string) int {
	t.Helper()
	ctx := context.Background()
	conn, release, err := a.Store().SQL.Acquire(ctx)
	if err != nil {
		t.Fatal(err)
	}
	defer release()
	var n int
	if err := conn.QueryRowContext(ctx, "SELECT COUNT(*) FROM "+table).Scan(&n); err != nil {
		t.Fatal(err)
	}
	return n
}

const runConfig = `{
  "logging": {"level": "error"},
  "metrics": {"enabled": true, "addr": "127.0.0.1:0"},
  "storage": {"driver": "sqlite", "path": "$DIR/resident.db"},
  "retry": {"max_attempts": 2, "delay": "10ms"},
  "loopers": [
    {"name": "every_second", "schedule": "* * * * * *", "poll_interval": "50ms", "batch_window": "1h"}
  ],
  "workers": [
    {"name": "drain", "queue": "sql", "poll_interval": "20ms", "idle_backoff": "50ms"}
  ],
  "telegram": {"token": "test-token", "chat_id": 42, "schedule": "* * * * * *"}
}`

func TestRunProducesDrainsAndNotifies(t *testing.T) {
	sender := &recordingSender{}
	a, err := New(context.Background(), writeConfig(t, runConfig), WithSender(sender))
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	errc := make(chan error, 1)
	go func() { errc <- a.Run(ctx) }()

	eventually(t, 4*time.Second, "batch claim", func() bool { return countRows(t, a, "resident_batches") == 1 })
	eventually(t, 4*time.Second, "queue drained", func() bool { return countRows(t, a, "resident_jobs") == 0 })
	eventually(t, 4*time.Second, "status message", func() bool { return sender.count() > 0 })
	if got := countRows(t, a, "resident_batches"); got != 1 {
		t.Fatalf("batches = %d, want one claim per window", got)
	}

	eventually(t, 2*time.Second, "metrics listener", func() bool { return a.MetricsAddr() != "" })
	resp, err := http.Get("http://" + a.MetricsAddr() + "/metrics")
	if err != nil {
		t.Fatal(err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	if !strings.Contains(string(body), `resident_task_runs_total{kind="worker",loop="drain"`) {
		t.Fatalf("metrics missing drain runs:\n%s", body)
	}

	cancel()
	select {
	case err := <-errc:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("Run did not return after cancel")
	}
	if a.MetricsAddr() != "" {
		t.Fatal("metrics server still running after Run returned")
	}
}

func TestNewRejectsInvalidConfig(t *testing.T) {
	path := writeConfig(t, `{"storage": {"driver": "mongo"}, "workers": [{"name": "w", "queue": "redis"}]}`)
	_, err := New(context.Background(), path)
	if err == nil {
		t.Fatal("expected error")
	}
	for _, want := range []string{"storage.driver", "workers[0].queue"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q does not mention %s", err, want)
		}
	}
}

func TestBuildLoopsSkipsDisabled(t *testing.T) {
	path := writeConfig(t, `{
  "logging": {"level": "error"},
  "storage": {"driver": "sqlite", "path": "$DIR/r.db"},
  "loopers": [{"name": "off", "schedule": "1m", "enabled": false}, {"name": "on", "schedule": "1m"}],
  "workers": [{"name": "w", "enabled": false}]
}`)
	a, err := New(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()

	specs, err := a.buildLoops(a.cfg)
	if err != nil {
		t.Fatal(err)
	}
	if len(specs) != 1 || specs[0].name != "on" || specs[0].kind != kindLooper {
		t.Fatalf("specs = %+v", specs)
	}
	if specs[0].poll != defaultPollInterval {
		t.Fatalf("poll = %v, want default", specs[0].poll)
	}
}

func TestEnqueueAndPutAccount(t *testing.T) {
	path := writeConfig(t, `{"logging": {"level": "error"}, "storage": {"driver": "sqlite", "path": "$DIR/r.db"}}`)
	a, err := New(context.Background(), path)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	ctx := context.Background()

	id := uuid.New()
	if err := a.PutAccount(ctx, accounts.Account{ID: id, Content: "alice"}); err != nil {
		t.Fatal(err)
	}
	job := queue.NewJob("manual", time.Now())
	job.Account = &id
	if err := a.Enqueue(ctx, "sql", job); err != nil {
		t.Fatal(err)
	}
	if n, err := a.Pending(ctx); err != nil || n != 1 {
		t.Fatalf("Pending = %d, %v", n, err)
	}
	if err := a.Enqueue(ctx, "redis", job); err == nil {
		t.Fatal("redis enqueue without a redis section should fail")
	}
	if acc, ok, err := a.Accounts().GetFresh(ctx, id); err != nil || !ok || acc.Content != "alice" {
		t.Fatalf("GetFresh = %+v, %v, %v", acc, ok, err)
	}
}
