package notify

import (
	"context"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"go.uber.org/zap"

	"github.com/evora-events/backend/pkg/queue"
)

func TestWindDownBodyOmitsUnknownDate(t *testing.T) {
	body := windDownBody(time.Time{})
	assert.NotContains(t, body, "0001")
	assert.Contains(t, body, "retention period")

	at := time.Date(2026, time.March, 1, 12, 0, 0, 0, time.UTC)
	assert.Contains(t, windDownBody(at), "1 March 2026")
}

func TestWorkerRunStopsOnCancelDuringBackoff(t *testing.T) {
	// An unreachable Redis makes every dequeue fail, parking the loop in its
	// retry backoff; cancellation must stop the loop well before the backoff
	// elapses.
	rdb := goredis.NewClient(&goredis.Options{Addr: "127.0.0.1:1"})
	t.Cleanup(func() { rdb.Close() })
	w := NewWorker(nil, &LogSender{Logger: zap.NewNop()}, queue.NewQueue(rdb, nil), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		w.Run(ctx)
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)
	cancel()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("worker did not stop on context cancel")
	}
}
