package sweeper

import (
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type countingSweep struct {
	calls int32
}

func (c *countingSweep) Sweep(context.Context) (int, error) {
	atomic.AddInt32(&c.calls, 1)
	return 0, nil
}

func TestRunnerSweepsImmediatelyAndOnTick(t *testing.T) {
	sweep := &countingSweep{}
	r := NewRunner(sweep, 20*time.Millisecond, nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		r.Run(ctx)
		close(done)
	}()

	assert.Eventually(t, func() bool {
		return atomic.LoadInt32(&sweep.calls) >= 2
	}, time.Second, 5*time.Millisecond)

	cancel()
	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("runner did not stop on context cancel")
	}
}
