package reclaimer

import (
	"context"
	"io"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
)

type countingTarget struct {
	calls atomic.Int32
}

func (c *countingTarget) Reclaim() int {
	c.calls.Add(1)
	return 1
}

func TestRun_TicksUntilCancelled(t *testing.T) {
	l := logrus.New()
	l.SetOutput(io.Discard)

	target := &countingTarget{}
	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan struct{})
	go func() {
		Run(ctx, target, time.Millisecond, logrus.NewEntry(l))
		close(done)
	}()

	deadline := time.After(5 * time.Second)
	for target.calls.Load() < 3 {
		select {
		case <-deadline:
			t.Fatalf("expected at least 3 reclaim calls, got %d", target.calls.Load())
		case <-time.After(time.Millisecond):
		}
	}
	cancel()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("reclaimer did not stop")
	}
}
