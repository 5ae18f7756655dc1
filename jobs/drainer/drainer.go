// Package drainer moves items off the stack to an external sink.
package drainer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
	"golang.org/x/sync/errgroup"

	"atomiclifo/service"
)

// Sink receives drained items. infra/kafka.Producer is the production
// implementation.
type Sink interface {
	Send(ctx context.Context, seq uint64, payload []byte) error
}

// Source is the part of StackService the drainer needs.
type Source interface {
	Pop() (service.Item, error)
	Requeue(service.Item)
}

type Drainer struct {
	src     Source
	sink    Sink
	workers int
	idle    time.Duration
	log     *logrus.Entry
}

// New returns a drainer running workers concurrent poppers. idle is how
// long a worker waits after finding the stack empty or after a failed
// send.
func New(src Source, sink Sink, workers int, idle time.Duration, log *logrus.Entry) *Drainer {
	if workers < 1 {
		workers = 1
	}
	return &Drainer{
		src:     src,
		sink:    sink,
		workers: workers,
		idle:    idle,
		log:     log.WithField("component", "drainer"),
	}
}

// Run blocks until ctx is done and every worker has stopped.
func (d *Drainer) Run(ctx context.Context) {
	d.log.WithField("workers", d.workers).Info("started")

	var g errgroup.Group
	for i := 0; i < d.workers; i++ {
		log := d.log.WithField("worker", i)
		g.Go(func() error {
			d.work(ctx, log)
			return nil
		})
	}
	_ = g.Wait()

	d.log.Info("stopped")
}

func (d *Drainer) work(ctx context.Context, log *logrus.Entry) {
	ticker := time.NewTicker(d.idle)
	defer ticker.Stop()

	for ctx.Err() == nil {
		it, err := d.src.Pop()
		if err != nil {
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
			continue
		}

		if err := d.sink.Send(ctx, it.Seq, it.Payload); err != nil {
			// Not delivered: put it back so it is not lost.
			d.src.Requeue(it)
			log.WithError(err).WithField("seq", it.Seq).Warn("send failed, requeued")
			select {
			case <-ctx.Done():
			case <-ticker.C:
			}
			continue
		}
		log.WithField("seq", it.Seq).Debug("delivered")
	}
}
