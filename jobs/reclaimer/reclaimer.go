// Package reclaimer periodically releases retired stack nodes while
// the stack is idle.
package reclaimer

import (
	"context"
	"time"

	"github.com/sirupsen/logrus"
)

// Reclaimable is implemented by lifo.Stack.
type Reclaimable interface {
	Reclaim() int
}

// Run calls target.Reclaim every interval until ctx is done.
func Run(ctx context.Context, target Reclaimable, interval time.Duration, log *logrus.Entry) {
	log = log.WithField("component", "reclaimer")

	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := target.Reclaim(); n > 0 {
				log.WithField("released", n).Debug("reclaimed retired nodes")
			}
		}
	}
}
