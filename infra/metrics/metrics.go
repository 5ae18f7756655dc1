// Package metrics exposes stack counters to Prometheus.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"atomiclifo/domain/lifo"
)

const namespace = "atomiclifo"

// StatsSource is anything that can report stack counters.
type StatsSource interface {
	Stats() lifo.Stats
}

// NewRegistry returns a registry with every stack metric registered
// against src.
func NewRegistry(src StatsSource) (*prometheus.Registry, error) {
	reg := prometheus.NewRegistry()
	for _, c := range collectors(src) {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// Handler serves reg in the Prometheus text format.
func Handler(reg *prometheus.Registry) http.Handler {
	return promhttp.HandlerFor(reg, promhttp.HandlerOpts{})
}

func collectors(src StatsSource) []prometheus.Collector {
	gauge := func(name, help string, f func(lifo.Stats) float64) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return f(src.Stats()) })
	}
	counter := func(name, help string, f func(lifo.Stats) float64) prometheus.Collector {
		return prometheus.NewCounterFunc(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      name,
			Help:      help,
		}, func() float64 { return f(src.Stats()) })
	}

	return []prometheus.Collector{
		gauge("len", "Values currently on the stack.",
			func(s lifo.Stats) float64 { return float64(s.Len) }),
		gauge("active", "Pops currently inside an epoch section.",
			func(s lifo.Stats) float64 { return float64(s.Active) }),
		gauge("generation", "Current reclamation generation.",
			func(s lifo.Stats) float64 { return float64(s.Generation) }),
		gauge("retired", "Unlinked nodes waiting to be released.",
			func(s lifo.Stats) float64 { return float64(s.Retired) }),
		counter("reclaimed_total", "Nodes released back to the pool.",
			func(s lifo.Stats) float64 { return float64(s.Reclaimed) }),
		counter("allocated_total", "Nodes allocated because the pool was empty.",
			func(s lifo.Stats) float64 { return float64(s.Allocated) }),
		counter("throttled_total", "Pops held back by the retire threshold.",
			func(s lifo.Stats) float64 { return float64(s.Throttled) }),
	}
}
