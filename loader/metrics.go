package loader

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeSuccess = "success"
	outcomeFailure = "failure"
	outcomeClosed  = "closed"
)

// metrics tracks module loading. All collectors are usable when no
// Registerer is configured; they are simply not exported.
type metrics struct {
	loads    *prometheus.CounterVec
	handles  prometheus.Gauge
	releases prometheus.Counter
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		loads: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "msgauth",
			Subsystem: "plugin",
			Name:      "loads_total",
			Help:      "Plugin module load attempts by outcome.",
		}, []string{"outcome"}),
		handles: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "msgauth",
			Subsystem: "plugin",
			Name:      "handles",
			Help:      "Plugin module handles currently held by the registry.",
		}),
		releases: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "msgauth",
			Subsystem: "plugin",
			Name:      "releases_total",
			Help:      "Plugin module handles released at shutdown.",
		}),
	}

	if reg != nil {
		m.loads = registerOrExisting(reg, m.loads)
		m.handles = registerOrExisting(reg, m.handles)
		m.releases = registerOrExisting(reg, m.releases)
	}
	return m
}

// registerOrExisting registers c, reusing an identical collector that is
// already registered (several registries in one process share the series).
func registerOrExisting[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
	}
	return c
}
