package wavesim

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are the Prometheus collectors engines report to. A nil *Metrics
// is valid and records nothing.
type Metrics struct {
	// Steps counts successful timesteps per provider.
	Steps *prometheus.CounterVec
	// Failures counts timesteps rejected by the provider.
	Failures *prometheus.CounterVec
	// Dispatch observes the wall time spent issuing one timestep.
	Dispatch *prometheus.HistogramVec
	// Engines tracks live engines.
	Engines *prometheus.GaugeVec
}

// NewMetrics creates the collectors and registers them on reg. A nil reg
// leaves them unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Steps: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wavesim",
				Name:      "steps_total",
				Help:      "Timesteps dispatched successfully",
			},
			[]string{"provider"},
		),
		Failures: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "wavesim",
				Name:      "dispatch_failures_total",
				Help:      "Timesteps whose dispatch failed",
			},
			[]string{"provider"},
		),
		Dispatch: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "wavesim",
				Name:      "dispatch_seconds",
				Help:      "Time spent issuing one timestep",
				Buckets:   prometheus.ExponentialBuckets(1e-5, 4, 10),
			},
			[]string{"provider"},
		),
		Engines: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "wavesim",
				Name:      "engines",
				Help:      "Engines holding a compiled program",
			},
			[]string{"provider"},
		),
	}
}

func (m *Metrics) stepped(provider string, d time.Duration) {
	if m == nil {
		return
	}
	m.Steps.WithLabelValues(provider).Inc()
	m.Dispatch.WithLabelValues(provider).Observe(d.Seconds())
}

func (m *Metrics) failed(provider string) {
	if m == nil {
		return
	}
	m.Failures.WithLabelValues(provider).Inc()
}

func (m *Metrics) engineDelta(provider string, delta float64) {
	if m == nil {
		return
	}
	m.Engines.WithLabelValues(provider).Add(delta)
}
