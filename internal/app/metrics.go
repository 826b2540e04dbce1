package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics counts vault activity. A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry
	locked   prometheus.Counter
	unlocks  *prometheus.CounterVec
	swept    prometheus.Counter
}

// NewMetrics registers the safes collectors on a fresh registry. resident,
// when set, backs the safes_resident gauge.
func NewMetrics(resident func() int) *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		locked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safes_locked_total",
			Help: "Safes locked since start.",
		}),
		unlocks: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "safes_unlock_attempts_total",
			Help: "Unlock attempts by result.",
		}, []string{"result"}),
		swept: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "safes_swept_total",
			Help: "Expired safes removed by the background sweep.",
		}),
	}
	m.registry.MustRegister(m.locked, m.unlocks, m.swept)
	if resident != nil {
		m.registry.MustRegister(prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Name: "safes_resident",
			Help: "Safes currently held in memory, including expired ones not yet removed.",
		}, func() float64 { return float64(resident()) }))
	}
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

func (m *Metrics) SafeLocked() {
	if m == nil {
		return
	}
	m.locked.Inc()
}

func (m *Metrics) UnlockAttempt(found bool) {
	if m == nil {
		return
	}
	result := "not_found"
	if found {
		result = "ok"
	}
	m.unlocks.WithLabelValues(result).Inc()
}

func (m *Metrics) Swept(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.swept.Add(float64(n))
}
