package csp

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics counts export decisions.
type Metrics struct {
	exports *prometheus.CounterVec
}

// NewMetrics registers the export collectors on reg, or on the default
// registerer when reg is nil. An export counter already registered on reg
// is reused.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		exports: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pqc_fips_csp_export_total",
			Help: "CSP export requests by secret kind and outcome",
		}, []string{"kind", "outcome"}),
	}
	if err := reg.Register(m.exports); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			panic(err)
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			panic(err)
		}
		m.exports = existing
	}
	return m
}

func (m *Metrics) observe(kind, outcome string) {
	if m == nil {
		return
	}
	m.exports.WithLabelValues(kind, outcome).Inc()
}
