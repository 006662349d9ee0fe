package post

import (
	"errors"

	pqcfips "github.com/BackendStack21/pqc-fips-go"
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics records POST outcomes and the module state.
type Metrics struct {
	moduleState *prometheus.GaugeVec
	runs        *prometheus.CounterVec
	duration    prometheus.Histogram
	failures    *prometheus.CounterVec
}

// NewMetrics registers the POST collectors on reg, or on the default
// registerer when reg is nil. Collectors already registered on reg are
// reused, so several modules may share one registerer.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		moduleState: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "pqc_fips_module_state",
			Help: "Current module state (1 for the active state, 0 otherwise)",
		}, []string{"state"}),
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pqc_fips_post_runs_total",
			Help: "Number of pre-operational self-test runs",
		}, []string{"result"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "pqc_fips_post_duration_seconds",
			Help:    "Duration of pre-operational self-test runs",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pqc_fips_selftest_failures_total",
			Help: "Number of failed self-test steps",
		}, []string{"step"}),
	}
	m.moduleState = register(reg, m.moduleState)
	m.runs = register(reg, m.runs)
	m.duration = register(reg, m.duration)
	m.failures = register(reg, m.failures)
	return m
}

// register adds c to reg and returns it, or returns the collector reg
// already holds under the same descriptor.
func register[C prometheus.Collector](reg prometheus.Registerer, c C) C {
	err := reg.Register(c)
	if err == nil {
		return c
	}
	var are prometheus.AlreadyRegisteredError
	if errors.As(err, &are) {
		if existing, ok := are.ExistingCollector.(C); ok {
			return existing
		}
	}
	panic(err)
}

func (m *Metrics) setState(s pqcfips.ModuleState) {
	if m == nil {
		return
	}
	for _, st := range pqcfips.States {
		v := 0.0
		if st == s {
			v = 1
		}
		m.moduleState.WithLabelValues(st.String()).Set(v)
	}
}

func (m *Metrics) observeRun(passed bool, seconds float64) {
	if m == nil {
		return
	}
	result := "pass"
	if !passed {
		result = "fail"
	}
	m.observeResult(result, seconds)
}

// observeResult records a run under an explicit result label.
func (m *Metrics) observeResult(result string, seconds float64) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(result).Inc()
	m.duration.Observe(seconds)
}

func (m *Metrics) incFailure(step string) {
	if m == nil {
		return
	}
	if step == "" {
		step = "unknown"
	}
	m.failures.WithLabelValues(step).Inc()
}
