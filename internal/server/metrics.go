package server

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"mod2fix/internal/report"
)

// Outcome labels for mod2fix_analyses_total.
const (
	outcomeOK          = "ok"
	outcomeInvalid     = "invalid"
	outcomeTooLarge    = "too_large"
	outcomeRateLimited = "rate_limited"
)

type metrics struct {
	analyses *prometheus.CounterVec
	findings *prometheus.CounterVec
	duration prometheus.Histogram
}

// newRegistry returns a registry with the standard Go and process collectors.
func newRegistry() *prometheus.Registry {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return reg
}

func newMetrics(reg prometheus.Registerer) *metrics {
	m := &metrics{
		analyses: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mod2fix_analyses_total",
			Help: "Analysis requests by outcome.",
		}, []string{"outcome"}),
		findings: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "mod2fix_findings_total",
			Help: "Findings reported, by kind.",
		}, []string{"kind"}),
		duration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "mod2fix_analysis_duration_seconds",
			Help:    "Time spent building a report.",
			Buckets: []float64{.0005, .001, .005, .01, .05, .1, .5, 1},
		}),
	}
	m.analyses = register(reg, m.analyses)
	m.findings = register(reg, m.findings)
	m.duration = register(reg, m.duration)
	for _, o := range []string{outcomeOK, outcomeInvalid, outcomeTooLarge, outcomeRateLimited} {
		m.analyses.WithLabelValues(o)
	}
	return m
}

// register adds c to reg, or returns the collector already registered under
// the same descriptor so servers sharing a registry share their series.
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

func (m *metrics) observe(r report.Report, took time.Duration) {
	m.analyses.WithLabelValues(outcomeOK).Inc()
	m.findings.WithLabelValues("error").Add(float64(len(r.Errors)))
	m.findings.WithLabelValues("dependency").Add(float64(len(r.Dependencies)))
	m.duration.Observe(took.Seconds())
}

func (m *metrics) reject(outcome string) {
	m.analyses.WithLabelValues(outcome).Inc()
}
