// Package metrics owns the Prometheus registry of a service and the
// collectors of the 2D-DOC pipeline.
package metrics

import (
	"net/http"
	"regexp"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "tddproof"

// Parse outcomes
const (
	OutcomeParsed   = "parsed"
	OutcomeRejected = "rejected"
	OutcomeFailed   = "failed"
)

// Metrics holds the pipeline collectors. A nil *Metrics records nothing.
type Metrics struct {
	registry *prometheus.Registry

	DocumentsParsed  *prometheus.CounterVec
	Signatures       *prometheus.CounterVec
	Warnings         *prometheus.CounterVec
	CircuitInputs    *prometheus.CounterVec
	PipelineDuration *prometheus.HistogramVec
	HTTPRequests     *prometheus.CounterVec
}

// New creates a registry with runtime collectors and the pipeline metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(
			collectors.WithGoCollectorRuntimeMetrics(collectors.GoRuntimeMetricsRule{Matcher: regexp.MustCompile("/sched/.*")}),
		),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		collectors.NewBuildInfoCollector(),
	)

	factory := promauto.With(reg)
	return &Metrics{
		registry: reg,

		DocumentsParsed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "documents_total",
			Help:      "2D-DOC payloads processed, by outcome and perimeter",
		}, []string{"outcome", "perimeter_id"}),

		Signatures: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "signatures_total",
			Help:      "Signature checks, by validity",
		}, []string{"valid"}),

		Warnings: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "parse_warnings_total",
			Help:      "Non-fatal anomalies found while parsing",
		}, []string{"perimeter_id"}),

		CircuitInputs: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "circuit_inputs_total",
			Help:      "Circuit inputs built, by matcher profile and outcome",
		}, []string{"profile", "outcome"}),

		PipelineDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "pipeline_duration_seconds",
			Help:      "Duration of parse and circuit operations",
			Buckets:   []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 1},
		}, []string{"operation"}),

		HTTPRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route pattern and status",
		}, []string{"method", "route", "status"}),
	}
}

// Registry exposes the underlying registry.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the exposition format for this registry.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// ObserveParse records one parse outcome.
func (m *Metrics) ObserveParse(outcome, perimeterID string, signatureValid bool, warnings int, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.DocumentsParsed.WithLabelValues(outcome, perimeterID).Inc()
	m.PipelineDuration.WithLabelValues("parse").Observe(elapsed.Seconds())
	if outcome != OutcomeParsed {
		return
	}
	m.Signatures.WithLabelValues(strconv.FormatBool(signatureValid)).Inc()
	if warnings > 0 {
		m.Warnings.WithLabelValues(perimeterID).Add(float64(warnings))
	}
}

// ObserveCircuit records one circuit build.
func (m *Metrics) ObserveCircuit(profile, outcome string, elapsed time.Duration) {
	if m == nil {
		return
	}
	m.CircuitInputs.WithLabelValues(profile, outcome).Inc()
	m.PipelineDuration.WithLabelValues("circuit").Observe(elapsed.Seconds())
}

// ObserveHTTP records one served request.
func (m *Metrics) ObserveHTTP(method, route string, status int) {
	if m == nil {
		return
	}
	m.HTTPRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
}
