// Package metrics exposes prometheus collectors for workflow runs, healing
// and model calls.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const DefaultNamespace = "testpilot"

// Collector owns a registry and the metrics recorded into it. It satisfies
// the recorder interfaces of the workflow, healer, llm and runner packages.
type Collector struct {
	registry *prometheus.Registry

	transitions  *prometheus.CounterVec
	runDuration  *prometheus.HistogramVec
	healAttempts *prometheus.CounterVec
	llmRequests  *prometheus.CounterVec
	runsInFlight prometheus.Gauge
	runsRejected prometheus.Counter
}

func NewCollector(namespace string) *Collector {
	if namespace == "" {
		namespace = DefaultNamespace
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	factory := promauto.With(reg)

	return &Collector{
		registry: reg,
		transitions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "workflow_transitions_total",
			Help:      "Workflow state transitions.",
		}, []string{"from", "to"}),
		runDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "workflow_run_duration_seconds",
			Help:      "Duration of workflow runs.",
			Buckets:   []float64{1, 5, 10, 30, 60, 120, 300, 600},
		}, []string{"outcome"}),
		healAttempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "heal_attempts_total",
			Help:      "Healing attempts by error category and repair strategy.",
		}, []string{"category", "strategy"}),
		llmRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "llm_requests_total",
			Help:      "Language model requests by component and outcome.",
		}, []string{"component", "outcome"}),
		runsInFlight: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "runs_in_flight",
			Help:      "Asynchronous runs currently executing.",
		}),
		runsRejected: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_rejected_total",
			Help:      "Asynchronous runs rejected because the queue was full.",
		}),
	}
}

func (c *Collector) Transition(from, to string) {
	c.transitions.WithLabelValues(from, to).Inc()
}

func (c *Collector) RunCompleted(outcome string, d time.Duration) {
	c.runDuration.WithLabelValues(outcome).Observe(d.Seconds())
}

func (c *Collector) HealAttempt(category, strategy string) {
	c.healAttempts.WithLabelValues(category, strategy).Inc()
}

func (c *Collector) LLMRequest(component, outcome string) {
	c.llmRequests.WithLabelValues(component, outcome).Inc()
}

func (c *Collector) RunStarted() {
	c.runsInFlight.Inc()
}

func (c *Collector) RunFinished() {
	c.runsInFlight.Dec()
}

func (c *Collector) RunRejected() {
	c.runsRejected.Inc()
}

// Registry returns the registry the metrics are registered with.
func (c *Collector) Registry() *prometheus.Registry {
	return c.registry
}

// Handler serves the registry in the prometheus exposition format.
func (c *Collector) Handler() http.Handler {
	return promhttp.HandlerFor(c.registry, promhttp.HandlerOpts{Registry: c.registry})
}
