// Package metrics exposes Prometheus instrumentation for trigger evaluation
// and routing.
//
// A nil *Metrics is valid and records nothing, so components take metrics
// as an optional dependency.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "detbuilder"

// Evaluation results.
const (
	ResultTrue  = "true"
	ResultFalse = "false"
	ResultError = "error"
)

// Routing outcomes.
const (
	OutcomeSaved    = "saved"
	OutcomeNoop     = "noop"
	OutcomeSkipped  = "skipped"
	OutcomeFailed   = "failed"
	OutcomeNoConfig = "not_configured"
)

// Metrics holds the collectors for one registry.
type Metrics struct {
	registry *prometheus.Registry

	evaluationsTotal   *prometheus.CounterVec
	evaluationDuration prometheus.Histogram
	triggersFired      *prometheus.CounterVec
	routingTotal       *prometheus.CounterVec
	recordsSaved       *prometheus.CounterVec
	saveErrors         *prometheus.CounterVec
	compiledCached     prometheus.GaugeFunc
}

// New creates and registers the collectors. A nil registry returns nil.
// cacheSize reports the expression cache size; it may be nil.
func New(registry *prometheus.Registry, cacheSize func() int) *Metrics {
	if registry == nil {
		return nil
	}

	m := &Metrics{
		registry: registry,

		evaluationsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "logic",
			Name:      "evaluations_total",
			Help:      "Trigger condition evaluations by result",
		}, []string{"result"}),

		evaluationDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "logic",
			Name:      "evaluation_duration_seconds",
			Help:      "Time spent compiling and evaluating one trigger condition",
			Buckets:   []float64{0.00001, 0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05},
		}),

		triggersFired: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "triggers_fired_total",
			Help:      "Triggers whose condition held, by source project",
		}, []string{"project"}),

		routingTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "routing",
			Name:      "runs_total",
			Help:      "Save events processed, by outcome",
		}, []string{"outcome"}),

		recordsSaved: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "records_saved_total",
			Help:      "Destination records written, by destination project",
		}, []string{"project"}),

		saveErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "store",
			Name:      "save_errors_total",
			Help:      "Itemised save errors, by destination project",
		}, []string{"project"}),
	}

	registry.MustRegister(
		m.evaluationsTotal,
		m.evaluationDuration,
		m.triggersFired,
		m.routingTotal,
		m.recordsSaved,
		m.saveErrors,
	)

	if cacheSize != nil {
		m.compiledCached = prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "logic",
			Name:      "compiled_expressions",
			Help:      "Compiled conditions held in the expression cache",
		}, func() float64 { return float64(cacheSize()) })
		registry.MustRegister(m.compiledCached)
	}

	return m
}

// ObserveEvaluation records one condition evaluation.
func (m *Metrics) ObserveEvaluation(matched bool, err error, elapsed time.Duration) {
	if m == nil {
		return
	}
	result := ResultFalse
	switch {
	case err != nil:
		result = ResultError
	case matched:
		result = ResultTrue
	}
	m.evaluationsTotal.WithLabelValues(result).Inc()
	m.evaluationDuration.Observe(elapsed.Seconds())
}

// TriggersFired adds n fired triggers for project.
func (m *Metrics) TriggersFired(project string, n int) {
	if m == nil || n == 0 {
		return
	}
	m.triggersFired.WithLabelValues(project).Add(float64(n))
}

// RoutingOutcome counts one processed save event.
func (m *Metrics) RoutingOutcome(outcome string) {
	if m == nil {
		return
	}
	m.routingTotal.WithLabelValues(outcome).Inc()
}

// RecordsSaved counts saved records and itemised errors for a destination.
func (m *Metrics) RecordsSaved(project string, saved, errs int) {
	if m == nil {
		return
	}
	if saved > 0 {
		m.recordsSaved.WithLabelValues(project).Add(float64(saved))
	}
	if errs > 0 {
		m.saveErrors.WithLabelValues(project).Add(float64(errs))
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}
