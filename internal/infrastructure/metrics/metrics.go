// Package metrics exposes claim lifecycle counters to Prometheus.
package metrics

import (
	"net/http"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/garyjia/legal-aid-claims/internal/application/port"
	"github.com/garyjia/legal-aid-claims/internal/domain/workflow"
)

// Recorder implements port.Metrics on its own registry
type Recorder struct {
	registry *prometheus.Registry

	transitions     *prometheus.CounterVec
	failures        *prometheus.CounterVec
	recomputations  prometheus.Counter
	valueBands      *prometheus.CounterVec
	archivedByTimer *prometheus.CounterVec
}

var _ port.Metrics = (*Recorder)(nil)

// NewRecorder registers the claim metrics under namespace
func NewRecorder(namespace string) *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transitions_total",
			Help:      "Committed claim transitions.",
		}, []string{"event", "from", "to"}),
		failures: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "transition_failures_total",
			Help:      "Rejected or failed claim transitions.",
		}, []string{"event", "reason"}),
		recomputations: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "totals_recomputations_total",
			Help:      "Committed totals recomputations.",
		}),
		valueBands: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "value_band_total",
			Help:      "Recomputations by resulting value band.",
		}, []string{"band"}),
		archivedByTimer: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "archived_by_timer_total",
			Help:      "Claims moved by the archive worker.",
		}, []string{"event"}),
	}

	r.registry.MustRegister(
		r.transitions,
		r.failures,
		r.recomputations,
		r.valueBands,
		r.archivedByTimer,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

// TransitionSucceeded counts a committed transition
func (r *Recorder) TransitionSucceeded(event workflow.Trigger, from, to workflow.State) {
	r.transitions.WithLabelValues(event.String(), from.String(), to.String()).Inc()
}

// TransitionFailed counts a transition that did not commit
func (r *Recorder) TransitionFailed(event workflow.Trigger, reason string) {
	r.failures.WithLabelValues(event.String(), reason).Inc()
}

// TotalsRecomputed counts a committed recomputation and its band
func (r *Recorder) TotalsRecomputed(valueBandID int) {
	r.recomputations.Inc()
	r.valueBands.WithLabelValues(strconv.Itoa(valueBandID)).Inc()
}

// ArchivedByTimer counts a timed archival
func (r *Recorder) ArchivedByTimer(event workflow.Trigger) {
	r.archivedByTimer.WithLabelValues(event.String()).Inc()
}

// Registry returns the underlying registry
func (r *Recorder) Registry() *prometheus.Registry {
	return r.registry
}

// Handler serves the registry in the Prometheus exposition format
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.registry, promhttp.HandlerOpts{Registry: r.registry})
}
