package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Failure reasons recorded on attribution runs.
const (
	ReasonValidation  = "validation"
	ReasonUpstream    = "upstream"
	ReasonPersistence = "persistence"
)

// AttributionMetrics records attribution engine runs.
type AttributionMetrics struct {
	duration    *prometheus.HistogramVec
	success     *prometheus.CounterVec
	failure     *prometheus.CounterVec
	paths       prometheus.Histogram
	unallocated *prometheus.CounterVec
}

// NewAttributionMetrics registers the attribution metrics on the provided registerer.
func NewAttributionMetrics(reg prometheus.Registerer) *AttributionMetrics {
	if reg == nil {
		return &AttributionMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "attribution",
		Name:      "run_duration_seconds",
		Help:      "Duration of attribution model runs in seconds.",
		Buckets:   prometheus.DefBuckets,
	}, []string{"model"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "attribution",
		Name:      "run_success_total",
		Help:      "Successful attribution model runs.",
	}, []string{"model"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "attribution",
		Name:      "run_failure_total",
		Help:      "Failed attribution model runs.",
	}, []string{"model", "reason"})
	paths := prometheus.NewHistogram(prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "attribution",
		Name:      "paths_built",
		Help:      "Converted paths built per calculation.",
		Buckets:   prometheus.ExponentialBuckets(1, 4, 8),
	})
	unallocated := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "attribution",
		Name:      "unallocated_value_total",
		Help:      "Conversion value a model left unallocated.",
	}, []string{"model"})
	reg.MustRegister(duration, success, failure, paths, unallocated)
	return &AttributionMetrics{
		duration:    duration,
		success:     success,
		failure:     failure,
		paths:       paths,
		unallocated: unallocated,
	}
}

// ObserveDuration records how long a model run took.
func (m *AttributionMetrics) ObserveDuration(model string, duration time.Duration) {
	if m == nil || m.duration == nil {
		return
	}
	m.duration.WithLabelValues(normalizeLabel(model)).Observe(duration.Seconds())
}

// ObservePaths records the number of converted paths built for one calculation.
func (m *AttributionMetrics) ObservePaths(count int) {
	if m == nil || m.paths == nil {
		return
	}
	m.paths.Observe(float64(count))
}

// IncSuccess increments the success counter for the model.
func (m *AttributionMetrics) IncSuccess(model string) {
	if m == nil || m.success == nil {
		return
	}
	m.success.WithLabelValues(normalizeLabel(model)).Inc()
}

// IncFailure increments the failure counter for the model and reason.
func (m *AttributionMetrics) IncFailure(model, reason string) {
	if m == nil || m.failure == nil {
		return
	}
	m.failure.WithLabelValues(normalizeLabel(model), normalizeLabel(reason)).Inc()
}

// AddUnallocated records value a model did not distribute.
func (m *AttributionMetrics) AddUnallocated(model string, value float64) {
	if m == nil || m.unallocated == nil || value <= 0 {
		return
	}
	m.unallocated.WithLabelValues(normalizeLabel(model)).Add(value)
}
