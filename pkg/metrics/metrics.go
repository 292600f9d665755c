// Package metrics records batch-level penalty computation metrics and exports
// them in the prometheus text format.
package metrics

import (
	"time"

	"github.com/pkg/errors"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Outcome labels.
const (
	OutcomeAccepted = "accepted"
	OutcomeRejected = "rejected"
)

// Metrics provides observability for matrix computations. All methods are
// safe on a nil receiver.
type Metrics struct {
	registry *prometheus.Registry

	// Violations processed by validation outcome
	Violations *prometheus.CounterVec

	// Enhancement rule applied to the selected statute
	Enhancements *prometheus.CounterVec

	// Grand total of the most recent matrix
	GrandTotal prometheus.Gauge

	ComputeDuration prometheus.Histogram
}

// New creates a Metrics instance backed by its own registry.
func New() (m *Metrics) {
	registry := prometheus.NewRegistry()
	factory := promauto.With(registry)

	m = &Metrics{
		registry: registry,
		Violations: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "penalty_matrix_violations_total",
			Help: "Violations processed, by validation outcome",
		}, []string{"outcome"}), // outcome: "accepted", "rejected"

		Enhancements: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "penalty_matrix_enhancements_total",
			Help: "Enhancement rule applied to the selected statute",
		}, []string{"rule"}),

		GrandTotal: factory.NewGauge(prometheus.GaugeOpts{
			Name: "penalty_matrix_grand_total_dollars",
			Help: "Grand total of the most recently computed matrix",
		}),

		ComputeDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "penalty_matrix_compute_duration_seconds",
			Help:    "Duration of a full matrix computation",
			Buckets: []float64{0.0001, 0.0005, 0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1},
		}),
	}

	return m
}

// Registry exposes the underlying registry as a gatherer.
func (m *Metrics) Registry() (registry *prometheus.Registry) {
	if m != nil {
		registry = m.registry
	}
	return registry
}

// IncrementOutcome records one validated or rejected violation.
func (m *Metrics) IncrementOutcome(outcome string) {
	if m != nil {
		m.Violations.WithLabelValues(outcome).Inc()
	}
}

// IncrementEnhancement records the enhancement rule of a selected statute.
func (m *Metrics) IncrementEnhancement(rule string) {
	if m != nil {
		m.Enhancements.WithLabelValues(rule).Inc()
	}
}

// SetGrandTotal records the grand total of a matrix.
func (m *Metrics) SetGrandTotal(total int64) {
	if m != nil {
		m.GrandTotal.Set(float64(total))
	}
}

// ObserveComputeDuration records how long a computation took.
func (m *Metrics) ObserveComputeDuration(d time.Duration) {
	if m != nil {
		m.ComputeDuration.Observe(d.Seconds())
	}
}

// WriteTextfile writes all metrics to path for a node_exporter textfile
// collector.
func (m *Metrics) WriteTextfile(path string) (err error) {
	if m == nil {
		err = errors.New("metrics not configured")
		return err
	}

	err = prometheus.WriteToTextfile(path, m.registry)
	if err != nil {
		err = errors.Wrapf(err, "failed to write metrics textfile: %s", path)
		return err
	}

	return err
}
