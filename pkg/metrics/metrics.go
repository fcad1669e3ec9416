// Package metrics exposes Prometheus collectors for protein resolution runs.
package metrics

import (
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "protresolve"

// Metrics holds the resolver collectors registered on one registry. A nil
// *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	RunsTotal              *prometheus.CounterVec
	GroupsTotal            *prometheus.CounterVec
	ProteinsTotal          *prometheus.CounterVec
	UnmatchedPeptidesTotal prometheus.Counter
	PhaseDurationSeconds   *prometheus.HistogramVec
}

// New registers the collectors on reg. A nil reg gets a fresh registry so
// callers and tests never touch the global default.
func New(reg *prometheus.Registry) *Metrics {
	if reg == nil {
		reg = prometheus.NewRegistry()
	}
	factory := promauto.With(reg)

	return &Metrics{
		registry: reg,
		RunsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "runs_total",
			Help:      "Resolution runs by input type and outcome",
		}, []string{"input_type", "status"}),
		GroupsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "groups_total",
			Help:      "Groups produced by level (isd, msd)",
		}, []string{"level"}),
		ProteinsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "proteins_total",
			Help:      "Proteins by classification",
		}, []string{"type"}),
		UnmatchedPeptidesTotal: factory.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "unmatched_peptides_total",
			Help:      "Experimental peptides not contained in any protein",
		}),
		PhaseDurationSeconds: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "phase_duration_seconds",
			Help:      "Wall time of each resolution phase",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5, 30},
		}, []string{"phase"}),
	}
}

// Registry returns the registry the collectors live on.
func (m *Metrics) Registry() *prometheus.Registry {
	if m == nil {
		return nil
	}
	return m.registry
}

// RecordRun counts one finished run.
func (m *Metrics) RecordRun(inputType string, success bool) {
	if m == nil {
		return
	}
	status := "success"
	if !success {
		status = "error"
	}
	m.RunsTotal.WithLabelValues(inputType, status).Inc()
}

// RecordGroups adds the group counts of one run.
func (m *Metrics) RecordGroups(isd, msd int) {
	if m == nil {
		return
	}
	m.GroupsTotal.WithLabelValues("isd").Add(float64(isd))
	m.GroupsTotal.WithLabelValues("msd").Add(float64(msd))
}

// RecordProtein counts one classified protein.
func (m *Metrics) RecordProtein(proteinType string) {
	if m == nil {
		return
	}
	m.ProteinsTotal.WithLabelValues(proteinType).Inc()
}

// RecordUnmatched adds n unmatched experimental peptides.
func (m *Metrics) RecordUnmatched(n int) {
	if m == nil || n <= 0 {
		return
	}
	m.UnmatchedPeptidesTotal.Add(float64(n))
}

// ObservePhase records how long a phase took.
func (m *Metrics) ObservePhase(phase string, d time.Duration) {
	if m == nil {
		return
	}
	m.PhaseDurationSeconds.WithLabelValues(phase).Observe(d.Seconds())
}

// WriteToTextfile dumps the registry in the node-exporter textfile format.
func (m *Metrics) WriteToTextfile(path string) error {
	if m == nil {
		return nil
	}
	if err := prometheus.WriteToTextfile(path, m.registry); err != nil {
		return fmt.Errorf("failed to write metrics to %s: %w", path, err)
	}
	return nil
}
