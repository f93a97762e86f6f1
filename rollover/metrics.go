package rollover

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors updated by the engine.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	runs      *prometheus.CounterVec
	todos     *prometheus.CounterVec
	skipped   *prometheus.CounterVec
	artifacts prometheus.Counter
}

// NewMetrics registers the rollover collectors with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		// Labels: mode (mirror, move), outcome (ok, aborted, error)
		runs: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollover",
			Name:      "runs_total",
			Help:      "Total rollover runs by mode and outcome",
		}, []string{"mode", "outcome"}),

		// Labels: mode, action (relocated, linked, anchored)
		todos: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollover",
			Name:      "todos_total",
			Help:      "Total todo placements by mode and action",
		}, []string{"mode", "action"}),

		// Labels: reason (empty, already-rolled, create-failed, omni-unsupported)
		skipped: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: "rollover",
			Name:      "buckets_skipped_total",
			Help:      "Total buckets skipped during placement",
		}, []string{"reason"}),

		artifacts: f.NewCounter(prometheus.CounterOpts{
			Namespace: "rollover",
			Name:      "artifacts_removed_total",
			Help:      "Total orphaned rollover artifacts removed by cleanup",
		}),
	}
}

func (m *Metrics) observeRun(res *Result, err error) {
	if m == nil || res == nil {
		return
	}
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case res.Aborted != AbortNone:
		outcome = "aborted"
	}
	mode := string(res.Mode)
	m.runs.WithLabelValues(mode, outcome).Inc()
	m.todos.WithLabelValues(mode, "relocated").Add(float64(res.Relocated))
	m.todos.WithLabelValues(mode, "linked").Add(float64(res.Linked))
	m.todos.WithLabelValues(mode, "anchored").Add(float64(res.Anchored))
	for _, s := range res.Skipped {
		m.skipped.WithLabelValues(string(s.Reason)).Inc()
	}
}

func (m *Metrics) observeCleanup(res *CleanupResult) {
	if m == nil || res == nil {
		return
	}
	m.artifacts.Add(float64(res.Removed))
}
