// Package metrics exposes prometheus instruments for the reconciliation
// sweep.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type ReconcileMetrics struct {
	sweepRuns     prometheus.Counter
	sweepDuration prometheus.Histogram
	subscriptions *prometheus.CounterVec
}

var (
	reconcileOnce sync.Once
	reconcile     *ReconcileMetrics
)

// Reconcile returns the process-wide reconciliation metrics, registering them
// on first use.
func Reconcile() *ReconcileMetrics {
	reconcileOnce.Do(func() {
		reconcile = &ReconcileMetrics{
			sweepRuns: promauto.NewCounter(prometheus.CounterOpts{
				Namespace: "recurra",
				Subsystem: "reconcile",
				Name:      "sweep_runs_total",
				Help:      "Number of reconciliation sweeps started.",
			}),
			sweepDuration: promauto.NewHistogram(prometheus.HistogramOpts{
				Namespace: "recurra",
				Subsystem: "reconcile",
				Name:      "sweep_duration_seconds",
				Help:      "Duration of reconciliation sweeps.",
				Buckets:   prometheus.DefBuckets,
			}),
			subscriptions: promauto.NewCounterVec(prometheus.CounterOpts{
				Namespace: "recurra",
				Subsystem: "reconcile",
				Name:      "subscriptions_total",
				Help:      "Subscriptions touched by reconciliation, by result.",
			}, []string{"result"}),
		}
	})
	return reconcile
}

func (m *ReconcileMetrics) IncSweepRun() {
	m.sweepRuns.Inc()
}

func (m *ReconcileMetrics) ObserveSweepDuration(d time.Duration) {
	m.sweepDuration.Observe(d.Seconds())
}

// IncSubscription records a per-item result: closed, unchanged or error.
func (m *ReconcileMetrics) IncSubscription(result string) {
	m.subscriptions.WithLabelValues(result).Inc()
}
