package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// ReconcilerMetrics records metadata for reconciliation passes.
type ReconcilerMetrics struct {
	passDuration *prometheus.HistogramVec
	transitions  *prometheus.CounterVec
	deliveries   prometheus.Counter
	orderErrors  prometheus.Counter
}

// NewReconcilerMetrics registers the reconciler metrics on the provided registerer.
func NewReconcilerMetrics(reg prometheus.Registerer) *ReconcilerMetrics {
	if reg == nil {
		return &ReconcilerMetrics{}
	}
	passDuration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "reconcile_pass_duration_seconds",
		Help:    "Duration of reconciliation passes in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"job"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "order_transitions_total",
		Help: "Order status transitions applied, labeled by target status.",
	}, []string{"to"})
	deliveries := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_deliveries_total",
		Help: "Orders delivered to buyers.",
	})
	orderErrors := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "reconcile_order_errors_total",
		Help: "Per-order failures skipped during reconciliation passes.",
	})
	reg.MustRegister(passDuration, transitions, deliveries, orderErrors)
	return &ReconcilerMetrics{
		passDuration: passDuration,
		transitions:  transitions,
		deliveries:   deliveries,
		orderErrors:  orderErrors,
	}
}

// ObservePass records the duration for the named reconcile job.
func (m *ReconcilerMetrics) ObservePass(job string, duration time.Duration) {
	if m == nil || m.passDuration == nil {
		return
	}
	m.passDuration.WithLabelValues(job).Observe(duration.Seconds())
}

// IncTransition counts a status transition into the given target status.
func (m *ReconcilerMetrics) IncTransition(to string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(to).Inc()
}

// IncDelivery counts a completed delivery.
func (m *ReconcilerMetrics) IncDelivery() {
	if m == nil || m.deliveries == nil {
		return
	}
	m.deliveries.Inc()
}

// IncOrderError counts a per-order failure skipped by a pass.
func (m *ReconcilerMetrics) IncOrderError() {
	if m == nil || m.orderErrors == nil {
		return
	}
	m.orderErrors.Inc()
}
