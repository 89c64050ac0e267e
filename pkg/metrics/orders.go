package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Order creation outcomes.
const (
	OutcomeCreated    = "created"
	OutcomeRejected   = "rejected"
	OutcomeRetry      = "retry"
	OutcomeFailed     = "failed"
	OutcomeRolledBack = "rolled_back"
)

// OrderMetrics records order creation results.
type OrderMetrics struct {
	created   *prometheus.CounterVec
	rollbacks prometheus.Counter
	duration  prometheus.Histogram
}

// NewOrderMetrics registers the order creation collectors on the provided registerer.
func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	created := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "caseflow_orders_created_total",
		Help: "Order creation attempts by outcome.",
	}, []string{"outcome"})
	rollbacks := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "caseflow_order_rollbacks_total",
		Help: "Order headers deleted after a failed line insert.",
	})
	duration := prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "caseflow_order_create_duration_seconds",
		Help:    "Duration of order creation in seconds.",
		Buckets: prometheus.DefBuckets,
	})
	reg.MustRegister(created, rollbacks, duration)
	return &OrderMetrics{
		created:   created,
		rollbacks: rollbacks,
		duration:  duration,
	}
}

// ObserveCreate records one finished creation attempt.
func (m *OrderMetrics) ObserveCreate(outcome string, elapsed time.Duration) {
	if m == nil || m.created == nil {
		return
	}
	m.created.WithLabelValues(normalizeLabel(outcome)).Inc()
	m.duration.Observe(elapsed.Seconds())
}

// IncRollback counts a compensating header delete.
func (m *OrderMetrics) IncRollback() {
	if m == nil || m.rollbacks == nil {
		return
	}
	m.rollbacks.Inc()
}
