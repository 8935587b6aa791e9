package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// OrderMetrics counts checkout outcomes and order lifecycle transitions.
type OrderMetrics struct {
	placed      prometheus.Counter
	failed      *prometheus.CounterVec
	transitions *prometheus.CounterVec
	revenue     prometheus.Counter
}

func NewOrderMetrics(reg prometheus.Registerer) *OrderMetrics {
	if reg == nil {
		return &OrderMetrics{}
	}
	placed := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "orders_placed_total",
		Help:      "Orders created through checkout.",
	})
	failed := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "checkout_failures_total",
		Help:      "Checkout attempts rejected, by error code.",
	}, []string{"code"})
	transitions := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_status_transitions_total",
		Help:      "Order status changes, by target status.",
	}, []string{"status"})
	revenue := prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "order_revenue_total",
		Help:      "Sum of order totals placed through checkout.",
	})
	reg.MustRegister(placed, failed, transitions, revenue)
	return &OrderMetrics{placed: placed, failed: failed, transitions: transitions, revenue: revenue}
}

func (m *OrderMetrics) OrderPlaced(total float64) {
	if m == nil || m.placed == nil {
		return
	}
	m.placed.Inc()
	if total > 0 {
		m.revenue.Add(total)
	}
}

func (m *OrderMetrics) CheckoutFailed(code string) {
	if m == nil || m.failed == nil {
		return
	}
	m.failed.WithLabelValues(normalizeLabel(code)).Inc()
}

func (m *OrderMetrics) StatusChanged(status string) {
	if m == nil || m.transitions == nil {
		return
	}
	m.transitions.WithLabelValues(normalizeLabel(status)).Inc()
}
