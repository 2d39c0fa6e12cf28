package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics stores Prometheus collectors used across the service. All methods
// are safe on a nil receiver so tests and tools can run without a registry.
type Metrics struct {
	Updates           *prometheus.CounterVec
	UpdateLatency     *prometheus.HistogramVec
	Orders            prometheus.Counter
	Revenue           prometheus.Counter
	DuplicatePayments prometheus.Counter
	FulfillmentRaces  prometheus.Counter
	NotifyFailures    prometheus.Counter
	Errors            *prometheus.CounterVec
}

var (
	regOnce         sync.Once
	metricsInstance *Metrics
)

// Registry builds and registers the metrics singleton with optional namespace.
func Registry(namespace string) *Metrics {
	regOnce.Do(func() {
		metricsInstance = New(namespace, prometheus.DefaultRegisterer)
	})
	return metricsInstance
}

// New builds collectors and registers them with reg when it is not nil.
func New(namespace string, reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Updates: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "updates_total",
			Help:      "Total inbound updates handled by kind and status.",
		}, []string{"kind", "status"}),
		UpdateLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "update_duration_seconds",
			Help:      "Latency distribution for update handling.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"kind"}),
		Orders: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "orders_total",
			Help:      "Total orders recorded.",
		}),
		Revenue: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "revenue_stars_total",
			Help:      "Total revenue of recorded orders in stars.",
		}),
		DuplicatePayments: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "duplicate_payments_total",
			Help:      "Payment notifications ignored because the payment was already recorded.",
		}),
		FulfillmentRaces: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "fulfillment_races_total",
			Help:      "Payments completed for products no longer in the catalog.",
		}),
		NotifyFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "admin_notify_failures_total",
			Help:      "Administrator notifications that could not be delivered.",
		}),
		Errors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "errors_total",
			Help:      "Total errors grouped by component.",
		}, []string{"component"}),
	}

	if reg != nil {
		reg.MustRegister(
			m.Updates,
			m.UpdateLatency,
			m.Orders,
			m.Revenue,
			m.DuplicatePayments,
			m.FulfillmentRaces,
			m.NotifyFailures,
			m.Errors,
		)
	}
	return m
}

// ObserveUpdate records one handled update.
func (m *Metrics) ObserveUpdate(kind, status string, took time.Duration) {
	if m == nil {
		return
	}
	m.Updates.WithLabelValues(kind, status).Inc()
	m.UpdateLatency.WithLabelValues(kind).Observe(took.Seconds())
}

// OrderRecorded counts a new order and its revenue.
func (m *Metrics) OrderRecorded(price int64) {
	if m == nil {
		return
	}
	m.Orders.Inc()
	m.Revenue.Add(float64(price))
}

// DuplicatePayment counts a replayed payment notification.
func (m *Metrics) DuplicatePayment() {
	if m == nil {
		return
	}
	m.DuplicatePayments.Inc()
}

// FulfillmentRace counts a payment for a deleted product.
func (m *Metrics) FulfillmentRace() {
	if m == nil {
		return
	}
	m.FulfillmentRaces.Inc()
}

// NotifyFailed counts an undelivered admin notification.
func (m *Metrics) NotifyFailed() {
	if m == nil {
		return
	}
	m.NotifyFailures.Inc()
}

// Error counts an unexpected failure in component.
func (m *Metrics) Error(component string) {
	if m == nil {
		return
	}
	m.Errors.WithLabelValues(component).Inc()
}
