package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the prometheus collectors for the order lifecycle
type Metrics struct {
	TransitionsApplied  *prometheus.CounterVec
	TransitionsRejected *prometheus.CounterVec
	NotificationsSent   *prometheus.CounterVec
	PushFailures        prometheus.Counter
}

// NewMetrics creates and registers the lifecycle collectors
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		TransitionsApplied: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "transitions_applied_total",
			Help:      "Successful lifecycle transitions by action and resulting status.",
		}, []string{"action", "to_status"}),
		TransitionsRejected: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "transitions_rejected_total",
			Help:      "Rejected transition requests by failure kind.",
		}, []string{"reason"}),
		NotificationsSent: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "notifications_created_total",
			Help:      "Durable notifications created by type.",
		}, []string{"type"}),
		PushFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "orderflow",
			Name:      "push_failures_total",
			Help:      "Best-effort live pushes that could not be delivered.",
		}),
	}

	reg.MustRegister(
		m.TransitionsApplied,
		m.TransitionsRejected,
		m.NotificationsSent,
		m.PushFailures,
	)
	return m
}

// Handler exposes the default prometheus registry over HTTP
func Handler() http.Handler {
	return promhttp.Handler()
}
