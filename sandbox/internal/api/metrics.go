package api

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Verification kinds and results used as metric labels.
const (
	kindOrder        = "order"
	kindSubscription = "subscription"

	resultOK           = "ok"
	resultBadSignature = "bad_signature"
	resultMismatch     = "mismatch"
	resultRejected     = "rejected"
	resultError        = "error"
)

// metrics holds the sandbox's Prometheus instruments on a private registry so
// several servers can live in one process (tests).
type metrics struct {
	registry *prometheus.Registry

	ordersCreated        prometheus.Counter
	subscriptionsCreated *prometheus.CounterVec
	verifications        *prometheus.CounterVec
	creditsSold          prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		ordersCreated: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront_sandbox",
			Name:      "orders_created_total",
			Help:      "Credit pack orders created.",
		}),
		subscriptionsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_sandbox",
			Name:      "subscriptions_created_total",
			Help:      "Subscriptions created by plan.",
		}, []string{"plan"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "storefront_sandbox",
			Name:      "verifications_total",
			Help:      "Payment verifications by kind and result.",
		}, []string{"kind", "result"}),
		creditsSold: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "storefront_sandbox",
			Name:      "credits_sold_total",
			Help:      "Credits added to balances by verified orders.",
		}),
	}
	m.registry.MustRegister(
		m.ordersCreated,
		m.subscriptionsCreated,
		m.verifications,
		m.creditsSold,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *metrics) verified(kind, result string) {
	m.verifications.WithLabelValues(kind, result).Inc()
}
