package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/sony/gobreaker/v2"
)

// Metrics holds all application metrics
type Metrics struct {
	// Payment metrics
	PaymentsTotal   *prometheus.CounterVec
	RefundsTotal    *prometheus.CounterVec
	GatewayDuration *prometheus.HistogramVec
	GatewayErrors   *prometheus.CounterVec

	// Webhook metrics
	WebhookEventsTotal *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
}

// NewMetrics creates and registers all metrics against the given registry.
// If reg is nil, prometheus.DefaultRegisterer is used.
func NewMetrics(namespace string, reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := prometheus.WrapRegistererWith(nil, reg)

	m := &Metrics{
		PaymentsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "payments_total",
				Help:      "Total number of processed payments by variant and resulting status",
			},
			[]string{"variant", "status"},
		),
		RefundsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "refunds_total",
				Help:      "Total number of refunds by variant and outcome",
			},
			[]string{"variant", "outcome"},
		),
		GatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "gateway_request_duration_seconds",
				Help:      "Outbound gateway call duration in seconds",
				Buckets:   []float64{0.1, 0.25, 0.5, 1, 2, 5, 10, 30},
			},
			[]string{"variant", "operation"},
		),
		GatewayErrors: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "gateway_errors_total",
				Help:      "Total number of failed gateway calls",
			},
			[]string{"variant", "operation"},
		),
		WebhookEventsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "webhook_events_total",
				Help:      "Total number of webhook events by matched rule and outcome",
			},
			[]string{"rule", "outcome"},
		),
		HTTPRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "http_requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status"},
		),
		HTTPRequestDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration in seconds",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "circuit_breaker_state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"name"},
		),
	}

	factory.MustRegister(
		m.PaymentsTotal,
		m.RefundsTotal,
		m.GatewayDuration,
		m.GatewayErrors,
		m.WebhookEventsTotal,
		m.HTTPRequestsTotal,
		m.HTTPRequestDuration,
		m.CircuitBreakerState,
	)

	return m
}

// ObserveBreakerState records a circuit breaker state transition.
func (m *Metrics) ObserveBreakerState(name string, state gobreaker.State) {
	var v float64
	switch state {
	case gobreaker.StateClosed:
		v = 0
	case gobreaker.StateHalfOpen:
		v = 1
	case gobreaker.StateOpen:
		v = 2
	}
	m.CircuitBreakerState.WithLabelValues(name).Set(v)
}
