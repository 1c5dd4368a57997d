package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects gateway and token lifecycle metrics on a private registry.
// A nil *Metrics is valid and records nothing.
type Metrics struct {
	registry *prometheus.Registry

	gatewayRequestsTotal *prometheus.CounterVec
	gatewayDuration      *prometheus.HistogramVec
	tokenAcquireTotal    *prometheus.CounterVec
	callbacksTotal       *prometheus.CounterVec
}

// Token acquisition results.
const (
	TokenCacheHit  = "cache_hit"
	TokenRefreshed = "refreshed"
	TokenFailed    = "failed"
)

// NewMetrics creates a new metrics instance with all collectors registered
func NewMetrics(registry *prometheus.Registry) (*Metrics, error) {
	m := &Metrics{
		registry: registry,
		gatewayRequestsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "gateway_requests_total",
				Help: "Outbound provider operations by outcome",
			},
			[]string{"operation", "outcome"},
		),
		gatewayDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "gateway_request_duration_seconds",
				Help:    "Outbound provider operation latency, token acquisition included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"operation"},
		),
		tokenAcquireTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "token_acquisitions_total",
				Help: "Provider token acquisitions by identity and result",
			},
			[]string{"scope", "result"},
		),
		callbacksTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "callbacks_total",
				Help: "Provider callbacks received by status",
			},
			[]string{"status"},
		),
	}

	collectors := []prometheus.Collector{
		m.gatewayRequestsTotal,
		m.gatewayDuration,
		m.tokenAcquireTotal,
		m.callbacksTotal,
	}
	for _, c := range collectors {
		if err := registry.Register(c); err != nil {
			return nil, err
		}
	}
	return m, nil
}

func (m *Metrics) ObserveGatewayRequest(operation, outcome string, d time.Duration) {
	if m == nil {
		return
	}
	m.gatewayRequestsTotal.WithLabelValues(operation, outcome).Inc()
	m.gatewayDuration.WithLabelValues(operation).Observe(d.Seconds())
}

func (m *Metrics) IncTokenAcquire(scope, result string) {
	if m == nil {
		return
	}
	m.tokenAcquireTotal.WithLabelValues(scope, result).Inc()
}

func (m *Metrics) IncCallback(status string) {
	if m == nil {
		return
	}
	m.callbacksTotal.WithLabelValues(status).Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
