package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the service collectors. A nil *Metrics records nothing.
type Metrics struct {
	Requests    *prometheus.CounterVec
	LatencyMS   *prometheus.HistogramVec
	Checkouts   *prometheus.CounterVec
	Settlements *prometheus.CounterVec
	Gateway     *prometheus.CounterVec
	gatherer    prometheus.Gatherer
}

// New registers the collectors for service on reg.
func New(service string, reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		Requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordenes",
			Subsystem: service,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"handler", "status"}),
		LatencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "ordenes",
			Subsystem: service,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"handler"}),
		Checkouts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordenes",
			Subsystem: service,
			Name:      "checkouts_total",
			Help:      "Checkout attempts by result.",
		}, []string{"result"}),
		Settlements: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordenes",
			Subsystem: service,
			Name:      "settlements_total",
			Help:      "Payment gateway events by type and outcome.",
		}, []string{"event", "outcome"}),
		Gateway: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "ordenes",
			Subsystem: service,
			Name:      "gateway_calls_total",
			Help:      "Outbound payment session requests by result.",
		}, []string{"result"}),
		gatherer: reg,
	}
	reg.MustRegister(m.Requests, m.LatencyMS, m.Checkouts, m.Settlements, m.Gateway)
	return m
}

func (m *Metrics) ObserveHTTP(handler string, status int, dur time.Duration) {
	if m == nil {
		return
	}
	m.Requests.WithLabelValues(handler, strconv.Itoa(status)).Inc()
	m.LatencyMS.WithLabelValues(handler).Observe(float64(dur.Milliseconds()))
}

func (m *Metrics) CheckoutResult(result string) {
	if m == nil {
		return
	}
	m.Checkouts.WithLabelValues(result).Inc()
}

func (m *Metrics) SettlementOutcome(event, outcome string) {
	if m == nil {
		return
	}
	m.Settlements.WithLabelValues(event, outcome).Inc()
}

func (m *Metrics) GatewayCall(result string) {
	if m == nil {
		return
	}
	m.Gateway.WithLabelValues(result).Inc()
}

func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
