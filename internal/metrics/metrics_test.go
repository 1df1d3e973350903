package metrics

import (
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Counters(t *testing.T) {
	m := New("order", prometheus.NewRegistry())

	m.CheckoutResult("ok")
	m.CheckoutResult("ok")
	m.SettlementOutcome("checkout.session.completed", "conflict")
	m.GatewayCall("error")
	m.ObserveHTTP("/api/checkout", 201, 12*time.Millisecond)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Checkouts.WithLabelValues("ok")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Settlements.WithLabelValues("checkout.session.completed", "conflict")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Gateway.WithLabelValues("error")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Requests.WithLabelValues("/api/checkout", "201")))

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Contains(t, rec.Body.String(), "ordenes_order_checkouts_total")
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics
	m.CheckoutResult("ok")
	m.SettlementOutcome("x", "y")
	m.GatewayCall("ok")
	m.ObserveHTTP("/", 200, time.Millisecond)
}
