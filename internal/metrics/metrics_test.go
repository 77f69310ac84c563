package metrics

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMetrics_Counters(t *testing.T) {
	m := New(prometheus.NewRegistry())

	m.ObserveTransition("pay", "ok")
	m.ObserveTransition("pay", "ok")
	m.ObserveTransition("ship", "conflict")
	m.ObserveNotification("order.shipped", "error")
	m.IncDropped()

	if got := testutil.ToFloat64(m.transitions.WithLabelValues("pay", "ok")); got != 2 {
		t.Fatalf("pay transitions = %v, want 2", got)
	}
	if got := testutil.ToFloat64(m.transitions.WithLabelValues("ship", "conflict")); got != 1 {
		t.Fatalf("ship conflicts = %v, want 1", got)
	}
	if got := testutil.ToFloat64(m.dropped); got != 1 {
		t.Fatalf("dropped = %v, want 1", got)
	}
}

func TestMetrics_NilSafe(t *testing.T) {
	var m *Metrics

	m.ObserveRequest("/x", http.StatusOK, time.Millisecond)
	m.ObserveTransition("pay", "ok")
	m.ObserveNotification("order.created", "ok")
	m.IncDropped()
}

func TestMetrics_Handler(t *testing.T) {
	m := New(prometheus.NewRegistry())
	m.ObserveRequest("/api/orders/{id}", http.StatusOK, 3*time.Millisecond)

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want %d", rec.Code, http.StatusOK)
	}
	if !strings.Contains(rec.Body.String(), "storefront_http_requests_total") {
		t.Fatalf("metrics output does not contain request counter")
	}
}
