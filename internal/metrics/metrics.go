// Package metrics содержит метрики Prometheus сервиса витрины.
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "storefront"

// Metrics объединяет счётчики HTTP-запросов, переходов жизненного цикла и уведомлений.
// Методы безопасно вызывать на nil.
type Metrics struct {
	requests      *prometheus.CounterVec
	latencyMS     *prometheus.HistogramVec
	transitions   *prometheus.CounterVec
	notifications *prometheus.CounterVec
	dropped       prometheus.Counter
	gatherer      prometheus.Gatherer
}

// New создаёт метрики и регистрирует их в реестре.
func New(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests.",
		}, []string{"route", "status"}),
		latencyMS: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_ms",
			Help:      "HTTP request latency in milliseconds.",
			Buckets:   []float64{5, 10, 25, 50, 100, 250, 500, 1000, 2500, 5000},
		}, []string{"route"}),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "order_transitions_total",
			Help:      "Order lifecycle transitions by trigger and result.",
		}, []string{"trigger", "result"}),
		notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notifications_total",
			Help:      "Order notifications by event type and result.",
		}, []string{"event", "result"}),
		dropped: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "notification_queue_dropped_total",
			Help:      "Events dropped because the notification queue was full.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(m.requests, m.latencyMS, m.transitions, m.notifications, m.dropped)
	return m
}

// ObserveRequest учитывает обработанный HTTP-запрос.
func (m *Metrics) ObserveRequest(route string, status int, d time.Duration) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(route, strconv.Itoa(status)).Inc()
	m.latencyMS.WithLabelValues(route).Observe(float64(d.Milliseconds()))
}

// ObserveTransition учитывает попытку перехода жизненного цикла.
func (m *Metrics) ObserveTransition(trigger, result string) {
	if m == nil {
		return
	}
	m.transitions.WithLabelValues(trigger, result).Inc()
}

// ObserveNotification учитывает результат отправки уведомления.
func (m *Metrics) ObserveNotification(event, result string) {
	if m == nil {
		return
	}
	m.notifications.WithLabelValues(event, result).Inc()
}

// IncDropped учитывает событие, не попавшее в очередь уведомлений.
func (m *Metrics) IncDropped() {
	if m == nil {
		return
	}
	m.dropped.Inc()
}

// Handler возвращает HTTP-обработчик для выдачи метрик.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{})
}
