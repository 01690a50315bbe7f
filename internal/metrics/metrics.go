// metrics — метрики Prometheus для HTTP API и событий аутентификации.
// Отдаются служебным сервером на /metrics.
package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics — набор коллекторов сервиса.
type Metrics struct {
	requests   *prometheus.CounterVec
	duration   *prometheus.HistogramVec
	authEvents *prometheus.CounterVec
}

// New создаёт коллекторы и регистрирует их в reg.
// Повторная регистрация в том же реестре паникует (MustRegister).
func New(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		requests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status.",
		}, []string{"method", "route", "status"}),
		duration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "blog",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route"}),
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "blog",
			Subsystem: "auth",
			Name:      "events_total",
			Help:      "Session events (register, login, refresh, logout) by result.",
		}, []string{"event", "result"}),
	}

	reg.MustRegister(m.requests, m.duration, m.authEvents)

	return m
}

// ObserveRequest учитывает завершённый HTTP-запрос.
func (m *Metrics) ObserveRequest(method, route string, status int, dur time.Duration) {
	if route == "" {
		route = "unmatched"
	}

	m.requests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	m.duration.WithLabelValues(method, route).Observe(dur.Seconds())
}

// AuthEvent учитывает событие сессии: event = register|login|refresh|logout,
// result = ok|rejected|error.
func (m *Metrics) AuthEvent(event, result string) {
	m.authEvents.WithLabelValues(event, result).Inc()
}
