package middleware

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/pribylovaa/go-blog/internal/metrics"
)

// Metrics учитывает запросы в Prometheus. Метка route — шаблон маршрута chi
// ("/posts/{id}"), а не фактический путь: кардинальность ограничена.
// Запрос, упавший в panic, учитывается со статусом 500; сама паника идёт дальше к Recover.
// m == nil делает мидлвар no-op.
func Metrics(m *metrics.Metrics) Middleware {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}

		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			sw := newStatusWriter(w)
			start := time.Now()
			completed := false

			defer func() {
				status := sw.Status()
				if !completed {
					status = http.StatusInternalServerError
				}

				// Шаблон известен только после маршрутизации.
				var route string
				if rctx := chi.RouteContext(r.Context()); rctx != nil {
					route = rctx.RoutePattern()
				}

				m.ObserveRequest(r.Method, route, status, time.Since(start))
			}()

			next.ServeHTTP(sw, r)
			completed = true
		})
	}
}
