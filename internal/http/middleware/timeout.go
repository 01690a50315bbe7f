package middleware

import (
	"context"
	"net/http"
	"time"
)

// Timeout ограничивает время обработки запроса к API блога (timeouts.request).
// Дедлайн доходит до pgx, хранилища изображений и Redis; при его истечении
// обработчик получает context.DeadlineExceeded и отвечает 504.
// Уже заданный дедлайн не продлевается, d <= 0 отключает мидлвар.
func Timeout(d time.Duration) Middleware {
	if d <= 0 {
		return func(next http.Handler) http.Handler { return next }
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := r.Context()
			if dl, ok := ctx.Deadline(); ok && time.Until(dl) <= d {
				next.ServeHTTP(w, r)
				return
			}

			ctx, cancel := context.WithTimeout(ctx, d)
			defer cancel()
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
