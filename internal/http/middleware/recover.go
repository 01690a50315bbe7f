package middleware

import (
	"errors"
	"log/slog"
	"net/http"

	apierrors "github.com/pribylovaa/go-blog/internal/errors"
	logctx "github.com/pribylovaa/go-blog/internal/pkg/log"
)

// errHandlerPanic уходит в WriteError как непредусмотренная ошибка и
// превращается в 500/internal; причина паники остаётся только в логе.
var errHandlerPanic = errors.New("handler panic")

// Recover ловит панику в обработчиках блога (посты, профиль, сессии)
// и отвечает конвертом 500/internal с тем же request_id, что и в логе.
// http.ErrAbortHandler пробрасывается: это штатный обрыв ответа.
func Recover() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}

				logctx.From(r.Context()).LogAttrs(r.Context(), slog.LevelError, "handler_panic",
					slog.String("method", r.Method),
					slog.String("path", r.URL.Path),
					slog.Any("reason", rec),
				)
				apierrors.WriteError(w, r, errHandlerPanic)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
