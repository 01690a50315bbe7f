// http собирает REST API blog-service: chi-роутер, мидлвары и маршруты.
package http

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/pribylovaa/go-blog/internal/http/handlers"
	"github.com/pribylovaa/go-blog/internal/http/middleware"
	"github.com/pribylovaa/go-blog/internal/metrics"
)

// Options — параметры сборки HTTP-роутера.
type Options struct {
	Logger   *slog.Logger
	Timeout  time.Duration
	BasePath string // например, "/api"; если пустой — роуты регистрируются на корне.
	Metrics  *metrics.Metrics
}

// NewRouter собирает http.Handler с chi и подключёнными middleware/роутами.
func NewRouter(h *handlers.Handlers, v middleware.Verifier, opts Options) http.Handler {
	root := chi.NewRouter()

	// Middleware (внешний -> внутренний).
	root.Use(
		middleware.RequestID(),          // формируем X-Request-Id (до логирования!)
		middleware.Logging(opts.Logger), // кладём request-scoped логгер в контекст и логируем
		middleware.Recover(),            // паника -> 500 с request_id, запись лога остаётся
		middleware.Metrics(opts.Metrics),
	)
	if opts.Timeout > 0 {
		root.Use(middleware.Timeout(opts.Timeout)) // общий дедлайн запроса
	}

	if opts.BasePath != "" {
		sub := chi.NewRouter()
		registerRoutes(sub, h, v)
		root.Mount(opts.BasePath, sub)
		return root
	}

	registerRoutes(root, h, v)
	return root
}

// registerRoutes — единая точка регистрации всех REST-эндпойнтов.
func registerRoutes(r chi.Router, h *handlers.Handlers, v middleware.Verifier) {
	access := middleware.AccessGuard(v)
	refresh := middleware.RefreshGuard(v)

	// auth
	r.Post("/auth/register", h.Register)
	r.Post("/auth/login", h.Login)
	r.With(refresh).Post("/auth/refresh", h.Refresh)
	r.With(access).Post("/auth/logout", h.Logout)

	// posts
	r.Get("/posts", h.ListPosts)
	r.Get("/posts/{id}", h.GetPost)
	r.With(access).Post("/posts", h.CreatePost)
	r.With(access).Patch("/posts/{id}", h.UpdatePost)
	r.With(access).Delete("/posts/{id}", h.DeletePost)

	// profile
	r.With(access).Get("/profile", h.GetProfile)
	r.With(access).Patch("/profile", h.UpdateProfile)
	r.With(access).Patch("/profile/avatar", h.UploadAvatar)
}
