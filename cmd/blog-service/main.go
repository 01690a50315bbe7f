package main

import (
	"context"
	"errors"
	"flag"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"sync/atomic"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/pribylovaa/go-blog/internal/cache"
	"github.com/pribylovaa/go-blog/internal/config"
	bloghttp "github.com/pribylovaa/go-blog/internal/http"
	"github.com/pribylovaa/go-blog/internal/http/handlers"
	"github.com/pribylovaa/go-blog/internal/metrics"
	"github.com/pribylovaa/go-blog/internal/service"
	"github.com/pribylovaa/go-blog/internal/storage"
	"github.com/pribylovaa/go-blog/internal/storage/minio"
	"github.com/pribylovaa/go-blog/internal/storage/postgres"
	"github.com/pribylovaa/go-blog/internal/storage/s3"
	"github.com/pribylovaa/go-blog/internal/token"
)

const (
	envLocal = "local"
	envDev   = "dev"
	envProd  = "prod"
)

// multipartOverhead — запас на поля формы и заголовки частей.
const multipartOverhead = 1 << 20

func main() {
	var configPath string
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.Parse()

	// .env необязателен: в контейнере переменные приходят из окружения.
	_ = godotenv.Load()

	cfg := config.MustLoad(configPath)

	log := setupLogger(cfg.Env)
	slog.SetDefault(log)
	log.Info("starting blog-service", "env", cfg.Env)

	rootCtx, rootCancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer rootCancel()

	st, err := postgres.New(rootCtx, cfg.Postgres.URL)
	if err != nil {
		log.Error("postgres_connect_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
	defer st.Close()

	log.Info("postgres_connected")

	if !cfg.Postgres.SkipMigrate {
		if err := st.Migrate(rootCtx); err != nil {
			log.Error("postgres_migrate_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}

		log.Info("postgres_migrated")
	}

	images, err := newImages(rootCtx, cfg.Images)
	if err != nil {
		log.Error("images_init_failed", slog.String("driver", cfg.Images.Driver), slog.String("err", err.Error()))
		os.Exit(1)
	}

	log.Info("images_initialized", slog.String("driver", cfg.Images.Driver), slog.String("bucket", cfg.Images.Bucket))

	issuer, err := token.NewIssuer(token.Config{
		AccessSecret:  cfg.Auth.AccessSecret,
		RefreshSecret: cfg.Auth.RefreshSecret,
		Issuer:        cfg.Auth.Issuer,
		Audience:      cfg.Auth.Audience,
	})
	if err != nil {
		log.Error("token_issuer_init_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	svc := service.New(st, images, issuer, cfg.Images)
	svc.SetMetrics(m)

	if cfg.Redis.URL != "" {
		pc, err := cache.NewRedisCache(rootCtx, cfg.Redis.URL, cache.DefaultPrefix, cfg.Redis.TTL)
		if err != nil {
			log.Error("redis_connect_failed", slog.String("err", err.Error()))
			os.Exit(1)
		}

		defer func() {
			if cerr := pc.Close(); cerr != nil {
				log.Warn("redis_close_failed", slog.String("err", cerr.Error()))
			}
		}()

		svc.SetPostCache(pc)
		log.Info("redis_connected", slog.Duration("ttl", cfg.Redis.TTL))
	} else {
		log.Info("post_cache_disabled")
	}

	maxUpload := cfg.Images.MaxSizeBytes*int64(cfg.Images.MaxPerPost) + multipartOverhead
	h := handlers.New(svc, svc, svc, maxUpload)

	apiHandler := bloghttp.NewRouter(h, issuer, bloghttp.Options{
		Logger:   log,
		Timeout:  cfg.Timeouts.Request,
		BasePath: cfg.HTTP.BasePath,
		Metrics:  m,
	})

	var ready atomic.Bool

	opsMux := http.NewServeMux()
	opsMux.HandleFunc("/livez", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	opsMux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
		if !ready.Load() {
			http.Error(w, "not ready", http.StatusServiceUnavailable)
			return
		}

		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()

		if err := st.Ping(ctx); err != nil {
			http.Error(w, "postgres unavailable", http.StatusServiceUnavailable)
			return
		}

		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	opsMux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	httpSrv := &http.Server{
		Addr:              cfg.HTTP.Addr(),
		Handler:           apiHandler,
		ReadHeaderTimeout: 5 * time.Second,
	}
	opsSrv := &http.Server{
		Addr:              cfg.Ops.Addr(),
		Handler:           opsMux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	serveErrCh := make(chan error, 2)
	for _, srv := range []*http.Server{httpSrv, opsSrv} {
		ln, err := net.Listen("tcp", srv.Addr)
		if err != nil {
			log.Error("http_listen_failed", slog.String("addr", srv.Addr), slog.String("err", err.Error()))
			os.Exit(1)
		}

		log.Info("http_listen_start", slog.String("addr", srv.Addr))

		go func(srv *http.Server, ln net.Listener) {
			if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
				serveErrCh <- err
			}
		}(srv, ln)
	}

	ready.Store(true)
	log.Info("service_ready")

	select {
	case <-rootCtx.Done():
		log.Info("shutdown_requested")
	case err := <-serveErrCh:
		log.Error("http_serve_failed", slog.String("err", err.Error()))
	}

	// Сначала снимаем готовность, чтобы балансировщик перестал слать трафик.
	ready.Store(false)

	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Timeouts.Shutdown)
	defer cancel()

	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("http_shutdown_incomplete", slog.String("err", err.Error()))
	} else {
		log.Info("http_stopped")
	}

	if err := opsSrv.Shutdown(shutdownCtx); err != nil {
		log.Warn("ops_shutdown_incomplete", slog.String("err", err.Error()))
	}

	log.Info("service_stopped")
}

// newImages выбирает реализацию хранилища изображений по images.driver.
func newImages(ctx context.Context, cfg config.ImagesConfig) (storage.Images, error) {
	switch cfg.Driver {
	case config.ImagesDriverS3:
		return s3.New(ctx, cfg)
	default:
		return minio.New(ctx, cfg)
	}
}

func setupLogger(env string) *slog.Logger {
	switch env {
	case envLocal:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envDev:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	case envProd:
		return slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))
	default:
		return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelDebug}))
	}
}
