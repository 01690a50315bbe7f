// setup-db готовит базу blog-service: создаёт её, если она отсутствует,
// и применяет встроенные миграции. Конфигурация та же, что у сервиса
// (--config, CONFIG_PATH, ./local.yaml или DATABASE_URL).
package main

import (
	"context"
	"flag"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/pribylovaa/go-blog/internal/config"
	"github.com/pribylovaa/go-blog/internal/storage/postgres"
)

func main() {
	var (
		configPath string
		createOnly bool
	)
	flag.StringVar(&configPath, "config", "", "path to config file")
	flag.BoolVar(&createOnly, "create-only", false, "create the database without applying migrations")
	flag.Parse()

	_ = godotenv.Load()

	log := slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo}))

	if err := run(configPath, createOnly, log); err != nil {
		log.Error("setup_db_failed", slog.String("err", err.Error()))
		os.Exit(1)
	}
}

func run(configPath string, createOnly bool, log *slog.Logger) error {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	cfg, err := config.LoadPostgres(configPath)
	if err != nil {
		return err
	}

	created, err := postgres.EnsureDatabase(ctx, cfg.URL)
	if err != nil {
		return err
	}

	if created {
		log.Info("database_created")
	} else {
		log.Info("database_exists")
	}

	if createOnly {
		return nil
	}

	st, err := postgres.New(ctx, cfg.URL)
	if err != nil {
		return err
	}
	defer st.Close()

	if err := st.Migrate(ctx); err != nil {
		return err
	}

	log.Info("migrations_applied")

	return nil
}
