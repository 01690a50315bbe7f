// postgres реализует storage.Storage поверх PostgreSQL (pgxpool).
//
// users.go - учётные записи, refresh-токен (одна сессия на пользователя) и профиль.
// posts.go - посты и ключи их изображений.
// migrate.go - применение встроенных миграций goose.
package postgres

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pribylovaa/go-blog/internal/storage"
)

// ApplicationName — имя, под которым сервис блога виден в pg_stat_activity,
// если в DSN не задан свой application_name.
const ApplicationName = "blog-service"

// Storage — пул соединений к базе блога (таблицы users и posts).
type Storage struct {
	db *pgxpool.Pool
}

// New открывает пул к базе блога и проверяет её доступность.
// Миграции здесь не применяются: это делает Migrate (или cmd/setup-db).
func New(ctx context.Context, dbURL string) (*Storage, error) {
	const op = "storage.postgres.New"

	config, err := pgxpool.ParseConfig(dbURL)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if _, ok := config.ConnConfig.RuntimeParams["application_name"]; !ok {
		config.ConnConfig.RuntimeParams["application_name"] = ApplicationName
	}

	db, err := pgxpool.NewWithConfig(ctx, config)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%s: %w", op, err)
	}

	return &Storage{db: db}, nil
}

// Ping проверяет доступность базы блога для /healthz ops-сервера.
func (s *Storage) Ping(ctx context.Context) error {
	return s.db.Ping(ctx)
}

// Close закрывает пул соединений.
func (s *Storage) Close() {
	s.db.Close()
}

// Проверка на соответствие интерфейсу Storage.
var _ storage.Storage = (*Storage)(nil)
