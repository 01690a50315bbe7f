package postgres

import (
	"context"
	"database/sql"
	"fmt"
	"sync"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/jackc/pgx/v5/stdlib"
	"github.com/pressly/goose/v3"
	"github.com/pribylovaa/go-blog/migrations"
)

// goose хранит FS и диалект в глобальном состоянии.
var gooseMu sync.Mutex

// Migrate применяет встроенные миграции к базе, на которую смотрит пул.
func (s *Storage) Migrate(ctx context.Context) error {
	const op = "storage.postgres.Migrate"

	if err := MigratePool(ctx, s.db); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}

// MigratePool применяет миграции через database/sql-обёртку над пулом.
func MigratePool(ctx context.Context, pool *pgxpool.Pool) error {
	db := stdlib.OpenDBFromPool(pool)
	defer db.Close()

	return MigrateDB(ctx, db)
}

// MigrateDB применяет миграции к *sql.DB (драйвер pgx).
func MigrateDB(ctx context.Context, db *sql.DB) error {
	const op = "storage.postgres.MigrateDB"

	gooseMu.Lock()
	defer gooseMu.Unlock()

	goose.SetBaseFS(migrations.FS)
	goose.SetLogger(goose.NopLogger())

	if err := goose.SetDialect("postgres"); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	if err := goose.UpContext(ctx, db, "."); err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}

	return nil
}
