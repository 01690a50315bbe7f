package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
)

// adminDatabase — база, к которой подключаемся для CREATE DATABASE.
const adminDatabase = "postgres"

// EnsureDatabase создаёт базу из dbURL, если её ещё нет.
// Подключается к служебной базе postgres теми же учётными данными.
// Возвращает true, если база была создана.
func EnsureDatabase(ctx context.Context, dbURL string) (bool, error) {
	const op = "storage.postgres.EnsureDatabase"

	cfg, err := pgx.ParseConfig(dbURL)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	name := cfg.Database
	if name == "" {
		return false, fmt.Errorf("%s: database name is empty in url", op)
	}

	if name == adminDatabase {
		return false, nil
	}

	admin := cfg.Copy()
	admin.Database = adminDatabase

	conn, err := pgx.ConnectConfig(ctx, admin)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}
	defer conn.Close(context.WithoutCancel(ctx))

	var exists bool
	err = conn.QueryRow(ctx, `SELECT EXISTS (SELECT 1 FROM pg_database WHERE datname = $1)`, name).Scan(&exists)
	if err != nil {
		return false, fmt.Errorf("%s: %w", op, err)
	}

	if exists {
		return false, nil
	}

	// Имя базы нельзя передать параметром: экранируем как идентификатор.
	if _, err := conn.Exec(ctx, "CREATE DATABASE "+pgx.Identifier{name}.Sanitize()); err != nil {
		if isUniqueViolation(err) || isDuplicateDatabase(err) {
			return false, nil
		}

		return false, fmt.Errorf("%s: %w", op, err)
	}

	return true, nil
}

func isDuplicateDatabase(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.DuplicateDatabase
}
