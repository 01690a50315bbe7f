// migrations встраивает SQL-миграции схемы blog-service в бинарь.
// Применяются через goose при старте сервиса и командой setup-db.
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
