// Package migrations применяет SQL-миграции из каталога migrations/.
package migrations

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/golang-migrate/migrate/v4"
	pgxv5 "github.com/golang-migrate/migrate/v4/database/pgx/v5"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// Table — таблица, в которой golang-migrate хранит версию схемы.
const Table = "tracker_schema_migrations"

// Run применяет все непримененные миграции из dir и возвращает текущую версию схемы.
// Повторный запуск не считается ошибкой. Соединение db остаётся открытым.
func Run(db *sql.DB, dir string, log *slog.Logger) (uint, error) {
	const op = "migrations.Run"

	driver, err := pgxv5.WithInstance(db, &pgxv5.Config{MigrationsTable: Table})
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	m, err := migrate.NewWithDatabaseInstance("file://"+dir, "pgx_v5", driver)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	m.Log = logger{log: log.With(slog.String("op", op))}
	// m.Close не вызывается: драйвер закрыл бы и переданный db.

	if err = m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return 0, fmt.Errorf("%s: %w", op, err)
	}

	version, dirty, err := m.Version()
	switch {
	case errors.Is(err, migrate.ErrNilVersion):
		return 0, nil
	case err != nil:
		return 0, fmt.Errorf("%s: %w", op, err)
	case dirty:
		return version, fmt.Errorf("%s: %w", op, migrate.ErrDirty{Version: int(version)})
	}
	log.Info("schema is up to date", slog.Uint64("version", uint64(version)))
	return version, nil
}

// logger передаёт сообщения golang-migrate в slog.
type logger struct {
	log *slog.Logger
}

func (l logger) Printf(format string, v ...any) {
	l.log.Debug(strings.TrimSpace(fmt.Sprintf(format, v...)))
}

func (l logger) Verbose() bool {
	return false
}
