package database

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/pgx/v5" // migrate driver
	_ "github.com/golang-migrate/migrate/v4/source/file"     // file source
)

// RunMigrations applies all pending migrations from the given directory.
// A database that is already up to date is not an error.
func RunMigrations(dsn, migrationsDir string) error {
	m, err := migrate.New("file://"+migrationsDir, "pgx5://"+stripScheme(dsn))
	if err != nil {
		return fmt.Errorf("could not initialize migrations: %v", err)
	}
	defer m.Close()

	if err := m.Up(); err != nil && !errors.Is(err, migrate.ErrNoChange) {
		return fmt.Errorf("could not apply migrations: %v", err)
	}
	return nil
}

// stripScheme removes the postgres:// prefix so the pgx5 migrate scheme can replace it.
func stripScheme(dsn string) string {
	for _, prefix := range []string{"postgres://", "postgresql://", "pgx5://"} {
		if len(dsn) > len(prefix) && dsn[:len(prefix)] == prefix {
			return dsn[len(prefix):]
		}
	}
	return dsn
}
