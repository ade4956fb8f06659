package postgres

import (
	"errors"
	"fmt"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
)

// MigrationStatus reports the schema version after a migration.
type MigrationStatus struct {
	Version uint
	Dirty   bool
	// Changed is false when the schema was already at the requested version.
	Changed bool
}

// Migrate applies the migrations in dir to the database at dsn.
//
// Precondition: direction is "up" or "down"; steps >= 0 where 0 means all.
// Postcondition: Returns the resulting schema version. An already-current
// schema is not an error.
func Migrate(dsn, dir, direction string, steps int) (MigrationStatus, error) {
	if steps < 0 {
		return MigrationStatus{}, fmt.Errorf("steps must be >= 0, got %d", steps)
	}
	if direction != "up" && direction != "down" {
		return MigrationStatus{}, fmt.Errorf("invalid direction %q: must be 'up' or 'down'", direction)
	}

	m, err := migrate.New("file://"+dir, dsn)
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("creating migrator: %w", err)
	}
	defer m.Close()

	switch {
	case direction == "up" && steps > 0:
		err = m.Steps(steps)
	case direction == "up":
		err = m.Up()
	case steps > 0:
		err = m.Steps(-steps)
	default:
		err = m.Down()
	}
	changed := true
	if errors.Is(err, migrate.ErrNoChange) {
		changed, err = false, nil
	}
	if err != nil {
		return MigrationStatus{}, fmt.Errorf("migrating %s: %w", direction, err)
	}

	version, dirty, err := m.Version()
	if err != nil && !errors.Is(err, migrate.ErrNilVersion) {
		return MigrationStatus{}, fmt.Errorf("reading schema version: %w", err)
	}
	return MigrationStatus{Version: version, Dirty: dirty, Changed: changed}, nil
}
