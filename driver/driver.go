package driver

import (
	"context"
	"errors"

	"github.com/root-talis/junban/migration"
)

// DefaultVersionTable is the name of the table holding the version marker.
const DefaultVersionTable = "_db_version"

// Driver keeps the version marker of a database and runs migration steps
// against it.
type Driver interface {
	// CurrentVersion returns the version of the last applied migration, or
	// migration.Epoch. The version table is created and seeded when absent.
	CurrentVersion(ctx context.Context) (migration.Version, error)

	// Migrate runs step and sets the version marker to version in one
	// transaction. A nil step only moves the marker.
	Migrate(ctx context.Context, version migration.Version, step migration.StepFunc) error
}

var ErrInvalidVersionTable = errors.New("an error has occurred when reading version table")
