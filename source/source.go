package source

import (
	"io"

	"github.com/root-talis/junban/migration"
)

// Source lists the migrations available to a run and hands out their
// contents.
type Source interface {
	AvailableMigrations() ([]migration.Descriptor, error)
	ReadMigration(mig migration.Descriptor) (io.ReadCloser, error)
}
