package migration

import (
	"errors"
	"fmt"
)

var (
	ErrCorruptVersionTable = errors.New("version table must contain exactly one row")
	ErrMissingUpHandler    = errors.New("migration has no valid up handler")
	ErrMissingDownHandler  = errors.New("migration has no valid down handler")
	ErrInvalidTarget       = errors.New("invalid migration target")
	ErrInvalidVersion      = errors.New("invalid migration version")
	ErrMigrationDuplicated = errors.New("migration version already exists with different name")
	ErrNotADirectory       = errors.New("migrations directory is not a directory")
	ErrNoCompiler          = errors.New("no compiler registered for migration extension")
)

// DiscoveryError is returned when the migrations directory can't be listed.
type DiscoveryError struct {
	Dir string
	Err error
}

func (e *DiscoveryError) Error() string {
	return fmt.Sprintf("failed to discover migrations in \"%s\": %s", e.Dir, e.Err)
}

func (e *DiscoveryError) Unwrap() error {
	return e.Err
}

// ApplyError is returned when a single migration could not be applied. Its
// transaction has been rolled back.
type ApplyError struct {
	Migration Descriptor
	Direction Direction
	Err       error
}

func (e *ApplyError) Error() string {
	return fmt.Sprintf(
		"failed to migrate %s %s (%s): %s",
		e.Migration.Name, e.Direction, e.Migration.FileName, e.Err,
	)
}

func (e *ApplyError) Unwrap() error {
	return e.Err
}
