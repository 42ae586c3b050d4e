package junban

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/root-talis/junban/driver"
	"github.com/root-talis/junban/migration"
	"github.com/root-talis/junban/script"
	"github.com/root-talis/junban/source"
)

// Executor applies single migrations.
type Executor struct {
	source    source.Source
	driver    driver.Driver
	compilers map[string]script.Compiler
	logger    *slog.Logger
}

// NewExecutor picks the compiler for each migration by its file extension.
func NewExecutor(
	src source.Source,
	drv driver.Driver,
	compilers map[string]script.Compiler,
	logger *slog.Logger,
) *Executor {
	byExt := make(map[string]script.Compiler, len(compilers))
	for ext, c := range compilers {
		byExt[normalizeExt(ext)] = c
	}

	if logger == nil {
		logger = slog.Default()
	}

	return &Executor{
		source:    src,
		driver:    drv,
		compilers: byExt,
		logger:    logger,
	}
}

// Apply runs mig in direction. On success the version marker is mig's
// version when going up and the version before it when going down.
func (e *Executor) Apply(ctx context.Context, mig migration.Descriptor, direction migration.Direction) error {
	e.logger.Info("applying migration",
		"migration", mig.Name,
		"version", mig.Version.String(),
		"direction", direction.String(),
	)

	if err := e.apply(ctx, mig, direction); err != nil {
		return &migration.ApplyError{Migration: mig, Direction: direction, Err: err}
	}

	return nil
}

func (e *Executor) apply(ctx context.Context, mig migration.Descriptor, direction migration.Direction) error {
	prog, err := e.Compile(mig)
	if err != nil {
		return err
	}

	switch direction {
	case migration.Up:
		if prog.Up == nil {
			return migration.ErrMissingUpHandler
		}
		return e.driver.Migrate(ctx, mig.Version, prog.Up)

	case migration.Down:
		switch {
		case prog.DownTrivial:
			e.logger.Debug("nothing to undo, moving version marker only", "migration", mig.Name)
			return e.driver.Migrate(ctx, mig.Previous, nil)
		case prog.Down != nil:
			return e.driver.Migrate(ctx, mig.Previous, prog.Down)
		default:
			return migration.ErrMissingDownHandler
		}
	}

	return fmt.Errorf("unknown direction %q", rune(direction))
}

// Compile reads and compiles mig without running it.
func (e *Executor) Compile(mig migration.Descriptor) (*script.Program, error) {
	compiler, ok := e.compilers[normalizeExt(mig.Ext)]
	if !ok {
		return nil, fmt.Errorf("%w: \"%s\"", migration.ErrNoCompiler, mig.Ext)
	}

	rdr, err := e.source.ReadMigration(mig)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}
	defer rdr.Close()

	src, err := io.ReadAll(rdr)
	if err != nil {
		return nil, fmt.Errorf("failed to read migration: %w", err)
	}

	prog, err := compiler.Compile(mig, src)
	if err != nil {
		return nil, fmt.Errorf("failed to compile migration: %w", err)
	}

	return prog, nil
}

func normalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}
