package junban

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"github.com/root-talis/junban/driver"
	"github.com/root-talis/junban/migration"
	"github.com/root-talis/junban/script"
	"github.com/root-talis/junban/script/luascript"
	"github.com/root-talis/junban/script/sqlscript"
	"github.com/root-talis/junban/source"
)

// ---

type Migrator interface {
	// Migrate moves the database to target, one migration at a time. It stops
	// at the first migration that fails; the ones before it stay applied.
	Migrate(ctx context.Context, target migration.Target) (*Result, error)

	// Plan resolves target without applying anything.
	Plan(ctx context.Context, target migration.Target) (*Plan, error)

	Status(ctx context.Context) (*StatusResult, error)
}

type Result struct {
	Plan    Plan
	Applied []migration.Descriptor
	// Version is the version marker after the run.
	Version migration.Version
}

type StatusResult struct {
	Migrations   []migration.State
	Version      migration.Version
	AppliedCount uint
	PendingCount uint
	MissingCount uint
}

// ---

type Option func(*migrator)

func WithLogger(logger *slog.Logger) Option {
	return func(m *migrator) {
		m.logger = logger
	}
}

// WithCompiler registers c for migration files with extension ext, replacing
// the default one if any.
func WithCompiler(ext string, c script.Compiler) Option {
	return func(m *migrator) {
		m.compilers[normalizeExt(ext)] = c
	}
}

type migrator struct {
	source    source.Source
	driver    driver.Driver
	compilers map[string]script.Compiler
	logger    *slog.Logger
	executor  *Executor
}

// ---

// New returns a Migrator compiling .sql files as declarative migrations and
// .lua files as procedural ones.
func New(src source.Source, drv driver.Driver, opts ...Option) Migrator {
	m := &migrator{
		source: src,
		driver: drv,
		compilers: map[string]script.Compiler{
			"sql": sqlscript.NewCompiler(),
			"lua": luascript.NewCompiler(nil),
		},
		logger: slog.Default(),
	}

	for _, opt := range opts {
		opt(m)
	}

	m.executor = NewExecutor(src, drv, m.compilers, m.logger)

	return m
}

// ---

func (m *migrator) Plan(ctx context.Context, target migration.Target) (*Plan, error) {
	current, catalog, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	plan := Resolve(catalog, current, target)
	return &plan, nil
}

func (m *migrator) Migrate(ctx context.Context, target migration.Target) (*Result, error) {
	current, catalog, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	result := &Result{
		Plan:    Resolve(catalog, current, target),
		Applied: make([]migration.Descriptor, 0),
		Version: current,
	}

	if result.Plan.Empty() {
		m.logger.Info("no eligible migrations", "version", current.String(), "target", target.String())
		return result, nil
	}

	m.logger.Info("migrating",
		"version", current.String(),
		"target", target.String(),
		"direction", result.Plan.Direction.String(),
		"count", len(result.Plan.Migrations),
	)

	for _, mig := range result.Plan.Migrations {
		if err := m.executor.Apply(ctx, mig, result.Plan.Direction); err != nil {
			return result, err
		}

		result.Applied = append(result.Applied, mig)
		if result.Plan.Direction == migration.Up {
			result.Version = mig.Version
		} else {
			result.Version = mig.Previous
		}
	}

	m.logger.Info("migrated", "version", result.Version.String(), "count", len(result.Applied))

	return result, nil
}

func (m *migrator) Status(ctx context.Context) (*StatusResult, error) {
	current, catalog, err := m.load(ctx)
	if err != nil {
		return nil, err
	}

	// A stored version missing from the catalog leaves every entry pending,
	// since up would apply all of them.
	currentIndex := -1
	for i := range catalog {
		if catalog[i].Version == current {
			currentIndex = i
			break
		}
	}

	result := StatusResult{
		Migrations: make([]migration.State, 0, len(catalog)+1),
		Version:    current,
	}

	for i, mig := range catalog {
		status := migration.Pending
		if i <= currentIndex {
			status = migration.Applied
			result.AppliedCount++
		} else {
			result.PendingCount++
		}

		result.Migrations = append(result.Migrations, migration.State{
			Descriptor: mig,
			Status:     status,
			Current:    i == currentIndex,
		})
	}

	if currentIndex < 0 && current != migration.Epoch {
		result.Migrations = append(result.Migrations, migration.State{
			Descriptor: migration.Descriptor{Migration: migration.Migration{Version: current}},
			Status:     migration.Missing,
			Current:    true,
		})
		result.MissingCount++

		sort.SliceStable(result.Migrations, func(i, j int) bool {
			return result.Migrations[i].Version < result.Migrations[j].Version
		})
	}

	return &result, nil
}

// load lists the catalog before the database is contacted.
func (m *migrator) load(ctx context.Context) (migration.Version, []migration.Descriptor, error) {
	catalog, err := m.source.AvailableMigrations()
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get the list of available migrations: %w", err)
	}

	current, err := m.driver.CurrentVersion(ctx)
	if err != nil {
		return 0, nil, fmt.Errorf("failed to get current version: %w", err)
	}

	return current, catalog, nil
}
