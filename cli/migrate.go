package cli

import (
	"fmt"

	"github.com/root-talis/junban"
	actx "github.com/root-talis/junban/app/context"
	"github.com/root-talis/junban/migration"
)

// The Up command applies migrations up to a target.
type Up struct {
	Target string `arg:"" optional:"" help:"Migration to land on: empty for latest, a number of steps, or a date (YYYYMMDDHHMMSS or YYYY-MM-DDTHH:MM:SS)."`
	DryRun bool   `help:"Print the migrations that would run without applying them."`
}

// Run the up command.
func (c *Up) Run(appCtx *actx.Context) error {
	target, err := migration.ParseTarget(c.Target, false)
	if err != nil {
		return err //nolint:wrapcheck
	}
	return runMigrate(appCtx, target, c.DryRun)
}

// The Down command reverts migrations down to a target.
type Down struct {
	Target string `arg:"" optional:"" help:"Migration to land on: a number of steps back (default 1), or a date (YYYYMMDDHHMMSS or YYYY-MM-DDTHH:MM:SS)."`
	DryRun bool   `help:"Print the migrations that would run without applying them."`
}

// Run the down command.
func (c *Down) Run(appCtx *actx.Context) error {
	target := migration.Relative(-1)
	if c.Target != "" {
		var err error
		if target, err = migration.ParseTarget(c.Target, true); err != nil {
			return err //nolint:wrapcheck
		}
	}
	return runMigrate(appCtx, target, c.DryRun)
}

func runMigrate(appCtx *actx.Context, target migration.Target, dryRun bool) error {
	migrator, closeFn, err := openMigrator(appCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	if dryRun {
		plan, err := migrator.Plan(appCtx.Ctx, target)
		if err != nil {
			return err //nolint:wrapcheck
		}
		return renderPlan(appCtx, plan)
	}

	result, err := migrator.Migrate(appCtx.Ctx, target)
	if result != nil && len(result.Applied) > 0 {
		fmt.Fprintf(appCtx.Stdout, "migrated %s %d migration(s), version is now %s\n",
			result.Plan.Direction, len(result.Applied), result.Version)
	}

	return err //nolint:wrapcheck
}

func renderPlan(appCtx *actx.Context, plan *junban.Plan) error {
	if plan.Empty() {
		fmt.Fprintln(appCtx.Stdout, "no eligible migrations")
		return nil
	}

	data := make([][]string, 0, len(plan.Migrations))
	for _, mig := range plan.Migrations {
		data = append(data, []string{
			plan.Direction.String(), mig.Version.String(), mig.Name, mig.Kind.String(),
		})
	}

	if err := renderTable([]string{"Direction", "Version", "Name", "Kind"}, data, appCtx.Stdout); err != nil {
		return fmt.Errorf("failed rendering plan: %w", err)
	}

	return nil
}
