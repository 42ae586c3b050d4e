package cli

import (
	"fmt"

	actx "github.com/root-talis/junban/app/context"
	"github.com/root-talis/junban/migration"
)

// The Status command lists every migration along with whether it is applied.
type Status struct{}

// Run the status command.
func (c *Status) Run(appCtx *actx.Context) error {
	migrator, closeFn, err := openMigrator(appCtx)
	if err != nil {
		return err
	}
	defer closeFn()

	result, err := migrator.Status(appCtx.Ctx)
	if err != nil {
		return err //nolint:wrapcheck
	}

	data := make([][]string, 0, len(result.Migrations))
	for _, state := range result.Migrations {
		current := ""
		if state.Current {
			current = "*"
		}

		name, kind := state.Name, state.Kind.String()
		if state.Status == migration.Missing {
			name, kind = "(not in catalog)", ""
		}

		data = append(data, []string{current, state.Version.String(), name, kind, state.Status.String()})
	}

	if err := renderTable([]string{"", "Version", "Name", "Kind", "Status"}, data, appCtx.Stdout); err != nil {
		return fmt.Errorf("failed rendering status: %w", err)
	}

	fmt.Fprintf(appCtx.Stdout, "\nversion %s: %d applied, %d pending, %d missing\n",
		result.Version, result.AppliedCount, result.PendingCount, result.MissingCount)

	return nil
}
