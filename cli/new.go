package cli

import (
	"bufio"
	"errors"
	"fmt"
	"path/filepath"
	"strings"

	"github.com/mandelsoft/vfs/pkg/vfs"

	actx "github.com/root-talis/junban/app/context"
	"github.com/root-talis/junban/migration"
	"github.com/root-talis/junban/source/files"
)

var ErrInvalidMigrationName = errors.New("invalid migration name")

const sqlTemplate = `-- up
-- your migration statements go here

-- down
-- if you want a reversible migration, the down statements go here
-- you can safely remove this line and the two above it
`

const luaTemplate = `-- config holds the vars of the active configuration

function up(tx)
  -- forward migration statements go here, e.g.
  -- tx:exec("create table foo (id integer primary key, bar varchar(20))")
end

-- this function is optional
function down(tx)
  -- backward migration statements go here
end
`

// NewCmd is the new command. It creates an empty migration file named after
// the current time.
type NewCmd struct {
	Name string `arg:"" optional:"" help:"Name of the migration. Asked for when omitted."`
	Type string `short:"t" enum:"sql,lua" default:"lua" help:"Type of migration to create: sql or lua (${enum})."`
}

// Run the new command.
func (c *NewCmd) Run(appCtx *actx.Context) error {
	name := c.Name
	if name == "" {
		var err error
		if name, err = promptName(appCtx); err != nil {
			return err
		}
	}

	name = strings.TrimSpace(name)
	if name == "" || strings.ContainsAny(name, `/\`) {
		return fmt.Errorf("%w: \"%s\"", ErrInvalidMigrationName, name)
	}

	dir := appCtx.Settings.Path
	if err := appCtx.FS.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed creating migrations directory: %w", err)
	}

	version := migration.VersionFromTime(appCtx.TimeNow().UTC())
	if err := checkVersionFree(appCtx, dir, version); err != nil {
		return err
	}

	ext, contents := files.ExtLua, luaTemplate
	if c.Type == files.ExtSQL {
		ext, contents = files.ExtSQL, sqlTemplate
	}

	path := filepath.Join(dir, fmt.Sprintf("%s_%s.%s", version.Compact(), name, ext))
	if err := vfs.WriteFile(appCtx.FS, path, []byte(contents), 0o644); err != nil {
		return fmt.Errorf("failed writing migration file: %w", err)
	}

	appCtx.Logger.Info("created migration", "path", path)
	fmt.Fprintln(appCtx.Stdout, path)

	return nil
}

func promptName(appCtx *actx.Context) (string, error) {
	fmt.Fprint(appCtx.Stdout, "Migration name: ")

	line, err := bufio.NewReader(appCtx.Stdin).ReadString('\n')
	if err != nil && line == "" {
		return "", fmt.Errorf("failed reading migration name: %w", err)
	}

	return line, nil
}

// checkVersionFree fails if a migration of dir already uses version.
func checkVersionFree(appCtx *actx.Context, dir string, version migration.Version) error {
	infos, err := vfs.ReadDir(appCtx.FS, dir)
	if err != nil {
		return fmt.Errorf("failed listing migrations directory: %w", err)
	}

	prefix := version.Compact() + "_"
	for _, info := range infos {
		if strings.HasPrefix(info.Name(), prefix) {
			return fmt.Errorf("%w: %s", migration.ErrMigrationDuplicated, info.Name())
		}
	}

	return nil
}
