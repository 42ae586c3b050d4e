package cli

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/root-talis/junban"
	"github.com/root-talis/junban/app/config"
	actx "github.com/root-talis/junban/app/context"
	"github.com/root-talis/junban/driver"
	"github.com/root-talis/junban/driver/mysql"
	"github.com/root-talis/junban/driver/sqlite"
	"github.com/root-talis/junban/script/luascript"
	"github.com/root-talis/junban/source/files"
)

var (
	ErrUnknownDriver = errors.New("unknown database driver")
	ErrMissingDSN    = errors.New("no database connection string configured")
)

// openMigrator connects to the configured database. The returned function
// closes the connection.
func openMigrator(appCtx *actx.Context) (junban.Migrator, func(), error) {
	settings := appCtx.Settings

	src, err := files.NewFilesSource(ioFS{appCtx.FS}, settings.Path)
	if err != nil {
		return nil, nil, err //nolint:wrapcheck
	}

	conn, drv, err := openDriver(appCtx, settings)
	if err != nil {
		return nil, nil, err
	}

	closeFn := func() {
		if err := conn.Close(); err != nil {
			appCtx.Logger.Warn("failed to close database connection", "error", err)
		}
	}

	migrator := junban.New(src, drv,
		junban.WithLogger(appCtx.Logger),
		junban.WithCompiler(files.ExtLua, luascript.NewCompiler(settings.Vars)),
	)

	return migrator, closeFn, nil
}

func openDriver(appCtx *actx.Context, settings config.Settings) (*sql.DB, driver.Driver, error) {
	if settings.DSN == "" {
		return nil, nil, fmt.Errorf("%w for driver %s", ErrMissingDSN, settings.Driver)
	}

	switch settings.Driver {
	case "mysql":
		conn, err := mysql.Open(settings.DSN)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}
		return conn, mysql.NewDriver(conn, mysql.DriverConfig{
			VersionTableName: settings.Table,
			Logger:           appCtx.Logger,
		}), nil

	case "sqlite":
		conn, err := sqlite.Open(settings.DSN)
		if err != nil {
			return nil, nil, err //nolint:wrapcheck
		}
		return conn, sqlite.NewDriver(conn, sqlite.DriverConfig{
			VersionTableName: settings.Table,
			Logger:           appCtx.Logger,
		}), nil
	}

	return nil, nil, fmt.Errorf("%w: \"%s\"", ErrUnknownDriver, settings.Driver)
}
