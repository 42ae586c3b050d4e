// Package sqldb implements driver.Driver on top of database/sql. The SQL
// flavor specifics live behind Dialect, see the mysql and sqlite packages.
package sqldb

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/root-talis/junban/driver"
	"github.com/root-talis/junban/migration"
)

// Dialect covers what differs between databases.
type Dialect interface {
	Name() string
	// QuoteTableName escapes a (possibly schema-qualified) table name.
	QuoteTableName(name string) string
	// IsUndefinedTable reports whether err was caused by querying a table
	// that does not exist.
	IsUndefinedTable(err error) bool
	// CreateVersionTable returns the DDL for the version table.
	CreateVersionTable(quotedName string) string
}

type DriverConfig struct {
	VersionTableName string
	Logger           *slog.Logger
}

type sqlDriver struct {
	conn    *sql.DB
	dialect Dialect
	table   string
	logger  *slog.Logger
}

func NewDriver(conn *sql.DB, dialect Dialect, config DriverConfig) driver.Driver {
	tableName := config.VersionTableName
	if tableName == "" {
		tableName = driver.DefaultVersionTable
	}

	logger := config.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &sqlDriver{
		conn:    conn,
		dialect: dialect,
		table:   dialect.QuoteTableName(tableName),
		logger:  logger.With("driver", dialect.Name()),
	}
}

func (drv *sqlDriver) CurrentVersion(ctx context.Context) (migration.Version, error) {
	rows, err := drv.conn.QueryContext(ctx, fmt.Sprintf("SELECT version FROM %s", drv.table))
	if err != nil {
		if drv.dialect.IsUndefinedTable(err) {
			return drv.createVersionTable(ctx)
		}
		return 0, fmt.Errorf("failed to query version table %s: %w", drv.table, err)
	}

	versions, err := fetchVersions(rows)
	if err != nil {
		return 0, fmt.Errorf("failed to query version table %s: %w", drv.table, err)
	}

	switch len(versions) {
	case 0:
		if err := drv.seedVersionTable(ctx); err != nil {
			return 0, err
		}
		return migration.Epoch, nil

	case 1:
		version, err := migration.ParseVersion(versions[0])
		if err != nil {
			return 0, fmt.Errorf("%w: %s", driver.ErrInvalidVersionTable, err)
		}
		return version, nil

	default:
		return 0, fmt.Errorf("%w: %s has %d rows", migration.ErrCorruptVersionTable, drv.table, len(versions))
	}
}

func (drv *sqlDriver) Migrate(ctx context.Context, version migration.Version, step migration.StepFunc) (err error) {
	tx, err := drv.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(); rbErr != nil {
				drv.logger.Warn("failed to roll back transaction", "error", rbErr)
			}
		}
	}()

	if step != nil {
		if err = step(ctx, &txHandle{tx: tx}); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx, fmt.Sprintf("UPDATE %s SET version = ?", drv.table), version.String())
	if err != nil {
		return fmt.Errorf("failed to update version table %s: %w", drv.table, err)
	}

	if err = tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

func (drv *sqlDriver) createVersionTable(ctx context.Context) (migration.Version, error) {
	drv.logger.Info("creating version table", "table", drv.table)

	if _, err := drv.conn.ExecContext(ctx, drv.dialect.CreateVersionTable(drv.table)); err != nil {
		return 0, fmt.Errorf("failed to create version table %s: %w", drv.table, err)
	}

	if err := drv.seedVersionTable(ctx); err != nil {
		return 0, err
	}

	return migration.Epoch, nil
}

func (drv *sqlDriver) seedVersionTable(ctx context.Context) error {
	_, err := drv.conn.ExecContext(ctx,
		fmt.Sprintf("INSERT INTO %s (version) VALUES (?)", drv.table),
		migration.Epoch.String(),
	)
	if err != nil {
		return fmt.Errorf("failed to seed version table %s: %w", drv.table, err)
	}
	return nil
}

func fetchVersions(rows *sql.Rows) ([]string, error) {
	defer rows.Close()

	result := make([]string, 0, 1)
	for rows.Next() {
		var version string
		if err := rows.Scan(&version); err != nil {
			return nil, err
		}
		result = append(result, version)
	}

	if err := rows.Err(); err != nil {
		return nil, err
	}

	return result, nil
}
