package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/glebarez/go-sqlite"
	sqlite3 "modernc.org/sqlite/lib"

	"github.com/root-talis/junban/driver"
	"github.com/root-talis/junban/driver/sqldb"
)

type DriverConfig struct {
	VersionTableName string
	Logger           *slog.Logger
}

type sqliteDialect struct{}

func NewDriver(conn *sql.DB, config DriverConfig) driver.Driver {
	return sqldb.NewDriver(conn, sqliteDialect{}, sqldb.DriverConfig{
		VersionTableName: config.VersionTableName,
		Logger:           config.Logger,
	})
}

// Open opens the SQLite database at path. In-memory databases are limited to
// a single connection, every connection would see its own database otherwise.
func Open(path string) (*sql.DB, error) {
	conn, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("failed opening SQLite database: %w", err)
	}

	if strings.Contains(path, "mode=memory") || strings.Contains(path, ":memory:") {
		conn.SetMaxOpenConns(1)
	}

	if _, err = conn.Exec(`PRAGMA foreign_keys = ON;`); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed enabling foreign key enforcement: %w", err)
	}

	return conn, nil
}

func (sqliteDialect) Name() string {
	return "sqlite"
}

func (sqliteDialect) QuoteTableName(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (sqliteDialect) IsUndefinedTable(err error) bool {
	var sqlErr *sqlite.Error
	if errors.As(err, &sqlErr) && sqlErr.Code()&0xff != sqlite3.SQLITE_ERROR {
		return false
	}
	return err != nil && strings.Contains(err.Error(), "no such table")
}

func (sqliteDialect) CreateVersionTable(quotedName string) string {
	return fmt.Sprintf("CREATE TABLE %s (version varchar(32) not null)", quotedName)
}
