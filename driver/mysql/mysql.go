package mysql

import (
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	gomysql "github.com/go-sql-driver/mysql"

	"github.com/root-talis/junban/driver"
	"github.com/root-talis/junban/driver/sqldb"
)

// ER_NO_SUCH_TABLE
const errNoSuchTable = 1146

type DriverConfig struct {
	DatabaseName     string
	VersionTableName string
	Logger           *slog.Logger
}

type mysqlDialect struct {
	databaseName string
}

// NewDriver returns a driver keeping the version marker in
// `DatabaseName`.`VersionTableName`, or in the connection's default database
// when DatabaseName is empty.
func NewDriver(conn *sql.DB, config DriverConfig) driver.Driver {
	return sqldb.NewDriver(conn, &mysqlDialect{databaseName: config.DatabaseName}, sqldb.DriverConfig{
		VersionTableName: config.VersionTableName,
		Logger:           config.Logger,
	})
}

// Open connects with multi-statement support switched on. Declarative
// migrations send a whole section in a single statement batch.
func Open(dsn string) (*sql.DB, error) {
	cfg, err := gomysql.ParseDSN(dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to parse mysql dsn: %w", err)
	}
	cfg.MultiStatements = true

	conn, err := sql.Open("mysql", cfg.FormatDSN())
	if err != nil {
		return nil, fmt.Errorf("failed to open mysql connection: %w", err)
	}

	return conn, nil
}

func (d *mysqlDialect) Name() string {
	return "mysql"
}

func (d *mysqlDialect) QuoteTableName(name string) string {
	if d.databaseName == "" {
		return quoteIdentifier(name)
	}
	return fmt.Sprintf("%s.%s", quoteIdentifier(d.databaseName), quoteIdentifier(name))
}

func (d *mysqlDialect) IsUndefinedTable(err error) bool {
	var myErr *gomysql.MySQLError
	if !errors.As(err, &myErr) {
		return false
	}
	return myErr.Number == errNoSuchTable
}

func (d *mysqlDialect) CreateVersionTable(quotedName string) string {
	return fmt.Sprintf("CREATE TABLE %s (version varchar(32) not null) default charset utf8", quotedName)
}

func quoteIdentifier(name string) string {
	return "`" + strings.ReplaceAll(name, "`", "``") + "`"
}
