// Package sqldb exposes a database/sql connection to scripts as the native module "sql".
package sqldb

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	_ "github.com/denisenkom/go-mssqldb"
	_ "github.com/go-sql-driver/mysql"
	_ "github.com/lib/pq"
	"github.com/takoeight0821/ember/eval"
	_ "modernc.org/sqlite"
)

// ModuleName is the name scripts import with `module sql;`.
const ModuleName = "sql"

type DB struct {
	db     *sql.DB
	driver string
}

// driverName maps the configured database type to a registered database/sql driver.
func driverName(kind string) (string, error) {
	switch strings.ToLower(kind) {
	case "sqlite", "sqlite3":
		return "sqlite", nil
	case "postgres", "postgresql":
		return "postgres", nil
	case "mysql":
		return "mysql", nil
	case "sqlserver", "mssql":
		return "sqlserver", nil
	default:
		return "", fmt.Errorf("unsupported database type: %s", kind)
	}
}

func Open(kind, dsn string) (*DB, error) {
	driver, err := driverName(kind)
	if err != nil {
		return nil, err
	}

	db, err := sql.Open(driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", driver, err)
	}
	if err := db.Ping(); err != nil {
		return nil, errors.Join(fmt.Errorf("ping %s: %w", driver, err), db.Close())
	}

	if driver == "sqlite" && strings.Contains(dsn, ":memory:") {
		// every connection would get its own empty database
		db.SetMaxOpenConns(1)
	} else {
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(5)
		db.SetConnMaxLifetime(5 * time.Minute)
	}

	return &DB{db: db, driver: driver}, nil
}

func (d *DB) Driver() string {
	return d.driver
}

func (d *DB) Close() error {
	return d.db.Close()
}

// Module builds the native module scripts see. Closing stays with the host.
func (d *DB) Module() (*eval.NativeModule, error) {
	return eval.NativeModuleOf(ModuleName, functions{db: d.db})
}

// Rows is a query result. Scripts hold it as an external value and read it with
// rowCount and field.
type Rows []map[string]any

type functions struct {
	db *sql.DB
}

// Exec runs a statement and reports the number of affected rows.
func (f functions) Exec(query string, args ...any) (int64, error) {
	result, err := f.db.Exec(query, args...)
	if err != nil {
		return 0, fmt.Errorf("execution failed: %w", err)
	}
	return result.RowsAffected()
}

func (f functions) Query(query string, args ...any) (Rows, error) {
	_, rows, err := f.scan(query, args)
	return rows, err
}

// QueryValue returns the first column of the first row, or null when there is none.
func (f functions) QueryValue(query string, args ...any) (any, error) {
	columns, rows, err := f.scan(query, args)
	if err != nil || len(rows) == 0 || len(columns) == 0 {
		return nil, err
	}
	return rows[0][columns[0]], nil
}

func (f functions) scan(query string, args []any) ([]string, Rows, error) {
	rows, err := f.db.Query(query, args...)
	if err != nil {
		return nil, nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, nil, err
	}

	result := Rows{}
	values := make([]any, len(columns))
	ptrs := make([]any, len(columns))
	for i := range values {
		ptrs[i] = &values[i]
	}
	for rows.Next() {
		if err := rows.Scan(ptrs...); err != nil {
			return nil, nil, err
		}
		row := make(map[string]any, len(columns))
		for i, column := range columns {
			row[column] = normalize(values[i])
		}
		result = append(result, row)
	}
	return columns, result, rows.Err()
}

func (f functions) RowCount(rows Rows) int {
	return len(rows)
}

func (f functions) Field(rows Rows, index int, column string) (any, error) {
	if index < 0 || index >= len(rows) {
		return nil, fmt.Errorf("row %d out of range [0, %d)", index, len(rows))
	}
	v, ok := rows[index][column]
	if !ok {
		return nil, fmt.Errorf("no column %q", column)
	}
	return v, nil
}

func normalize(v any) any {
	switch v := v.(type) {
	case []byte:
		return string(v)
	case time.Time:
		return v.Format(time.RFC3339)
	default:
		return v
	}
}
