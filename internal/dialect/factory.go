package dialect

import "fmt"

// GetDialect returns the Dialect for a database/sql driver name.
func GetDialect(driver string) (Dialect, error) {
	switch driver {
	case "mysql":
		return &MysqlDialect{}, nil
	case "postgres", "pgx":
		return &PostgresDialect{}, nil
	case "sqlserver", "mssql":
		return &MSSQLDialect{}, nil
	case "oracle":
		return &OracleDialect{}, nil
	case "sqlite":
		return &SQLiteDialect{}, nil
	default:
		return nil, fmt.Errorf("unsupported driver %q", driver)
	}
}

// Ensure interface implementation
var _ Dialect = (*MysqlDialect)(nil)
var _ Dialect = (*PostgresDialect)(nil)
var _ Dialect = (*MSSQLDialect)(nil)
var _ Dialect = (*OracleDialect)(nil)
var _ Dialect = (*SQLiteDialect)(nil)
