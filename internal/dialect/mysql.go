package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type MysqlDialect struct{}

func (d *MysqlDialect) Name() string { return "mysql" }

func (d *MysqlDialect) GetTablesQuery(schema string) string {
	return `SELECT TABLE_NAME, TABLE_COMMENT FROM information_schema.TABLES WHERE TABLE_SCHEMA = ? AND TABLE_TYPE = 'BASE TABLE' ORDER BY TABLE_NAME`
}

func (d *MysqlDialect) GetColumnsQuery(schema string) string {
	return `SELECT TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, CHARACTER_MAXIMUM_LENGTH, IS_NULLABLE, COLUMN_KEY, EXTRA, IF(COLUMN_KEY='UNI', 'UNIQUE', NULL) AS IS_UNIQUE, COLUMN_COMMENT FROM information_schema.COLUMNS WHERE TABLE_SCHEMA = ? ORDER BY TABLE_NAME, ORDINAL_POSITION`
}

func (d *MysqlDialect) GetForeignKeysQuery(schema string) string {
	return `SELECT k.TABLE_NAME, k.CONSTRAINT_NAME, k.COLUMN_NAME, k.REFERENCED_TABLE_SCHEMA, k.REFERENCED_TABLE_NAME, k.REFERENCED_COLUMN_NAME, k.ORDINAL_POSITION, r.DELETE_RULE FROM information_schema.KEY_COLUMN_USAGE k JOIN information_schema.REFERENTIAL_CONSTRAINTS r ON r.CONSTRAINT_SCHEMA = k.CONSTRAINT_SCHEMA AND r.CONSTRAINT_NAME = k.CONSTRAINT_NAME AND r.TABLE_NAME = k.TABLE_NAME WHERE k.TABLE_SCHEMA = ? AND k.REFERENCED_TABLE_NAME IS NOT NULL ORDER BY k.TABLE_NAME, k.CONSTRAINT_NAME, k.ORDINAL_POSITION`
}

func (d *MysqlDialect) CurrentSchemaQuery() string {
	return "SELECT DATABASE()"
}

func (d *MysqlDialect) BeforeClean(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, "SET FOREIGN_KEY_CHECKS = 0")
}

func (d *MysqlDialect) AfterClean(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, "SET FOREIGN_KEY_CHECKS = 1")
}

func (d *MysqlDialect) DeleteQuery(table string) string {
	return fmt.Sprintf("DELETE FROM `%s`", strings.ReplaceAll(table, "`", "``"))
}

func (d *MysqlDialect) NormalizeType(sqlType string) string {
	return DefaultNormalizeType(sqlType)
}

func (d *MysqlDialect) GetSchemaName(input string) string {
	return DefaultGetSchemaName(input)
}
