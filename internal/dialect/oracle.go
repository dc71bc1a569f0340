package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type OracleDialect struct{}

func (d *OracleDialect) Name() string { return "oracle" }

// Oracle catalogs are read from the USER_* views, which are already scoped to the
// connected user. The ":1 IS NOT NULL" clause only consumes the schema bind argument.

func (d *OracleDialect) GetTablesQuery(schema string) string {
	return `
SELECT t.TABLE_NAME, c.COMMENTS
FROM USER_TABLES t
LEFT JOIN USER_TAB_COMMENTS c ON c.TABLE_NAME = t.TABLE_NAME
WHERE :1 IS NOT NULL
ORDER BY t.TABLE_NAME`
}

func (d *OracleDialect) GetColumnsQuery(schema string) string {
	// Current user's tables; PK and UNIQUE markers come from USER_CONS_COLUMNS.
	return `
SELECT
    t.TABLE_NAME,
    t.COLUMN_NAME,
    CASE
        WHEN t.DATA_TYPE = 'NUMBER' AND COALESCE(t.DATA_SCALE, 0) > 0 THEN 'DECIMAL'
        WHEN t.DATA_TYPE = 'NUMBER' THEN 'INTEGER'
        ELSE t.DATA_TYPE
    END,
    t.DATA_TYPE || CASE WHEN t.DATA_LENGTH IS NOT NULL THEN '(' || t.DATA_LENGTH || ')' ELSE '' END,
    COALESCE(t.DATA_PRECISION, t.DATA_LENGTH),
    t.NULLABLE,
    CASE WHEN p.CONSTRAINT_NAME IS NOT NULL THEN 'PRI' ELSE '' END,
    CASE WHEN t.IDENTITY_COLUMN = 'YES' THEN 'auto_increment' ELSE '' END,
    CASE WHEN u.CONSTRAINT_NAME IS NOT NULL THEN 'UNIQUE' ELSE '' END,
    c.COMMENTS
FROM USER_TAB_COLUMNS t
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'P'
) p ON t.TABLE_NAME = p.TABLE_NAME AND t.COLUMN_NAME = p.COLUMN_NAME
LEFT JOIN (
    SELECT cc.TABLE_NAME, cc.COLUMN_NAME, cc.CONSTRAINT_NAME
    FROM USER_CONS_COLUMNS cc
    JOIN USER_CONSTRAINTS uc ON cc.CONSTRAINT_NAME = uc.CONSTRAINT_NAME
    WHERE uc.CONSTRAINT_TYPE = 'U'
) u ON t.TABLE_NAME = u.TABLE_NAME AND t.COLUMN_NAME = u.COLUMN_NAME
LEFT JOIN USER_COL_COMMENTS c ON t.TABLE_NAME = c.TABLE_NAME AND t.COLUMN_NAME = c.COLUMN_NAME
WHERE :1 IS NOT NULL
ORDER BY t.TABLE_NAME, t.COLUMN_ID`
}

func (d *OracleDialect) GetForeignKeysQuery(schema string) string {
	return `
SELECT
    c.TABLE_NAME,
    c.CONSTRAINT_NAME,
    cc.COLUMN_NAME,
    r.OWNER AS REF_SCHEMA,
    r.TABLE_NAME AS REF_TABLE,
    rcc.COLUMN_NAME AS REF_COLUMN,
    cc.POSITION,
    c.DELETE_RULE
FROM USER_CONSTRAINTS c
JOIN USER_CONS_COLUMNS cc
    ON c.CONSTRAINT_NAME = cc.CONSTRAINT_NAME
    AND c.OWNER = cc.OWNER
JOIN ALL_CONSTRAINTS r
    ON c.R_CONSTRAINT_NAME = r.CONSTRAINT_NAME
    AND c.R_OWNER = r.OWNER
JOIN ALL_CONS_COLUMNS rcc
    ON r.CONSTRAINT_NAME = rcc.CONSTRAINT_NAME
    AND r.OWNER = rcc.OWNER
    AND cc.POSITION = rcc.POSITION
WHERE c.CONSTRAINT_TYPE = 'R'
AND :1 IS NOT NULL
ORDER BY c.TABLE_NAME, c.CONSTRAINT_NAME, cc.POSITION`
}

func (d *OracleDialect) CurrentSchemaQuery() string {
	return "SELECT USER FROM DUAL"
}

func (d *OracleDialect) BeforeClean(ctx context.Context, tx *sql.Tx) error {
	// DDL implicitly commits in Oracle; the clean cannot be rolled back past this point.
	return d.toggleConstraints(ctx, tx, "ENABLED", "DISABLE")
}

func (d *OracleDialect) AfterClean(ctx context.Context, tx *sql.Tx) error {
	return d.toggleConstraints(ctx, tx, "DISABLED", "ENABLE")
}

func (d *OracleDialect) toggleConstraints(ctx context.Context, tx *sql.Tx, status, action string) error {
	constraints, err := queryPairs(ctx, tx,
		"SELECT TABLE_NAME, CONSTRAINT_NAME FROM USER_CONSTRAINTS WHERE CONSTRAINT_TYPE = 'R' AND STATUS = :1", status)
	if err != nil {
		return err
	}
	for _, c := range constraints {
		query := fmt.Sprintf("ALTER TABLE %s %s CONSTRAINT %s", c[0], action, c[1])
		if _, err := tx.ExecContext(ctx, query); err != nil {
			return fmt.Errorf("failed to %s constraint %s on %s: %w", action, c[1], c[0], err)
		}
	}
	return nil
}

func (d *OracleDialect) DeleteQuery(table string) string {
	return fmt.Sprintf(`DELETE FROM "%s"`, strings.ReplaceAll(table, `"`, `""`))
}

func (d *OracleDialect) NormalizeType(sqlType string) string {
	s := strings.ToLower(sqlType)
	if strings.Contains(s, "char") || strings.Contains(s, "clob") {
		return "string"
	}
	if strings.Contains(s, "int") || strings.Contains(s, "number") || strings.Contains(s, "float") {
		return "integer"
	}
	if strings.Contains(s, "date") || strings.Contains(s, "time") || strings.Contains(s, "year") {
		return "datetime"
	}
	return s
}

func (d *OracleDialect) GetSchemaName(input string) string {
	return input
}
