package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// SQLiteDialect reads the catalog through the pragma table-valued functions, so it
// needs SQLite 3.16 or newer. Only the "main" schema is inspected.
type SQLiteDialect struct{}

func (d *SQLiteDialect) Name() string { return "sqlite" }

func (d *SQLiteDialect) GetTablesQuery(schema string) string {
	return `SELECT name, NULL FROM sqlite_master WHERE type = 'table' AND name NOT LIKE 'sqlite_%' AND ? IS NOT NULL ORDER BY name`
}

func (d *SQLiteDialect) GetColumnsQuery(schema string) string {
	return `SELECT m.name, p.name, p.type, p.type, NULL,
    CASE WHEN p."notnull" = 0 AND p.pk = 0 THEN 'YES' ELSE 'NO' END,
    CASE WHEN p.pk > 0 THEN 'PRI' ELSE '' END,
    CASE WHEN p.pk > 0 AND lower(p.type) = 'integer' AND (SELECT count(*) FROM pragma_table_info(m.name) x WHERE x.pk > 0) = 1 THEN 'auto_increment' ELSE '' END,
    NULL,
    NULL
FROM sqlite_master m
JOIN pragma_table_info(m.name) p
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND ? IS NOT NULL
ORDER BY m.name, p.cid`
}

func (d *SQLiteDialect) GetForeignKeysQuery(schema string) string {
	// SQLite foreign keys are unnamed; the id is stable per table, so synthesize a name.
	// "to" is NULL when the constraint targets the parent's primary key implicitly.
	return `SELECT m.name, 'fk_' || m.name || '_' || f.id, f."from", NULL, f."table", f."to", f.seq + 1, f.on_delete
FROM sqlite_master m
JOIN pragma_foreign_key_list(m.name) f
WHERE m.type = 'table' AND m.name NOT LIKE 'sqlite_%' AND ? IS NOT NULL
ORDER BY m.name, f.id, f.seq`
}

func (d *SQLiteDialect) CurrentSchemaQuery() string {
	return "SELECT 'main'"
}

func (d *SQLiteDialect) BeforeClean(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, "PRAGMA defer_foreign_keys = ON")
}

func (d *SQLiteDialect) AfterClean(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, "PRAGMA defer_foreign_keys = OFF")
}

func (d *SQLiteDialect) DeleteQuery(table string) string {
	return fmt.Sprintf(`DELETE FROM "%s"`, strings.ReplaceAll(table, `"`, `""`))
}

func (d *SQLiteDialect) NormalizeType(sqlType string) string {
	t := DefaultNormalizeType(sqlType)
	if i := strings.IndexByte(t, '('); i > 0 {
		t = strings.TrimSpace(t[:i])
	}
	return t
}

func (d *SQLiteDialect) GetSchemaName(input string) string {
	if input == "" {
		return "main"
	}
	return input
}
