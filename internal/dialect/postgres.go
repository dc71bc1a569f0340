package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

type PostgresDialect struct{}

func (d *PostgresDialect) Name() string { return "postgres" }

func (d *PostgresDialect) GetTablesQuery(schema string) string {
	return `SELECT table_name, obj_description(format('%I.%I', table_schema, table_name)::regclass, 'pg_class') FROM information_schema.tables WHERE table_schema = $1 AND table_type = 'BASE TABLE' ORDER BY table_name`
}

func (d *PostgresDialect) GetColumnsQuery(schema string) string {
	// udt_name carries the short type name (int4, varchar) that NormalizeType expects.
	return `SELECT 
    c.table_name, 
    c.column_name, 
    c.udt_name, 
    c.data_type, 
    c.character_maximum_length, 
    c.is_nullable, 
    (SELECT 'PRI' FROM information_schema.table_constraints tc 
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.constraint_schema = kcu.constraint_schema
     WHERE tc.constraint_type = 'PRIMARY KEY' 
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1) AS COLUMN_KEY,
    c.column_default, 
    (SELECT 'UNIQUE' FROM information_schema.table_constraints tc 
     JOIN information_schema.key_column_usage kcu ON tc.constraint_name = kcu.constraint_name AND tc.constraint_schema = kcu.constraint_schema
     WHERE tc.constraint_type = 'UNIQUE' 
     AND kcu.table_schema = c.table_schema AND kcu.table_name = c.table_name AND kcu.column_name = c.column_name LIMIT 1) AS IS_UNIQUE,
    col_description(format('%I.%I', c.table_schema, c.table_name)::regclass, c.ordinal_position::int) AS COMMENT
FROM information_schema.columns c
WHERE c.table_schema = $1 
ORDER BY c.table_name, c.ordinal_position`
}

func (d *PostgresDialect) GetForeignKeysQuery(schema string) string {
	// information_schema cannot pair composite key columns, so read pg_constraint directly.
	return `SELECT cl.relname, con.conname, att.attname, rns.nspname, rcl.relname, ratt.attname, k.pos,
    CASE con.confdeltype WHEN 'c' THEN 'CASCADE' WHEN 'n' THEN 'SET NULL' WHEN 'd' THEN 'SET DEFAULT' WHEN 'r' THEN 'RESTRICT' ELSE 'NO ACTION' END
FROM pg_constraint con
JOIN pg_class cl ON cl.oid = con.conrelid
JOIN pg_namespace ns ON ns.oid = cl.relnamespace
JOIN pg_class rcl ON rcl.oid = con.confrelid
JOIN pg_namespace rns ON rns.oid = rcl.relnamespace
CROSS JOIN LATERAL unnest(con.conkey, con.confkey) WITH ORDINALITY AS k(attnum, refattnum, pos)
JOIN pg_attribute att ON att.attrelid = con.conrelid AND att.attnum = k.attnum
JOIN pg_attribute ratt ON ratt.attrelid = con.confrelid AND ratt.attnum = k.refattnum
WHERE con.contype = 'f' AND ns.nspname = $1
ORDER BY cl.relname, con.conname, k.pos`
}

func (d *PostgresDialect) CurrentSchemaQuery() string {
	return "SELECT current_schema()"
}

func (d *PostgresDialect) BeforeClean(ctx context.Context, tx *sql.Tx) error {
	// Only affects constraints declared DEFERRABLE; the rest are satisfied by deletion order.
	return execAll(ctx, tx, "SET CONSTRAINTS ALL DEFERRED")
}

func (d *PostgresDialect) AfterClean(ctx context.Context, tx *sql.Tx) error {
	return execAll(ctx, tx, "SET CONSTRAINTS ALL IMMEDIATE")
}

func (d *PostgresDialect) DeleteQuery(table string) string {
	return fmt.Sprintf(`DELETE FROM "%s"`, strings.ReplaceAll(table, `"`, `""`))
}

func (d *PostgresDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "int4", "int2":
		return "int"
	case "int8":
		return "bigint"
	case "float4":
		return "float"
	case "float8":
		return "double"
	case "bpchar":
		return "char"
	case "varchar":
		return "varchar"
	default:
		return t
	}
}

func (d *PostgresDialect) GetSchemaName(input string) string {
	if input == "" {
		return "public"
	}
	return input
}
