package dialect

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	_ "github.com/denisenkom/go-mssqldb" // SQL Server Driver
)

type MSSQLDialect struct{}

// go-mssqldb binds @p1, @p2 reliably; ? is not supported by every code path.

func (d *MSSQLDialect) Name() string { return "sqlserver" }

func (d *MSSQLDialect) GetTablesQuery(schema string) string {
	return `SELECT t.TABLE_NAME, CAST(ep.value AS NVARCHAR(MAX)) AS COMMENT
		FROM INFORMATION_SCHEMA.TABLES t
		LEFT JOIN sys.extended_properties ep
			ON ep.major_id = OBJECT_ID(t.TABLE_SCHEMA + '.' + t.TABLE_NAME)
			AND ep.minor_id = 0
			AND ep.name = 'MS_Description'
		WHERE t.TABLE_SCHEMA = @p1 AND t.TABLE_TYPE = 'BASE TABLE'
		ORDER BY t.TABLE_NAME`
}

func (d *MSSQLDialect) GetColumnsQuery(schema string) string {
	// Include PK, UNIQUE constraints, UNIQUE indexes, Identity info, and MS_Description (Comment)
	return `
		SELECT 
			c.TABLE_NAME, 
			c.COLUMN_NAME, 
			c.DATA_TYPE, 
			c.DATA_TYPE, 
			c.CHARACTER_MAXIMUM_LENGTH, 
			c.IS_NULLABLE, 
			CASE WHEN pk.COLUMN_NAME IS NOT NULL THEN 'PRIMARY' ELSE '' END AS COLUMN_KEY,
			CASE 
				WHEN idxc.column_id IS NOT NULL THEN 'identity' 
				WHEN COLUMNPROPERTY(OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME), c.COLUMN_NAME, 'IsIdentity') = 1 THEN 'identity'
				ELSE c.COLUMN_DEFAULT 
			END AS COLUMN_DEFAULT,
			CASE WHEN uq.COLUMN_NAME IS NOT NULL OR ui.COLUMN_NAME IS NOT NULL THEN 'UNIQUE' ELSE '' END AS IS_UNIQUE,
			CAST(ep.value AS NVARCHAR(MAX)) AS COMMENT
		FROM INFORMATION_SCHEMA.COLUMNS c
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu 
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'PRIMARY KEY' AND tc.TABLE_SCHEMA = @p1
		) pk ON c.TABLE_NAME = pk.TABLE_NAME AND c.COLUMN_NAME = pk.COLUMN_NAME
		LEFT JOIN (
			SELECT kcu.TABLE_NAME, kcu.COLUMN_NAME
			FROM INFORMATION_SCHEMA.TABLE_CONSTRAINTS tc
			JOIN INFORMATION_SCHEMA.KEY_COLUMN_USAGE kcu 
				ON tc.CONSTRAINT_NAME = kcu.CONSTRAINT_NAME
			WHERE tc.CONSTRAINT_TYPE = 'UNIQUE' AND tc.TABLE_SCHEMA = @p1
		) uq ON c.TABLE_NAME = uq.TABLE_NAME AND c.COLUMN_NAME = uq.COLUMN_NAME
		LEFT JOIN (
			SELECT 
				t.name AS TABLE_NAME,
				col.name AS COLUMN_NAME
			FROM sys.indexes idx
			JOIN sys.index_columns ic ON idx.object_id = ic.object_id AND idx.index_id = ic.index_id
			JOIN sys.columns col ON ic.object_id = col.object_id AND ic.column_id = col.column_id
			JOIN sys.tables t ON idx.object_id = t.object_id
			JOIN sys.schemas s ON t.schema_id = s.schema_id
			WHERE idx.is_unique = 1 
				AND idx.is_primary_key = 0
				AND s.name = @p1
		) ui ON c.TABLE_NAME = ui.TABLE_NAME AND c.COLUMN_NAME = ui.COLUMN_NAME
		LEFT JOIN sys.identity_columns idxc
			ON idxc.object_id = OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME)
			AND idxc.name = c.COLUMN_NAME
		LEFT JOIN sys.extended_properties ep 
			ON ep.major_id = OBJECT_ID(c.TABLE_SCHEMA + '.' + c.TABLE_NAME) 
			AND ep.minor_id = c.ORDINAL_POSITION 
			AND ep.name = 'MS_Description'
		WHERE c.TABLE_SCHEMA = @p1 
		ORDER BY c.TABLE_NAME, c.ORDINAL_POSITION
	`
}

func (d *MSSQLDialect) GetForeignKeysQuery(schema string) string {
	return `
		SELECT
			tp.name,
			fk.name,
			cp.name,
			SCHEMA_NAME(tr.schema_id),
			tr.name,
			cr.name,
			fkc.constraint_column_id,
			fk.delete_referential_action_desc
		FROM sys.foreign_keys fk
		JOIN sys.foreign_key_columns fkc ON fkc.constraint_object_id = fk.object_id
		JOIN sys.tables tp ON tp.object_id = fk.parent_object_id
		JOIN sys.columns cp ON cp.object_id = fkc.parent_object_id AND cp.column_id = fkc.parent_column_id
		JOIN sys.tables tr ON tr.object_id = fk.referenced_object_id
		JOIN sys.columns cr ON cr.object_id = fkc.referenced_object_id AND cr.column_id = fkc.referenced_column_id
		WHERE SCHEMA_NAME(tp.schema_id) = @p1
		ORDER BY tp.name, fk.name, fkc.constraint_column_id
	`
}

func (d *MSSQLDialect) CurrentSchemaQuery() string {
	return "SELECT SCHEMA_NAME()"
}

const mssqlSchemaTables = "SELECT TABLE_SCHEMA, TABLE_NAME FROM INFORMATION_SCHEMA.TABLES WHERE TABLE_TYPE = 'BASE TABLE' AND TABLE_SCHEMA = SCHEMA_NAME()"

func (d *MSSQLDialect) BeforeClean(ctx context.Context, tx *sql.Tx) error {
	// Disable constraints so rows referenced through deferred (cyclic) edges can go.
	tables, err := queryPairs(ctx, tx, mssqlSchemaTables)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE [%s].[%s] NOCHECK CONSTRAINT all", t[0], t[1])); err != nil {
			return fmt.Errorf("failed to disable constraints on %s: %w", t[1], err)
		}
	}
	return nil
}

func (d *MSSQLDialect) AfterClean(ctx context.Context, tx *sql.Tx) error {
	tables, err := queryPairs(ctx, tx, mssqlSchemaTables)
	if err != nil {
		return err
	}
	for _, t := range tables {
		if _, err := tx.ExecContext(ctx, fmt.Sprintf("ALTER TABLE [%s].[%s] WITH CHECK CHECK CONSTRAINT all", t[0], t[1])); err != nil {
			return fmt.Errorf("failed to enable constraints on %s: %w", t[1], err)
		}
	}
	return nil
}

func (d *MSSQLDialect) DeleteQuery(table string) string {
	// TRUNCATE is rejected on any table referenced by a foreign key, even a disabled one.
	return fmt.Sprintf("DELETE FROM [%s]", strings.ReplaceAll(table, "]", "]]"))
}

func (d *MSSQLDialect) NormalizeType(sqlType string) string {
	t := strings.ToLower(sqlType)
	switch t {
	case "nvarchar", "nchar", "text", "ntext":
		return "varchar"
	case "bit":
		return "boolean"
	case "tinyint":
		return "tinyint" // 0-255
	case "smallint":
		return "smallint"
	case "int":
		return "int"
	case "bigint":
		return "bigint"
	case "decimal", "numeric", "money", "smallmoney":
		return "decimal"
	case "float", "real":
		return "float"
	case "datetime", "datetime2", "smalldatetime", "date":
		return "datetime"
	case "image", "binary", "varbinary":
		return "blob"
	default:
		return t
	}
}

func (d *MSSQLDialect) GetSchemaName(input string) string {
	if input == "" {
		return "dbo"
	}
	return input
}
