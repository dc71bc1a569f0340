package dialect

import (
	"context"
	"database/sql"
)

// Dialect abstracts database-specific catalog access and data clearing.
//
// Catalog queries take the target schema as their only bind argument and return:
//
//	GetTablesQuery:      TABLE_NAME, COMMENT
//	GetColumnsQuery:     TABLE_NAME, COLUMN_NAME, DATA_TYPE, COLUMN_TYPE, LENGTH,
//	                     IS_NULLABLE, COLUMN_KEY, EXTRA, IS_UNIQUE, COMMENT
//	GetForeignKeysQuery: TABLE_NAME, CONSTRAINT_NAME, COLUMN_NAME, REF_SCHEMA,
//	                     REF_TABLE, REF_COLUMN, POSITION, DELETE_RULE
type Dialect interface {
	Name() string

	// Metadata Queries (Schema Introspection)
	GetTablesQuery(schema string) string
	GetColumnsQuery(schema string) string
	GetForeignKeysQuery(schema string) string
	CurrentSchemaQuery() string

	// Clean Hooks
	BeforeClean(ctx context.Context, tx *sql.Tx) error
	AfterClean(ctx context.Context, tx *sql.Tx) error
	DeleteQuery(table string) string

	// Helpers
	NormalizeType(sqlType string) string
	GetSchemaName(input string) string
}
