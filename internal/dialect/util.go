package dialect

import (
	"context"
	"database/sql"
	"strings"
)

// DefaultNormalizeType is a default implementation for type normalization (lowercase).
func DefaultNormalizeType(sqlType string) string {
	return strings.ToLower(strings.TrimSpace(sqlType))
}

// DefaultGetSchemaName is a default implementation for Getting Schema Name (identity).
func DefaultGetSchemaName(input string) string {
	return input
}

// execAll runs statements in order and stops at the first failure.
func execAll(ctx context.Context, tx *sql.Tx, stmts ...string) error {
	for _, s := range stmts {
		if _, err := tx.ExecContext(ctx, s); err != nil {
			return err
		}
	}
	return nil
}

// queryPairs collects a two-column string result, used by hooks that toggle constraints.
func queryPairs(ctx context.Context, tx *sql.Tx, query string, args ...any) ([][2]string, error) {
	rows, err := tx.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var pairs [][2]string
	for rows.Next() {
		var a, b string
		if err := rows.Scan(&a, &b); err != nil {
			return nil, err
		}
		pairs = append(pairs, [2]string{a, b})
	}
	return pairs, rows.Err()
}
