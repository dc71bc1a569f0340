package schema

import (
	"context"
	"database/sql"
	"fmt"
	"log"
	"sort"
	"strings"

	"db-graph/internal/dialect"

	"golang.org/x/sync/errgroup"
)

// ---------------------------------------------------------------------
// Schema Analysis Logic
// ---------------------------------------------------------------------

type columnRow struct {
	table  string
	column *Column
}

type foreignKeyRow struct {
	table      string
	constraint string
	column     string
	refSchema  string
	refTable   string
	refColumn  string
	position   int64
	deleteRule string
}

// Analyze reads tables, columns and foreign keys of one schema and returns the
// validated model. Columns and foreign keys are fetched concurrently but merged into a
// single model before validation; nothing is returned on partial failure.
func Analyze(ctx context.Context, db *sql.DB, d dialect.Dialect, dbName, schemaName string) (*Database, error) {
	target := d.GetSchemaName(schemaName)
	if target == "" {
		if err := db.QueryRowContext(ctx, d.CurrentSchemaQuery()).Scan(&target); err != nil {
			return nil, fmt.Errorf("failed to resolve current schema: %w", err)
		}
		if target == "" {
			return nil, fmt.Errorf("no schema selected (set --schema or pick one in the DSN)")
		}
	}
	if dbName == "" {
		dbName = target
	}

	// --- Step 1: Fetch Tables ---
	tables, err := fetchTables(ctx, db, d, target)
	if err != nil {
		return nil, err
	}

	index := newTableIndex(tables)

	// --- Step 2: Fetch Columns and Foreign Keys ---
	var (
		columns []columnRow
		fkRows  []foreignKeyRow
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		columns, err = fetchColumns(gctx, db, d, target)
		return err
	})
	g.Go(func() error {
		var err error
		fkRows, err = fetchForeignKeys(gctx, db, d, target)
		return err
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// --- Step 3: Merge ---
	for _, c := range columns {
		if t := index.lookup(c.table); t != nil {
			t.Columns = append(t.Columns, c.column)
		}
	}
	mergeForeignKeys(index, fkRows, target)

	log.Printf("Analyzed %s: %d tables, %d columns, %d foreign key columns", target, len(tables), len(columns), len(fkRows))
	return NewDatabase(dbName, target, tables)
}

// tableIndex resolves catalog names to tables. Exact names win; the upper-cased form
// is only used when it identifies a single table, so "Item" and "item" stay apart
// while case-folding catalogs still match.
type tableIndex struct {
	exact  map[string]*Table
	folded map[string][]*Table
}

func newTableIndex(tables []*Table) *tableIndex {
	idx := &tableIndex{
		exact:  make(map[string]*Table, len(tables)),
		folded: make(map[string][]*Table, len(tables)),
	}
	for _, t := range tables {
		idx.exact[t.Name] = t
		up := strings.ToUpper(t.Name)
		idx.folded[up] = append(idx.folded[up], t)
	}
	return idx
}

func (idx *tableIndex) lookup(name string) *Table {
	if t, ok := idx.exact[name]; ok {
		return t
	}
	if ts := idx.folded[strings.ToUpper(name)]; len(ts) == 1 {
		return ts[0]
	}
	return nil
}

func fetchTables(ctx context.Context, db *sql.DB, d dialect.Dialect, target string) ([]*Table, error) {
	rows, err := db.QueryContext(ctx, d.GetTablesQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query tables: %w", err)
	}
	defer rows.Close()

	var tables []*Table
	for rows.Next() {
		var name, comment sql.NullString
		if err := rows.Scan(&name, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan table name: %w", err)
		}
		if !name.Valid {
			continue
		}
		tables = append(tables, &Table{Schema: target, Name: name.String, Comment: comment.String})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tables: %w", err)
	}
	return tables, nil
}

func fetchColumns(ctx context.Context, db *sql.DB, d dialect.Dialect, target string) ([]columnRow, error) {
	rows, err := db.QueryContext(ctx, d.GetColumnsQuery(target), target)
	if err != nil {
		return nil, fmt.Errorf("failed to query columns: %w", err)
	}
	defer rows.Close()

	var out []columnRow
	for rows.Next() {
		var tName, cName, dType, cType, isNull, cKey, extra, isUnique, comment sql.NullString
		var cLen sql.NullString // Use String for safety

		if err := rows.Scan(&tName, &cName, &dType, &cType, &cLen, &isNull, &cKey, &extra, &isUnique, &comment); err != nil {
			return nil, fmt.Errorf("failed to scan column (table: %s): %w", tName.String, err)
		}
		if !tName.Valid || !cName.Valid {
			continue
		}

		isAutoInc := false
		if extra.Valid {
			extraLower := strings.ToLower(extra.String)
			isAutoInc = strings.Contains(extraLower, "auto_increment") ||
				strings.Contains(extraLower, "identity") ||
				strings.Contains(extraLower, "nextval")
		}

		col := &Column{
			Name:       cName.String,
			DataType:   d.NormalizeType(dType.String),
			Length:     parseLength(cLen),
			IsNullable: isNull.String == "YES" || isNull.String == "Y",
			IsPK:       strings.Contains(cKey.String, "PRI"),
			IsAutoInc:  isAutoInc,
			IsUnique:   strings.Contains(isUnique.String, "UNIQUE"),
			Comment:    comment.String,
		}
		out = append(out, columnRow{table: tName.String, column: col})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating columns: %w", err)
	}
	return out, nil
}

// parseLength accepts integer or float renderings (Oracle returns NUMBER).
func parseLength(s sql.NullString) int {
	if !s.Valid || s.String == "" {
		return 0
	}
	var length int
	if _, err := fmt.Sscanf(s.String, "%d", &length); err == nil {
		return length
	}
	var fLength float64
	if _, err := fmt.Sscanf(s.String, "%f", &fLength); err == nil {
		return int(fLength)
	}
	return 0
}

func fetchForeignKeys(ctx context.Context, db *sql.DB, d dialect.Dialect, target string) ([]foreignKeyRow, error) {
	rows, err := db.QueryContext(ctx, d.GetForeignKeysQuery(target), target)
	if err != nil {
		// FK queries need catalog permissions some accounts lack; fail rather than
		// document a graph without edges.
		return nil, fmt.Errorf("failed to query foreign keys: %w", err)
	}
	defer rows.Close()

	var out []foreignKeyRow
	for rows.Next() {
		var tName, cConst, cName, rSchema, rTable, rCol, rule sql.NullString
		var pos sql.NullInt64
		if err := rows.Scan(&tName, &cConst, &cName, &rSchema, &rTable, &rCol, &pos, &rule); err != nil {
			return nil, fmt.Errorf("failed to scan foreign key: %w", err)
		}
		if !tName.Valid || !rTable.Valid || !cName.Valid {
			continue
		}
		out = append(out, foreignKeyRow{
			table:      tName.String,
			constraint: cConst.String,
			column:     cName.String,
			refSchema:  rSchema.String,
			refTable:   rTable.String,
			refColumn:  rCol.String,
			position:   pos.Int64,
			deleteRule: rule.String,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating foreign keys: %w", err)
	}
	return out, nil
}

// mergeForeignKeys groups per-column rows into constraints and attaches them to their
// child tables. Constraints whose parent lives outside the analyzed schema are skipped.
func mergeForeignKeys(index *tableIndex, rows []foreignKeyRow, target string) {
	type groupKey struct{ table, constraint string }
	groups := make(map[groupKey][]foreignKeyRow)
	var order []groupKey
	for _, r := range rows {
		k := groupKey{r.table, r.constraint}
		if _, ok := groups[k]; !ok {
			order = append(order, k)
		}
		groups[k] = append(groups[k], r)
	}

	for _, k := range order {
		parts := groups[k]
		sort.SliceStable(parts, func(i, j int) bool { return parts[i].position < parts[j].position })
		first := parts[0]

		child := index.lookup(k.table)
		if child == nil {
			continue
		}
		if first.refSchema != "" && !strings.EqualFold(first.refSchema, target) {
			log.Printf("Skipping %s.%s: references %s.%s outside schema %s", child.Name, first.constraint, first.refSchema, first.refTable, target)
			continue
		}
		parent := index.lookup(first.refTable)
		if parent == nil {
			log.Printf("Skipping %s.%s: unknown referenced table %s", child.Name, first.constraint, first.refTable)
			continue
		}

		fk := &ForeignKey{
			Name:      first.constraint,
			Schema:    child.Schema,
			Table:     child.Name,
			RefSchema: parent.Schema,
			RefTable:  parent.Name, // original case
			OnDelete:  first.deleteRule,
		}
		for _, p := range parts {
			fk.Columns = append(fk.Columns, p.column)
			if p.refColumn != "" {
				fk.RefColumns = append(fk.RefColumns, p.refColumn)
			}
		}
		if len(fk.RefColumns) == 0 {
			for _, c := range parent.PrimaryKey() {
				fk.RefColumns = append(fk.RefColumns, c.Name)
			}
		}
		child.ForeignKeys = append(child.ForeignKeys, fk)
	}
}
