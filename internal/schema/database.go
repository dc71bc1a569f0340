package schema

import (
	"cmp"
	"fmt"
	"sort"
)

// MalformedSchemaError reports a model that cannot be turned into a graph: a
// constraint pointing at a missing table or column, mismatched column arity, or a
// duplicated identity.
type MalformedSchemaError struct {
	Table      string
	Constraint string
	Reason     string
}

func (e *MalformedSchemaError) Error() string {
	if e.Constraint != "" {
		return fmt.Sprintf("malformed schema: table %s, constraint %s: %s", e.Table, e.Constraint, e.Reason)
	}
	if e.Table != "" {
		return fmt.Sprintf("malformed schema: table %s: %s", e.Table, e.Reason)
	}
	return "malformed schema: " + e.Reason
}

// NewDatabase validates tables and links every foreign key to its child and parent.
// Tables without a schema inherit schemaName; constraints without a schema inherit the
// schema of their owning table. On error no Database is returned.
func NewDatabase(name, schemaName string, tables []*Table) (*Database, error) {
	db := &Database{
		Name:   name,
		Schema: schemaName,
		byKey:  make(map[TableKey]*Table, len(tables)),
	}

	for _, t := range tables {
		if t == nil {
			return nil, &MalformedSchemaError{Reason: "nil table"}
		}
		if t.Name == "" {
			return nil, &MalformedSchemaError{Reason: "table without a name"}
		}
		if t.Schema == "" {
			t.Schema = schemaName
		}
		if _, dup := db.byKey[t.Key()]; dup {
			return nil, &MalformedSchemaError{Table: t.Key().String(), Reason: "duplicate table"}
		}
		seen := make(map[string]bool, len(t.Columns))
		for _, c := range t.Columns {
			if seen[c.Name] {
				return nil, &MalformedSchemaError{Table: t.Key().String(), Reason: fmt.Sprintf("duplicate column %q", c.Name)}
			}
			seen[c.Name] = true
		}
		db.byKey[t.Key()] = t
		t.Referenced = nil
	}

	for _, t := range tables {
		for _, fk := range t.ForeignKeys {
			if err := db.link(t, fk); err != nil {
				return nil, err
			}
		}
	}

	db.Tables = make([]*Table, len(tables))
	copy(db.Tables, tables)
	sort.Slice(db.Tables, func(i, j int) bool {
		return db.Tables[i].Key().Less(db.Tables[j].Key())
	})
	for _, t := range db.Tables {
		sortForeignKeys(t.ForeignKeys)
		sortForeignKeys(t.Referenced)
	}
	return db, nil
}

func (db *Database) link(t *Table, fk *ForeignKey) error {
	malformed := func(format string, args ...any) error {
		return &MalformedSchemaError{Table: t.Key().String(), Constraint: fk.Name, Reason: fmt.Sprintf(format, args...)}
	}

	if fk.Table == "" {
		fk.Table = t.Name
	}
	if fk.Schema == "" {
		fk.Schema = t.Schema
	}
	if fk.ChildKey() != t.Key() {
		return malformed("declared on %s but owned by %s", fk.ChildKey(), t.Key())
	}
	if fk.RefSchema == "" {
		fk.RefSchema = t.Schema
	}
	if len(fk.Columns) == 0 {
		return malformed("no columns")
	}
	if len(fk.Columns) != len(fk.RefColumns) {
		return malformed("%d columns reference %d columns", len(fk.Columns), len(fk.RefColumns))
	}

	parent := db.byKey[fk.ParentKey()]
	if parent == nil {
		return malformed("references unknown table %s", fk.ParentKey())
	}
	for _, c := range fk.Columns {
		if t.Column(c) == nil {
			return malformed("unknown column %q", c)
		}
	}
	for _, c := range fk.RefColumns {
		if parent.Column(c) == nil {
			return malformed("references unknown column %s.%s", fk.ParentKey(), c)
		}
	}

	fk.child = t
	fk.parent = parent
	parent.Referenced = append(parent.Referenced, fk)
	return nil
}

// sortForeignKeys orders constraints by (child name, parent name, constraint name).
func sortForeignKeys(fks []*ForeignKey) {
	sort.SliceStable(fks, func(i, j int) bool {
		return CompareForeignKeys(fks[i], fks[j]) < 0
	})
}

// CompareForeignKeys orders constraints by child table, parent table, then
// constraint name. Schema names break remaining ties.
func CompareForeignKeys(a, b *ForeignKey) int {
	switch {
	case a.Table != b.Table:
		return cmp.Compare(a.Table, b.Table)
	case a.RefTable != b.RefTable:
		return cmp.Compare(a.RefTable, b.RefTable)
	case a.Name != b.Name:
		return cmp.Compare(a.Name, b.Name)
	case a.Schema != b.Schema:
		return cmp.Compare(a.Schema, b.Schema)
	default:
		return cmp.Compare(a.RefSchema, b.RefSchema)
	}
}
