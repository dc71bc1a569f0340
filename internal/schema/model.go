package schema

import (
	"fmt"
	"strings"
)

// TableKey identifies a table within a loaded database.
type TableKey struct {
	Schema string
	Name   string
}

func (k TableKey) String() string {
	if k.Schema == "" {
		return k.Name
	}
	return k.Schema + "." + k.Name
}

// Less orders keys by schema name, then table name.
func (k TableKey) Less(o TableKey) bool {
	if k.Schema != o.Schema {
		return k.Schema < o.Schema
	}
	return k.Name < o.Name
}

// Database is one schema (or catalog) of one database instance.
type Database struct {
	Name   string
	Schema string
	Tables []*Table

	byKey map[TableKey]*Table
}

type Table struct {
	Schema      string
	Name        string
	Comment     string
	Columns     []*Column
	ForeignKeys []*ForeignKey // this table is the child
	Referenced  []*ForeignKey // this table is the parent, filled by NewDatabase
}

type Column struct {
	Name       string
	DataType   string
	Length     int
	IsNullable bool
	IsPK       bool
	IsAutoInc  bool
	IsUnique   bool
	Comment    string // DB column comment (COLUMN_COMMENT, MS_Description, ...)
}

// ForeignKey is a constraint from Table(Columns) to RefTable(RefColumns).
// Columns and RefColumns are paired by position.
type ForeignKey struct {
	Name       string
	Schema     string
	Table      string
	Columns    []string
	RefSchema  string
	RefTable   string
	RefColumns []string
	OnDelete   string

	child  *Table
	parent *Table
}

func (t *Table) Key() TableKey {
	return TableKey{Schema: t.Schema, Name: t.Name}
}

// Column returns the named column or nil.
func (t *Table) Column(name string) *Column {
	for _, c := range t.Columns {
		if c.Name == name {
			return c
		}
	}
	return nil
}

// PrimaryKey returns the primary key columns in declaration order.
func (t *Table) PrimaryKey() []*Column {
	var pk []*Column
	for _, c := range t.Columns {
		if c.IsPK {
			pk = append(pk, c)
		}
	}
	return pk
}

func (fk *ForeignKey) ChildKey() TableKey {
	return TableKey{Schema: fk.Schema, Name: fk.Table}
}

func (fk *ForeignKey) ParentKey() TableKey {
	return TableKey{Schema: fk.RefSchema, Name: fk.RefTable}
}

// Child returns the referencing table. Nil until the constraint is linked by NewDatabase.
func (fk *ForeignKey) Child() *Table { return fk.child }

// Parent returns the referenced table. Nil until the constraint is linked by NewDatabase.
func (fk *ForeignKey) Parent() *Table { return fk.parent }

// IsSelfReference reports whether the constraint points back at its own table.
func (fk *ForeignKey) IsSelfReference() bool {
	return fk.ChildKey() == fk.ParentKey()
}

// IsOptional reports whether every child column is nullable, meaning a row can be
// inserted before its parent exists.
func (fk *ForeignKey) IsOptional() bool {
	if fk.child == nil {
		return false
	}
	for _, name := range fk.Columns {
		c := fk.child.Column(name)
		if c == nil || !c.IsNullable {
			return false
		}
	}
	return true
}

func (fk *ForeignKey) String() string {
	return fmt.Sprintf("%s: %s(%s) -> %s(%s)", fk.Name,
		fk.ChildKey(), strings.Join(fk.Columns, ", "),
		fk.ParentKey(), strings.Join(fk.RefColumns, ", "))
}

// Table looks a table up by identity.
func (d *Database) Table(key TableKey) *Table {
	return d.byKey[key]
}

// ForeignKeys returns every constraint in the database, grouped by child table.
func (d *Database) ForeignKeys() []*ForeignKey {
	var fks []*ForeignKey
	for _, t := range d.Tables {
		fks = append(fks, t.ForeignKeys...)
	}
	return fks
}
