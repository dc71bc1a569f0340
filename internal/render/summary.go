package render

import (
	"encoding/xml"

	"db-graph/internal/graph"
	"db-graph/internal/schema"
)

type summary struct {
	XMLName        xml.Name       `xml:"database" yaml:"-"`
	Name           string         `xml:"name,attr" yaml:"name"`
	Schema         string         `xml:"schema,attr" yaml:"schema"`
	Type           string         `xml:"type,attr,omitempty" yaml:"type,omitempty"`
	Generated      string         `xml:"generated,attr" yaml:"generated"`
	Tables         []summaryTable `xml:"tables>table" yaml:"tables"`
	InsertionOrder []string       `xml:"-" yaml:"insertionOrder"`
	DeletionOrder  []string       `xml:"-" yaml:"deletionOrder"`
	Deferred       []string       `xml:"-" yaml:"deferred,omitempty"`
}

type summaryTable struct {
	Name        string          `xml:"name,attr" yaml:"name"`
	Schema      string          `xml:"schema,attr" yaml:"schema"`
	Remarks     string          `xml:"remarks,attr,omitempty" yaml:"remarks,omitempty"`
	Level       int             `xml:"level,attr" yaml:"level"`
	Position    int             `xml:"insertionPosition,attr" yaml:"insertionPosition"`
	Columns     []summaryColumn `xml:"column" yaml:"columns"`
	PrimaryKeys []primaryKey    `xml:"primaryKey" yaml:"primaryKey,omitempty"`
}

type summaryColumn struct {
	ID            int        `xml:"id,attr" yaml:"id"`
	Name          string     `xml:"name,attr" yaml:"name"`
	Type          string     `xml:"type,attr" yaml:"type"`
	Size          int        `xml:"size,attr" yaml:"size,omitempty"`
	Nullable      bool       `xml:"nullable,attr" yaml:"nullable"`
	AutoIncrement bool       `xml:"autoUpdated,attr" yaml:"autoIncrement,omitempty"`
	Remarks       string     `xml:"remarks,attr,omitempty" yaml:"remarks,omitempty"`
	Parents       []relation `xml:"parent" yaml:"parents,omitempty"`
	Children      []relation `xml:"child" yaml:"children,omitempty"`
}

type primaryKey struct {
	Column   string `xml:"column,attr" yaml:"column"`
	Sequence int    `xml:"sequenceNumberInPK,attr" yaml:"sequence"`
}

type relation struct {
	Table           string `xml:"table,attr" yaml:"table"`
	Column          string `xml:"column,attr" yaml:"column"`
	ForeignKey      string `xml:"foreignKey,attr" yaml:"foreignKey"`
	Deferred        bool   `xml:"deferred,attr" yaml:"deferred,omitempty"`
	OnDeleteCascade bool   `xml:"onDeleteCascade,attr" yaml:"onDeleteCascade,omitempty"`
}

func newSummary(snap *graph.Snapshot, opts Options) summary {
	db := snap.Database()
	s := summary{
		Name:      db.Name,
		Schema:    db.Schema,
		Type:      opts.DatabaseType,
		Generated: opts.Generated.Format("2006-01-02 15:04:05 MST"),
	}
	for _, t := range snap.Tables() {
		s.Tables = append(s.Tables, newSummaryTable(snap, t))
	}
	for _, k := range snap.InsertionOrder() {
		s.InsertionOrder = append(s.InsertionOrder, DisplayName(snap, k))
	}
	for _, k := range snap.DeletionOrder() {
		s.DeletionOrder = append(s.DeletionOrder, DisplayName(snap, k))
	}
	for _, e := range snap.Deferred() {
		s.Deferred = append(s.Deferred, e.Name)
	}
	return s
}

func newSummaryTable(snap *graph.Snapshot, t *schema.Table) summaryTable {
	key := t.Key()
	st := summaryTable{
		Name:     t.Name,
		Schema:   t.Schema,
		Remarks:  t.Comment,
		Level:    snap.Level(key),
		Position: snap.Position(key),
	}

	parents := make(map[string][]relation)
	for _, e := range snap.Incoming(key) {
		for i, col := range e.Columns {
			parents[col] = append(parents[col], relation{
				Table:           DisplayName(snap, e.Parent),
				Column:          e.RefColumns[i],
				ForeignKey:      e.Name,
				Deferred:        e.Deferred(),
				OnDeleteCascade: e.OnDelete == "CASCADE",
			})
		}
	}
	children := make(map[string][]relation)
	for _, e := range snap.Outgoing(key) {
		for i, col := range e.RefColumns {
			children[col] = append(children[col], relation{
				Table:           DisplayName(snap, e.Child),
				Column:          e.Columns[i],
				ForeignKey:      e.Name,
				Deferred:        e.Deferred(),
				OnDeleteCascade: e.OnDelete == "CASCADE",
			})
		}
	}

	for i, c := range t.Columns {
		st.Columns = append(st.Columns, summaryColumn{
			ID:            i,
			Name:          c.Name,
			Type:          c.DataType,
			Size:          c.Length,
			Nullable:      c.IsNullable,
			AutoIncrement: c.IsAutoInc,
			Remarks:       c.Comment,
			Parents:       parents[c.Name],
			Children:      children[c.Name],
		})
	}
	for i, c := range t.PrimaryKey() {
		st.PrimaryKeys = append(st.PrimaryKeys, primaryKey{Column: c.Name, Sequence: i + 1})
	}
	return st
}
