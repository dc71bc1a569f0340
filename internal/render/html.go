package render

import (
	"embed"
	"html/template"
	"io"

	"db-graph/internal/graph"
	"db-graph/internal/schema"

	"github.com/Masterminds/sprig/v3"
)

//go:embed templates/*.html
var templateFS embed.FS

var pages = map[string]*template.Template{
	"index":  mustPage("index.html"),
	"orders": mustPage("orders.html"),
	"table":  mustPage("table.html"),
}

func mustPage(name string) *template.Template {
	return template.Must(template.New(name).
		Funcs(sprig.FuncMap()).
		ParseFS(templateFS, "templates/layout.html", "templates/"+name))
}

type page struct {
	Title        string
	Root         string
	Database     string
	Schema       string
	DatabaseType string
	Generated    string
	Version      string

	Tables    []tableRow
	Insertion []orderRow
	Deletion  []orderRow
	Deferred  []edgeRow
	Table     *tableDetail
}

type tableRow struct {
	Name     string
	URL      string
	Comment  string
	Level    int
	Position int
	Columns  int
	Parents  int
	Children int
}

type orderRow struct {
	Name string
	URL  string
}

type edgeRow struct {
	Name       string
	Child      string
	ChildURL   string
	Parent     string
	ParentURL  string
	Columns    []string
	RefColumns []string
	OnDelete   string
	Deferred   bool
	SelfLoop   bool
}

type columnRow struct {
	Name     string
	Type     string
	Length   int
	Nullable bool
	PK       bool
	AutoInc  bool
	Unique   bool
	Comment  string
	Parents  []string
	Children []string
}

type tableDetail struct {
	Name     string
	Comment  string
	Level    int
	Position int
	Diagram  string
	Columns  []columnRow
	Parents  []edgeRow
	Children []edgeRow
}

func newPage(snap *graph.Snapshot, opts Options, title, root string) page {
	db := snap.Database()
	return page{
		Title:        title,
		Root:         root,
		Database:     db.Name,
		Schema:       db.Schema,
		DatabaseType: opts.DatabaseType,
		Generated:    opts.Generated.Format("Mon Jan 02 15:04 MST 2006"),
		Version:      opts.Version,
	}
}

func newEdgeRow(snap *graph.Snapshot, files *FileNames, e graph.EdgeView, root string) edgeRow {
	return edgeRow{
		Name:       e.Name,
		Child:      DisplayName(snap, e.Child),
		ChildURL:   root + files.Page(e.Child),
		Parent:     DisplayName(snap, e.Parent),
		ParentURL:  root + files.Page(e.Parent),
		Columns:    e.Columns,
		RefColumns: e.RefColumns,
		OnDelete:   e.OnDelete,
		Deferred:   e.Deferred(),
		SelfLoop:   e.SelfLoop(),
	}
}

func WriteIndexPage(w io.Writer, snap *graph.Snapshot, opts Options) error {
	files := opts.fileNames(snap)
	p := newPage(snap, opts, "Tables", "")
	for _, t := range snap.Tables() {
		key := t.Key()
		p.Tables = append(p.Tables, tableRow{
			Name:     DisplayName(snap, key),
			URL:      files.Page(key),
			Comment:  t.Comment,
			Level:    snap.Level(key),
			Position: snap.Position(key),
			Columns:  len(t.Columns),
			Parents:  len(snap.Incoming(key)),
			Children: len(snap.Outgoing(key)),
		})
	}
	return pages["index"].ExecuteTemplate(w, "layout", p)
}

func WriteOrdersPage(w io.Writer, snap *graph.Snapshot, opts Options) error {
	files := opts.fileNames(snap)
	p := newPage(snap, opts, "Orders", "")
	for _, k := range snap.InsertionOrder() {
		p.Insertion = append(p.Insertion, orderRow{Name: DisplayName(snap, k), URL: files.Page(k)})
	}
	for _, k := range snap.DeletionOrder() {
		p.Deletion = append(p.Deletion, orderRow{Name: DisplayName(snap, k), URL: files.Page(k)})
	}
	for _, e := range snap.Deferred() {
		p.Deferred = append(p.Deferred, newEdgeRow(snap, files, e, ""))
	}
	return pages["orders"].ExecuteTemplate(w, "layout", p)
}

// WriteTablePage writes the detail page of key. Links are relative to tables/.
func WriteTablePage(w io.Writer, snap *graph.Snapshot, key schema.TableKey, opts Options) error {
	t := snap.Table(key)
	files := opts.fileNames(snap)
	name := DisplayName(snap, key)
	const root = "../"

	p := newPage(snap, opts, name, root)
	d := &tableDetail{
		Name:     name,
		Comment:  t.Comment,
		Level:    snap.Level(key),
		Position: snap.Position(key),
		Diagram:  files.Diagram(key),
	}

	parents := make(map[string][]string)
	for _, e := range snap.Incoming(key) {
		d.Parents = append(d.Parents, newEdgeRow(snap, files, e, root))
		for i, col := range e.Columns {
			parents[col] = append(parents[col], DisplayName(snap, e.Parent)+"."+e.RefColumns[i])
		}
	}
	children := make(map[string][]string)
	for _, e := range snap.Outgoing(key) {
		d.Children = append(d.Children, newEdgeRow(snap, files, e, root))
		for i, col := range e.RefColumns {
			children[col] = append(children[col], DisplayName(snap, e.Child)+"."+e.Columns[i])
		}
	}

	for _, c := range t.Columns {
		d.Columns = append(d.Columns, columnRow{
			Name:     c.Name,
			Type:     c.DataType,
			Length:   c.Length,
			Nullable: c.IsNullable,
			PK:       c.IsPK,
			AutoInc:  c.IsAutoInc,
			Unique:   c.IsUnique,
			Comment:  c.Comment,
			Parents:  parents[c.Name],
			Children: children[c.Name],
		})
	}
	p.Table = d
	return pages["table"].ExecuteTemplate(w, "layout", p)
}
