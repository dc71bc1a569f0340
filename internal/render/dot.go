package render

import (
	"io"
	"sort"
	"strings"
	"text/template"

	"db-graph/internal/graph"
	"db-graph/internal/schema"

	"github.com/Masterminds/sprig/v3"
)

const SummaryDiagramFile = "diagrams/summary/relationships.dot"

type dotNode struct {
	ID      string
	Focus   bool
	URL     string
	Columns []dotColumn
	Level   int
}

type dotColumn struct {
	Name string
	Type string
	PK   bool
}

type dotEdge struct {
	Child, ChildColumn   string
	Parent, ParentColumn string
	Optional             bool
	Deferred             bool
}

type dotGraph struct {
	Name       string
	Version    string
	DotVersion string
	Nodes   []dotNode
	Edges   []dotEdge
}

var dotTemplate = template.Must(template.New("dot").
	Funcs(sprig.TxtFuncMap()).
	Funcs(template.FuncMap{"q": dotQuote}).
	Parse(`// dot {{ .DotVersion }}
// db-graph rev {{ .Version }}
digraph "{{ q .Name }}" {
  graph [
    rankdir="RL"
    bgcolor="#ffffff"
    nodesep="0.18"
    ranksep="0.46"
    fontname="Helvetica"
    fontsize="11"
  ];
  node [
    fontname="Helvetica"
    fontsize="11"
    shape="plaintext"
  ];
  edge [
    arrowsize="0.8"
  ];
{{- range .Edges }}
  "{{ q .Child }}":"{{ q .ChildColumn }}":w -> "{{ q .Parent }}":"{{ q .ParentColumn }}":e [arrowhead=none dir=back arrowtail={{ if .Optional }}teeodot{{ else }}crowodot{{ end }}{{ if .Deferred }} style=dashed{{ end }}];
{{- end }}
{{- range .Nodes }}
  "{{ q .ID }}" [
    label=<
    <TABLE BORDER="{{ if .Focus }}2{{ else }}0{{ end }}" CELLBORDER="1" CELLSPACING="0" BGCOLOR="#ffffff">
      <TR><TD COLSPAN="2" BGCOLOR="#9bab96" ALIGN="CENTER">{{ html .ID }}</TD></TR>
{{- range .Columns }}
      <TR><TD PORT="{{ html .Name }}" ALIGN="LEFT">{{ if .PK }}<B>{{ html .Name }}</B>{{ else }}{{ html .Name }}{{ end }}</TD><TD ALIGN="LEFT">{{ html (.Type | default "?") }}</TD></TR>
{{- end }}
      <TR><TD COLSPAN="2" ALIGN="RIGHT">level {{ .Level }}</TD></TR>
    </TABLE>>
    URL="{{ .URL }}"
    tooltip="{{ q .ID }}"
  ];
{{- end }}
}
`))

func (o Options) dotVersion() string {
	if o.DotVersion == "" {
		return "unknown"
	}
	return o.DotVersion
}

func dotQuote(s string) string {
	return strings.NewReplacer(`\`, `\\`, `"`, `\"`).Replace(s)
}

// WriteSummaryDot writes the diagram of every table and edge.
func WriteSummaryDot(w io.Writer, snap *graph.Snapshot, opts Options) error {
	files := opts.fileNames(snap)
	g := dotGraph{Name: snap.Database().Name, Version: opts.Version, DotVersion: opts.dotVersion()}
	for _, t := range snap.Tables() {
		g.Nodes = append(g.Nodes, newDotNode(snap, files, t, false))
	}
	for _, e := range snap.Edges() {
		g.Edges = append(g.Edges, newDotEdges(snap, e)...)
	}
	return dotTemplate.Execute(w, g)
}

// WriteTableDot writes the diagram of key, the tables it references and the tables
// referencing it.
func WriteTableDot(w io.Writer, snap *graph.Snapshot, key schema.TableKey, opts Options) error {
	files := opts.fileNames(snap)
	g := dotGraph{Name: DisplayName(snap, key), Version: opts.Version, DotVersion: opts.dotVersion()}

	neighbours := map[schema.TableKey]bool{key: true}
	seen := make(map[int]bool)
	var edges []graph.EdgeView
	for _, e := range append(snap.Incoming(key), snap.Outgoing(key)...) {
		if seen[e.ID] {
			continue
		}
		seen[e.ID] = true
		edges = append(edges, e)
		neighbours[e.Parent] = true
		neighbours[e.Child] = true
	}
	sort.Slice(edges, func(i, j int) bool { return edges[i].ID < edges[j].ID })

	keys := make([]schema.TableKey, 0, len(neighbours))
	for k := range neighbours {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].Less(keys[j]) })

	for _, k := range keys {
		g.Nodes = append(g.Nodes, newDotNode(snap, files, snap.Table(k), k == key))
	}
	for _, e := range edges {
		g.Edges = append(g.Edges, newDotEdges(snap, e)...)
	}
	return dotTemplate.Execute(w, g)
}

func newDotNode(snap *graph.Snapshot, files *FileNames, t *schema.Table, focus bool) dotNode {
	key := t.Key()
	n := dotNode{
		ID:    DisplayName(snap, key),
		Focus: focus,
		URL:   "../../" + files.Page(key),
		Level: snap.Level(key),
	}
	for _, c := range t.Columns {
		n.Columns = append(n.Columns, dotColumn{Name: c.Name, Type: c.DataType, PK: c.IsPK})
	}
	return n
}

// newDotEdges draws one line per column pair of a constraint.
func newDotEdges(snap *graph.Snapshot, e graph.EdgeView) []dotEdge {
	out := make([]dotEdge, len(e.Columns))
	for i := range e.Columns {
		out[i] = dotEdge{
			Child:        DisplayName(snap, e.Child),
			ChildColumn:  e.Columns[i],
			Parent:       DisplayName(snap, e.Parent),
			ParentColumn: e.RefColumns[i],
			Optional:     e.Optional,
			Deferred:     e.Deferred(),
		}
	}
	return out
}
