package graph

import (
	"fmt"
	"sort"

	"db-graph/internal/schema"
)

// Annotation tells whether an edge takes part in ordering.
type Annotation uint8

const (
	Normal Annotation = iota
	Deferred
)

func (a Annotation) String() string {
	if a == Deferred {
		return "DEFERRED"
	}
	return "NORMAL"
}

type Node struct {
	Table *schema.Table
	Out   []*Edge // edges to child tables
	In    []*Edge // edges from parent tables

	index int
}

func (n *Node) Key() schema.TableKey { return n.Table.Key() }

// Edge is one foreign key constraint, Parent -> Child.
type Edge struct {
	ID         int
	Constraint *schema.ForeignKey
	Parent     *Node
	Child      *Node

	annotation Annotation
}

func (e *Edge) Annotation() Annotation { return e.annotation }

func (e *Edge) IsDeferred() bool { return e.annotation == Deferred }

func (e *Edge) IsSelfLoop() bool { return e.Parent == e.Child }

func (e *Edge) String() string {
	return fmt.Sprintf("%s -> %s (%s, %s)", e.Parent.Key(), e.Child.Key(), e.Constraint.Name, e.annotation)
}

type Graph struct {
	Nodes []*Node // sorted by table key
	Edges []*Edge // sorted by child name, parent name, constraint name

	byKey    map[schema.TableKey]*Node
	resolved bool
}

// Build creates one node per table and one edge per foreign key. The result does not
// depend on the order in which tables or constraints were loaded.
func Build(db *schema.Database) (*Graph, error) {
	g := &Graph{byKey: make(map[schema.TableKey]*Node, len(db.Tables))}

	tables := make([]*schema.Table, len(db.Tables))
	copy(tables, db.Tables)
	sort.Slice(tables, func(i, j int) bool { return tables[i].Key().Less(tables[j].Key()) })

	for i, t := range tables {
		n := &Node{Table: t, index: i}
		g.Nodes = append(g.Nodes, n)
		g.byKey[t.Key()] = n
	}

	fks := db.ForeignKeys()
	sort.SliceStable(fks, func(i, j int) bool { return schema.CompareForeignKeys(fks[i], fks[j]) < 0 })

	for _, fk := range fks {
		child := g.byKey[fk.ChildKey()]
		parent := g.byKey[fk.ParentKey()]
		if child == nil || parent == nil {
			return nil, &schema.MalformedSchemaError{
				Table:      fk.ChildKey().String(),
				Constraint: fk.Name,
				Reason:     fmt.Sprintf("references table %s outside the graph", fk.ParentKey()),
			}
		}
		e := &Edge{ID: len(g.Edges), Constraint: fk, Parent: parent, Child: child}
		g.Edges = append(g.Edges, e)
		parent.Out = append(parent.Out, e)
		child.In = append(child.In, e)
	}
	return g, nil
}

// Node returns the node for a table, or nil.
func (g *Graph) Node(key schema.TableKey) *Node {
	return g.byKey[key]
}

// Deferred returns the deferred edges in edge order.
func (g *Graph) Deferred() []*Edge {
	var out []*Edge
	for _, e := range g.Edges {
		if e.IsDeferred() {
			out = append(out, e)
		}
	}
	return out
}
