package graph

import (
	"errors"
	"fmt"

	"db-graph/internal/schema"
)

// EdgeView is a copy of one resolved edge handed to renderers.
type EdgeView struct {
	ID         int
	Name       string
	Parent     schema.TableKey
	Child      schema.TableKey
	Columns    []string
	RefColumns []string
	OnDelete   string
	Optional   bool
	Annotation Annotation
}

func (v EdgeView) Deferred() bool { return v.Annotation == Deferred }

func (v EdgeView) SelfLoop() bool { return v.Parent == v.Child }

func newEdgeView(e *Edge) EdgeView {
	fk := e.Constraint
	return EdgeView{
		ID:         e.ID,
		Name:       fk.Name,
		Parent:     e.Parent.Key(),
		Child:      e.Child.Key(),
		Columns:    append([]string(nil), fk.Columns...),
		RefColumns: append([]string(nil), fk.RefColumns...),
		OnDelete:   fk.OnDelete,
		Optional:   fk.IsOptional(),
		Annotation: e.annotation,
	}
}

// Snapshot is the published, immutable result of one resolution: the annotated edges
// plus both orders. Every accessor returns a fresh copy, so any number of renderers can
// read it concurrently.
type Snapshot struct {
	database  *schema.Database
	tables    []*schema.Table
	edges     []EdgeView
	insertion []schema.TableKey
	incoming  map[schema.TableKey][]int
	outgoing  map[schema.TableKey][]int
	level     map[schema.TableKey]int
	byKey     map[schema.TableKey]*schema.Table
}

// Resolve runs the whole pipeline over a validated model.
func Resolve(db *schema.Database) (*Snapshot, error) {
	if db == nil {
		return nil, errors.New("nil database")
	}
	g, err := Build(db)
	if err != nil {
		return nil, err
	}
	if _, err := g.ResolveCycles(); err != nil {
		return nil, err
	}
	order, err := g.InsertionOrder()
	if err != nil {
		return nil, err
	}
	return Publish(db, g, order)
}

// Publish freezes a resolved graph and its insertion order.
func Publish(db *schema.Database, g *Graph, order []*Node) (*Snapshot, error) {
	if !g.resolved {
		return nil, errNotResolved
	}
	if len(order) != len(g.Nodes) {
		return nil, &GraphIntegrityError{Reason: fmt.Sprintf("order has %d tables, graph has %d", len(order), len(g.Nodes))}
	}

	s := &Snapshot{
		database:  db,
		incoming:  make(map[schema.TableKey][]int, len(g.Nodes)),
		outgoing:  make(map[schema.TableKey][]int, len(g.Nodes)),
		level:     make(map[schema.TableKey]int, len(g.Nodes)),
		byKey:     make(map[schema.TableKey]*schema.Table, len(g.Nodes)),
		insertion: make([]schema.TableKey, len(order)),
	}
	for _, n := range g.Nodes {
		s.tables = append(s.tables, n.Table)
		s.byKey[n.Key()] = n.Table
	}
	for _, e := range g.Edges {
		s.edges = append(s.edges, newEdgeView(e))
		s.incoming[e.Child.Key()] = append(s.incoming[e.Child.Key()], e.ID)
		s.outgoing[e.Parent.Key()] = append(s.outgoing[e.Parent.Key()], e.ID)
	}
	for i, n := range order {
		s.insertion[i] = n.Key()
	}
	for n, l := range levels(order) {
		s.level[n.Key()] = l
	}
	return s, nil
}

// Database returns the model the snapshot was built from. Callers must not modify it.
func (s *Snapshot) Database() *schema.Database { return s.database }

// Tables returns every table sorted by key.
func (s *Snapshot) Tables() []*schema.Table {
	return append([]*schema.Table(nil), s.tables...)
}

// Table returns the table with the given key, or nil.
func (s *Snapshot) Table(key schema.TableKey) *schema.Table { return s.byKey[key] }

func (s *Snapshot) InsertionOrder() []schema.TableKey {
	return append([]schema.TableKey(nil), s.insertion...)
}

// DeletionOrder is InsertionOrder reversed.
func (s *Snapshot) DeletionOrder() []schema.TableKey {
	out := make([]schema.TableKey, len(s.insertion))
	for i, k := range s.insertion {
		out[len(s.insertion)-1-i] = k
	}
	return out
}

// Edges returns all edges, NORMAL and DEFERRED, in edge order.
func (s *Snapshot) Edges() []EdgeView {
	out := make([]EdgeView, len(s.edges))
	for i, v := range s.edges {
		out[i] = copyView(v)
	}
	return out
}

func (s *Snapshot) Deferred() []EdgeView {
	var out []EdgeView
	for _, v := range s.edges {
		if v.Deferred() {
			out = append(out, copyView(v))
		}
	}
	return out
}

// Incoming returns the edges whose child is key (the table's foreign keys).
func (s *Snapshot) Incoming(key schema.TableKey) []EdgeView {
	return s.views(s.incoming[key])
}

// Outgoing returns the edges whose parent is key (tables referencing it).
func (s *Snapshot) Outgoing(key schema.TableKey) []EdgeView {
	return s.views(s.outgoing[key])
}

// Level is the length of the longest NORMAL dependency chain ending at key.
func (s *Snapshot) Level(key schema.TableKey) int { return s.level[key] }

// Position returns the zero-based insertion position of key, or -1.
func (s *Snapshot) Position(key schema.TableKey) int {
	for i, k := range s.insertion {
		if k == key {
			return i
		}
	}
	return -1
}

func (s *Snapshot) views(ids []int) []EdgeView {
	out := make([]EdgeView, len(ids))
	for i, id := range ids {
		out[i] = copyView(s.edges[id])
	}
	return out
}

func copyView(v EdgeView) EdgeView {
	v.Columns = append([]string(nil), v.Columns...)
	v.RefColumns = append([]string(nil), v.RefColumns...)
	return v
}
