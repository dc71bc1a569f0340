package graph

import (
	"errors"
	"sort"

	"db-graph/internal/schema"
)

var errAlreadyResolved = errors.New("graph already resolved")

// ResolveCycles marks the edges that must be ignored for the NORMAL edges to form a
// DAG and returns them in edge order.
//
// Every self-loop is deferred. Inside each strongly connected component of more than
// one table, internal edges are visited in (child name, parent name, constraint name)
// order and an edge is deferred when it still closes a cycle, i.e. its child can reach
// its parent over NORMAL edges inside the component. Annotations are set once; a graph
// can be resolved only once.
func (g *Graph) ResolveCycles() ([]*Edge, error) {
	if g.resolved {
		return nil, errAlreadyResolved
	}
	g.resolved = true

	for _, e := range g.Edges {
		if e.IsSelfLoop() {
			e.annotation = Deferred
		}
	}

	for _, comp := range g.components() {
		if len(comp) < 2 {
			continue
		}
		in := make(map[*Node]bool, len(comp))
		for _, n := range comp {
			in[n] = true
		}
		for _, e := range g.Edges {
			if e.IsDeferred() || !in[e.Parent] || !in[e.Child] {
				continue
			}
			if reaches(e.Child, e.Parent, in) {
				e.annotation = Deferred
			}
		}
		if hasCycle(comp, in) {
			keys := make([]schema.TableKey, len(comp))
			for i, n := range comp {
				keys[i] = n.Key()
			}
			return nil, &GraphIntegrityError{Tables: keys, Reason: "component still cyclic after deferring every candidate"}
		}
	}

	return g.Deferred(), nil
}

// components returns the strongly connected components over NORMAL edges (Tarjan).
// Nodes within a component keep graph order.
func (g *Graph) components() [][]*Node {
	var (
		index   = 0
		indices = make([]int, len(g.Nodes))
		lowlink = make([]int, len(g.Nodes))
		onStack = make([]bool, len(g.Nodes))
		stack   []*Node
		comps   [][]*Node
	)
	for i := range indices {
		indices[i] = -1
	}

	var strongConnect func(v *Node)
	strongConnect = func(v *Node) {
		indices[v.index] = index
		lowlink[v.index] = index
		index++
		stack = append(stack, v)
		onStack[v.index] = true

		for _, e := range v.Out {
			if e.IsDeferred() {
				continue
			}
			w := e.Child
			if indices[w.index] < 0 {
				strongConnect(w)
				lowlink[v.index] = min(lowlink[v.index], lowlink[w.index])
			} else if onStack[w.index] {
				lowlink[v.index] = min(lowlink[v.index], indices[w.index])
			}
		}

		if lowlink[v.index] == indices[v.index] {
			var comp []*Node
			for {
				w := stack[len(stack)-1]
				stack = stack[:len(stack)-1]
				onStack[w.index] = false
				comp = append(comp, w)
				if w == v {
					break
				}
			}
			sort.Slice(comp, func(i, j int) bool { return comp[i].index < comp[j].index })
			comps = append(comps, comp)
		}
	}

	for _, n := range g.Nodes {
		if indices[n.index] < 0 {
			strongConnect(n)
		}
	}
	return comps
}

// reaches reports whether to is reachable from from over NORMAL edges inside the set.
func reaches(from, to *Node, in map[*Node]bool) bool {
	seen := map[*Node]bool{from: true}
	queue := []*Node{from}
	for len(queue) > 0 {
		n := queue[0]
		queue = queue[1:]
		if n == to {
			return true
		}
		for _, e := range n.Out {
			if e.IsDeferred() || !in[e.Child] || seen[e.Child] {
				continue
			}
			seen[e.Child] = true
			queue = append(queue, e.Child)
		}
	}
	return false
}

// hasCycle runs a colored DFS over NORMAL edges restricted to the set.
func hasCycle(nodes []*Node, in map[*Node]bool) bool {
	const (
		white = iota
		grey
		black
	)
	color := make(map[*Node]int, len(nodes))

	var visit func(n *Node) bool
	visit = func(n *Node) bool {
		color[n] = grey
		for _, e := range n.Out {
			if e.IsDeferred() || !in[e.Child] {
				continue
			}
			switch color[e.Child] {
			case grey:
				return true
			case white:
				if visit(e.Child) {
					return true
				}
			}
		}
		color[n] = black
		return false
	}

	for _, n := range nodes {
		if color[n] == white && visit(n) {
			return true
		}
	}
	return false
}
