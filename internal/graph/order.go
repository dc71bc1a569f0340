package graph

import (
	"container/heap"
	"errors"

	"db-graph/internal/schema"
)

var errNotResolved = errors.New("graph has not been resolved")

// nodeHeap is a min-heap on table key, the tie-break among ready tables.
type nodeHeap []*Node

func (h nodeHeap) Len() int           { return len(h) }
func (h nodeHeap) Less(i, j int) bool { return h[i].Key().Less(h[j].Key()) }
func (h nodeHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *nodeHeap) Push(x any)        { *h = append(*h, x.(*Node)) }
func (h *nodeHeap) Pop() any {
	old := *h
	n := old[len(old)-1]
	*h = old[:len(old)-1]
	return n
}

// InsertionOrder runs Kahn's algorithm over NORMAL edges. Whenever several tables are
// ready at once the smallest (schema, name) goes first, so isolated tables land by
// name among whatever else is ready at that step.
func (g *Graph) InsertionOrder() ([]*Node, error) {
	if !g.resolved {
		return nil, errNotResolved
	}

	inDegree := make([]int, len(g.Nodes))
	for _, e := range g.Edges {
		if !e.IsDeferred() {
			inDegree[e.Child.index]++
		}
	}

	ready := &nodeHeap{}
	for _, n := range g.Nodes {
		if inDegree[n.index] == 0 {
			heap.Push(ready, n)
		}
	}

	order := make([]*Node, 0, len(g.Nodes))
	for ready.Len() > 0 {
		n := heap.Pop(ready).(*Node)
		order = append(order, n)
		for _, e := range n.Out {
			if e.IsDeferred() {
				continue
			}
			inDegree[e.Child.index]--
			if inDegree[e.Child.index] == 0 {
				heap.Push(ready, e.Child)
			}
		}
	}

	if len(order) != len(g.Nodes) {
		var stuck []schema.TableKey
		for _, n := range g.Nodes {
			if inDegree[n.index] > 0 {
				stuck = append(stuck, n.Key())
			}
		}
		return nil, &GraphIntegrityError{Tables: stuck, Reason: "tables left unordered by NORMAL edges"}
	}
	return order, nil
}

// Reverse returns the nodes in reverse order. Deletion order is always derived this way.
func Reverse(order []*Node) []*Node {
	out := make([]*Node, len(order))
	for i, n := range order {
		out[len(order)-1-i] = n
	}
	return out
}

// levels returns the length of the longest NORMAL path ending at each node.
func levels(order []*Node) map[*Node]int {
	lvl := make(map[*Node]int, len(order))
	for _, n := range order {
		for _, e := range n.Out {
			if e.IsDeferred() {
				continue
			}
			if l := lvl[n] + 1; l > lvl[e.Child] {
				lvl[e.Child] = l
			}
		}
	}
	return lvl
}
