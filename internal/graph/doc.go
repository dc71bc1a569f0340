// Package graph turns a schema model into a foreign-key dependency graph, breaks its
// cycles and computes the table insertion and deletion orders.
//
// An edge runs from the referenced (parent) table to the referencing (child) table:
// the parent must be populated first. Cycles are normal input. The resolver marks a
// deterministic set of edges DEFERRED so the remaining NORMAL edges are acyclic; deferred
// edges stay in the graph for rendering but are ignored by ordering.
//
// The pipeline is Build -> ResolveCycles -> InsertionOrder -> Publish, or Resolve for
// all four. Each step consumes the complete output of the previous one.
package graph
